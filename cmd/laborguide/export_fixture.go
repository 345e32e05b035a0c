package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/laborguide/internal/replay"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

type exportOptions struct {
	Session string
	Out     string
}

func NewExportFixtureCmd() *cobra.Command {
	options := exportOptions{}
	cmd := &cobra.Command{
		Use:   "export-fixture",
		Short: "Build a replay fixture from a session's audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openFromCmd(ctx, nil)
			if err != nil {
				return err
			}
			defer sess.Close()
			if sess.Audit == nil {
				return errNoAuditLog
			}

			sessionID := options.Session
			if sessionID == "" {
				recent, err := sess.Audit.Sessions(ctx, 1)
				if err != nil {
					return err
				}
				if len(recent) == 0 {
					return fmt.Errorf("no sessions recorded")
				}
				sessionID = recent[0].SessionID
			}

			events, err := sess.Audit.Events(ctx, sessionID)
			if err != nil {
				return err
			}

			// The first version survives only while the session is active.
			var initial *state.LaborState
			versions, err := sess.SQLite.ListVersions(ctx, sessionID)
			if err != nil {
				return err
			}
			if len(versions) > 0 && versions[0].Revision == 0 {
				initial = &versions[0]
			}

			f, err := replay.FromAudit(events, initial)
			if err != nil {
				return fmt.Errorf("session %s: %w", sessionID, err)
			}

			out := cmd.OutOrStdout()
			if options.Out == "" {
				return writeJSON(out, f)
			}
			if err := replay.WriteFixture(getFileSystem(ctx), options.Out, f); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %d steps from session %s to %s\n", len(f.Steps), sessionID, options.Out)
			return nil
		},
	}

	cmd.Flags().StringVar(&options.Session, "session", "", "session id (default: most recent)")
	cmd.Flags().StringVar(&options.Out, "out", "", "output fixture path (default: stdout)")
	return cmd
}
