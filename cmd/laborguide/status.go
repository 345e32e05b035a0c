package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/laborguide/internal/engine"
	"github.com/danielpatrickdp/laborguide/internal/replay"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

type statusOptions struct {
	JSON bool
}

type statusView struct {
	State *state.LaborState `json:"state"`
	Next  *engine.NextAction `json:"next,omitempty"`
}

func NewStatusCmd() *cobra.Command {
	options := statusOptions{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session and what comes next",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openFromCmd(ctx, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			cur, err := sess.Engine.CurrentState(ctx)
			if err != nil {
				return err
			}
			view := statusView{State: cur}
			if cur != nil {
				next, err := sess.Engine.NextAction(ctx)
				if err != nil {
					return err
				}
				view.Next = &next
			}

			out := cmd.OutOrStdout()
			if options.JSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			if cur == nil {
				fmt.Fprintln(out, "No active session.")
				return nil
			}
			fmt.Fprintf(out, "Session:    %s (revision %d)\n", cur.SessionID, cur.Revision)
			fmt.Fprintf(out, "Stage:      %s\n", cur.Stage)
			fmt.Fprintf(out, "Started:    %s\n", humanize.Time(cur.LaborStartTimestamp))
			fmt.Fprintf(out, "Updated:    %s\n", humanize.Time(cur.LastUpdated))
			if cur.BirthTimestamp != nil {
				fmt.Fprintf(out, "Birth:      %s\n", humanize.Time(*cur.BirthTimestamp))
			}
			fmt.Fprintf(out, "Decisions:  %d\n", len(cur.DecisionsMade))
			if cur.EmergencyActive {
				fmt.Fprintf(out, "Emergency:  %s\n", cur.EmergencyType)
			}
			fmt.Fprintf(out, "Next:       %s\n", replay.FormatAction(*view.Next))
			return nil
		},
	}

	cmd.Flags().BoolVar(&options.JSON, "json", false, "print as JSON")
	return cmd
}
