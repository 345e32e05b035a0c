package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/laborguide/internal/logging"
)

type inspectOptions struct {
	Session string
	Last    int
	JSON    bool
}

func NewInspectCmd() *cobra.Command {
	options := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the audit trail of recorded sessions",
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

			out := cmd.OutOrStdout()
			if options.Session != "" {
				events, err := sess.Audit.Events(ctx, options.Session)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					return fmt.Errorf("no audit events for session %s", options.Session)
				}
				if options.JSON {
					return writeJSON(out, events)
				}
				printEvents(out, events)
				return nil
			}

			sessions, err := sess.Audit.Sessions(ctx, options.Last)
			if err != nil {
				return err
			}
			if options.JSON {
				return writeJSON(out, sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded.")
				return nil
			}
			printSessions(out, sessions)
			return nil
		},
	}

	cmd.Flags().StringVar(&options.Session, "session", "", "show the events of one session")
	cmd.Flags().IntVar(&options.Last, "last", 20, "number of most recent sessions to list")
	cmd.Flags().BoolVar(&options.JSON, "json", false, "output as JSON instead of a table")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSessions(w io.Writer, sessions []logging.SessionSummary) {
	fmt.Fprintf(w, "%-36s | %6s | %-16s | %s\n", "Session", "Events", "Started", "Last event")
	fmt.Fprintf(w, "%-36s-+-%6s-+-%-16s-+-%s\n", dashes(36), dashes(6), dashes(16), dashes(16))
	for _, s := range sessions {
		fmt.Fprintf(w, "%-36s | %6d | %-16s | %s\n",
			s.SessionID, s.Events, humanize.Time(s.FirstAt), humanize.Time(s.LastAt))
	}
}

func printEvents(w io.Writer, events []logging.Event) {
	start := events[0].CreatedAt
	fmt.Fprintf(w, "%4s | %-10s | %-18s | %-28s | %-12s | %s\n", "Rev", "Elapsed", "Kind", "Decision", "Stage", "Emergency")
	fmt.Fprintf(w, "%4s-+-%-10s-+-%-18s-+-%-28s-+-%-12s-+-%s\n", dashes(4), dashes(10), dashes(18), dashes(28), dashes(12), dashes(10))
	for _, e := range events {
		answer := ""
		if e.Decision != "" {
			answer = e.Decision + "=" + e.Response
		}
		elapsed := strings.TrimSpace(humanize.RelTime(start, e.CreatedAt, "", ""))
		if !e.CreatedAt.After(start) {
			elapsed = "-"
		}
		fmt.Fprintf(w, "%4d | %-10s | %-18s | %-28s | %-12s | %s\n",
			e.Revision, elapsed, e.Kind, answer, e.Stage, e.Emergency)
	}
}

func dashes(n int) string {
	return strings.Repeat("-", n)
}
