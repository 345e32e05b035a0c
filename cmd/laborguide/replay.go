package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/laborguide/internal/replay"
)

var errReplayDiverged = errors.New("replay diverged from fixture")

type replayOptions struct {
	Fixture string
}

func NewReplayCmd() *cobra.Command {
	options := replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a fixture through a fresh engine and compare next actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := replay.LoadFixture(getFileSystem(cmd.Context()), options.Fixture)
			if err != nil {
				return err
			}
			results, final, err := replay.Run(cmd.Context(), *f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.Description != "" {
				fmt.Fprintf(out, "%s\n\n", f.Description)
			}
			summary := replay.Summarize(results, final, f.ExpectFinal)
			printComparison(out, results, summary)
			if !summary.Passed() {
				return errReplayDiverged
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&options.Fixture, "fixture", "", "path to fixture JSON")
	cmd.MarkFlagRequired("fixture")
	return cmd
}

func printComparison(w io.Writer, results []replay.StepResult, s replay.Summary) {
	fmt.Fprintf(w, "%-10s| %-8s| %-26s| %-26s| %s\n", "Step", "Kind", "Expected", "Replayed", "Match")
	fmt.Fprintf(w, "%-10s+%-9s+%-27s+%-27s+%s\n", dashes(10), dashes(9), dashes(27), dashes(27), dashes(6))

	for _, r := range results {
		id := r.Step.ID
		if id == "" {
			id = fmt.Sprintf("#%d", r.Index+1)
		}
		expected := "-"
		if r.Step.Expect != nil {
			expected = replay.FormatAction(*r.Step.Expect)
		}
		if r.Step.ExpectError != "" {
			expected = "error:" + r.Step.ExpectError
		}
		got := replay.FormatAction(r.Next)
		if r.Err != nil {
			got = "error:" + replay.ErrorClass(r.Err)
		}
		match := "OK"
		if !r.OK() {
			match = "DIFF"
		}
		fmt.Fprintf(w, "%-10s| %-8s| %-26s| %-26s| %s\n", id, r.Step.Kind, expected, got, match)
		if !r.OK() {
			fmt.Fprintf(w, "%10s  %s\n", "", r.Mismatch)
		}
	}

	fmt.Fprintf(w, "\nSummary: %d steps, %d match, %d diverge, final stage %s\n",
		s.TotalSteps, s.Matched, s.Mismatched, s.Final.Stage)
	if s.FinalMismatch != "" {
		fmt.Fprintf(w, "Final state: %s\n", s.FinalMismatch)
	}
}
