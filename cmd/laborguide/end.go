package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "Discard the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openFromCmd(ctx, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.Engine.EndSession(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session ended.")
			return nil
		},
	}
}
