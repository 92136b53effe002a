package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"census/internal/config"
	"census/internal/logging"
	"census/internal/missing"
)

func newMissingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "missing <piece_prefix> <results_dir> <group> <piece>",
		Short: "Print expected item ids that no tier of a piece contains",
		Long: "Reads the expected ids from <piece_prefix><piece> and prints, sorted, those\n" +
			"absent from all three tier record streams of the piece.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			layout, err := ctx.layout(args[1], args[2], args[3])
			if err != nil {
				return err
			}
			expected, err := config.ExpandPath(args[0] + args[3])
			if err != nil {
				return err
			}

			ids, err := missing.Find(cmd.Context(), expected, layout, missing.Options{
				Logger: logger,
				Dots:   logging.TerminalWriter(cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}
			out := bufio.NewWriter(cmd.OutOrStdout())
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return out.Flush()
		},
	}
}
