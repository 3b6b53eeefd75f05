package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// newRootCommand creates the root command for the settled CLI.
func newRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "settled",
		Short: "Group debt settlement engine",
		Long: "settled records shared expenses for groups, derives net positions,\n" +
			"and settles them with a minimal set of transfers.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(
				tint.NewHandler(os.Stderr, &tint.Options{
					Level:      level,
					TimeFormat: time.Kitchen,
					AddSource:  verbose,
				}),
			))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newDemoCommand())
	cmd.AddCommand(newTokenCommand())

	return cmd
}
