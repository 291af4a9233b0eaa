package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/industria/bridge/internal/config"
	"github.com/industria/bridge/internal/logtail"
)

func newLogsCmd() *cobra.Command {
	var (
		lines   int
		level   string
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the last lines of the agent log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			entries, err := logtail.Tail(cfg.LogPath(), lines, level)
			if err != nil {
				return err
			}
			color := !noColor && term.IsTerminal(int(os.Stdout.Fd()))
			for _, e := range entries {
				fmt.Fprintln(cmd.OutOrStdout(), logtail.Format(e, color))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "number of lines (0 for all)")
	cmd.Flags().StringVar(&level, "level", "", "minimum level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors")
	return cmd
}
