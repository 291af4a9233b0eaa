package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/industria/bridge/internal/app"
)

func newRunCmd() *cobra.Command {
	var headless bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent (dashboard on a terminal, headless otherwise)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dashboard := !headless && term.IsTerminal(int(os.Stdout.Fd()))
			a, err := app.Build(app.Options{
				ConfigPath: flagConfig,
				Version:    version,
				Mode:       app.ModeAgent,
				Quiet:      dashboard,
				LogLevel:   flagLogLevel,
			})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return a.Run(cmd.Context(), dashboard)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "log to stderr instead of showing the dashboard")
	return cmd
}
