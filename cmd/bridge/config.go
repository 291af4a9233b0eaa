package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/industria/bridge/internal/bridge"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change user settings",
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				settings, err := ctl.Config(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), settings)
			})
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var (
		interval       int
		autoStart      bool
		minimizeToTray bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; only the given flags are applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch bridge.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("polling-interval") {
				patch.PollingInterval = &interval
			}
			if flags.Changed("auto-start") {
				patch.AutoStart = &autoStart
			}
			if flags.Changed("minimize-to-tray") {
				patch.MinimizeToTray = &minimizeToTray
			}
			if patch == (bridge.SettingsPatch{}) {
				return errors.New("nothing to change; see --help")
			}
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				if _, err := ctl.SetConfig(cmd.Context(), patch); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings saved.")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&interval, "polling-interval", 0, "job polling interval in milliseconds")
	cmd.Flags().BoolVar(&autoStart, "auto-start", true, "start the agent at login")
	cmd.Flags().BoolVar(&minimizeToTray, "minimize-to-tray", true, "keep running when the window closes")
	return cmd
}
