package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for and download agent updates",
	}
	cmd.AddCommand(newUpdateCheckCmd(), newUpdateDownloadCmd())
	return cmd
}

func newUpdateCheckCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ask the server for the latest version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				info, err := ctl.CheckUpdates(cmd.Context())
				if err != nil {
					return fmt.Errorf("update check: %w", err)
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), info)
				}
				out := cmd.OutOrStdout()
				if !info.Available {
					fmt.Fprintf(out, "Up to date (%s)\n", info.CurrentVersion)
					return nil
				}
				fmt.Fprintf(out, "Update available: %s (running %s)\n", info.LatestVersion, info.CurrentVersion)
				if info.ReleaseNotes != "" {
					fmt.Fprintf(out, "\n%s\n", info.ReleaseNotes)
				}
				fmt.Fprintln(out, "\nDownload it with: bridge update download")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newUpdateDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download the update package to the downloads folder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				path, err := ctl.DownloadUpdate(cmd.Context())
				if err != nil {
					return fmt.Errorf("download update: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", path)
				return nil
			})
		},
	}
}
