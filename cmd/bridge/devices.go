package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/industria/bridge/internal/devices"
)

func newDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List and configure machine folders",
	}
	cmd.AddCommand(
		newDevicesListCmd(),
		newDevicesSyncCmd(),
		newDevicesSetFolderCmd(),
		newDevicesClearFolderCmd(),
	)
	return cmd
}

func newDevicesListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known devices and their folders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				settings, err := ctl.Config(cmd.Context())
				if err != nil {
					return err
				}
				m := settings.Machines
				if asJSON {
					return printJSON(cmd.OutOrStdout(), m)
				}
				return printDevices(cmd, m)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newDevicesSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the device list from the server and merge it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				m, err := ctl.SyncDevices(cmd.Context())
				if err != nil {
					return notLoggedIn(err)
				}
				return printDevices(cmd, m)
			})
		},
	}
}

func newDevicesSetFolderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-folder DEVICE_ID PATH",
		Short: "Set the destination folder of a device (created if missing)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[1]) == "" {
				return errors.New("empty path; use clear-folder to remove a folder")
			}
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				folder, err := ctl.SetFolder(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], folder)
				return nil
			})
		},
	}
}

func newDevicesClearFolderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-folder DEVICE_ID",
		Short: "Remove the destination folder of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withControl(cmd.Context(), func(ctl controller, _ bool) error {
				_, err := ctl.SetFolder(cmd.Context(), args[0], "")
				return err
			})
		},
	}
}

func printDevices(cmd *cobra.Command, m devices.Map) error {
	if len(m) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No devices. Run: bridge devices sync")
		return nil
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVENDOR\tFOLDER")
	for _, id := range ids {
		dev := m[id]
		folder := dev.Folder
		if folder == "" {
			folder = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, dev.Name, dev.Vendor, folder)
	}
	return tw.Flush()
}
