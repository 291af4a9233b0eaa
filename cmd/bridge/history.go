package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/industria/bridge/internal/app"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent delivery attempts from the journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.App) error {
				if a.Journal == nil {
					return errors.New("delivery journal is disabled")
				}
				attempts, err := a.Journal.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), attempts)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tJOB\tDEVICE\tFILE\tOUTCOME\tERROR")
				for _, at := range attempts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						at.At.Local().Format("2006-01-02 15:04:05"), at.JobID, at.DeviceID, at.FileName, at.Outcome, at.Error)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of attempts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
