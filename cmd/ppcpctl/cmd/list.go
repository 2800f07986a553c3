package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"ppcp-backend/internal/interchange"
	"ppcp-backend/internal/services"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries, most urgent first",
	Long:  `List the entries visible under a status filter ("todos" for all), ordered by priority with ties kept in collection order.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			entries, err := a.Entries.List(ctx, status)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOC\tPN\tSTATUS\tPRIORIDADE\tENTREGA")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.OrderCode, e.PartNumber, e.Status, e.Priority,
					interchange.FormatDisplayDate(e.PlannedDeliveryDate))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			cmd.Printf("%d entries\n", len(entries))
			return nil
		})
	},
}

func init() {
	listCmd.Flags().String("status", services.StatusFilterAll, "status filter")
	rootCmd.AddCommand(listCmd)
}
