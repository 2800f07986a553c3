package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"ppcp-backend/internal/models"
	"ppcp-backend/internal/timeutil"

	"github.com/spf13/cobra"
)

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List entries late on a planned date",
	Long:  `List entries whose planned date (dataProd, dataTrat, dataRetTrat or dataEntrega) is before --as-of, with the whole days late.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		field, _ := cmd.Flags().GetString("field")
		rawAsOf, _ := cmd.Flags().GetString("as-of")

		var asOf time.Time
		if rawAsOf != "" {
			t, err := timeutil.ParseDate(timeutil.CanonicalLayout, rawAsOf)
			if err != nil {
				return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
			}
			asOf = t
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			items, err := a.Reports.Overdue(ctx, field, asOf)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				cmd.Println("Nothing overdue")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "OC\tDIAS")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%d\n", it.OrderCode, it.DaysLate)
			}
			return tw.Flush()
		})
	},
}

func init() {
	overdueCmd.Flags().String("field", models.FieldPlannedDeliveryDate, "planned date field")
	overdueCmd.Flags().String("as-of", "", "reference date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(overdueCmd)
}
