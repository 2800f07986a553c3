package cmd

import (
	"context"
	"fmt"
	"os"

	"ppcp-backend/internal/interchange"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the collection as a spreadsheet",
	Long:  `Write every entry to an .xlsx workbook (sheet "PPCP") or a CSV file, dates as DD/MM/YYYY.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		var write func(f *os.File, rows []interchange.Row) error
		switch format {
		case "xlsx":
			write = func(f *os.File, rows []interchange.Row) error { return interchange.WriteXLSX(f, rows) }
		case "csv":
			write = func(f *os.File, rows []interchange.Row) error { return interchange.WriteCSV(f, rows) }
		default:
			return fmt.Errorf("format must be xlsx or csv, got %q", format)
		}
		if out == "" {
			out = "ppcp_data." + format
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			rows, err := a.Entries.ExportRows(ctx)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := write(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			cmd.Printf("Exported %d entries to %s\n", len(rows), out)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().String("format", "xlsx", "output format: xlsx or csv")
	exportCmd.Flags().StringP("out", "o", "", "output file (default ppcp_data.<format>)")
	rootCmd.AddCommand(exportCmd)
}
