package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"ppcp-backend/internal/interchange"
	"ppcp-backend/internal/services"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the collection with the valid rows of a spreadsheet",
	Long: `Read an .xlsx or .csv sheet and replace the whole collection with its valid rows.
Rejected rows are listed with their sheet line. When no row is valid the
collection is left untouched and the command fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		var rows []interchange.Row
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			rows, err = interchange.ReadCSV(f)
		} else {
			rows, err = interchange.ReadXLSX(f)
		}
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			report, err := a.Entries.Import(ctx, rows)
			if report != nil {
				for _, r := range report.Rejected {
					cmd.Printf("line %d rejected: %s\n", r.Line, r.Error)
				}
			}
			if errors.Is(err, services.ErrNothingImported) {
				cmd.Println("No valid rows, collection unchanged")
				return err
			}
			if err != nil {
				return err
			}
			cmd.Printf("Imported %d entries, rejected %d\n", report.Imported, len(report.Rejected))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
