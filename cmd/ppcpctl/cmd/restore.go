package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [file]",
	Short: "Replace the collection with a snapshot",
	Long: `Validate a snapshot and replace the whole collection with it. Nothing changes
if any entry in the snapshot is invalid. With --remote the snapshot is fetched
from the bucket: --key selects one, otherwise the newest is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, _ := cmd.Flags().GetBool("remote")
		key, _ := cmd.Flags().GetString("key")

		if !remote && len(args) == 0 {
			return errors.New("a snapshot file or --remote is required")
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			var data []byte
			source := ""
			if remote {
				if a.Remote == nil {
					return errRemoteDisabled
				}
				var err error
				data, source, err = a.Remote.Download(ctx, key)
				if err != nil {
					return err
				}
			} else {
				var err error
				source = args[0]
				data, err = os.ReadFile(source)
				if err != nil {
					return err
				}
			}

			report, err := a.Entries.Restore(ctx, data)
			if err != nil {
				return err
			}
			cmd.Printf("Restored %d entries from %s\n", report.Restored, source)
			return nil
		})
	},
}

func init() {
	restoreCmd.Flags().Bool("remote", false, "restore from the remote bucket")
	restoreCmd.Flags().String("key", "", "remote object key (default newest)")
	rootCmd.AddCommand(restoreCmd)
}
