package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var errRemoteDisabled = errors.New("remote backups are disabled (backup.remote.enabled)")

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a snapshot of the collection",
	Long:  `Write a JSON snapshot (version, timestamp, entries) to a local directory, or upload it to the remote bucket with --remote.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		remote, _ := cmd.Flags().GetBool("remote")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			data, name, err := a.Entries.Backup(ctx)
			if err != nil {
				return err
			}

			if remote {
				if a.Remote == nil {
					return errRemoteDisabled
				}
				key, err := a.Remote.Upload(ctx, name, data)
				if err != nil {
					return err
				}
				cmd.Printf("Uploaded %s (%d bytes)\n", key, len(data))
				return nil
			}

			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			cmd.Printf("Wrote %s (%d bytes)\n", path, len(data))
			return nil
		})
	},
}

func init() {
	backupCmd.Flags().String("dir", ".", "directory for the snapshot file")
	backupCmd.Flags().Bool("remote", false, "upload to the remote bucket instead")
	rootCmd.AddCommand(backupCmd)
}
