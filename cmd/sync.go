package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newSyncCmd copies new rotated log files from the source into blob storage.
func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy new rotated access-log files into blob storage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			result, err := a.Pipeline.SyncNewFiles(cmd.Context())
			if err != nil {
				return err
			}
			a.Logger.Info("sync complete",
				zap.Strings("synced", result.Synced),
				zap.Strings("failed", result.Failed))
			return nil
		},
	}
}
