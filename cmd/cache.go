package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the query cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		qc, err := initCache(ctx)
		if err != nil {
			return err
		}
		defer qc.Close()

		purged, err := qc.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("cache purged", zap.Int("entries", purged))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
