package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deadonfilm/enrich/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "deadonfilm",
	Short: "Death and biography enrichment for screen and stage figures",
	Long:  "Looks up deceased actors and stage figures across encyclopedia, obituary, cast-database, and web sources, ranks and extracts the biographical content, and records every run.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
