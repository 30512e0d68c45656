package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openfipe/fipe-harvester/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fipe-harvester",
	Short: "FIPE vehicle pricing catalog harvester",
	Long:  "Extracts the full FIPE vehicle pricing catalog (periods, brands, models, year-models, values) through rate-limited parallel harvesting with partial snapshots and final consolidation.",
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
