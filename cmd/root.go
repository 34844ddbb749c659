package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cre-extract",
	Short: "Commercial real estate document extraction pipeline",
	Long:  "Pulls uploaded documents off the processing queue, parses and redacts them, extracts structured fields via Claude, and persists scored extractions.",
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
