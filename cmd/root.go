package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/einkauf-app/einkauf/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "einkauf",
	Short: "Recipe to priced shopping list service",
	Long:  "Extracts ingredients from free-form recipes via a language model, matches them against the REWE catalog and tracks model spend per user.",
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
