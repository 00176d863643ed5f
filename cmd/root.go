package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quadrant-invest/geointel/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geointel",
	Short: "Geographic intelligence for student accommodation development",
	Long:  "Maintains a spatial catalog of universities, amenities, and neighborhoods; scores development sites; and builds city-level supply and demand analyses.",
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
