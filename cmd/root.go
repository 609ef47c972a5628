// Package cmd holds the storefront command line.
package cmd

import (
	"fmt"
	"log"

	"storefront-svc/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:          "storefront",
	Short:        "Order checkout and payment verification service",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, adminTokenCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// setup loads the configuration and a production logger.
func setup() (*config.Config, *zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.With(zap.String("service", cfg.ServiceName)), nil
}
