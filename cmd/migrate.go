package cmd

import (
	"storefront-svc/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Migrate all the way up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := database.InitDB(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		return database.MigrateUp(db, logger)
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := database.InitDB(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Warn("Rolling back migrations", zap.Int("steps", migrateDownSteps))
		return database.MigrateDown(db, migrateDownSteps, logger)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back, 0 for all")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
