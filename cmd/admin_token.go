package cmd

import (
	"errors"
	"fmt"
	"time"

	"storefront-svc/config"
	"storefront-svc/middleware"

	"github.com/spf13/cobra"
)

var adminTokenTTL time.Duration

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token [subject]",
	Short: "Print a signed admin API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.AdminJWTSecret == "" {
			return errors.New("ADMIN_JWT_SECRET is not set")
		}

		token, err := middleware.IssueAdminToken([]byte(cfg.AdminJWTSecret), args[0], adminTokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	adminTokenCmd.Flags().DurationVar(&adminTokenTTL, "ttl", 12*time.Hour, "token lifetime")
}
