package main

import (
	"context"
	"fmt"

	"telegram-channel-subscription/internal/config"
	pg "telegram-channel-subscription/internal/infra/db/postgres"
	"telegram-channel-subscription/internal/infra/logging"

	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(flags.configPath, flags.dev)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate needs storage.driver=postgres, got %q", cfg.Storage.Driver)
			}
			logger := logging.New(cfg.Log, cfg.Runtime.Dev)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pool, err := pg.Connect(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()
			return pg.Migrate(ctx, pool, logger)
		},
	}
}
