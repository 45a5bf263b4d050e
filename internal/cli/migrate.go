package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizdesk/internal/config"
	"quizdesk/internal/infra/sqlstore"
	"quizdesk/internal/logging"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer log.Sync()

	if !usesDatabase(cfg) {
		return fmt.Errorf("database url not configured")
	}
	db, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlstore.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("migrations applied", zap.String("driver", cfg.Database.Driver))
	return nil
}

// usesDatabase reports whether cfg points at a SQL store rather than memory.
// SQLite falls back to a local file when no URL is given.
func usesDatabase(cfg config.Config) bool {
	switch cfg.Database.Driver {
	case "sqlite", "sqlite3":
		return true
	}
	return cfg.Database.URL != ""
}
