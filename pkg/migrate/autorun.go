package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/foodrescue/pkg/config"
	"github.com/angelmondragon/foodrescue/pkg/db"
	"github.com/angelmondragon/foodrescue/pkg/logger"
)

// MaybeRun validates the embedded migration set and applies it when the
// storage backend is SQL and auto-migrate is enabled.
func MaybeRun(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger, client *db.Client) error {
	if !cfg.AutoMigrate || client == nil {
		return nil
	}

	if err := ValidateFS(Migrations(), DefaultDir); err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"driver": client.Driver(), "dir": DefaultDir})
	logg.Info(ctx, "running goose migrations")

	if err := Up(ctx, sqlDB, client.Driver()); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
