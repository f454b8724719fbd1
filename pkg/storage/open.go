package storage

import (
	"context"
	"fmt"

	"github.com/angelmondragon/foodrescue/pkg/config"
	"github.com/angelmondragon/foodrescue/pkg/db"
	"github.com/angelmondragon/foodrescue/pkg/logger"
	"github.com/angelmondragon/foodrescue/pkg/migrate"
	"github.com/angelmondragon/foodrescue/pkg/redis"
	"go.uber.org/multierr"
)

// Open builds the backend selected by cfg.Storage.Driver. The returned close
// function releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Backend, func() error, error) {
	switch cfg.Storage.NormalizedDriver() {
	case config.StorageDriverMemory:
		return NewMemoryStore(), func() error { return nil }, nil

	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, cfg.Storage.Namespace, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		store, err := NewRedisStore(client)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return store, client.Close, nil

	case config.StorageDriverSQLite, config.StorageDriverPostgres:
		client, err := db.New(ctx, cfg.Storage, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeRun(ctx, cfg.Storage, logg, client); err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		store, err := NewSQLStore(client, cfg.Storage.Namespace)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return store, client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
