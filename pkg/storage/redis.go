package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/angelmondragon/foodrescue/pkg/redis"
)

type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	SnapshotKey(name string) string
	IdempotencyKey(scope, id string) string
}

// RedisStore persists snapshots as plain string values.
type RedisStore struct {
	client redisClient
}

func NewRedisStore(client redisClient) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.client.SnapshotKey(name))
	if err != nil {
		if errors.Is(err, pkgredis.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	return []byte(raw), nil
}

func (r *RedisStore) Save(ctx context.Context, name string, payload []byte) error {
	if err := r.client.Set(ctx, r.client.SnapshotKey(name), string(payload), 0); err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, r.client.SnapshotKey(name))
	}
	return r.client.Del(ctx, keys...)
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

func (r *RedisStore) MarkOnce(ctx context.Context, scope, referenceID string, ttl time.Duration) (bool, error) {
	if referenceID == "" {
		return false, errors.New("reference id is required")
	}
	set, err := r.client.SetNX(ctx, r.client.IdempotencyKey(scope, referenceID), "1", ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return set, nil
}

func (r *RedisStore) Unmark(ctx context.Context, scope, referenceID string) error {
	return r.client.Del(ctx, r.client.IdempotencyKey(scope, referenceID))
}
