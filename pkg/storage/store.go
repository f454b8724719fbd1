package storage

import (
	"context"
	"errors"
	"time"
)

// Snapshot names used by the state containers.
const (
	CartSnapshot  = "cart-storage"
	OrderSnapshot = "order-storage"
)

// ErrNotFound is returned by Load when no snapshot was persisted under the name.
var ErrNotFound = errors.New("snapshot not found")

// Store persists opaque JSON snapshots under a fixed name.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, payload []byte) error
	Delete(ctx context.Context, names ...string) error
	Ping(ctx context.Context) error
}

// OnceMarker records that a scoped reference was seen. MarkOnce reports true
// only for the first caller.
type OnceMarker interface {
	MarkOnce(ctx context.Context, scope, referenceID string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, scope, referenceID string) error
}

// Backend is a Store that can also deduplicate callbacks.
type Backend interface {
	Store
	OnceMarker
}
