package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/foodrescue/pkg/storage"
)

// IdempotencyGuard remembers which payment references were already handled.
type IdempotencyGuard struct {
	store storage.OnceMarker
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store storage.OnceMarker, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark reports whether referenceID was already seen, marking it if not.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, referenceID string) (bool, error) {
	if referenceID == "" {
		return false, errors.New("reference id is required")
	}
	first, err := g.store.MarkOnce(ctx, g.scope, referenceID, g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark payment reference: %w", err)
	}
	return !first, nil
}

func (g *IdempotencyGuard) Delete(ctx context.Context, referenceID string) error {
	if referenceID == "" {
		return errors.New("reference id is required")
	}
	return g.store.Unmark(ctx, g.scope, referenceID)
}
