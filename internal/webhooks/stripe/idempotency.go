package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/orderflow/pkg/redis"
)

// DefaultScope namespaces Stripe event ids inside the idempotency keyspace.
const DefaultScope = "stripe:webhook"

var errEventIDRequired = errors.New("event id is required")

// IdempotencyGuard claims Stripe event ids in Redis so a redelivery within
// the TTL is acknowledged without running the processor again.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
	now   func() time.Time
}

// NewIdempotencyGuard accepts ttl 0, which claims ids without expiry.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, fmt.Errorf("ttl must be non-negative, got %s", ttl)
	}
	if scope == "" {
		scope = DefaultScope
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope, now: time.Now}, nil
}

// CheckAndMark claims eventID. It returns true when a previous delivery
// already holds the claim.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errEventIDRequired
	}
	claimed, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, eventID), g.now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", eventID, err)
	}
	return !claimed, nil
}

// Delete drops the claim so the next delivery of eventID is processed.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errEventIDRequired
	}
	if err := g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID)); err != nil {
		return fmt.Errorf("release %s: %w", eventID, err)
	}
	return nil
}
