// Package idempotency provides the reservation helper emitting modules use to
// deduplicate their own writes. The ledger itself never deduplicates; two
// emits are two facts. A module that must emit at-most-once reserves a key it
// derives from its operation before emitting, and skips the emit when the
// reservation was already taken.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "phdpeer/pkg/domain-errors"
)

const defaultTTL = 24 * time.Hour

// Reserver claims idempotency keys in redis.
type Reserver struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a Reserver.
type Option func(*Reserver)

// WithTTL overrides how long a reservation is held.
func WithTTL(ttl time.Duration) Option {
	return func(r *Reserver) { r.ttl = ttl }
}

func NewReserver(client *redis.Client, opts ...Option) *Reserver {
	r := &Reserver{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reserve claims the key atomically. Returns true when this caller won the
// reservation and should proceed; false when another caller already holds it.
func (r *Reserver) Reserve(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "idempotency key is required")
	}

	won, err := r.client.SetNX(ctx, redisKey(key), 1, r.ttl).Result()
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve idempotency key")
	}
	return won, nil
}

// Release drops a reservation early, letting the operation be retried before
// the TTL expires. Used after a failed emit.
func (r *Reserver) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release idempotency key")
	}
	return nil
}

func redisKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}
