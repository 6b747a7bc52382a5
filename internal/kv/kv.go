package kv

import (
	"context"
	"time"
)

// Store is the narrow key-value surface the idempotency protocol needs:
// atomic set-if-absent with TTL, existence checks, and token-guarded delete.
type Store interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	// CompareAndDelete removes key only if it still holds value. Releasing a
	// lock another worker re-acquired after TTL expiry must be a no-op.
	CompareAndDelete(ctx context.Context, key, value string) error
}
