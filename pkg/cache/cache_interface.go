package cache

import (
	"context"
	"time"
)

// Cache is the contract for the KV layer. It allows swapping the
// implementation (Redis in production, in-memory fakes in tests).
type Cache interface {
	// Get reads a key and unmarshals it into dest.
	// found = false means cache miss; dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores a value under key with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes the given keys.
	Delete(ctx context.Context, keys ...string) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// DeletePattern removes all keys matching a glob pattern.
	// Administrative use only; not called on the hot path.
	DeletePattern(ctx context.Context, pattern string) error

	// Increment atomically increments a counter key and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)

	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}
