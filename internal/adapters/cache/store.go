// Package cache defines the key-value store the leaderboard snapshot lives in.
//
// Stores may drop entries on their own schedule (TTL, size bound, restart).
// Callers must treat a missing key as "nothing cached" rather than an error.
package cache

import (
	"context"
	"time"
)

// Store is a TTL-capable key-value cache.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Add stores value only if key is absent. It reports whether the value was stored.
	// A ttl > 0 expires this key after ttl regardless of the store-wide expiry;
	// zero falls back to it.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}
