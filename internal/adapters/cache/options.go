package cache

import "time"

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMaxEntries bounds the number of keys held.
// If maxEntries > 0: the oldest written key is evicted first.
// If maxEntries <= 0: unbounded.
func WithMaxEntries(maxEntries int) MemoryOption {
	return func(s *MemoryStore) {
		s.maxEntries = maxEntries
	}
}

// WithTTL expires every entry ttl after it was written. Zero disables expiry.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every key written by the RedisStore.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisTTL sets the expiry for every key written. Zero keeps keys until evicted.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}
