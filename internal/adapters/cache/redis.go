package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis server, so several service
// replicas share one leaderboard slot.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. The caller owns the client lifecycle.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Get returns the value for key; redis.Nil maps to ok=false.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", ErrStore, key, err)
	}
	return b, true, nil
}

// Set writes key with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrStore, key, err)
	}
	return nil
}

// Add writes key only when absent (SET NX). A ttl > 0 overrides the store TTL
// for this key.
func (s *RedisStore) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	ok, err := s.client.SetNX(ctx, s.key(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: add %s: %v", ErrStore, key, err)
	}
	return ok, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrStore, err)
	}
	return nil
}
