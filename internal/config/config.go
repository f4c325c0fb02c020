// Package config defines service configuration structures and loading hooks.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PlayersAPIURL is the poolbot players endpoint.
	PlayersAPIURL string `koanf:"players_api_url"`

	// AuthToken is sent as "Authorization: Token <AuthToken>".
	AuthToken string `koanf:"auth_token"`

	// CacheTimeoutSeconds is how long a committed leaderboard is served before a refresh.
	CacheTimeoutSeconds int `koanf:"cache_timeout_seconds"`

	// CacheBackend is memory or redis.
	CacheBackend string `koanf:"cache_backend"`

	// CacheStoreTTLSeconds lets the store drop keys on its own; 0 keeps them.
	CacheStoreTTLSeconds int `koanf:"cache_store_ttl_seconds"`

	// CacheMaxEntries bounds the memory backend.
	CacheMaxEntries int `koanf:"cache_max_entries"`

	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// Upstream client tuning.
	UpstreamTimeoutMS      int `koanf:"upstream_timeout_ms"`
	UpstreamMaxRetries     int `koanf:"upstream_max_retries"`
	UpstreamRetryBackoffMS int `koanf:"upstream_retry_backoff_ms"`

	// SingleFlight collapses concurrent refreshes in one process.
	SingleFlight bool `koanf:"single_flight"`

	// RefreshLease limits processes sharing a store to one refresh per window.
	RefreshLease bool `koanf:"refresh_lease"`

	// AuthorizedIPs restricts /api; comma-separated in env. Empty means public.
	AuthorizedIPs []string `koanf:"authorized_ips"`

	// Basic auth on /api is enabled when both are set.
	BasicAuthUsername string `koanf:"basic_auth_username"`
	BasicAuthPassword string `koanf:"basic_auth_password"`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For and friends.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		PlayersAPIURL:          "http://localhost:9081/api/player",
		CacheTimeoutSeconds:    30,
		CacheBackend:           BackendMemory,
		CacheMaxEntries:        1024,
		RedisAddr:              "localhost:6379",
		RedisKeyPrefix:         "poolboard:",
		UpstreamTimeoutMS:      10_000,
		UpstreamMaxRetries:     2,
		UpstreamRetryBackoffMS: 250,
		SingleFlight:           true,
	}
}

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// CacheTimeout returns the staleness window.
func (c *Config) CacheTimeout() time.Duration {
	return time.Duration(c.CacheTimeoutSeconds) * time.Second
}

// CacheStoreTTL returns the store-side expiry, zero for none.
func (c *Config) CacheStoreTTL() time.Duration {
	return time.Duration(c.CacheStoreTTLSeconds) * time.Second
}

// UpstreamTimeout returns the per-attempt HTTP timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// UpstreamRetryBackoff returns the linear retry step.
func (c *Config) UpstreamRetryBackoff() time.Duration {
	return time.Duration(c.UpstreamRetryBackoffMS) * time.Millisecond
}
