package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "POOLBOARD_"
	envCfgFile = envPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if POOLBOARD_CONFIG is set
//  3. env (prefix POOLBOARD_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envCfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// POOLBOARD_CACHE_TIMEOUT_SECONDS -> cache_timeout_seconds (flat keys).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	cfg.AuthorizedIPs = cleanList(cfg.AuthorizedIPs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.PlayersAPIURL == "":
		return fmt.Errorf("%w: players_api_url must not be empty", ErrInvalidConfig)
	case c.CacheTimeoutSeconds < 1:
		return fmt.Errorf("%w: cache_timeout_seconds must be at least 1", ErrInvalidConfig)
	case c.CacheStoreTTLSeconds < 0:
		return fmt.Errorf("%w: cache_store_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.CacheBackend != BackendMemory && c.CacheBackend != BackendRedis:
		return fmt.Errorf("%w: unknown cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	case c.CacheBackend == BackendRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.UpstreamTimeoutMS <= 0:
		return fmt.Errorf("%w: upstream_timeout_ms must be positive", ErrInvalidConfig)
	case c.UpstreamMaxRetries < 0:
		return fmt.Errorf("%w: upstream_max_retries must not be negative", ErrInvalidConfig)
	case c.UpstreamRetryBackoffMS < 0:
		return fmt.Errorf("%w: upstream_retry_backoff_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
