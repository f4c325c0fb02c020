package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/poolboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.CacheTimeoutSeconds, convey.ShouldEqual, 30)
				convey.So(cfg.SingleFlight, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("POOLBOARD_ADDR", ":8080")
			_ = os.Setenv("POOLBOARD_PLAYERS_API_URL", "https://poolbot.example/api/player")
			_ = os.Setenv("POOLBOARD_AUTH_TOKEN", "s3cret")
			_ = os.Setenv("POOLBOARD_CACHE_TIMEOUT_SECONDS", "45")
			_ = os.Setenv("POOLBOARD_CACHE_BACKEND", "redis")
			_ = os.Setenv("POOLBOARD_REDIS_DB", "2")
			_ = os.Setenv("POOLBOARD_SINGLE_FLIGHT", "false")
			_ = os.Setenv("POOLBOARD_TRUST_PROXY_HEADERS", "true")
			_ = os.Setenv("POOLBOARD_AUTHORIZED_IPS", "10.0.0.1, 10.0.0.2,,")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PlayersAPIURL, convey.ShouldEqual, "https://poolbot.example/api/player")
				convey.So(cfg.AuthToken, convey.ShouldEqual, "s3cret")
				convey.So(cfg.CacheTimeoutSeconds, convey.ShouldEqual, 45)
				convey.So(cfg.CacheBackend, convey.ShouldEqual, config.BackendRedis)
				convey.So(cfg.RedisDB, convey.ShouldEqual, 2)
				convey.So(cfg.SingleFlight, convey.ShouldBeFalse)
				convey.So(cfg.TrustProxyHeaders, convey.ShouldBeTrue)
				convey.So(cfg.AuthorizedIPs, convey.ShouldResemble, []string{"10.0.0.1", "10.0.0.2"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
cache_timeout_seconds: 60
cache_store_ttl_seconds: 600
upstream_max_retries: 4
authorized_ips:
  - 192.168.0.10
  - 192.168.0.11
basic_auth_username: pool
basic_auth_password: cue
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("POOLBOARD_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.CacheTimeoutSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.CacheStoreTTLSeconds, convey.ShouldEqual, 600)
				convey.So(cfg.UpstreamMaxRetries, convey.ShouldEqual, 4)
				convey.So(cfg.AuthorizedIPs, convey.ShouldResemble, []string{"192.168.0.10", "192.168.0.11"})
				convey.So(cfg.BasicAuthUsername, convey.ShouldEqual, "pool")
				convey.So(cfg.BasicAuthPassword, convey.ShouldEqual, "cue")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\ncache_timeout_seconds: 60\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("POOLBOARD_CONFIG", tmpFile)
			_ = os.Setenv("POOLBOARD_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")            // Overridden by env
				convey.So(cfg.CacheTimeoutSeconds, convey.ShouldEqual, 60) // From file
				convey.So(cfg.UpstreamMaxRetries, convey.ShouldEqual, 2)   // From defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("POOLBOARD_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("POOLBOARD_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("POOLBOARD_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("POOLBOARD_CACHE_TIMEOUT_SECONDS", "soon")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown backend", func() {
			_ = os.Setenv("POOLBOARD_CACHE_BACKEND", "memcache")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "POOLBOARD_") {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "poolboard-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
