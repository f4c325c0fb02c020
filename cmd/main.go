package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/okian/poolboard/internal/adapters/cache"
	"github.com/okian/poolboard/internal/adapters/http/api"
	"github.com/okian/poolboard/internal/adapters/http/swagger"
	"github.com/okian/poolboard/internal/adapters/upstream"
	service "github.com/okian/poolboard/internal/app"
	"github.com/okian/poolboard/internal/config"
	"github.com/okian/poolboard/pkg/logger"
	"github.com/okian/poolboard/pkg/metrics"
	"github.com/redis/go-redis/v9"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	redisPingTimeout          = 2 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Re-initialize with the configured encoding.
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, closeStore, err := buildStore(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build cache store", logger.Error(err))
		return
	}
	defer closeStore()

	svc := buildService(cfg, store)

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("players_api_url", cfg.PlayersAPIURL),
			logger.String("cache_backend", cfg.CacheBackend),
			logger.Duration("cache_timeout", cfg.CacheTimeout()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildStore returns the configured cache store and a function releasing it.
// An unreachable redis is logged, not fatal: the service keeps answering from
// upstream until the store comes back.
func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.BackendMemory:
		store := cache.NewMemoryStore(
			cache.WithMaxEntries(cfg.CacheMaxEntries),
			cache.WithTTL(cfg.CacheStoreTTL()),
		)
		return store, func() {}, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := cache.NewRedisStore(client,
			cache.WithKeyPrefix(cfg.RedisKeyPrefix),
			cache.WithRedisTTL(cfg.CacheStoreTTL()),
		)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			log.Warn(ctx, "redis not reachable at startup", logger.String("redis_addr", cfg.RedisAddr), logger.Error(err))
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: cache_backend %q", config.ErrInvalidConfig, cfg.CacheBackend)
	}
}

// buildService wires the upstream client and the leaderboard controller.
func buildService(cfg *config.Config, store cache.Store) *service.Service {
	client := upstream.New(cfg.PlayersAPIURL, cfg.AuthToken,
		upstream.WithTimeout(cfg.UpstreamTimeout()),
		upstream.WithMaxRetries(cfg.UpstreamMaxRetries),
		upstream.WithRetryBackoff(cfg.UpstreamRetryBackoff()),
		upstream.WithLogger(logger.Named("upstream")),
	)
	return service.New(store, client,
		service.WithTimeout(cfg.CacheTimeout()),
		service.WithSingleFlight(cfg.SingleFlight),
		service.WithRefreshLease(cfg.RefreshLease),
		service.WithLogger(logger.Named("controller")),
	)
}

// buildHandler registers all routes and wraps them with panic recovery and,
// when trusted, proxy header handling.
func buildHandler(ctx context.Context, cfg *config.Config, svc api.Dependencies) http.Handler {
	mux := http.NewServeMux()

	api.NewServer(svc,
		api.WithAuthorizedIPs(cfg.AuthorizedIPs),
		api.WithBasicAuth(cfg.BasicAuthUsername, cfg.BasicAuthPassword),
		api.WithLogger(logger.Named("http")),
	).Register(ctx, mux)
	swagger.Register(ctx, mux)

	var h http.Handler = mux
	if cfg.TrustProxyHeaders {
		h = handlers.ProxyHeaders(h)
	}
	return handlers.RecoveryHandler()(h)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval) // Update every 10 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
