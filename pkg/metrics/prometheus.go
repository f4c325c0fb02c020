// Package metrics provides Prometheus metrics for the poolboard leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcome label values.
const (
	OutcomeCommitted = "committed"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
	OutcomeShared    = "shared"
	OutcomeLeased    = "leased"
)

// Manager manages all Prometheus metrics for the poolboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Controller metrics
	cacheLookups        *prometheus.CounterVec
	refreshes           *prometheus.CounterVec
	servedStale         prometheus.Counter
	leaderboardPlayers  prometheus.Gauge
	secondsLeft         prometheus.Gauge
	lastCommitTimestamp prometheus.Gauge

	// Upstream metrics
	upstreamLatency  prometheus.Histogram
	upstreamErrors   *prometheus.CounterVec
	upstreamAttempts prometheus.Counter

	// Store metrics
	storeErrors *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	accessDenied        *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "poolboard",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_lookups_total",
		Help:      "Leaderboard requests by observed cache state (empty, fresh, stale)",
	}, []string{"state"})

	m.refreshes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refreshes_total",
		Help:      "Leaderboard refreshes by outcome",
	}, []string{"outcome"})

	m.servedStale = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "served_stale_total",
		Help:      "Requests answered from the cached leaderboard after a failed refresh",
	})

	m.leaderboardPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "players",
		Help:      "Number of players on the last served leaderboard",
	})

	m.secondsLeft = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "seconds_left",
		Help:      "Seconds until the cached leaderboard is considered stale, as last reported",
	})

	m.lastCommitTimestamp = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_commit_timestamp_seconds",
		Help:      "Unix time of the last committed leaderboard",
	})

	m.upstreamLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "fetch_duration_milliseconds",
		Help:      "Players API fetch duration in milliseconds, retries included",
		Buckets:   m.histogramBuckets,
	})

	m.upstreamErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "errors_total",
		Help:      "Players API failures by kind (transport, status, decode)",
	}, []string{"kind"})

	m.upstreamAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "attempts_total",
		Help:      "Players API HTTP attempts, retries included",
	})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Cache store failures by operation",
	}, []string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_by_type_total",
		Help:      "HTTP errors by type and severity",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_by_endpoint_total",
		Help:      "HTTP errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.accessDenied = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "access_denied_total",
		Help:      "Requests rejected by access guards",
	}, []string{"guard"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
	})
}

// Controller Metrics Functions.

// RecordCacheLookup counts a request by the cache state it observed.
func RecordCacheLookup(state string) {
	globalManager.cacheLookups.WithLabelValues(state).Inc()
}

// RecordRefresh counts a refresh by outcome.
func RecordRefresh(outcome string) {
	globalManager.refreshes.WithLabelValues(outcome).Inc()
}

// RecordServedStale counts a fallback to the cached leaderboard.
func RecordServedStale() {
	globalManager.servedStale.Inc()
}

// UpdateLeaderboardPlayers sets the served leaderboard size.
func UpdateLeaderboardPlayers(count int) {
	globalManager.leaderboardPlayers.Set(float64(count))
}

// UpdateSecondsLeft sets the last reported seconds until staleness.
func UpdateSecondsLeft(seconds int) {
	globalManager.secondsLeft.Set(float64(seconds))
}

// UpdateLastCommit sets the unix time of the last commit.
func UpdateLastCommit(unixSeconds int64) {
	globalManager.lastCommitTimestamp.Set(float64(unixSeconds))
}

// Upstream Metrics Functions.

// RecordUpstreamLatency records a players API fetch duration.
func RecordUpstreamLatency(latencyMs float64) {
	globalManager.upstreamLatency.Observe(latencyMs)
}

// RecordUpstreamError counts a players API failure.
func RecordUpstreamError(kind string) {
	globalManager.upstreamErrors.WithLabelValues(kind).Inc()
}

// RecordUpstreamAttempt counts one HTTP attempt against the players API.
func RecordUpstreamAttempt() {
	globalManager.upstreamAttempts.Inc()
}

// Store Metrics Functions.

// RecordStoreError counts a failed cache store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordAccessDenied counts a request rejected by the named guard.
func RecordAccessDenied(guard string) {
	globalManager.accessDenied.WithLabelValues(guard).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
