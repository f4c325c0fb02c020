// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/poolboard/pkg/logger"
	"github.com/okian/poolboard/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest   = 400
	statusUnauthorized = 401
	statusNotFound     = 404
	statusInternal     = 500
	statusBadGateway   = 502
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Nanoseconds()) / 1e6
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		if wrapped.statusCode >= statusBadRequest {
			errorType := getErrorType(wrapped.statusCode)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
			metrics.RecordErrorByType(errorType, getErrorSeverity(wrapped.statusCode))
		}
	}
}

// IPAllowlist rejects requests whose client IP is not in allowed with 401.
// The client IP is taken from RemoteAddr, which ProxyHeaders may have
// rewritten from X-Forwarded-For.
func IPAllowlist(next http.HandlerFunc, allowed []string, log logger.Logger) http.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, ip := range allowed {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = struct{}{}
		}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if _, ok := set[ip]; ok {
			next.ServeHTTP(w, r)
			return
		}
		metrics.RecordAccessDenied("ip_allowlist")
		log.Error(r.Context(), "leaderboard request from unrecognised IP",
			logger.String("ip", ip),
			logger.Int("authorized", len(set)),
		)
		w.WriteHeader(http.StatusUnauthorized)
	}
}

// BasicAuth requires the given HTTP basic credentials.
func BasicAuth(next http.HandlerFunc, username, password string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if ok &&
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1 &&
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1 {
			next.ServeHTTP(w, r)
			return
		}
		metrics.RecordAccessDenied("basic_auth")
		w.Header().Set("WWW-Authenticate", `Basic realm=""`)
		w.WriteHeader(http.StatusUnauthorized)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// ProxyHeaders stores a bare address.
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode == statusBadGateway:
		return "upstream"
	case statusCode >= statusInternal:
		return "server_error"
	case statusCode == statusUnauthorized:
		return "unauthorized"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// getErrorSeverity returns error severity based on HTTP status code.
func getErrorSeverity(statusCode int) string {
	switch {
	case statusCode >= statusInternal:
		return "high"
	case statusCode >= statusBadRequest:
		return "medium"
	default:
		return "low"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
