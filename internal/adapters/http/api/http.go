// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/poolboard/internal/app"
	"github.com/okian/poolboard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	StatsProvider
}

// Result mirrors the read shape returned by leaderboard requests.
type Result = service.Result

// Stats mirrors the controller counters.
type Stats = service.Stats

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler

	authorizedIPs []string
	basicUser     string
	basicPass     string
	log           logger.Logger
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithAuthorizedIPs restricts /api to the given client IPs. An empty list
// leaves the leaderboard public.
func WithAuthorizedIPs(ips []string) ServerOption {
	return func(s *Server) {
		s.authorizedIPs = ips
	}
}

// WithBasicAuth requires HTTP basic credentials on /api when both are set.
func WithBasicAuth(username, password string) ServerOption {
	return func(s *Server) {
		s.basicUser = username
		s.basicPass = password
	}
}

// WithLogger sets the logger used by the access guards.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		log:                logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	board := s.leaderboardHandler.HandleGetLeaderboard
	if s.basicUser != "" && s.basicPass != "" {
		board = BasicAuth(board, s.basicUser, s.basicPass)
	}
	if len(s.authorizedIPs) > 0 {
		board = IPAllowlist(board, s.authorizedIPs, s.log)
	} else {
		s.log.Warn(ctx, "no authorized IPs configured, leaderboard is publicly viewable")
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api", MetricsMiddleware(board, "api"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
