// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) (Result, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /api requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
