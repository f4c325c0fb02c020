// Package devupstream is a fake poolbot players API for local runs.
package devupstream

import "time"

// Config holds configuration for the fake players API.
type Config struct {
	Addr       string        // Listen address
	Token      string        // Expected "Authorization: Token <Token>"; empty accepts anything
	Players    int           // Roster size
	MatchEvery time.Duration // Interval between simulated matches; 0 disables drift
	FailRate   float64       // Fraction of requests answered with 503
}

// Player is one roster entry in the players API wire shape.
type Player struct {
	Name             string  `json:"name"`
	RealName         *string `json:"real_name"`
	SeasonElo        int     `json:"season_elo"`
	SlackID          string  `json:"slack_id"`
	Active           bool    `json:"active"`
	SeasonMatchCount int     `json:"season_match_count"`
	TotalMatchCount  int     `json:"total_match_count"`
}
