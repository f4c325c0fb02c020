// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TieMarker is the wire form of a tied leaderboard position.
const TieMarker = "-"

// ErrInvalidPosition is returned when a position cannot be decoded.
var ErrInvalidPosition = errors.New("invalid position")

// PlayerID is the stable upstream identifier (the player's slack id).
// Upstream may send it as a JSON string or a JSON number.
type PlayerID string

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *PlayerID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("player id: %w", err)
		}
		*id = PlayerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("player id: %w", err)
	}
	*id = PlayerID(n.String())
	return nil
}

// PlayerRecord is a player object as returned by the upstream players API.
// Pointer fields distinguish an absent key from its zero value.
type PlayerRecord struct {
	Name             *string   `json:"name"`
	RealName         *string   `json:"real_name"`
	SeasonElo        *int      `json:"season_elo"`
	SlackID          *PlayerID `json:"slack_id"`
	Active           *bool     `json:"active"`
	SeasonMatchCount *int      `json:"season_match_count"`
}

// Position is a 1-based leaderboard position or the tie marker.
// The zero value means "not yet ranked".
type Position struct {
	rank int
	tie  bool
}

// Rank returns the numeric position n.
func Rank(n int) Position { return Position{rank: n} }

// Tie returns the tie marker position.
func Tie() Position { return Position{tie: true} }

// IsTie reports whether p is the tie marker.
func (p Position) IsTie() bool { return p.tie }

// IsSet reports whether p carries a rank or the tie marker.
func (p Position) IsSet() bool { return p.tie || p.rank > 0 }

// Int returns the numeric rank, or 0 for ties and unset positions.
func (p Position) Int() int { return p.rank }

func (p Position) String() string {
	if p.tie {
		return TieMarker
	}
	return strconv.Itoa(p.rank)
}

// MarshalJSON encodes ties as "-", unset positions as null and ranks as numbers.
func (p Position) MarshalJSON() ([]byte, error) {
	switch {
	case p.tie:
		return []byte(`"` + TieMarker + `"`), nil
	case p.rank <= 0:
		return []byte("null"), nil
	default:
		return []byte(strconv.Itoa(p.rank)), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Position) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Position{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
		}
		if s != TieMarker {
			return fmt.Errorf("%w: %q", ErrInvalidPosition, s)
		}
		*p = Tie()
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	*p = Rank(n)
	return nil
}

// Player is one leaderboard row.
type Player struct {
	Name     string   `json:"name"`
	Score    int      `json:"season_elo"`
	ID       PlayerID `json:"id"`
	Diff     int      `json:"diff"`
	Position Position `json:"position"`
}

// Leaderboard is an ordered list of players, best first.
type Leaderboard []Player

// Clone returns a copy that shares no backing array with l.
func (l Leaderboard) Clone() Leaderboard {
	if l == nil {
		return nil
	}
	out := make(Leaderboard, len(l))
	copy(out, l)
	return out
}

// Snapshot is a committed leaderboard and the time it was committed.
type Snapshot struct {
	Players   Leaderboard
	UpdatedAt time.Time
}
