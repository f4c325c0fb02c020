// Package diff computes per-player score changes between two snapshots.
package diff

import "github.com/okian/poolboard/internal/domain/model"

// Apply returns a copy of players with Diff set to the score change since
// previous. Players absent from previous, or every player when previous is
// empty, get a diff of 0.
func Apply(players []model.Player, previous model.Leaderboard) []model.Player {
	prev := make(map[model.PlayerID]int, len(previous))
	for _, p := range previous {
		if _, ok := prev[p.ID]; !ok {
			prev[p.ID] = p.Score
		}
	}

	out := make([]model.Player, len(players))
	for i, p := range players {
		p.Diff = 0
		if score, ok := prev[p.ID]; ok {
			p.Diff = p.Score - score
		}
		out[i] = p
	}
	return out
}

// Changed reports whether a refreshed list differs from the snapshot it was
// diffed against: some player's score moved, or the list is empty. A player
// appearing with a zero diff alone is not a change.
func Changed(players []model.Player) bool {
	if len(players) == 0 {
		return true
	}
	for _, p := range players {
		if p.Diff != 0 {
			return true
		}
	}
	return false
}
