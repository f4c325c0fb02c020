// Package ranking orders players and assigns leaderboard positions.
package ranking

import (
	"sort"

	"github.com/okian/poolboard/internal/domain/model"
)

// Assign sorts a copy of players by score descending and sets positions.
//
// Equal scores keep their input order. A player whose score equals the one
// directly above gets the tie marker. The position counter advances for
// every row, ties included, so [1100, 999, 999, 800] ranks as [1, 2, -, 4].
func Assign(players []model.Player) model.Leaderboard {
	out := make(model.Leaderboard, len(players))
	copy(out, players)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Position = model.Tie()
			continue
		}
		out[i].Position = model.Rank(i + 1)
	}
	return out
}
