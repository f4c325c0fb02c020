// Package normalize converts upstream player records into leaderboard players.
package normalize

import (
	"errors"
	"fmt"

	"github.com/okian/poolboard/internal/domain/model"
)

// ErrMissingField is returned when a record lacks a field the leaderboard depends on.
var ErrMissingField = errors.New("player record missing required field")

// Players keeps active players that have played at least one season match
// and maps them to model.Player with a zero diff and no position.
//
// Fields are read in filter order: a record already excluded by active or
// season_match_count is not checked further.
func Players(records []model.PlayerRecord) ([]model.Player, error) {
	out := make([]model.Player, 0, len(records))
	for i, r := range records {
		if r.Active == nil {
			return nil, missing(i, "active")
		}
		if !*r.Active {
			continue
		}
		if r.SeasonMatchCount == nil {
			return nil, missing(i, "season_match_count")
		}
		if *r.SeasonMatchCount <= 0 {
			continue
		}

		name, err := displayName(i, r)
		if err != nil {
			return nil, err
		}
		if r.SeasonElo == nil {
			return nil, missing(i, "season_elo")
		}
		if r.SlackID == nil {
			return nil, missing(i, "slack_id")
		}

		out = append(out, model.Player{
			Name:  name,
			Score: *r.SeasonElo,
			ID:    *r.SlackID,
		})
	}
	return out, nil
}

// displayName prefers a non-empty real name over the handle.
func displayName(i int, r model.PlayerRecord) (string, error) {
	if r.RealName != nil && *r.RealName != "" {
		return *r.RealName, nil
	}
	if r.Name == nil {
		return "", missing(i, "name")
	}
	return *r.Name, nil
}

func missing(i int, field string) error {
	return fmt.Errorf("%w: record %d: %s", ErrMissingField, i, field)
}
