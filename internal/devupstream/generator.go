package devupstream

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// Constants for roster generation.
const (
	baseElo        = 1000
	eloSpread      = 200
	inactiveEvery  = 7 // every 7th player is inactive
	noMatchesEvery = 5 // every 5th player has not played this season
	maxMatches     = 40
)

var names = []string{
	"aria", "ned", "kit", "bo", "rue", "jax", "ola", "taz", "ivy", "max",
	"zoe", "finn", "lex", "mae", "sam", "ray", "una", "vic", "wes", "yan",
}

// getRandomInt returns a random int in [0, n) using crypto/rand.
func getRandomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// Generate builds a roster of n players with unique slack ids. Some players
// are inactive or have no season matches so the leaderboard filter has
// something to drop, and some lack a real name.
func Generate(n int) []Player {
	out := make([]Player, n)
	for i := range out {
		name := names[i%len(names)]
		if i >= len(names) {
			name += string(rune('a' + i/len(names)%26))
		}
		p := Player{
			Name:             name,
			SeasonElo:        baseElo - eloSpread/2 + getRandomInt(eloSpread),
			SlackID:          uuid.New().String(),
			Active:           (i+1)%inactiveEvery != 0,
			SeasonMatchCount: 1 + getRandomInt(maxMatches),
		}
		if (i+1)%noMatchesEvery == 0 {
			p.SeasonMatchCount = 0
		}
		if i%3 != 0 {
			display := titleCase(name)
			p.RealName = &display
		}
		p.TotalMatchCount = p.SeasonMatchCount + getRandomInt(maxMatches)
		out[i] = p
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
