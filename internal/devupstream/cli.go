package devupstream

import "os"

// ShowHelp prints usage information for the fake players API.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`poolboard fake players API
=========================

Serves a generated roster at /api/player in the poolbot players API shape,
optionally playing random matches so the leaderboard has changes to show.

Usage:
  go run ./cmd/fake-upstream [options]

Options:
  -addr string
        Listen address (default ":9081")
  -token string
        Required token for "Authorization: Token <token>" (default: accept any)
  -players int
        Roster size (default 12)
  -every duration
        Interval between simulated matches; 0 disables (default 20s)
  -fail float
        Fraction of requests answered with 503 (default 0)
  -help
        Show this help message

Example:
  go run ./cmd/fake-upstream -token dev -every 5s
  POOLBOARD_AUTH_TOKEN=dev go run ./cmd
`)
}
