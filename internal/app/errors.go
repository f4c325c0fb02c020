package service

import "errors"

// ErrRefresh wraps any failure to build a new leaderboard from upstream.
var ErrRefresh = errors.New("leaderboard refresh failed")
