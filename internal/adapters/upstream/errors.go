package upstream

import "errors"

// Sentinel kinds for players API failures.
var (
	ErrRequest = errors.New("players api request failed")
	ErrStatus  = errors.New("players api returned a non-2xx status")
	ErrDecode  = errors.New("players api returned malformed json")
)
