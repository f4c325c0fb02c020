package cache

import "errors"

// Sentinel kinds for cache store errors.
var (
	ErrEmptyKey = errors.New("cache key must not be empty")
	ErrStore    = errors.New("cache store operation failed")
)
