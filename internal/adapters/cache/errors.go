package cache

import "errors"

// Sentinel kinds for cache errors.
var (
	// ErrMiss means the key is absent or expired; callers recompute.
	ErrMiss = errors.New("cache miss")
	// ErrUnavailable wraps transport failures talking to redis.
	ErrUnavailable = errors.New("cache unavailable")
)
