package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("item not found")
	ErrMissingID    = errors.New("item has no id")
	ErrUnknownKind  = errors.New("unknown catalog kind")
	ErrInvalidLimit = errors.New("invalid listing limit")
	ErrClosed       = errors.New("store closed")
	ErrNoListing    = errors.New("no listing for kind and sensitivity")
	ErrConflict     = errors.New("item changed concurrently")
)
