package racesync

import "errors"

// Sentinel kinds for sync errors.
var (
	// ErrFetch wraps a source that could not deliver its records.
	ErrFetch = errors.New("fetch race source")
	// ErrInvalidRecord marks a raw race that cannot become a catalog race.
	ErrInvalidRecord = errors.New("invalid race record")
	// ErrQueueFull means a record was dropped by the ingestion queue.
	ErrQueueFull = errors.New("ingestion queue rejected record")
	// ErrQueueClosed means the ingestion queue was shut down.
	ErrQueueClosed = errors.New("ingestion queue closed")
)
