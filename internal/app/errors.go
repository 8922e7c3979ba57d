package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrUnknownKind = errors.New("unknown item kind")
	ErrRunNotFound = errors.New("sync run not found")
	ErrSourceKind  = errors.New("unknown sync source kind")
)
