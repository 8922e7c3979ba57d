package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrInvalidStatus     = errors.New("invalid moderation status")
	ErrInvalidTransition = errors.New("invalid moderation transition")
)
