package config

import "errors"

var (
	// ErrInvalidConfig wraps every failed Validate check.
	ErrInvalidConfig = errors.New("config: invalid setting")
	// ErrLoadConfig wraps file, env and unmarshal failures in Load.
	ErrLoadConfig = errors.New("config: load failed")
)
