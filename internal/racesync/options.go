package racesync

import (
	"context"
	"time"

	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/pkg/logger"
)

// Option applies a configuration option to the Syncer.
type Option func(*Syncer)

// WithClock overrides the wall clock.
func WithClock(c model.Clock) Option {
	return func(s *Syncer) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRefreshDays sets how old a synced race must be before it is rewritten.
func WithRefreshDays(days int) Option {
	return func(s *Syncer) {
		if days >= 0 {
			s.refreshDays = days
		}
	}
}

// WithSourceTimeout bounds each source fetch.
func WithSourceTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.sourceTimeout = d
		}
	}
}

// WithLogger sets the syncer logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOnChange is called after a race is added or updated.
func WithOnChange(fn func(ctx context.Context, race *model.Race, action model.SyncAction)) Option {
	return func(s *Syncer) {
		s.onChange = fn
	}
}
