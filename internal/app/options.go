package service

import (
	"github.com/okian/endurank/internal/adapters/cache"
	"github.com/okian/endurank/internal/adapters/repository"
	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/query"
	"github.com/okian/endurank/internal/racesync"
	"github.com/okian/endurank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of sync worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the sync queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStore uses an already opened store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDataDir sets the badger directory. Empty keeps the store in memory.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		s.dataDir = dir
	}
}

// WithPriceCache enables the category max-price cache.
func WithPriceCache(c cache.PriceCache) Option {
	return func(s *Service) {
		s.prices = c
	}
}

// WithSimilarityThreshold sets the percentage at which names are reported
// as similar.
func WithSimilarityThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 && threshold <= 100 {
			s.threshold = threshold
		}
	}
}

// WithMaxListingLimit caps the page size of listings.
func WithMaxListingLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxListingLimit = limit
		}
	}
}

// WithRefreshDays sets how old a synced race must be before it is rewritten.
func WithRefreshDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.refreshDays = days
		}
	}
}

// WithSources sets the race sources used by TriggerSync.
func WithSources(sources ...racesync.Source) Option {
	return func(s *Service) {
		s.sources = sources
	}
}

// WithSeed loads the bundled race calendar on start.
func WithSeed(enabled bool) Option {
	return func(s *Service) {
		s.seed = enabled
	}
}

// WithGazetteer replaces the embedded query vocabulary.
func WithGazetteer(g *query.Gazetteer) Option {
	return func(s *Service) {
		if g != nil {
			s.gazetteer = g
		}
	}
}

// WithClock sets the clock used for timestamps and date filters.
func WithClock(c model.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
