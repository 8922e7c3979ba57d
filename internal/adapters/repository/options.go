package repository

import (
	"github.com/okian/endurank/pkg/logger"
)

// Option applies a configuration option to the BadgerStore.
type Option func(*BadgerStore)

// WithDir persists documents under dir. An empty dir keeps everything in memory.
func WithDir(dir string) Option {
	return func(s *BadgerStore) {
		s.dir = dir
	}
}

// WithSyncWrites fsyncs every write before it is acknowledged.
func WithSyncWrites(sync bool) Option {
	return func(s *BadgerStore) {
		s.syncWrites = sync
	}
}

// WithLogger routes badger's internal warnings and errors to l.
func WithLogger(l logger.Logger) Option {
	return func(s *BadgerStore) {
		if l != nil {
			s.log = l
		}
	}
}
