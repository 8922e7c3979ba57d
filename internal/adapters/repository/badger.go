package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/pkg/logger"
	"github.com/okian/endurank/pkg/metrics"
)

// maxUpdateAttempts bounds conflict retries in Update.
const maxUpdateAttempts = 3

// BadgerStore keeps catalog items as JSON documents in badger under
// "<kind>:<id>" keys. Field queries scan the kind's key prefix.
type BadgerStore struct {
	db         *badger.DB
	dir        string
	syncWrites bool
	log        logger.Logger
	closed     atomic.Bool
}

// NewBadgerStore opens the store. Without WithDir it runs in memory.
func NewBadgerStore(opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	bopts := badger.DefaultOptions(s.dir).
		WithSyncWrites(s.syncWrites).
		WithLogger(badgerLogger{s.log})
	if s.dir == "" {
		bopts = bopts.WithInMemory(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s.db = db
	return s, nil
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, kind model.Kind, id string) (model.Item, error) {
	defer observe("get", time.Now())
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var item model.Item
	err := s.db.View(func(txn *badger.Txn) error {
		it, err := txn.Get(key(kind, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s/%s: %w", kind, id, err)
		}
		return it.Value(func(val []byte) error {
			item, err = decode(kind, val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Put implements Store.
func (s *BadgerStore) Put(ctx context.Context, item model.Item) error {
	defer observe("put", time.Now())
	if s.closed.Load() {
		return ErrClosed
	}

	id := item.Common().ID
	if id == "" {
		return ErrMissingID
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", item.Kind(), err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(item.Kind(), id), data)
	})
}

// Update implements Store. A transaction that loses a write conflict is
// retried against the committed value, so fn always sees current state.
func (s *BadgerStore) Update(ctx context.Context, kind model.Kind, id string, fn func(model.Item) error) (model.Item, error) {
	defer observe("update", time.Now())
	if s.closed.Load() {
		return nil, ErrClosed
	}

	for attempt := 1; ; attempt++ {
		item, err := s.update(kind, id, fn)
		if !errors.Is(err, badger.ErrConflict) {
			return item, err
		}
		metrics.RecordErrorByComponent("repository", "conflict")
		if attempt == maxUpdateAttempts {
			return nil, fmt.Errorf("%w: %s/%s", ErrConflict, kind, id)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (s *BadgerStore) update(kind model.Kind, id string, fn func(model.Item) error) (model.Item, error) {
	var item model.Item
	err := s.db.Update(func(txn *badger.Txn) error {
		k := key(kind, id)
		it, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s/%s: %w", kind, id, err)
		}
		err = it.Value(func(val []byte) error {
			item, err = decode(kind, val)
			return err
		})
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", kind, err)
		}
		return txn.Set(k, data)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// FindByField implements Store.
func (s *BadgerStore) FindByField(ctx context.Context, kind model.Kind, field string, value any) ([]model.Item, error) {
	return s.FindByFields(ctx, kind, map[string]any{field: value})
}

// FindByFields implements Store.
func (s *BadgerStore) FindByFields(ctx context.Context, kind model.Kind, fields map[string]any) ([]model.Item, error) {
	defer observe("find", time.Now())

	m, err := newMatcher(fields)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, kind, m.match)
}

// ListAll implements Store.
func (s *BadgerStore) ListAll(ctx context.Context, kind model.Kind) ([]model.Item, error) {
	defer observe("list", time.Now())
	return s.scan(ctx, kind, nil)
}

// Count implements Store.
func (s *BadgerStore) Count(ctx context.Context, kind model.Kind) (int, error) {
	if _, err := newItem(kind); err != nil {
		return 0, err
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := prefix(kind)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close releases the database. Safe to call more than once.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// scan walks every document of kind, decoding those keep accepts.
func (s *BadgerStore) scan(ctx context.Context, kind model.Kind, keep func([]byte) bool) ([]model.Item, error) {
	if _, err := newItem(kind); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out []model.Item
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := prefix(kind)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				if keep != nil && !keep(val) {
					return nil
				}
				item, err := decode(kind, val)
				if err != nil {
					return err
				}
				out = append(out, item)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "scan")
		return nil, err
	}
	return out, nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// badgerLogger forwards badger's log lines to the service logger.
type badgerLogger struct {
	l logger.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(context.Background(), fmt.Sprintf(format, args...))
}
