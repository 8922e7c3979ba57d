// Package racesync pulls race calendars from external sources and upserts
// them into the catalog.
package racesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/endurank/internal/adapters/repository"
	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/pkg/logger"
	"github.com/okian/endurank/pkg/metrics"
)

// Defaults for a Syncer.
const (
	DefaultRefreshDays   = 7
	DefaultSourceTimeout = 2 * time.Minute
)

// Catalog is the slice of the document store the syncer writes through.
type Catalog interface {
	Get(ctx context.Context, kind model.Kind, id string) (model.Item, error)
	Put(ctx context.Context, item model.Item) error
}

// Enqueuer hands records to the ingestion workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, r model.SyncRecord) bool
	IsClosed() bool
}

// RecordError describes one record that could not be applied.
type RecordError struct {
	RaceID  string `json:"raceId,omitempty"`
	Message string `json:"message"`
}

// Result tallies one source's sync run.
type Result struct {
	Source    string        `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
	Added     int           `json:"added"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Errors    []RecordError `json:"errors"`
}

// Count records one applied record.
func (r *Result) Count(action model.SyncAction) {
	switch action {
	case model.SyncAdded:
		r.Added++
	case model.SyncUpdated:
		r.Updated++
	case model.SyncSkipped:
		r.Skipped++
	}
}

// Fail records one failed record.
func (r *Result) Fail(raceID string, err error) {
	r.Errors = append(r.Errors, RecordError{RaceID: raceID, Message: err.Error()})
}

// Batch is what one source returned.
type Batch struct {
	Source string
	Races  []model.RawRace
	Err    error
}

// Dispatch reports records handed to the queue by Syncer.Dispatch.
type Dispatch struct {
	RunID    string   `json:"runId"`
	Enqueued int      `json:"enqueued"`
	Results  []Result `json:"results"`
}

// Syncer upserts raw races into the catalog.
type Syncer struct {
	catalog       Catalog
	clock         model.Clock
	refreshDays   int
	sourceTimeout time.Duration
	onChange      func(ctx context.Context, race *model.Race, action model.SyncAction)
	log           logger.Logger
}

// NewSyncer creates a syncer writing to catalog.
func NewSyncer(catalog Catalog, opts ...Option) *Syncer {
	s := &Syncer{
		catalog:       catalog,
		clock:         model.SystemClock,
		refreshDays:   DefaultRefreshDays,
		sourceTimeout: DefaultSourceTimeout,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch pulls every source concurrently. Batches keep the order of sources;
// a failing source yields a Batch with Err set and never aborts the others.
func (s *Syncer) Fetch(ctx context.Context, sources ...Source) []Batch {
	batches := make([]Batch, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			start := time.Now()
			fctx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
			defer cancel()

			races, err := src.FetchRaw(fctx)
			batches[i] = Batch{Source: src.Name(), Races: races}
			ms := float64(time.Since(start).Milliseconds())
			if err != nil {
				batches[i].Err = fmt.Errorf("%w: %s: %w", ErrFetch, src.Name(), err)
				metrics.RecordSyncRun(src.Name(), "fetch_error", ms)
				s.log.Warn(ctx, "race source failed", logger.String("source", src.Name()), logger.Error(err))
				return nil
			}
			metrics.RecordSyncRun(src.Name(), "fetched", ms)
			s.log.Info(ctx, "race source fetched", logger.String("source", src.Name()), logger.Int("races", len(races)))
			return nil
		})
	}
	_ = g.Wait()
	return batches
}

// Run fetches every source and applies the records inline, one Result per source.
func (s *Syncer) Run(ctx context.Context, sources ...Source) []Result {
	runID := uuid.NewString()
	ctx = logger.WithFields(ctx, logger.String("runId", runID))
	batches := s.Fetch(ctx, sources...)

	results := make([]Result, 0, len(batches))
	for _, b := range batches {
		res := Result{Source: b.Source, Timestamp: s.clock.Now()}
		if b.Err != nil {
			res.Fail("", b.Err)
			results = append(results, res)
			continue
		}
		for _, raw := range b.Races {
			if err := ctx.Err(); err != nil {
				res.Fail("", err)
				break
			}
			action, err := s.Apply(ctx, model.SyncRecord{RunID: runID, Source: b.Source, Raw: raw})
			if err != nil {
				res.Fail(raw.ExternalID, err)
				metrics.RecordSyncRecord(b.Source, "error")
				continue
			}
			res.Count(action)
			metrics.RecordSyncRecord(b.Source, string(action))
		}
		s.log.Info(ctx, "race source synced",
			logger.String("source", b.Source),
			logger.Int("added", res.Added),
			logger.Int("updated", res.Updated),
			logger.Int("skipped", res.Skipped),
			logger.Int("errors", len(res.Errors)),
		)
		results = append(results, res)
	}
	return results
}

// Dispatch fetches every source and enqueues the records for the ingestion
// workers instead of applying them. The returned results carry only fetch
// and enqueue failures; applied counts arrive through the workers.
func (s *Syncer) Dispatch(ctx context.Context, q Enqueuer, sources ...Source) Dispatch {
	d := Dispatch{RunID: uuid.NewString()}
	ctx = logger.WithFields(ctx, logger.String("runId", d.RunID))
	for _, b := range s.Fetch(ctx, sources...) {
		res := Result{Source: b.Source, Timestamp: s.clock.Now()}
		if b.Err != nil {
			res.Fail("", b.Err)
		}
		for _, raw := range b.Races {
			// A queue closed by shutdown mid-dispatch rejects the rest.
			if q.IsClosed() {
				res.Fail(raw.ExternalID, ErrQueueClosed)
				continue
			}
			if !q.Enqueue(ctx, model.SyncRecord{RunID: d.RunID, Source: b.Source, Raw: raw}) {
				res.Fail(raw.ExternalID, ErrQueueFull)
				continue
			}
			d.Enqueued++
		}
		d.Results = append(d.Results, res)
	}
	return d
}

// Apply upserts one record: create when new, rewrite when stale, skip otherwise.
func (s *Syncer) Apply(ctx context.Context, rec model.SyncRecord) (model.SyncAction, error) {
	now := s.clock.Now()
	fresh, err := ToRace(rec.Raw, rec.Source, now)
	if err != nil {
		return "", err
	}

	current, err := s.catalog.Get(ctx, model.KindRace, fresh.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if err := s.catalog.Put(ctx, fresh); err != nil {
			return "", fmt.Errorf("create %s: %w", fresh.ID, err)
		}
		s.changed(ctx, fresh, model.SyncAdded)
		return model.SyncAdded, nil
	case err != nil:
		return "", fmt.Errorf("lookup %s: %w", fresh.ID, err)
	}

	existing, ok := current.(*model.Race)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a race", ErrInvalidRecord, fresh.ID)
	}
	if !ShouldRefresh(existing.LastSynced, now, s.refreshDays) {
		return model.SyncSkipped, nil
	}

	refresh(existing, fresh, now)
	if err := s.catalog.Put(ctx, existing); err != nil {
		return "", fmt.Errorf("update %s: %w", fresh.ID, err)
	}
	s.changed(ctx, existing, model.SyncUpdated)
	return model.SyncUpdated, nil
}

func (s *Syncer) changed(ctx context.Context, race *model.Race, action model.SyncAction) {
	if s.onChange != nil {
		s.onChange(ctx, race, action)
	}
}
