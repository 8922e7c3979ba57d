// Package service wires the catalog store, the scoring and search domain and
// the race ingestion pipeline into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/endurank/internal/adapters/cache"
	eventqueue "github.com/okian/endurank/internal/adapters/mq/queue"
	workerpool "github.com/okian/endurank/internal/adapters/mq/worker"
	"github.com/okian/endurank/internal/adapters/repository"
	"github.com/okian/endurank/internal/domain/dedupe"
	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/query"
	"github.com/okian/endurank/internal/domain/scoring"
	"github.com/okian/endurank/internal/domain/search"
	"github.com/okian/endurank/internal/domain/similarity"
	"github.com/okian/endurank/internal/domain/types"
	"github.com/okian/endurank/internal/racesync"
	"github.com/okian/endurank/internal/validation"
	"github.com/okian/endurank/pkg/logger"
	"github.com/okian/endurank/pkg/metrics"
)

const (
	defaultQueueSize       = 10000
	defaultMaxListingLimit = 100
	keptSyncRuns           = 32
	stopTimeout            = 10 * time.Second
)

// Service implements the API dependencies for the Endurank catalog.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	ownsStore  bool
	listings   *repository.Listings
	prices     cache.PriceCache
	validator  *dedupe.Validator
	engine     *scoring.Engine
	parser     *query.Parser
	ranker     *search.Ranker
	syncer     *racesync.Syncer
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	dataDir         string
	workerCount     int
	queueSize       int
	threshold       int
	maxListingLimit int
	refreshDays     int
	sources         []racesync.Source
	seed            bool
	gazetteer       *query.Gazetteer
	clock           model.Clock

	// index refreshes are serialized so a category max and its scores agree
	indexMu sync.Mutex

	runsMu   sync.Mutex
	runs     map[string]*types.SyncSummary
	runOrder []string

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       defaultQueueSize,
		threshold:       similarity.DefaultThreshold,
		maxListingLimit: defaultMaxListingLimit,
		refreshDays:     racesync.DefaultRefreshDays,
		gazetteer:       query.DefaultGazetteer(),
		clock:           model.SystemClock,
		engine:          scoring.NewEngine(),
		runs:            make(map[string]*types.SyncSummary),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.parser = query.NewParser(query.WithGazetteer(s.gazetteer), query.WithClock(s.clock))
	s.ranker = search.NewRanker(search.WithClock(s.clock))
	return s
}

// Start opens the store, rebuilds the listings and starts the sync workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting endurank service...")

	if s.store == nil {
		store, err := repository.NewBadgerStore(
			repository.WithDir(s.dataDir),
			repository.WithLogger(s.logger.Named("badger")),
		)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}

	s.listings = repository.NewListings()
	s.validator = dedupe.NewValidator(s.store,
		dedupe.WithThreshold(s.threshold),
		dedupe.WithLogger(s.logger.Named("dedupe")),
	)
	s.syncer = racesync.NewSyncer(s.store,
		racesync.WithClock(s.clock),
		racesync.WithRefreshDays(s.refreshDays),
		racesync.WithLogger(s.logger.Named("racesync")),
		racesync.WithOnChange(s.raceChanged),
	)

	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.syncer,
		workerpool.WithOnApplied(s.recordApplied),
	)

	if err := s.rebuildListings(ctx); err != nil {
		s.closeStore(ctx)
		return fmt.Errorf("rebuild listings: %w", err)
	}

	if s.seed {
		seed, err := racesync.SeedSource()
		if err != nil {
			s.closeStore(ctx)
			return fmt.Errorf("load seed: %w", err)
		}
		for _, res := range s.syncer.Run(ctx, seed) {
			s.logger.Info(ctx, "seed races loaded",
				logger.Int("added", res.Added),
				logger.Int("updated", res.Updated),
				logger.Int("skipped", res.Skipped),
				logger.Int("errors", len(res.Errors)),
			)
		}
	}

	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "endurank service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("similarityThreshold", s.threshold),
		logger.Bool("priceCache", s.prices != nil),
	)
	return nil
}

// Stop drains the sync queue and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping endurank service...")

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown incomplete, stopping workers", logger.Error(err))
			s.workerPool.Stop()
		}
	}
	s.closeStore(ctx)

	s.started = false
	s.logger.Info(ctx, "endurank service stopped")
}

func (s *Service) closeStore(ctx context.Context) {
	if !s.ownsStore || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Search parses text, filters and orders the live races and scores them for tier.
// Gear is matched by plain substring when the query names no distance, place
// or organizer.
func (s *Service) Search(ctx context.Context, text string, tier scoring.Sensitivity) (types.SearchResult, error) {
	if err := s.ready(); err != nil {
		return types.SearchResult{}, err
	}
	start := time.Now()
	tier = normalizeTier(tier)

	q := s.parser.Parse(text)
	races, err := s.liveRaces(ctx)
	if err != nil {
		return types.SearchResult{}, err
	}

	ranked := s.ranker.RankScored(races, q, text)
	matched := make([]*model.Race, len(ranked))
	result := types.SearchResult{
		Query:       text,
		Summary:     query.Summary(q),
		Parsed:      q,
		Fallback:    !q.Structured(),
		Sensitivity: tier,
		Races:       make([]types.ScoredItem, 0, len(ranked)),
		Gear:        []types.ScoredItem{},
	}

	maxes := make(map[string]float64)
	for i, r := range ranked {
		matched[i] = r.Race
		item := s.scoreItem(ctx, r.Race, tier, maxes)
		item.Relevance = r.Relevance
		result.Races = append(result.Races, item)
	}
	result.ByDistance = search.CountByDistance(matched)

	if result.Fallback && strings.TrimSpace(text) != "" {
		gear, err := s.liveGear(ctx)
		if err != nil {
			return types.SearchResult{}, err
		}
		for _, g := range search.MatchGear(gear, text) {
			result.Gear = append(result.Gear, s.scoreItem(ctx, g, tier, maxes))
		}
	}

	result.Total = len(result.Races) + len(result.Gear)
	metrics.RecordSearch(string(q.Intent), float64(time.Since(start).Milliseconds()), result.Total, result.Fallback)
	s.logger.Debug(ctx, "search served",
		logger.String("query", text),
		logger.String("intent", string(q.Intent)),
		logger.Int("results", result.Total),
		logger.Bool("fallback", result.Fallback),
	)
	return result, nil
}

// Score computes one Endurank from its three terms.
func (s *Service) Score(in scoring.Input) types.ScoreResult {
	score := s.engine.Score(in)
	metrics.RecordScoreComputed()
	return types.ScoreResult{Endurank: score, Band: scoring.BandFor(score)}
}

// ScoreFor computes the Endurank of an item priced price for a user tier.
func (s *Service) ScoreFor(rating float64, tier scoring.Sensitivity, price, categoryMax float64) types.ScoreResult {
	return s.Score(scoring.Input{
		AverageRating:   rating,
		CostSensitivity: scoring.CostSensitivityFactor(normalizeTier(tier)),
		NormalizedPrice: scoring.NormalizedPrice(price, categoryMax),
	})
}

// Validate runs the duplicate checks for d without storing anything.
func (s *Service) Validate(ctx context.Context, d model.Draft) (dedupe.Result, error) {
	if err := s.ready(); err != nil {
		return dedupe.Result{}, err
	}
	if err := validation.Struct(d); err != nil {
		return dedupe.Result{}, err
	}
	return s.validator.Check(ctx, d, false)
}

// Submit stores d as a pending item unless it duplicates a stored item.
// A similar name blocks creation until the submitter resends with confirmed set.
func (s *Service) Submit(ctx context.Context, d model.Draft, confirmed bool, createdBy string) (types.SubmitResult, error) {
	if err := s.ready(); err != nil {
		return types.SubmitResult{}, err
	}
	kind := string(d.Kind())
	if err := validation.Struct(d); err != nil {
		metrics.RecordSubmission(kind, "invalid")
		return types.SubmitResult{}, err
	}

	res, err := s.validator.Check(ctx, d, confirmed)
	if err != nil {
		metrics.RecordSubmission(kind, dedupe.OutcomeError)
		return types.SubmitResult{Validation: res}, err
	}
	switch {
	case !res.IsValid:
		metrics.RecordSubmission(kind, types.SubmissionBlocked)
		return types.SubmitResult{Outcome: types.SubmissionBlocked, Validation: res}, nil
	case len(res.Similar) > 0:
		metrics.RecordSubmission(kind, types.SubmissionWarned)
		return types.SubmitResult{Outcome: types.SubmissionWarned, Validation: res}, nil
	}

	item := d.Build(uuid.NewString(), createdBy, s.clock.Now())
	if err := s.store.Put(ctx, item); err != nil {
		metrics.RecordSubmission(kind, dedupe.OutcomeError)
		return types.SubmitResult{}, fmt.Errorf("store %s: %w", kind, err)
	}
	metrics.RecordSubmission(kind, types.SubmissionCreated)
	s.logger.Info(ctx, "submission created",
		logger.String("kind", kind),
		logger.String("id", item.Common().ID),
		logger.String("name", item.Name()),
	)
	return types.SubmitResult{Outcome: types.SubmissionCreated, Item: item, Validation: res}, nil
}

// Moderate moves an item to status. Items becoming live join the listings.
func (s *Service) Moderate(ctx context.Context, kind model.Kind, id string, status model.Status) (model.Item, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	// The status check and the write share one store transaction, so of two
	// racing moderations only one leaves pending.
	item, err := s.store.Update(ctx, kind, id, func(it model.Item) error {
		return model.Moderate(it, status, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordModeration(string(kind), string(status))
	s.logger.Info(ctx, "item moderated",
		logger.String("kind", string(kind)),
		logger.String("id", id),
		logger.String("status", string(status)),
	)

	if status == model.StatusLive {
		s.refreshCategory(ctx, kind, item.Category(), id)
	}
	return item, nil
}

// Listing returns up to limit live items of kind, best Endurank for tier first.
func (s *Service) Listing(ctx context.Context, kind model.Kind, tier scoring.Sensitivity, limit int) (types.Listing, error) {
	if err := s.ready(); err != nil {
		return types.Listing{}, err
	}
	tier = normalizeTier(tier)
	limit = min(limit, s.maxListingLimit)

	entries, err := s.listings.TopN(ctx, kind, tier, limit)
	if err != nil {
		return types.Listing{}, err
	}
	index, err := s.listings.Listing(kind, tier)
	if err != nil {
		return types.Listing{}, err
	}

	out := types.Listing{
		Kind:        kind,
		Sensitivity: tier,
		Total:       index.Count(),
		Items:       make([]types.ScoredItem, 0, len(entries)),
	}
	for _, e := range entries {
		item, err := s.store.Get(ctx, kind, e.ID)
		if errors.Is(err, repository.ErrNotFound) {
			s.listings.Remove(kind, e.ID)
			continue
		}
		if err != nil {
			return types.Listing{}, err
		}
		si := types.NewScoredItem(item, e.Score)
		si.Rank = e.Rank
		out.Items = append(out.Items, si)
	}
	return out, nil
}

// Rank returns the listing position and score of one live item for tier.
// Items outside the listing report repository.ErrNotFound.
func (s *Service) Rank(ctx context.Context, kind model.Kind, id string, tier scoring.Sensitivity) (types.ScoredItem, error) {
	if err := s.ready(); err != nil {
		return types.ScoredItem{}, err
	}
	index, err := s.listings.Listing(kind, normalizeTier(tier))
	if err != nil {
		return types.ScoredItem{}, err
	}
	entry, err := index.Rank(ctx, id)
	if err != nil {
		return types.ScoredItem{}, fmt.Errorf("%w: %s %s is not listed", err, kind, id)
	}
	item, err := s.store.Get(ctx, kind, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.listings.Remove(kind, id)
	}
	if err != nil {
		return types.ScoredItem{}, err
	}
	ranked := types.NewScoredItem(item, entry.Score)
	ranked.Rank = entry.Rank
	return ranked, nil
}

// TriggerSync fetches the configured sources and hands their records to the
// sync workers. The returned summary fills in as the workers apply records.
func (s *Service) TriggerSync(ctx context.Context) (types.SyncSummary, error) {
	if err := s.ready(); err != nil {
		return types.SyncSummary{}, err
	}
	sources, err := s.syncSources()
	if err != nil {
		return types.SyncSummary{}, err
	}

	startedAt := s.clock.Now()
	d := s.syncer.Dispatch(ctx, s.eventQueue, sources...)

	s.runsMu.Lock()
	run := s.run(d.RunID)
	run.StartedAt = startedAt
	run.Enqueued = d.Enqueued
	for _, res := range d.Results {
		run.Failed += len(res.Errors)
	}
	summary := *run
	s.runsMu.Unlock()

	metrics.UpdateQueueSize(s.eventQueue.Len(ctx))
	s.logger.Info(ctx, "sync dispatched",
		logger.String("runId", d.RunID),
		logger.Int("sources", len(sources)),
		logger.Int("enqueued", d.Enqueued),
		logger.Int("failed", summary.Failed),
	)
	return summary, nil
}

// SyncRun returns the tally of a dispatched run.
func (s *Service) SyncRun(runID string) (types.SyncSummary, error) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return types.SyncSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return *run, nil
}

func (s *Service) syncSources() ([]racesync.Source, error) {
	if len(s.sources) > 0 {
		return s.sources, nil
	}
	seed, err := racesync.SeedSource()
	if err != nil {
		return nil, err
	}
	return []racesync.Source{seed}, nil
}

// run returns the summary for runID, creating it if needed. Callers hold runsMu.
func (s *Service) run(runID string) *types.SyncSummary {
	if run, ok := s.runs[runID]; ok {
		return run
	}
	run := &types.SyncSummary{RunID: runID}
	s.runs[runID] = run
	s.runOrder = append(s.runOrder, runID)
	if len(s.runOrder) > keptSyncRuns {
		delete(s.runs, s.runOrder[0])
		s.runOrder = s.runOrder[1:]
	}
	return run
}

// recordApplied is called by the sync workers for every record.
func (s *Service) recordApplied(rec model.SyncRecord, action model.SyncAction, err error) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	run := s.run(rec.RunID)
	if err != nil {
		run.Failed++
		return
	}
	switch action {
	case model.SyncAdded:
		run.Added++
	case model.SyncUpdated:
		run.Updated++
	case model.SyncSkipped:
		run.Skipped++
	}
}

func (s *Service) raceChanged(ctx context.Context, race *model.Race, action model.SyncAction) {
	if action == model.SyncSkipped || race.Status != model.StatusLive {
		return
	}
	s.refreshCategory(ctx, model.KindRace, race.Category(), race.ID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":             s.started,
		"workerCount":         s.workerCount,
		"queueSize":           s.queueSize,
		"similarityThreshold": s.threshold,
		"priceCache":          s.prices != nil,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)

		items := make(map[string]map[string]int, len(model.Kinds))
		listed := make(map[string]int, len(model.Kinds))
		for _, kind := range model.Kinds {
			byStatus, err := s.countByStatus(ctx, kind)
			if err != nil {
				s.logger.Warn(ctx, "stats lookup failed", logger.String("kind", string(kind)), logger.Error(err))
				continue
			}
			for status, n := range byStatus {
				metrics.UpdateCatalogItems(string(kind), status, n)
			}
			items[string(kind)] = byStatus
			listed[string(kind)] = byStatus[string(model.StatusLive)]
		}
		stats["items"] = items
		stats["listed"] = listed

		s.runsMu.Lock()
		if n := len(s.runOrder); n > 0 {
			stats["lastSync"] = *s.runs[s.runOrder[n-1]]
		}
		s.runsMu.Unlock()
	}

	return stats
}

// countByStatus splits the stored items of kind by moderation status. Live
// items are exactly the listed ones, so only pending needs a scan.
func (s *Service) countByStatus(ctx context.Context, kind model.Kind) (map[string]int, error) {
	total, err := s.store.Count(ctx, kind)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.FindByField(ctx, kind, model.FieldStatus, model.StatusPending)
	if err != nil {
		return nil, err
	}
	live := 0
	if index, err := s.listings.Listing(kind, scoring.SensitivityMidRange); err == nil {
		live = index.Count()
	}
	return map[string]int{
		string(model.StatusPending):  len(pending),
		string(model.StatusLive):     live,
		string(model.StatusRejected): max(total-live-len(pending), 0),
	}, nil
}

func normalizeTier(tier scoring.Sensitivity) scoring.Sensitivity {
	if tier == "" {
		return scoring.SensitivityMidRange
	}
	return tier
}
