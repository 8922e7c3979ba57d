// Package types contains the read shapes returned by the service and the HTTP API.
package types

import (
	"time"

	"github.com/okian/endurank/internal/domain/dedupe"
	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/query"
	"github.com/okian/endurank/internal/domain/scoring"
)

// ScoredItem is a catalog item with its Endurank for one cost sensitivity.
type ScoredItem struct {
	Rank      int          `json:"rank,omitempty"`
	Item      model.Item   `json:"item"`
	Endurank  float64      `json:"endurank"`
	Band      scoring.Band `json:"band"`
	PriceTier string       `json:"priceTier"`
	Relevance int          `json:"relevance,omitempty"`
}

// NewScoredItem fills the display fields derived from score and item.
func NewScoredItem(item model.Item, score float64) ScoredItem {
	return ScoredItem{
		Item:      item,
		Endurank:  score,
		Band:      scoring.BandFor(score),
		PriceTier: scoring.PriceTierFor(item.Price(), item.Kind()).Display(),
	}
}

// SearchResult answers a free-text race search.
type SearchResult struct {
	Query       string                 `json:"query"`
	Summary     string                 `json:"summary"`
	Parsed      query.ParsedQuery      `json:"parsed"`
	Fallback    bool                   `json:"fallback"`
	Sensitivity scoring.Sensitivity    `json:"sensitivity"`
	Total       int                    `json:"total"`
	Races       []ScoredItem           `json:"races"`
	Gear        []ScoredItem           `json:"gear"`
	ByDistance  map[model.Distance]int `json:"byDistance"`
}

// Listing is a page of live items of one kind ordered by Endurank.
type Listing struct {
	Kind        model.Kind          `json:"kind"`
	Sensitivity scoring.Sensitivity `json:"sensitivity"`
	Total       int                 `json:"total"`
	Items       []ScoredItem        `json:"items"`
}

// Submission outcomes.
const (
	SubmissionCreated = "created"
	SubmissionBlocked = "blocked"
	SubmissionWarned  = "warned"
)

// SubmitResult reports what happened to a catalog submission.
type SubmitResult struct {
	Outcome    string        `json:"outcome"`
	Item       model.Item    `json:"item,omitempty"`
	Validation dedupe.Result `json:"validation"`
}

// ScoreResult is one computed Endurank.
type ScoreResult struct {
	Endurank float64      `json:"endurank"`
	Band     scoring.Band `json:"band"`
}

// SyncSummary tallies applied sync records by run.
type SyncSummary struct {
	RunID     string    `json:"runId"`
	StartedAt time.Time `json:"startedAt"`
	Enqueued  int       `json:"enqueued"`
	Added     int       `json:"added"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

// Pending is how many enqueued records have not been applied yet.
func (s SyncSummary) Pending() int {
	return max(s.Enqueued-s.Added-s.Updated-s.Skipped-s.Failed, 0)
}
