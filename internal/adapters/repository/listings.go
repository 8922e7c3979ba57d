package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/scoring"
	"github.com/okian/endurank/pkg/metrics"
)

type listingKey struct {
	kind        model.Kind
	sensitivity scoring.Sensitivity
}

// Listings holds one Listing per catalog kind and cost sensitivity.
type Listings struct {
	mu  sync.RWMutex
	idx map[listingKey]*Listing
}

// NewListings creates empty listings for every kind and sensitivity.
func NewListings() *Listings {
	ls := &Listings{idx: make(map[listingKey]*Listing)}
	for _, k := range model.Kinds {
		for _, s := range scoring.Sensitivities {
			ls.idx[listingKey{k, s}] = NewListing()
		}
	}
	return ls
}

// Listing returns the index for kind and s.
func (ls *Listings) Listing(kind model.Kind, s scoring.Sensitivity) (*Listing, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	l, ok := ls.idx[listingKey{kind, s}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoListing, kind, s)
	}
	return l, nil
}

// Upsert sets the per-sensitivity scores of one item.
func (ls *Listings) Upsert(kind model.Kind, id string, scores map[scoring.Sensitivity]float64) error {
	for s, score := range scores {
		l, err := ls.Listing(kind, s)
		if err != nil {
			return err
		}
		if l.Upsert(id, score) {
			metrics.UpdateListingSize(string(kind), string(s), l.Count())
		}
	}
	return nil
}

// Remove drops an item from every sensitivity of kind.
func (ls *Listings) Remove(kind model.Kind, id string) {
	for _, s := range scoring.Sensitivities {
		l, err := ls.Listing(kind, s)
		if err != nil {
			continue
		}
		if l.Remove(id) {
			metrics.UpdateListingSize(string(kind), string(s), l.Count())
		}
	}
}

// TopN returns the best n entries of kind for s.
func (ls *Listings) TopN(ctx context.Context, kind model.Kind, s scoring.Sensitivity, n int) ([]Entry, error) {
	l, err := ls.Listing(kind, s)
	if err != nil {
		return nil, err
	}
	return l.TopN(ctx, n)
}
