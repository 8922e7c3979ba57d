package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/endurank/internal/adapters/cache"
	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/scoring"
	"github.com/okian/endurank/internal/domain/types"
	"github.com/okian/endurank/pkg/logger"
)

// categoryField is the document field that groups items for price normalization.
func categoryField(kind model.Kind) (string, error) {
	switch kind {
	case model.KindGear:
		return model.FieldSubCategory, nil
	case model.KindRace:
		return model.FieldDistance, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// rebuildListings indexes every live item already in the store.
func (s *Service) rebuildListings(ctx context.Context) error {
	for _, kind := range model.Kinds {
		items, err := s.store.FindByField(ctx, kind, model.FieldStatus, model.StatusLive)
		if err != nil {
			return fmt.Errorf("list live %s: %w", kind, err)
		}
		seen := make(map[string]bool)
		for _, it := range items {
			category := it.Category()
			if seen[category] {
				continue
			}
			seen[category] = true
			if err := s.indexCategory(ctx, kind, category); err != nil {
				return err
			}
		}
		s.logger.Info(ctx, "listings rebuilt",
			logger.String("kind", string(kind)),
			logger.Int("items", len(items)),
			logger.Int("categories", len(seen)),
		)
	}
	return nil
}

// indexCategory recomputes the category maximum and rescores every live item
// in it. A new maximum changes the normalized price of all its members.
func (s *Service) indexCategory(ctx context.Context, kind model.Kind, category string) error {
	field, err := categoryField(kind)
	if err != nil {
		return err
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	items, err := s.store.FindByFields(ctx, kind, map[string]any{
		model.FieldStatus: model.StatusLive,
		field:             category,
	})
	if err != nil {
		return fmt.Errorf("list %s %s: %w", kind, category, err)
	}

	maxPrice := categoryMax(items)
	if s.prices != nil {
		if err := s.prices.SetMaxPrice(ctx, kind, category, maxPrice); err != nil {
			s.logger.Warn(ctx, "price cache write failed",
				logger.String("kind", string(kind)),
				logger.String("category", category),
				logger.Error(err),
			)
		}
	}

	for _, it := range items {
		scores := make(map[scoring.Sensitivity]float64, len(scoring.Sensitivities))
		for _, tier := range scoring.Sensitivities {
			scores[tier] = s.engine.ScoreItem(it, tier, maxPrice)
		}
		if err := s.listings.Upsert(kind, it.Common().ID, scores); err != nil {
			return err
		}
	}
	return nil
}

// refreshCategory reindexes the category of an item that changed. When that
// fails the cached maximum may be below the item's price, so it is dropped
// and the next read recomputes it from the store.
func (s *Service) refreshCategory(ctx context.Context, kind model.Kind, category, id string) {
	err := s.indexCategory(ctx, kind, category)
	if err == nil {
		return
	}
	s.logger.Warn(ctx, "listing refresh failed", logger.String("id", id), logger.Error(err))
	if s.prices == nil {
		return
	}
	if err := s.prices.Invalidate(ctx, kind, category); err != nil {
		s.logger.Warn(ctx, "price cache invalidate failed",
			logger.String("kind", string(kind)),
			logger.String("category", category),
			logger.Error(err),
		)
	}
}

// maxPrice reads the category maximum from the cache, falling back to the
// store and refilling the cache on a miss.
func (s *Service) maxPrice(ctx context.Context, kind model.Kind, category string) (float64, error) {
	if s.prices != nil {
		v, err := s.prices.MaxPrice(ctx, kind, category)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn(ctx, "price cache read failed", logger.String("category", category), logger.Error(err))
		}
	}

	field, err := categoryField(kind)
	if err != nil {
		return 0, err
	}
	items, err := s.store.FindByFields(ctx, kind, map[string]any{
		model.FieldStatus: model.StatusLive,
		field:             category,
	})
	if err != nil {
		return 0, fmt.Errorf("list %s %s: %w", kind, category, err)
	}
	v := categoryMax(items)
	if s.prices != nil {
		if err := s.prices.SetMaxPrice(ctx, kind, category, v); err != nil {
			s.logger.Warn(ctx, "price cache write failed", logger.String("category", category), logger.Error(err))
		}
	}
	return v, nil
}

// scoreItem scores item for tier. maxes memoizes category maxima for one request.
func (s *Service) scoreItem(ctx context.Context, item model.Item, tier scoring.Sensitivity, maxes map[string]float64) types.ScoredItem {
	key := string(item.Kind()) + "/" + item.Category()
	maxPrice, ok := maxes[key]
	if !ok {
		v, err := s.maxPrice(ctx, item.Kind(), item.Category())
		if err != nil {
			s.logger.Warn(ctx, "category max unavailable", logger.String("category", key), logger.Error(err))
		}
		maxPrice = v
		maxes[key] = v
	}
	return types.NewScoredItem(item, s.engine.ScoreItem(item, tier, maxPrice))
}

func (s *Service) liveRaces(ctx context.Context) ([]*model.Race, error) {
	items, err := s.store.FindByField(ctx, model.KindRace, model.FieldStatus, model.StatusLive)
	if err != nil {
		return nil, fmt.Errorf("list live races: %w", err)
	}
	out := make([]*model.Race, 0, len(items))
	for _, it := range items {
		if r, ok := it.(*model.Race); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) liveGear(ctx context.Context) ([]*model.Gear, error) {
	items, err := s.store.FindByField(ctx, model.KindGear, model.FieldStatus, model.StatusLive)
	if err != nil {
		return nil, fmt.Errorf("list live gear: %w", err)
	}
	out := make([]*model.Gear, 0, len(items))
	for _, it := range items {
		if g, ok := it.(*model.Gear); ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func categoryMax(items []model.Item) float64 {
	var out float64
	for _, it := range items {
		out = max(out, it.Price())
	}
	return out
}
