// Package scoring computes the personalized Endurank score and the small
// conversions that feed it.
package scoring

import (
	"math"
	"strings"

	"github.com/okian/endurank/internal/domain/model"
)

// Default Endurank weights. A perfect rating with no cost sensitivity and
// no price scores exactly MaxScore.
const (
	defaultRatingWeight = 0.6
	defaultValueWeight  = 0.3
	defaultCostWeight   = 0.1

	// MaxRating is the top of the review scale.
	MaxRating = 5.0
	// MaxScore is the top of the Endurank scale.
	MaxScore = 10.0
)

// Sensitivity is a user's price preference tier.
type Sensitivity string

// Cost sensitivity tiers.
const (
	SensitivityEconomy     Sensitivity = "economy"
	SensitivityMidRange    Sensitivity = "mid-range"
	SensitivityPerformance Sensitivity = "performance"
)

// Sensitivities lists every tier, most price-averse first.
var Sensitivities = []Sensitivity{SensitivityEconomy, SensitivityMidRange, SensitivityPerformance}

// ParseSensitivity converts a tier name; empty input yields mid-range.
func ParseSensitivity(s string) (Sensitivity, bool) {
	switch Sensitivity(strings.ToLower(strings.TrimSpace(s))) {
	case "", SensitivityMidRange:
		return SensitivityMidRange, true
	case SensitivityEconomy:
		return SensitivityEconomy, true
	case SensitivityPerformance:
		return SensitivityPerformance, true
	}
	return "", false
}

// CostSensitivityFactor maps a tier onto [0,1]. Economy is strongly
// price-averse, performance ignores price. Unknown tiers count as mid-range.
func CostSensitivityFactor(s Sensitivity) float64 {
	switch s {
	case SensitivityEconomy:
		return 1.0
	case SensitivityPerformance:
		return 0.0
	default:
		return 0.5
	}
}

// NormalizedPrice returns price relative to the most expensive item of its
// category, capped at 1. A zero category maximum yields 0.
func NormalizedPrice(price, categoryMaxPrice float64) float64 {
	if categoryMaxPrice <= 0 {
		return 0
	}
	return math.Min(price/categoryMaxPrice, 1)
}

// Input holds the three Endurank terms. Callers clamp the values.
type Input struct {
	AverageRating   float64 `json:"averageRating"`
	CostSensitivity float64 `json:"costSensitivity"`
	NormalizedPrice float64 `json:"normalizedPrice"`
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights overrides the rating, value and cost weights. Non-positive
// rating or negative value/cost weights are ignored.
func WithWeights(rating, value, cost float64) Option {
	return func(e *Engine) {
		if rating > 0 && value >= 0 && cost >= 0 {
			e.ratingWeight = rating
			e.valueWeight = value
			e.costWeight = cost
		}
	}
}

// Engine computes Endurank scores. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	ratingWeight float64
	valueWeight  float64
	costWeight   float64
}

// NewEngine creates an engine with the default weights.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		ratingWeight: defaultRatingWeight,
		valueWeight:  defaultValueWeight,
		costWeight:   defaultCostWeight,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Score computes the Endurank for in with the default weights.
func Score(in Input) float64 { return defaultEngine.Score(in) }

// Score computes the Endurank, rounded to one decimal.
//
//	raw = wR*rating + wV*(1-c)*rating - wC*c*p
//	score = raw / ((wR+wV)*MaxRating) * MaxScore
func (e *Engine) Score(in Input) float64 {
	rating := e.ratingWeight * in.AverageRating
	value := e.valueWeight * (1 - in.CostSensitivity) * in.AverageRating
	penalty := e.costWeight * in.CostSensitivity * in.NormalizedPrice

	raw := rating + value - penalty
	scaled := raw / ((e.ratingWeight + e.valueWeight) * MaxRating) * MaxScore
	return roundTenth(scaled)
}

// ScoreItem scores a catalog item for a user tier against its category maximum.
func (e *Engine) ScoreItem(item model.Item, s Sensitivity, categoryMaxPrice float64) float64 {
	return e.Score(Input{
		AverageRating:   item.Common().AverageRating,
		CostSensitivity: CostSensitivityFactor(s),
		NormalizedPrice: NormalizedPrice(item.Price(), categoryMaxPrice),
	})
}

// roundTenth rounds half up to one decimal place.
func roundTenth(x float64) float64 {
	r := math.Floor(x*10+0.5) / 10
	if r == 0 {
		return 0 // no negative zero
	}
	return r
}
