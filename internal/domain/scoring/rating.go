package scoring

import "github.com/okian/endurank/internal/domain/model"

// ReviewerTier classifies reviewers by how many reviews they have written.
type ReviewerTier string

// Reviewer tiers.
const (
	TierBeginner    ReviewerTier = "beginner"
	TierContributor ReviewerTier = "contributor"
	TierExpert      ReviewerTier = "expert"
)

// Review count thresholds for tiers.
const (
	contributorMinReviews = 4
	expertMinReviews      = 11
)

// Weight is the influence a tier's ratings have on an item's average.
func (t ReviewerTier) Weight() float64 {
	switch t {
	case TierExpert:
		return 1.25
	case TierContributor:
		return 1.0
	default:
		return 0.75
	}
}

// ReviewerTierFor derives a reviewer's tier from their review count.
func ReviewerTierFor(reviewCount int) ReviewerTier {
	switch {
	case reviewCount >= expertMinReviews:
		return TierExpert
	case reviewCount >= contributorMinReviews:
		return TierContributor
	default:
		return TierBeginner
	}
}

// TieredRating is one review's star rating and its author's tier.
type TieredRating struct {
	Rating float64
	Tier   ReviewerTier
}

// WeightedRating averages ratings weighted by reviewer tier. No ratings yield 0.
func WeightedRating(ratings []TieredRating) float64 {
	var sum, weights float64
	for _, r := range ratings {
		w := r.Tier.Weight()
		sum += r.Rating * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// PriceTier buckets an item's price for display.
type PriceTier string

// Price tiers.
const (
	PriceBudget  PriceTier = "budget"
	PriceMid     PriceTier = "mid"
	PricePremium PriceTier = "premium"
)

// PriceTierFor buckets price using per-kind thresholds.
func PriceTierFor(price float64, kind model.Kind) PriceTier {
	budget, mid := 100.0, 1000.0
	if kind == model.KindRace {
		budget, mid = 150.0, 500.0
	}
	switch {
	case price < budget:
		return PriceBudget
	case price < mid:
		return PriceMid
	default:
		return PricePremium
	}
}

// Display renders the tier as dollar signs.
func (p PriceTier) Display() string {
	switch p {
	case PriceBudget:
		return "$"
	case PriceMid:
		return "$$"
	default:
		return "$$$"
	}
}

// Band is the display bucket of an Endurank score.
type Band string

// Score bands.
const (
	BandExcellent Band = "excellent"
	BandGreat     Band = "great"
	BandGood      Band = "good"
	BandFair      Band = "fair"
)

// BandFor buckets an Endurank score.
func BandFor(score float64) Band {
	switch {
	case score >= 8.5:
		return BandExcellent
	case score >= 7.0:
		return BandGreat
	case score >= 5.5:
		return BandGood
	default:
		return BandFair
	}
}
