// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Kind tags the catalog variant an item belongs to. It doubles as the
// collection name in the document store.
type Kind string

// Catalog kinds.
const (
	KindGear Kind = "gear"
	KindRace Kind = "races"
)

// Kinds lists every catalog kind.
var Kinds = []Kind{KindGear, KindRace}

// ParseKind accepts the collection name or its singular alias.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gear":
		return KindGear, true
	case "race", "races":
		return KindRace, true
	}
	return "", false
}

// Status is the moderation state of a catalog item.
type Status string

// Moderation states. Pending is the only non-terminal state.
const (
	StatusPending  Status = "pending"
	StatusLive     Status = "live"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusLive, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether a moderator may move an item from s to next.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && (next == StatusLive || next == StatusRejected)
}

// Distance is the race distance category.
type Distance string

// Race distances, shortest first.
const (
	DistanceSprint  Distance = "sprint"
	DistanceOlympic Distance = "olympic"
	DistanceHalf    Distance = "half"
	DistanceFull    Distance = "full"
)

// Distances lists every race distance, shortest first.
var Distances = []Distance{DistanceSprint, DistanceOlympic, DistanceHalf, DistanceFull}

// ParseDistance converts a canonical distance name.
func ParseDistance(s string) (Distance, bool) {
	d := Distance(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Distances {
		if d == known {
			return d, true
		}
	}
	return "", false
}

// SubCategory is the gear sub-category.
type SubCategory string

// Gear sub-categories.
const (
	SubCategoryBikes        SubCategory = "bikes"
	SubCategoryRunningShoes SubCategory = "running-shoes"
	SubCategoryNutrition    SubCategory = "nutrition"
)

// Document field names shared by the store queries and the JSON encoding.
const (
	FieldMPN         = "mpn"
	FieldBrand       = "brand"
	FieldProductName = "productName"
	FieldMSRP        = "msrp"
	FieldSubCategory = "subCategory"
	FieldRaceName    = "raceName"
	FieldDistance    = "distance"
	FieldStatus      = "status"
	FieldExternalID  = "externalId"
)

// Base carries the fields common to every catalog item.
type Base struct {
	ID                string    `json:"id"`
	Status            Status    `json:"status"`
	AverageRating     float64   `json:"averageRating"`
	TotalReviewsCount int       `json:"totalReviewsCount"`
	CreatedBy         string    `json:"createdBy,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Item is the closed set of catalog variants: *Gear and *Race.
// Callers switch on the concrete type; the unexported method keeps the set closed.
type Item interface {
	Kind() Kind
	Common() *Base
	Name() string
	Price() float64
	// Category is the comparison group used for price normalization.
	Category() string
	catalogItem()
}

// Gear is a piece of equipment.
type Gear struct {
	Base
	ProductName string         `json:"productName"`
	Brand       string         `json:"brand"`
	SubCategory SubCategory    `json:"subCategory"`
	MSRP        float64        `json:"msrp"`
	MPN         string         `json:"mpn,omitempty"`
	Specs       map[string]any `json:"specs,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
}

func (g *Gear) Kind() Kind       { return KindGear }
func (g *Gear) Common() *Base    { return &g.Base }
func (g *Gear) Name() string     { return g.ProductName }
func (g *Gear) Price() float64   { return g.MSRP }
func (g *Gear) Category() string { return string(g.SubCategory) }
func (g *Gear) catalogItem()     {}

// Location places a race.
type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

// Race is a scheduled event.
type Race struct {
	Base
	RaceName        string    `json:"raceName"`
	Date            time.Time `json:"raceDate"`
	Location        Location  `json:"location"`
	Distance        Distance  `json:"distance"`
	MSRP            float64   `json:"msrp"`
	OrganizerSeries string    `json:"organizerSeries,omitempty"`
	IsQualifier     bool      `json:"isQualifier,omitempty"`
	QualifierFor    string    `json:"qualifierFor,omitempty"`
	RegistrationURL string    `json:"registrationUrl,omitempty"`
	WebsiteURL      string    `json:"raceWebsiteUrl,omitempty"`
	DataSource      string    `json:"dataSource,omitempty"`
	ExternalID      string    `json:"externalId,omitempty"`
	LastSynced      time.Time `json:"lastScraped,omitempty"`
}

func (r *Race) Kind() Kind       { return KindRace }
func (r *Race) Common() *Base    { return &r.Base }
func (r *Race) Name() string     { return r.RaceName }
func (r *Race) Price() float64   { return r.MSRP }
func (r *Race) Category() string { return string(r.Distance) }
func (r *Race) catalogItem()     {}

// Moderate moves item to next and stamps the update time.
func Moderate(item Item, next Status, now time.Time) error {
	b := item.Common()
	if !next.Valid() {
		return ErrInvalidStatus
	}
	if !b.Status.CanTransition(next) {
		return ErrInvalidTransition
	}
	b.Status = next
	b.UpdatedAt = now
	return nil
}
