package model

import (
	"strings"
	"time"
)

// Draft is a catalog submission that has not been stored yet.
// Implemented by GearDraft and RaceDraft only.
type Draft interface {
	Kind() Kind
	// Build materializes a pending item owned by createdBy.
	Build(id, createdBy string, now time.Time) Item
	draft()
}

// GearDraft is the admin-submitted form for a new gear item.
type GearDraft struct {
	Brand       string      `json:"brand" validate:"required,max=100"`
	ProductName string      `json:"productName" validate:"required,max=200"`
	SubCategory SubCategory `json:"subCategory" validate:"required,oneof=bikes running-shoes nutrition"`
	MSRP        float64     `json:"msrp" validate:"gte=0"`
	MPN         string      `json:"mpn,omitempty" validate:"max=100"`
	ImageURL    string      `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

func (d GearDraft) Kind() Kind { return KindGear }
func (d GearDraft) draft()     {}

// Build implements Draft.
func (d GearDraft) Build(id, createdBy string, now time.Time) Item {
	return &Gear{
		Base: Base{
			ID:        id,
			Status:    StatusPending,
			CreatedBy: createdBy,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ProductName: strings.TrimSpace(d.ProductName),
		Brand:       strings.TrimSpace(d.Brand),
		SubCategory: d.SubCategory,
		MSRP:        d.MSRP,
		MPN:         strings.TrimSpace(d.MPN),
		ImageURL:    d.ImageURL,
	}
}

// RaceDraft is the admin-submitted form for a new race.
type RaceDraft struct {
	RaceName        string    `json:"raceName" validate:"required,max=200"`
	Distance        Distance  `json:"distance" validate:"required,oneof=sprint olympic half full"`
	City            string    `json:"city" validate:"required,max=100"`
	State           string    `json:"state" validate:"required,max=50"`
	Country         string    `json:"country,omitempty"`
	Date            time.Time `json:"raceDate"`
	MSRP            float64   `json:"msrp" validate:"gte=0"`
	OrganizerSeries string    `json:"organizerSeries,omitempty"`
	IsQualifier     bool      `json:"isQualifier,omitempty"`
	RegistrationURL string    `json:"registrationUrl,omitempty" validate:"omitempty,url"`
}

func (d RaceDraft) Kind() Kind { return KindRace }
func (d RaceDraft) draft()     {}

// Build implements Draft.
func (d RaceDraft) Build(id, createdBy string, now time.Time) Item {
	return &Race{
		Base: Base{
			ID:        id,
			Status:    StatusPending,
			CreatedBy: createdBy,
			CreatedAt: now,
			UpdatedAt: now,
		},
		RaceName: strings.TrimSpace(d.RaceName),
		Date:     d.Date,
		Location: Location{
			City:    strings.TrimSpace(d.City),
			State:   strings.TrimSpace(d.State),
			Country: d.Country,
		},
		Distance:        d.Distance,
		MSRP:            d.MSRP,
		OrganizerSeries: d.OrganizerSeries,
		IsQualifier:     d.IsQualifier,
		RegistrationURL: d.RegistrationURL,
		DataSource:      "manual",
	}
}
