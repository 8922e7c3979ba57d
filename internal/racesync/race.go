package racesync

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/endurank/internal/domain/model"
)

// DefaultCountry is assumed when a source omits the country.
const DefaultCountry = "USA"

var regions = map[string]string{
	"CA": "West Coast", "OR": "West Coast", "WA": "West Coast",

	"AZ": "Southwest", "NM": "Southwest", "NV": "Southwest", "UT": "Southwest", "CO": "Southwest",

	"IL": "Midwest", "IN": "Midwest", "IA": "Midwest", "KS": "Midwest", "MI": "Midwest", "MN": "Midwest",
	"MO": "Midwest", "NE": "Midwest", "ND": "Midwest", "OH": "Midwest", "SD": "Midwest", "WI": "Midwest",

	"AL": "Southeast", "AR": "Southeast", "FL": "Southeast", "GA": "Southeast", "KY": "Southeast", "LA": "Southeast",
	"MS": "Southeast", "NC": "Southeast", "SC": "Southeast", "TN": "Southeast", "VA": "Southeast", "WV": "Southeast",

	"CT": "Northeast", "DE": "Northeast", "ME": "Northeast", "MD": "Northeast", "MA": "Northeast", "NH": "Northeast",
	"NJ": "Northeast", "NY": "Northeast", "PA": "Northeast", "RI": "Northeast", "VT": "Northeast",

	"ID": "Mountain West", "MT": "Mountain West", "WY": "Mountain West",

	"TX": "Texas",
	"HI": "Hawaii",
	"AK": "Alaska",
}

// RegionFor maps a two-letter US state code to its marketing region.
func RegionFor(state string) string {
	if r, ok := regions[strings.ToUpper(strings.TrimSpace(state))]; ok {
		return r
	}
	return "Other"
}

// RaceID derives the stable catalog id of a synced race, e.g.
// "ironman-70-3-austin-tx-half".
func RaceID(name, state string, distance model.Distance) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	return slug + "-" + strings.ToLower(strings.TrimSpace(state)) + "-" + string(distance)
}

// ShouldRefresh reports whether a race last synced at lastSynced is stale.
// A zero time is always stale.
func ShouldRefresh(lastSynced, now time.Time, refreshDays int) bool {
	if lastSynced.IsZero() {
		return true
	}
	return lastSynced.Before(now.AddDate(0, 0, -refreshDays))
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrInvalidRecord, s)
}

// ToRace maps a raw record onto a live race stamped as synced from source at now.
func ToRace(raw model.RawRace, source string, now time.Time) (*model.Race, error) {
	name := strings.TrimSpace(raw.Name)
	state := strings.ToUpper(strings.TrimSpace(raw.State))
	if name == "" || state == "" {
		return nil, fmt.Errorf("%w: name and state are required", ErrInvalidRecord)
	}
	distance, ok := model.ParseDistance(string(raw.Distance))
	if !ok {
		return nil, fmt.Errorf("%w: unknown distance %q", ErrInvalidRecord, raw.Distance)
	}
	date, err := parseDate(raw.Date)
	if err != nil {
		return nil, err
	}
	if raw.RegistrationCost < 0 {
		return nil, fmt.Errorf("%w: negative registration cost", ErrInvalidRecord)
	}

	country := strings.TrimSpace(raw.Country)
	if country == "" {
		country = DefaultCountry
	}

	return &model.Race{
		Base: model.Base{
			ID:        RaceID(name, state, distance),
			Status:    model.StatusLive,
			CreatedAt: now,
			UpdatedAt: now,
		},
		RaceName: name,
		Date:     date,
		Location: model.Location{
			City:    strings.TrimSpace(raw.City),
			State:   state,
			Country: country,
			Region:  RegionFor(state),
		},
		Distance:        distance,
		MSRP:            raw.RegistrationCost,
		OrganizerSeries: raw.OrganizerSeries,
		IsQualifier:     raw.IsQualifier,
		QualifierFor:    raw.QualifierFor,
		RegistrationURL: raw.RegistrationURL,
		WebsiteURL:      raw.WebsiteURL,
		DataSource:      source,
		ExternalID:      raw.ExternalID,
		LastSynced:      now,
	}, nil
}

// refresh copies source-owned fields from fresh onto existing, keeping
// the id, creation stamp, reviews and moderation state.
func refresh(existing, fresh *model.Race, now time.Time) {
	base := existing.Base
	*existing = *fresh
	existing.Base = base
	existing.UpdatedAt = now
}
