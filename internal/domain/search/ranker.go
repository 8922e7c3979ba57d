// Package search filters and orders catalog candidates for a parsed query.
package search

import (
	"slices"
	"sort"
	"strings"

	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/query"
)

// Relevance weights.
const (
	scoreExactName = 100
	scoreNameMatch = 50
	scoreCity      = 40
	scoreDistance  = 30
	scoreOrganizer = 25
	scoreState     = 20
	scoreQualifier = 15
	scoreUpcoming  = 5
)

// Scored is a race that survived filtering, with its relevance.
type Scored struct {
	Race      *model.Race `json:"race"`
	Relevance int         `json:"relevance"`
}

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithClock sets the clock used for the upcoming-race boost.
func WithClock(c model.Clock) Option {
	return func(r *Ranker) {
		if c != nil {
			r.clock = c
		}
	}
}

// Ranker filters and orders races. Safe for concurrent use.
type Ranker struct {
	clock model.Clock
}

// NewRanker creates a ranker on the system clock.
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{clock: model.SystemClock}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns the races matching q, most relevant first.
func (r *Ranker) Rank(candidates []*model.Race, q query.ParsedQuery, raw string) []*model.Race {
	scored := r.RankScored(candidates, q, raw)
	out := make([]*model.Race, len(scored))
	for i, s := range scored {
		out[i] = s.Race
	}
	return out
}

// RankScored filters candidates by every structured constraint in q, then
// scores and sorts the survivors. All constraints must hold; a query naming
// a city and a different state matches nothing. When q names no distance,
// place or organizer, raw is matched as a substring of the race's text
// fields instead. Ties keep the earlier date first, then input order.
func (r *Ranker) RankScored(candidates []*model.Race, q query.ParsedQuery, raw string) []Scored {
	raw = strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	now := r.clock.Now()
	structured := q.Structured()

	out := make([]Scored, 0, len(candidates))
	for _, race := range candidates {
		if race == nil || !passes(race, q) {
			continue
		}
		if !structured && !textMatch(race, raw) {
			continue
		}

		score := 0
		name := strings.ToLower(race.RaceName)
		switch {
		case raw == "":
		case name == raw:
			score += scoreExactName
		case strings.Contains(name, raw):
			score += scoreNameMatch
		}
		if slices.Contains(q.Distances, race.Distance) {
			score += scoreDistance
		}
		if stateIn(race.Location.State, q.Locations.States) {
			score += scoreState
		}
		if containsAnyOf(race.Location.City, q.Locations.Cities) {
			score += scoreCity
		}
		if containsAnyOf(race.OrganizerSeries, q.Organizers) {
			score += scoreOrganizer
		}
		if q.Filters.IsQualifier && race.IsQualifier {
			score += scoreQualifier
		}
		if race.Date.After(now) {
			score += scoreUpcoming
		}
		out = append(out, Scored{Race: race, Relevance: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Race.Date.Before(out[j].Race.Date)
	})
	return out
}

var defaultRanker = NewRanker()

// Rank orders candidates with the default ranker.
func Rank(candidates []*model.Race, q query.ParsedQuery, raw string) []*model.Race {
	return defaultRanker.Rank(candidates, q, raw)
}

// passes applies the hard filters in order.
func passes(race *model.Race, q query.ParsedQuery) bool {
	if len(q.Distances) > 0 && !slices.Contains(q.Distances, race.Distance) {
		return false
	}
	if len(q.Locations.States) > 0 && !stateIn(race.Location.State, q.Locations.States) {
		return false
	}
	if len(q.Locations.Cities) > 0 && !containsAnyOf(race.Location.City, q.Locations.Cities) {
		return false
	}
	if len(q.Organizers) > 0 && !containsAnyOf(race.OrganizerSeries, q.Organizers) {
		return false
	}
	if !q.Filters.PriceRange.Contains(race.MSRP) {
		return false
	}
	if q.Filters.IsQualifier && !race.IsQualifier {
		return false
	}
	return q.Filters.DateRange.Contains(race.Date)
}

func textMatch(race *model.Race, raw string) bool {
	for _, f := range []string{
		race.RaceName,
		race.Location.City,
		race.Location.State,
		race.Location.Region,
		string(race.Distance),
		race.OrganizerSeries,
	} {
		if strings.Contains(strings.ToLower(f), raw) {
			return true
		}
	}
	return false
}

func stateIn(state string, codes []string) bool {
	for _, c := range codes {
		if strings.EqualFold(state, c) {
			return true
		}
	}
	return false
}

// containsAnyOf reports whether field contains any of the lowercase terms.
func containsAnyOf(field string, terms []string) bool {
	if field == "" {
		return false
	}
	field = strings.ToLower(field)
	for _, t := range terms {
		if strings.Contains(field, t) {
			return true
		}
	}
	return false
}
