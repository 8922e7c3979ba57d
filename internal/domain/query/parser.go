// Package query turns free-text race searches into structured filters.
package query

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/endurank/internal/domain/model"
)

// Intent is the classified purpose of a query.
type Intent string

// Query intents.
const (
	IntentFind      Intent = "find"
	IntentCompare   Intent = "compare"
	IntentRecommend Intent = "recommend"
	IntentInfo      Intent = "info"
)

func (i Intent) valid() bool {
	switch i {
	case IntentFind, IntentCompare, IntentRecommend, IntentInfo:
		return true
	}
	return false
}

// Locations are the places named in a query. States are 2-letter codes.
type Locations struct {
	Cities  []string `json:"cities"`
	States  []string `json:"states"`
	Regions []string `json:"regions"`
}

// PriceRange bounds a price. Nil bounds are open.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether price lies within the bounds, inclusive.
func (r *PriceRange) Contains(price float64) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && price < *r.Min {
		return false
	}
	if r.Max != nil && price > *r.Max {
		return false
	}
	return true
}

// DateRange bounds a date, inclusive at both ends. Zero bounds are open.
type DateRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// Contains reports whether t lies within the bounds.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Filters are the hard constraints extracted from a query.
type Filters struct {
	PriceRange  *PriceRange `json:"priceRange,omitempty"`
	DateRange   *DateRange  `json:"dateRange,omitempty"`
	IsQualifier bool        `json:"isQualifier,omitempty"`
}

// ParsedQuery is the structured reading of a free-text query.
// Slices are never nil.
type ParsedQuery struct {
	Original   string           `json:"original"`
	Intent     Intent           `json:"intent"`
	Locations  Locations        `json:"locations"`
	Distances  []model.Distance `json:"distances"`
	Organizers []string         `json:"organizers"`
	Keywords   []string         `json:"keywords"`
	Filters    Filters          `json:"filters"`
}

// Structured reports whether the query named any distance, place or organizer.
func (q ParsedQuery) Structured() bool {
	return len(q.Distances) > 0 ||
		len(q.Locations.States) > 0 ||
		len(q.Locations.Cities) > 0 ||
		len(q.Organizers) > 0
}

var (
	maxPriceRe = regexp.MustCompile(`(?:under|less than|below)\s+\$?(\d+(?:\.\d+)?)`)
	minPriceRe = regexp.MustCompile(`(?:over|more than|above)\s+\$?(\d+(?:\.\d+)?)`)
)

// keywordTrim is stripped from both ends of residual keywords.
const keywordTrim = `,.;:!?"'()`

// Option applies a configuration option to the Parser.
type Option func(*Parser)

// WithGazetteer replaces the built-in lookup tables.
func WithGazetteer(g *Gazetteer) Option {
	return func(p *Parser) {
		if g != nil {
			p.gaz = g
		}
	}
}

// WithClock sets the clock used to resolve "this year" for month and
// season filters.
func WithClock(c model.Clock) Option {
	return func(p *Parser) {
		if c != nil {
			p.clock = c
		}
	}
}

// Parser extracts a ParsedQuery from free text. It holds only immutable
// tables and is safe for concurrent use.
type Parser struct {
	gaz   *Gazetteer
	clock model.Clock
}

// NewParser creates a parser over the default gazetteer and system clock.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		gaz:   DefaultGazetteer(),
		clock: model.SystemClock,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse reads q with the default parser.
func Parse(q string) ParsedQuery { return defaultParser.Parse(q) }

// Parse reads q. Matching is case-insensitive substring matching over the
// whitespace-normalized query; it never fails.
func (p *Parser) Parse(q string) ParsedQuery {
	text := normalize(q)
	g := p.gaz

	out := ParsedQuery{
		Original:   q,
		Intent:     p.intent(text),
		Locations:  Locations{Cities: []string{}, States: []string{}, Regions: []string{}},
		Distances:  []model.Distance{},
		Organizers: []string{},
		Keywords:   []string{},
	}

	// Distances follow the synonym table, shortest first, not the text.
	distances, distanceSpans := scan(text, g.distances)
	for _, d := range model.Distances {
		if slices.Contains(distances, string(d)) {
			out.Distances = append(out.Distances, d)
		}
	}

	states, stateSpans := scan(text, g.states)
	out.Locations.States = append(out.Locations.States, states...)

	cities, citySpans := scan(text, g.cities)
	out.Locations.Cities = append(out.Locations.Cities, cities...)

	regions, _ := scan(text, g.regions)
	out.Locations.Regions = append(out.Locations.Regions, regions...)
	for _, r := range regions {
		for _, code := range g.Regions[r] {
			if !slices.Contains(out.Locations.States, code) {
				out.Locations.States = append(out.Locations.States, code)
			}
		}
	}

	organizers, _ := scan(text, g.organizers)
	out.Organizers = append(out.Organizers, organizers...)

	out.Filters.PriceRange = priceRange(text)
	out.Filters.IsQualifier = containsAny(text, g.Qualifier)
	out.Filters.DateRange = p.dateRange(text)

	consumed := make([]span, 0, len(distanceSpans)+len(stateSpans)+len(citySpans))
	consumed = append(consumed, distanceSpans...)
	consumed = append(consumed, stateSpans...)
	consumed = append(consumed, citySpans...)
	out.Keywords = append(out.Keywords, p.keywords(text, consumed)...)

	return out
}

func (p *Parser) intent(text string) Intent {
	for _, r := range p.gaz.Intents {
		if containsAny(text, r.Terms) {
			return r.Intent
		}
	}
	return IntentFind
}

// priceRange applies the "under N" and "over N" patterns independently.
func priceRange(text string) *PriceRange {
	var r PriceRange
	if m := maxPriceRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.Max = &v
		}
	}
	if m := minPriceRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.Min = &v
		}
	}
	if r.Min == nil && r.Max == nil {
		return nil
	}
	return &r
}

// dateRange resolves a month name, or failing that a season, to a window
// in the current year. The first rule to match wins.
func (p *Parser) dateRange(text string) *DateRange {
	now := p.clock.Now()
	year, loc := now.Year(), now.Location()

	if p.gaz.monthRe != nil {
		if m := p.gaz.monthRe.FindStringSubmatch(text); m != nil {
			month := p.gaz.Months[m[1]]
			return window(year, month, month, loc)
		}
	}
	for _, s := range p.gaz.Seasons {
		if containsAny(text, s.Terms) {
			return window(year, s.From, s.To, loc)
		}
	}
	return nil
}

// window spans the first instant of from to the last instant of to.
func window(year int, from, to time.Month, loc *time.Location) *DateRange {
	start := time.Date(year, from, 1, 0, 0, 0, 0, loc)
	end := time.Date(year, to+1, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	return &DateRange{Start: start, End: end}
}

// keywords keeps the leftover words: longer than two letters, not a
// stopword, and not overlapping a distance, state or city match.
func (p *Parser) keywords(text string, consumed []span) []string {
	var out []string
	pos := 0
	for _, w := range strings.Split(text, " ") {
		ws := span{pos, pos + len(w)}
		pos = ws.end + 1

		if len(w) <= 2 {
			continue
		}
		if _, stop := p.gaz.stopwords[w]; stop {
			continue
		}
		if overlapsAny(ws, consumed) {
			continue
		}
		if k := strings.Trim(w, keywordTrim); len(k) > 2 {
			out = append(out, k)
		}
	}
	return out
}

func normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func overlapsAny(s span, spans []span) bool {
	for _, o := range spans {
		if s.overlaps(o) {
			return true
		}
	}
	return false
}
