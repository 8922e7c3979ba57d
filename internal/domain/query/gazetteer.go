package query

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/endurank/internal/domain/model"
)

//go:embed gazetteer.yaml
var defaultGazetteerYAML []byte

// IntentRule maps a set of trigger terms to an intent.
type IntentRule struct {
	Intent Intent   `yaml:"intent"`
	Terms  []string `yaml:"terms"`
}

// SeasonRule maps trigger terms to a month window, both ends inclusive.
type SeasonRule struct {
	Terms []string   `yaml:"terms"`
	From  time.Month `yaml:"from"`
	To    time.Month `yaml:"to"`
}

// Gazetteer holds the static lookup tables the parser matches against.
// A parsed Gazetteer is immutable and may be shared between parsers.
type Gazetteer struct {
	Distances  map[string]model.Distance `yaml:"distances"`
	States     map[string]string         `yaml:"states"`
	Cities     []string                  `yaml:"cities"`
	Regions    map[string][]string       `yaml:"regions"`
	Organizers []string                  `yaml:"organizers"`
	Intents    []IntentRule              `yaml:"intents"`
	Qualifier  []string                  `yaml:"qualifier"`
	Months     map[string]time.Month     `yaml:"months"`
	Seasons    []SeasonRule              `yaml:"seasons"`
	Stopwords  []string                  `yaml:"stopwords"`

	distances  []term
	states     []term
	cities     []term
	regions    []term
	organizers []term
	monthRe    *regexp.Regexp
	stopwords  map[string]struct{}
}

// term is one lookup entry; value is what a match contributes.
type term struct {
	text  string
	value string
}

// ParseGazetteer decodes and validates a YAML gazetteer.
func ParseGazetteer(data []byte) (*Gazetteer, error) {
	var g Gazetteer
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGazetteer, err)
	}
	if err := g.compile(); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadGazetteer reads a YAML gazetteer from path.
func LoadGazetteer(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGazetteer, err)
	}
	return ParseGazetteer(data)
}

var defaultGazetteer = sync.OnceValue(func() *Gazetteer {
	g, err := ParseGazetteer(defaultGazetteerYAML)
	if err != nil {
		panic(err)
	}
	return g
})

// DefaultGazetteer returns the built-in US race gazetteer.
func DefaultGazetteer() *Gazetteer { return defaultGazetteer() }

func (g *Gazetteer) compile() error {
	if len(g.Intents) == 0 {
		return fmt.Errorf("%w: no intents", ErrInvalidGazetteer)
	}
	for _, r := range g.Intents {
		if !r.Intent.valid() {
			return fmt.Errorf("%w: unknown intent %q", ErrInvalidGazetteer, r.Intent)
		}
	}

	g.distances = g.distances[:0]
	for k, d := range g.Distances {
		if _, ok := model.ParseDistance(string(d)); !ok {
			return fmt.Errorf("%w: unknown distance %q for %q", ErrInvalidGazetteer, d, k)
		}
		g.distances = append(g.distances, term{text: k, value: string(d)})
	}

	codes := make(map[string]struct{}, len(g.States))
	g.states = g.states[:0]
	for k, code := range g.States {
		if len(code) != 2 {
			return fmt.Errorf("%w: state code %q for %q", ErrInvalidGazetteer, code, k)
		}
		codes[code] = struct{}{}
		g.states = append(g.states, term{text: k, value: code})
	}

	g.regions = g.regions[:0]
	for name, members := range g.Regions {
		for _, code := range members {
			if _, ok := codes[code]; !ok {
				return fmt.Errorf("%w: region %q lists unknown state %q", ErrInvalidGazetteer, name, code)
			}
		}
		g.regions = append(g.regions, term{text: strings.ToLower(name), value: name})
	}

	g.cities = identityTerms(g.Cities)
	g.organizers = identityTerms(g.Organizers)

	months := make([]string, 0, len(g.Months))
	for name, m := range g.Months {
		if m < time.January || m > time.December {
			return fmt.Errorf("%w: month %q out of range", ErrInvalidGazetteer, name)
		}
		months = append(months, regexp.QuoteMeta(name))
	}
	if len(months) > 0 {
		sort.Sort(byLengthDesc(months))
		g.monthRe = regexp.MustCompile(`\b(` + strings.Join(months, "|") + `)\b`)
	}

	for _, s := range g.Seasons {
		if s.From < time.January || s.To > time.December || s.From > s.To {
			return fmt.Errorf("%w: season %v has window %d-%d", ErrInvalidGazetteer, s.Terms, s.From, s.To)
		}
	}

	g.stopwords = make(map[string]struct{}, len(g.Stopwords))
	for _, w := range g.Stopwords {
		g.stopwords[w] = struct{}{}
	}

	for _, ts := range [][]term{g.distances, g.states, g.regions, g.cities, g.organizers} {
		sortTerms(ts)
	}
	return nil
}

func identityTerms(list []string) []term {
	out := make([]term, 0, len(list))
	for _, s := range list {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, term{text: s, value: s})
		}
	}
	return out
}

// sortTerms orders longest first so a longer term claims its span before
// any shorter term inside it is tried.
func sortTerms(ts []term) {
	sort.Slice(ts, func(i, j int) bool {
		if len(ts[i].text) != len(ts[j].text) {
			return len(ts[i].text) > len(ts[j].text)
		}
		return ts[i].text < ts[j].text
	})
}

type byLengthDesc []string

func (s byLengthDesc) Len() int      { return len(s) }
func (s byLengthDesc) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byLengthDesc) Less(i, j int) bool {
	if len(s[i]) != len(s[j]) {
		return len(s[i]) > len(s[j])
	}
	return s[i] < s[j]
}
