package racesync

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/okian/endurank/internal/domain/model"
)

// Source publishes raw race records.
type Source interface {
	Name() string
	FetchRaw(ctx context.Context) ([]model.RawRace, error)
}

// feed is the envelope form of a race list; bare lists are accepted too.
type feed struct {
	Races []model.RawRace `json:"races" yaml:"races"`
}

// StaticSource serves a fixed list. Used for seed data and tests.
type StaticSource struct {
	name  string
	races []model.RawRace
}

// NewStaticSource returns a source that always yields races.
func NewStaticSource(name string, races ...model.RawRace) *StaticSource {
	return &StaticSource{name: name, races: races}
}

func (s *StaticSource) Name() string { return s.name }

// FetchRaw implements Source.
func (s *StaticSource) FetchRaw(ctx context.Context) ([]model.RawRace, error) {
	out := make([]model.RawRace, len(s.races))
	copy(out, s.races)
	return out, nil
}

//go:embed seed.yaml
var seedYAML []byte

// SeedSource returns the curated initial race list.
func SeedSource() (*StaticSource, error) {
	races, err := decodeYAML(seedYAML)
	if err != nil {
		return nil, fmt.Errorf("seed races: %w", err)
	}
	return NewStaticSource("initial-dataset", races...), nil
}

// FileSource reads a YAML or JSON race list from disk on every fetch.
type FileSource struct {
	name string
	path string
}

// NewFileSource reads path; ".json" files are decoded as JSON, anything else as YAML.
func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

func (s *FileSource) Name() string { return s.name }

// FetchRaw implements Source.
func (s *FileSource) FetchRaw(ctx context.Context) ([]model.RawRace, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(s.path), ".json") {
		return decodeJSON(data)
	}
	return decodeYAML(data)
}

// HTTPSource GETs a JSON race feed, rate limited per source.
type HTTPSource struct {
	name    string
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithRateLimit allows perSec requests per second with the given burst.
// Non-positive perSec disables limiting.
func WithRateLimit(perSec float64, burst int) HTTPOption {
	return func(s *HTTPSource) {
		if perSec <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSec), max(burst, 1))
	}
}

// NewHTTPSource fetches url. By default it allows one request per second.
func NewHTTPSource(name, url string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		name:    name,
		url:     url,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) Name() string { return s.name }

// FetchRaw implements Source.
func (s *HTTPSource) FetchRaw(ctx context.Context) ([]model.RawRace, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, s.url)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, err
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) ([]model.RawRace, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var races []model.RawRace
		if err := json.Unmarshal(trimmed, &races); err != nil {
			return nil, fmt.Errorf("decode race list: %w", err)
		}
		return races, nil
	}
	var f feed
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("decode race feed: %w", err)
	}
	return f.Races, nil
}

func decodeYAML(data []byte) ([]model.RawRace, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode race yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var races []model.RawRace
		if err := node.Decode(&races); err != nil {
			return nil, fmt.Errorf("decode race list: %w", err)
		}
		return races, nil
	}
	var f feed
	if err := node.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode race feed: %w", err)
	}
	return f.Races, nil
}
