package repository

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/okian/endurank/internal/domain/model"
)

func key(kind model.Kind, id string) []byte {
	return []byte(string(kind) + ":" + id)
}

func prefix(kind model.Kind) []byte {
	return []byte(string(kind) + ":")
}

func newItem(kind model.Kind) (model.Item, error) {
	switch kind {
	case model.KindGear:
		return &model.Gear{}, nil
	case model.KindRace:
		return &model.Race{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func decode(kind model.Kind, data []byte) (model.Item, error) {
	item, err := newItem(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return item, nil
}

// matcher compares stored documents against field/value pairs by their
// JSON encoding, so an int 145 matches a stored float 145 and typed
// strings match their underlying value.
type matcher struct {
	paths  [][]string
	values [][]byte
}

func newMatcher(fields map[string]any) (*matcher, error) {
	m := &matcher{}
	for f, v := range fields {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f, err)
		}
		m.paths = append(m.paths, strings.Split(f, "."))
		m.values = append(m.values, enc)
	}
	return m, nil
}

func (m *matcher) match(doc []byte) bool {
	for i, path := range m.paths {
		raw, ok := lookup(doc, path)
		if !ok || !bytes.Equal(raw, m.values[i]) {
			return false
		}
	}
	return true
}

func lookup(doc []byte, path []string) ([]byte, bool) {
	cur := doc
	for _, p := range path {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[p]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
