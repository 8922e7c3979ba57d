package query

import (
	"bytes"
	"sort"
)

// span is a half-open byte range of the normalized query.
type span struct{ start, end int }

func (s span) overlaps(o span) bool { return s.start < o.end && o.start < s.end }

type hit struct {
	span
	value string
}

// mask fills consumed bytes so no later, shorter term can match inside them.
const mask = 0

// scan finds every term in text as a substring. Terms must be sorted
// longest first. Each byte is claimed by at most one match. Values are
// returned deduplicated in order of first appearance in text, with the
// spans they consumed.
func scan(text string, terms []term) ([]string, []span) {
	buf := []byte(text)
	var hits []hit
	for _, t := range terms {
		needle := []byte(t.text)
		if len(needle) == 0 {
			continue
		}
		for from := 0; from <= len(buf)-len(needle); {
			i := bytes.Index(buf[from:], needle)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(needle)
			hits = append(hits, hit{span: span{start, end}, value: t.value})
			for k := start; k < end; k++ {
				buf[k] = mask
			}
			from = end
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	values := make([]string, 0, len(hits))
	spans := make([]span, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		spans = append(spans, h.span)
		if _, dup := seen[h.value]; dup {
			continue
		}
		seen[h.value] = struct{}{}
		values = append(values, h.value)
	}
	return values, spans
}
