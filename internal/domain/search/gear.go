package search

import (
	"strings"

	"github.com/okian/endurank/internal/domain/model"
)

// MatchGear returns gear whose name, brand or sub-category contains raw,
// in input order.
func MatchGear(items []*model.Gear, raw string) []*model.Gear {
	raw = strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	var out []*model.Gear
	for _, g := range items {
		if g == nil {
			continue
		}
		if strings.Contains(strings.ToLower(g.ProductName), raw) ||
			strings.Contains(strings.ToLower(g.Brand), raw) ||
			strings.Contains(string(g.SubCategory), raw) {
			out = append(out, g)
		}
	}
	return out
}

// CountByDistance tallies races per distance. Every distance is present.
func CountByDistance(races []*model.Race) map[model.Distance]int {
	out := make(map[model.Distance]int, len(model.Distances))
	for _, d := range model.Distances {
		out[d] = 0
	}
	for _, r := range races {
		if r != nil {
			out[r.Distance]++
		}
	}
	return out
}
