package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Summary restates the parsed filters in a short sentence, for example
// "Best Sprint, Olympic races in CA, TX by Ironman (World Championship qualifiers)".
// Only the most specific location kind is mentioned: cities, then states,
// then regions.
func Summary(q ParsedQuery) string {
	var parts []string

	switch q.Intent {
	case IntentRecommend:
		parts = append(parts, "Best")
	case IntentCompare:
		parts = append(parts, "Comparing")
	}

	if len(q.Distances) > 0 {
		names := make([]string, len(q.Distances))
		for i, d := range q.Distances {
			names[i] = titleCase(string(d))
		}
		parts = append(parts, strings.Join(names, ", "))
	}

	parts = append(parts, "races")

	switch {
	case len(q.Locations.Cities) > 0:
		parts = append(parts, "in "+joinTitled(q.Locations.Cities))
	case len(q.Locations.States) > 0:
		parts = append(parts, "in "+strings.Join(q.Locations.States, ", "))
	case len(q.Locations.Regions) > 0:
		parts = append(parts, "in "+joinTitled(q.Locations.Regions))
	}

	if len(q.Organizers) > 0 {
		parts = append(parts, "by "+joinTitled(q.Organizers))
	}

	if q.Filters.IsQualifier {
		parts = append(parts, "(World Championship qualifiers)")
	}

	return strings.Join(parts, " ")
}

func joinTitled(list []string) string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = titleCase(s)
	}
	return strings.Join(out, ", ")
}

// titleCase upper-cases the first letter of every space-separated word.
func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size > 0 {
			words[i] = string(unicode.ToUpper(r)) + w[size:]
		}
	}
	return strings.Join(words, " ")
}
