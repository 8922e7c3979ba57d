// Package similarity scores how alike two names are using edit distance.
package similarity

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is the similarity at or above which two names are
// treated as likely duplicates.
const DefaultThreshold = 85

// Distance returns the edit distance between a and b with unit costs for
// insertion, deletion and substitution. Comparison is case-sensitive.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity returns a 0-100 score for a and b after trimming and lowercasing.
// Equal strings score 100, an empty side scores 0.
func Similarity(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	d := Distance(a, b)
	return int(math.Floor(100*float64(maxLen-d)/float64(maxLen) + 0.5))
}

// IsSimilar reports whether Similarity(a, b) reaches threshold.
func IsSimilar(a, b string, threshold int) bool {
	return Similarity(a, b) >= threshold
}

// FindSimilar returns the candidates whose name is similar to term,
// preserving input order.
func FindSimilar[T any](term string, candidates []T, name func(T) string, threshold int) []T {
	var out []T
	for _, c := range candidates {
		if IsSimilar(term, name(c), threshold) {
			out = append(out, c)
		}
	}
	return out
}
