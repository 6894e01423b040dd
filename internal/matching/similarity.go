// Package matching implements the pantry analysis engine: fuzzy name
// matching, inventory projection, ingredient resolution, substitution
// suggestions, dietary warnings and catalog/unit lookup.
//
// Everything in this package except CatalogResolver is pure and safe for
// concurrent use.
package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// DefaultMatchThreshold is the minimum similarity for two names to be
// considered the same product. Hand-tuned, not derived from data.
const DefaultMatchThreshold = 0.6

// Normalize case-folds and trims a name for comparison.
func Normalize(s string) string {
	// cases.Caser keeps state and must not be shared between goroutines
	return cases.Fold().String(strings.TrimSpace(s))
}

// Similarity returns a score in [0,1] based on the Levenshtein distance of
// the normalized inputs: 1 - distance/max(len(a), len(b)). An empty input
// scores 0.
func Similarity(a, b string) float64 {
	return similarity(Normalize(a), Normalize(b))
}

func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > maxLen {
		maxLen = lb
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// IsMatch reports whether a and b name the same thing. Containment in either
// direction always matches, so "Cukier" matches "Cukier biały" regardless of
// the edit distance.
func IsMatch(a, b string, threshold float64) bool {
	return isMatch(Normalize(a), Normalize(b), threshold)
}

func isMatch(a, b string, threshold float64) bool {
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return similarity(a, b) >= threshold
}

// Matcher decides whether an inventory name satisfies an ingredient name.
type Matcher interface {
	Matches(ingredient, candidate string) bool
}

// FuzzyMatcher is the default Matcher based on IsMatch.
type FuzzyMatcher struct {
	Threshold float64
}

// NewFuzzyMatcher returns a FuzzyMatcher, using DefaultMatchThreshold when
// threshold is outside (0,1].
func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	return &FuzzyMatcher{Threshold: threshold}
}

func (m *FuzzyMatcher) Matches(ingredient, candidate string) bool {
	return IsMatch(ingredient, candidate, m.Threshold)
}
