package textutil

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var punctuationRegex = regexp.MustCompile(`[,.'\-]`)

// NormalizeName lowercases and strips whitespace and punctuation, so
// "Smith, John A." and "smith john a" normalize equally.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = punctuationRegex.ReplaceAllString(name, "")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether any matcher is contained in name once both
// are normalized.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, NormalizeName(m)) {
			return true
		}
	}
	return false
}

// Similarity scores two names in [0, 1] after normalization.
func Similarity(a, b string) float64 {
	return matchr.JaroWinkler(NormalizeName(a), NormalizeName(b), false)
}

type Match struct {
	Index int
	Score float64
}

// Rank returns the indexes of candidates scoring at least threshold
// against query, best first. substring matches always score 1.
func Rank(query string, candidates []string, threshold float64) []Match {
	queries := []string{query}
	var matches []Match
	for i, c := range candidates {
		score := 1.0
		if !MatchName(c, queries) {
			score = Similarity(query, c)
		}
		if score >= threshold {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
