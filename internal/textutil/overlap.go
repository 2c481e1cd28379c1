package textutil

import "strings"

// OverlapCount returns the number of distinct tokens of a that also appear in b.
// Returns 0 when either side is empty.
func OverlapCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	other := TokenSet(b)
	count := 0
	for token := range TokenSet(a) {
		if _, ok := other[token]; ok {
			count++
		}
	}
	return count
}

// OverlapRatio returns OverlapCount(a, b) divided by the number of distinct
// tokens in a. The ratio is asymmetric: a is the side being tested.
func OverlapRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	distinct := len(TokenSet(a))
	if distinct == 0 {
		return 0
	}
	return float64(OverlapCount(a, b)) / float64(distinct)
}

// WordJaccard computes |A∩B| / |A∪B| over the space-separated words of two
// already-normalized strings. Returns 0 when either side has no words.
func WordJaccard(a, b string) float64 {
	aWords := TokenSet(strings.Fields(a))
	bWords := TokenSet(strings.Fields(b))
	if len(aWords) == 0 || len(bWords) == 0 {
		return 0
	}
	intersection := 0
	for word := range aWords {
		if _, ok := bWords[word]; ok {
			intersection++
		}
	}
	union := len(aWords) + len(bWords) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
