package algorithms

import "strings"

// Composite weights. Fixed empirical constants tuned against the curated
// mapping dictionary; the resolver thresholds assume them.
const (
	LevenshteinWeight = 0.4
	JaccardWeight     = 0.4
	SubstringWeight   = 0.2

	// containsBonus is awarded when the longer string contains the
	// shorter one verbatim.
	containsBonus = 0.8
)

// SimilarityMetrics provides the string-similarity metrics used by every
// fuzzy path. Stateless; safe for concurrent use.
type SimilarityMetrics struct{}

// NewSimilarityMetrics creates a new similarity metrics instance.
func NewSimilarityMetrics() *SimilarityMetrics {
	return &SimilarityMetrics{}
}

// Composite computes the weighted blend of edit-distance, word-overlap and
// substring similarity. Both inputs are expected to be canonicalized by the
// caller. Returns a value in [0,1]; symmetric; 1.0 for identical non-empty
// strings and 0.0 when either string is empty.
func (sm *SimilarityMetrics) Composite(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	lev := sm.LevenshteinSimilarity(a, b)
	jac := sm.JaccardWords(a, b)
	sub := sm.SubstringScore(a, b)

	return LevenshteinWeight*lev + JaccardWeight*jac + SubstringWeight*sub
}

// LevenshteinDistance computes the classic edit distance (insertion,
// deletion, substitution at cost 1). Rune-safe, single-column DP.
func (sm *SimilarityMetrics) LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	len1 := len(r1)
	len2 := len(r2)

	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	column := make([]int, len1+1)
	for i := 1; i <= len1; i++ {
		column[i] = i
	}

	for x := 1; x <= len2; x++ {
		column[0] = x
		lastDiag := x - 1
		for y := 1; y <= len1; y++ {
			oldDiag := column[y]
			cost := 0
			if r1[y-1] != r2[x-1] {
				cost = 1
			}
			column[y] = min3(column[y]+1, column[y-1]+1, lastDiag+cost)
			lastDiag = oldDiag
		}
	}

	return column[len1]
}

// LevenshteinSimilarity normalizes the edit distance into [0,1].
func (sm *SimilarityMetrics) LevenshteinSimilarity(s1, s2 string) float64 {
	maxLen := maxRuneLen(s1, s2)
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(sm.LevenshteinDistance(s1, s2))/float64(maxLen)
}

// JaccardWords computes |words(a) ∩ words(b)| / |words(a) ∪ words(b)| with
// words split on whitespace.
func (sm *SimilarityMetrics) JaccardWords(a, b string) float64 {
	set1 := wordSet(a)
	set2 := wordSet(b)

	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range set1 {
		if set2[w] {
			intersection++
		}
	}

	union := len(set1)
	for w := range set2 {
		if !set1[w] {
			union++
		}
	}

	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// SubstringScore returns the containment bonus when the longer string
// contains the shorter one verbatim, otherwise the longest common substring
// length normalized by the longer string length.
func (sm *SimilarityMetrics) SubstringScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	shorter, longer := a, b
	if len([]rune(a)) > len([]rune(b)) {
		shorter, longer = b, a
	}
	if strings.Contains(longer, shorter) {
		return containsBonus
	}

	maxLen := maxRuneLen(a, b)
	return float64(sm.LongestCommonSubstring(a, b)) / float64(maxLen)
}

// LongestCommonSubstring returns the length in runes of the longest
// contiguous substring shared by both strings.
func (sm *SimilarityMetrics) LongestCommonSubstring(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	longest := 0

	for i := 1; i <= len(r1); i++ {
		for j := 1; j <= len(r2); j++ {
			if r1[i-1] == r2[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > longest {
					longest = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
		for j := range curr {
			curr[j] = 0
		}
	}

	return longest
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		set[w] = true
	}
	return set
}

func maxRuneLen(s1, s2 string) int {
	l1 := len([]rune(s1))
	l2 := len([]rune(s2))
	if l2 > l1 {
		return l2
	}
	return l1
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
