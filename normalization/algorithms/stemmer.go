package algorithms

import (
	"strings"
	"sync"

	"github.com/kljensen/snowball"
)

// EnglishStemmer reduces English tokens to their stem using the Snowball
// algorithm. Retail listings mix Hebrew cuts with English marketing terms
// ("fillets", "ribs"), so keyword matching stems the English side.
type EnglishStemmer struct {
	cache    map[string]string
	mu       sync.RWMutex
	useCache bool
}

// NewEnglishStemmer creates a stemmer with an internal cache.
func NewEnglishStemmer() *EnglishStemmer {
	return &EnglishStemmer{
		cache:    make(map[string]string),
		useCache: true,
	}
}

// Stem returns the stemmed form of a single word. Non-ASCII words (Hebrew
// tokens in particular) are returned unchanged.
func (s *EnglishStemmer) Stem(word string) string {
	normalized := strings.ToLower(strings.TrimSpace(word))
	if normalized == "" {
		return ""
	}
	if !isASCIIWord(normalized) {
		return normalized
	}

	if s.useCache {
		s.mu.RLock()
		cached, ok := s.cache[normalized]
		s.mu.RUnlock()
		if ok {
			return cached
		}
	}

	stemmed, err := snowball.Stem(normalized, "english", true)
	if err != nil {
		stemmed = normalized
	}

	if s.useCache {
		s.mu.Lock()
		s.cache[normalized] = stemmed
		s.mu.Unlock()
	}

	return stemmed
}

// StemTokens stems every word in the slice.
func (s *EnglishStemmer) StemTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = s.Stem(t)
	}
	return out
}

func isASCIIWord(word string) bool {
	for _, r := range word {
		if r > 127 {
			return false
		}
	}
	return true
}
