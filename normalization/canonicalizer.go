package normalization

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks normalizes compatibility forms and drops combining marks
// (Hebrew niqqud in particular) so that visually identical listings compare
// equal.
var foldMarks = transform.Chain(norm.NFKC, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var numberToken = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)

// Canonicalizer performs the deterministic cleanup of raw listing names.
// Pure and idempotent: Canonicalize(Canonicalize(x)) == Canonicalize(x).
type Canonicalizer struct {
	noise         map[string]bool
	units         map[string]bool
	currency      map[string]bool
	correctionFor map[string]string
	mergedUnit    *regexp.Regexp
}

// NewCanonicalizer builds a canonicalizer from the package rule set.
func NewCanonicalizer() *Canonicalizer {
	noise := make(map[string]bool, len(noiseWords))
	for _, w := range noiseWords {
		noise[w] = true
	}

	units := make(map[string]bool, len(weightUnits))
	alternation := make([]string, 0, len(weightUnits))
	for _, u := range weightUnits {
		units[u] = true
		alternation = append(alternation, regexp.QuoteMeta(u))
	}

	correctionFor := make(map[string]string, len(corrections))
	for _, rule := range corrections {
		if _, exists := correctionFor[rule.From]; !exists {
			correctionFor[rule.From] = rule.To
		}
	}

	return &Canonicalizer{
		noise:         noise,
		units:         units,
		currency:      map[string]bool{"₪": true, "שח": true, "ש\"ח": true, "nis": true},
		correctionFor: correctionFor,
		mergedUnit:    regexp.MustCompile(`^\d+(?:[.,]\d+)?(?:` + strings.Join(alternation, "|") + `)$`),
	}
}

// Canonicalize cleans a raw listing name. Returns "" for empty input.
func (c *Canonicalizer) Canonicalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if folded, _, err := transform.String(foldMarks, text); err == nil {
		text = folded
	}
	text = strings.ToLower(text)
	text = c.stripDisallowed(text)
	text = c.dropNoiseTokens(text)
	text = c.applyCorrections(text)

	return strings.TrimSpace(text)
}

// stripDisallowed replaces every character outside the Hebrew block, ASCII
// letters/digits, whitespace and basic punctuation with a space. The shekel
// sign survives so price fragments can be recognized at token level.
func (c *Canonicalizer) stripDisallowed(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 0x0590 && r <= 0x05FF,
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			unicode.IsSpace(r),
			r == '"' || r == '\'' || r == '-' || r == '%' || r == '.' || r == ',',
			r == '₪':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// dropNoiseTokens removes noise words, currency tokens and "number unit"
// weight/price fragments ("500 גרם", "1.5קג", "89.90 ₪"), collapsing
// whitespace in the process.
func (c *Canonicalizer) dropNoiseTokens(text string) string {
	tokens := strings.Fields(text)
	kept := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		tok := trimTokenPunct(tokens[i])
		if tok == "" {
			continue
		}
		if c.noise[tok] || c.currency[tok] {
			continue
		}
		if c.mergedUnit.MatchString(tok) {
			continue
		}
		if numberToken.MatchString(tok) && i+1 < len(tokens) {
			next := trimTokenPunct(tokens[i+1])
			if c.units[next] || c.currency[next] {
				i++ // drop the unit together with its number
				continue
			}
		}
		kept = append(kept, tok)
	}

	return strings.Join(kept, " ")
}

// trimTokenPunct strips leading/trailing punctuation left over from the
// character filter ("אנטריקוט," → "אנטריקוט").
func trimTokenPunct(tok string) string {
	return strings.Trim(tok, `"'-%.,`)
}

// applyCorrections applies the letter-correction table, whole words only.
// First-listed rule wins when two rules claim the same word.
func (c *Canonicalizer) applyCorrections(text string) string {
	if text == "" {
		return ""
	}
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if to, ok := c.correctionFor[tok]; ok {
			tokens[i] = to
		}
	}
	return strings.Join(tokens, " ")
}
