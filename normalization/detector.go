package normalization

import (
	"strings"

	"meatnorm/normalization/algorithms"
)

// Category and cut-type labels used across the catalog.
const (
	CategoryBeef    = "בקר"
	CategoryVeal    = "עגל"
	CategoryLamb    = "כבש"
	CategoryChicken = "עוף"
	CategoryTurkey  = "הודו"
	CategoryFish    = "דגים"
)

// keywordRule binds a label to its keyword list. Rules are evaluated in
// declaration order; the first label with any matching keyword wins.
type keywordRule struct {
	Label    string
	Keywords []string
}

// categoryRules classify by species. Beef comes first: named beef cuts
// (אנטריקוט, סינטה) are stronger evidence than a stray generic word later
// in the listing.
var categoryRules = []keywordRule{
	{CategoryBeef, []string{
		"בקר", "אנטריקוט", "סינטה", "שייטל", "פיקניה", "אסאדו",
		"בריסקט", "אונטריב", "שפונדרה", "המבורגר",
	}},
	{CategoryVeal, []string{"עגל"}},
	{CategoryLamb, []string{"כבש", "טלה"}},
	{CategoryChicken, []string{"עוף", "פרגית", "פרגיות", "כנפיים", "שוקיים", "כרעיים"}},
	{CategoryTurkey, []string{"הודו"}},
	{CategoryFish, []string{
		"דג", "דגים", "סלמון", "טונה", "דניס", "לברק", "בורי",
		"אמנון", "מושט", "פורל", "fish",
	}},
}

// cutTypeRules classify the cut. English keywords are stems: input tokens
// are stemmed before comparison so "ribs"/"wings" still match.
var cutTypeRules = []keywordRule{
	{"סטייק", []string{"סטייק"}},
	{"פילה", []string{"פילה"}},
	{"צלעות", []string{"צלעות", "צלע", "rib"}},
	{"טחון", []string{"טחון", "טחונה", "קצוץ", "ground", "minc"}},
	{"שניצל", []string{"שניצל", "שניצלים"}},
	{"צלי", []string{"צלי", "roast"}},
	{"קוביות", []string{"קוביות", "גולש", "cube"}},
	{"רצועות", []string{"רצועות", "strip"}},
	{"כנפיים", []string{"כנפיים", "כנפי", "wing"}},
	{"חזה", []string{"חזה", "breast"}},
	{"שוק", []string{"שוק", "שוקיים", "drumstick"}},
	{"כבד", []string{"כבד", "כבדי", "liver"}},
	{"נקניקיות", []string{"נקניקיות", "נקניק", "sausag"}},
	{"קבב", []string{"קבב", "kebab"}},
	{"המבורגר", []string{"המבורגר", "burger"}},
}

// premiumKeywords mark premium listings. Matched as plain substrings
// without a word-boundary requirement, so "דרי אייג" matches inside
// longer phrases.
var premiumKeywords = []string{
	"אנגוס", "וואגיו", "פרימיום", "מיושן", "עגל חלב", "דרי אייג",
	"premium", "wagyu", "dry aged", "prime",
}

// Detector is the keyword-based category/attribute classifier. It expects
// canonicalized text; matching is deterministic with declaration order as
// the tie-break.
type Detector struct {
	stemmer *algorithms.EnglishStemmer
}

// NewDetector creates a detector.
func NewDetector() *Detector {
	return &Detector{stemmer: algorithms.NewEnglishStemmer()}
}

// DetectCategory returns the species label for the text, or ("", false)
// when no keyword matches.
func (d *Detector) DetectCategory(text string) (string, bool) {
	return d.match(text, categoryRules)
}

// DetectCutType returns the cut-type label for the text, or ("", false)
// when no keyword matches.
func (d *Detector) DetectCutType(text string) (string, bool) {
	return d.match(text, cutTypeRules)
}

// IsPremium reports whether any premium keyword appears in the text.
func (d *Detector) IsPremium(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range premiumKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (d *Detector) match(text string, rules []keywordRule) (string, bool) {
	tokens := d.tokenSet(text)
	if len(tokens) == 0 {
		return "", false
	}
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if tokens[kw] {
				return rule.Label, true
			}
		}
	}
	return "", false
}

// tokenSet splits the text into whole-word tokens; ASCII tokens are also
// added in stemmed form so inflected English keywords match.
func (d *Detector) tokenSet(text string) map[string]bool {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(fields)*2)
	for _, tok := range fields {
		set[tok] = true
		if stemmed := d.stemmer.Stem(tok); stemmed != tok {
			set[stemmed] = true
		}
	}
	return set
}
