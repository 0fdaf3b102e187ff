package normalization

import "testing"

func TestCanonicalize(t *testing.T) {
	c := NewCanonicalizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims and lowercases", "  סטייק אנגוס  ", "סטייק אנגוס"},
		{"drops freshness noise", "אנטריקוט טרי", "אנטריקוט"},
		{"drops weight fragment", "אנטריקוט טרי 500 גרם", "אנטריקוט"},
		{"drops merged weight fragment", "1.5קג שניצל עוף", "שניצל עוף"},
		{"drops price fragment", "פילה סלמון 89.90 ₪", "פילה סלמון"},
		{"drops marketing noise", "סטיק אנגוס במבצע!", "סטייק אנגוס"},
		{"folds english trade names", "Entrecote Black Angus", "אנטריקוט בלק אנגוס"},
		{"fixes misspelling", "אנטרקוט עגל", "אנטריקוט עגל"},
		{"strips punctuation leftovers", "אנטריקוט, (מיושן)", "אנטריקוט מיושן"},
		{"removes niqqud", "בָּקָר טָרִי", "בקר"},
		{"keeps premium markers", "סטייק וואגיו פרימיום", "סטייק וואגיו פרימיום"},
		{"empty input", "", ""},
		{"all noise", "טרי במבצע 500 גרם", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Canonicalize(tt.in)
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	c := NewCanonicalizer()

	inputs := []string{
		"אנטריקוט טרי 500 גרם",
		"Entrecote Black Angus",
		"סטיק אנגוס במבצע!",
		"פילה סלמון 89.90 ₪",
		"שניצל עוף קפוא 1קג",
		"צלעות כבש מיושן",
	}
	for _, in := range inputs {
		once := c.Canonicalize(in)
		twice := c.Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestCorrectionsStayIdempotent(t *testing.T) {
	// A correction output that is itself a From of a later rule would make
	// the pipeline oscillate between runs.
	froms := make(map[string]bool, len(corrections))
	for _, rule := range corrections {
		froms[rule.From] = true
	}
	for _, rule := range corrections {
		if froms[rule.To] {
			t.Errorf("correction target %q is also a correction source", rule.To)
		}
	}
}
