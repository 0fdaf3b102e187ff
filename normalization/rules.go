package normalization

// The cleanup rule set is data driven so retailer-specific noise and new
// misspellings can be added without touching the pipeline.

// noiseWords are removed by whole-token matching. Marketing and freshness
// qualifiers that never distinguish one cut from another.
//
// Premium markers (אנגוס, פרימיום, wagyu) are deliberately NOT listed here:
// the attribute detector runs on canonicalized text and needs them intact.
var noiseWords = []string{
	"טרי", "טריה", "טריים",
	"קפוא", "קפואה", "קפואים",
	"מצונן", "מצוננת",
	"ארוז", "ארוזה", "בוואקום",
	"מבצע", "במבצע",
	"מהדרין", "כשר",
	"חדש", "מומלץ",
	"ליחידה", "לקילו", "ליח",
	"fresh", "frozen", "chilled", "vacuum", "sale", "new", "kosher",
}

// weightUnits end a "number unit" price/weight fragment ("500 גרם",
// "1.5 קג", "89.90 ₪"). Matched at token level, merged or split.
var weightUnits = []string{
	"קילו", "קג", "ק\"ג", "גרם", "גר", "מל", "מ\"ל",
	"kg", "g", "gr", "ml", "l",
	"₪", "שח", "ש\"ח", "nis",
}

// correction is one ordered substitution of the letter-correction table.
type correction struct {
	From string
	To   string
}

// corrections fix common misspellings and fold English trade names onto
// their Hebrew forms. Applied in order, whole words only. Replacement
// values must not themselves appear as a From of a later rule, otherwise
// canonicalization stops being idempotent.
var corrections = []correction{
	{"אנטרקוט", "אנטריקוט"},
	{"אנטריקט", "אנטריקוט"},
	{"entrecote", "אנטריקוט"},
	{"אסדו", "אסאדו"},
	{"פילע", "פילה"},
	{"fillet", "פילה"},
	{"filet", "פילה"},
	{"סטיק", "סטייק"},
	{"steak", "סטייק"},
	{"שנצל", "שניצל"},
	{"schnitzel", "שניצל"},
	{"beef", "בקר"},
	{"veal", "עגל"},
	{"chicken", "עוף"},
	{"turkey", "הודו"},
	{"lamb", "כבש"},
	{"salmon", "סלמון"},
	{"tuna", "טונה"},
	{"בלאק", "בלק"},
	{"black", "בלק"},
	{"angus", "אנגוס"},
	{"wagyu", "וואגיו"},
	{"ואגיו", "וואגיו"},
	{"פיקנייה", "פיקניה"},
}
