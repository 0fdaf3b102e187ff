// Package database implements the normalization store: canonical entities,
// variation records and the sqlite adapter backing them.
package database

import "time"

// Variation provenance tags.
const (
	SourceManual       = "manual"
	SourceMapping      = "mapping"
	SourceMappingFuzzy = "mapping_fuzzy"
	SourceDatabase     = "database"
	SourceAuto         = "auto"
	SourceOriginal     = "original"
)

// CanonicalEntity is the authoritative record for one real-world cut that
// many raw-text variations map onto. Name is unique case-insensitively.
type CanonicalEntity struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Category           string    `json:"category"`
	CutType            string    `json:"cut_type"`
	Subcategory        string    `json:"subcategory"`
	IsPremium          bool      `json:"is_premium"`
	TypicalWeightRange string    `json:"typical_weight_range"`
	CookingMethods     []string  `json:"cooking_methods"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CanonicalFields are the caller-supplied fields for entity creation.
type CanonicalFields struct {
	Name               string
	Category           string
	CutType            string
	Subcategory        string
	IsPremium          bool
	TypicalWeightRange string
	CookingMethods     []string
}

// VariationRecord links one raw, as-observed listing name to a canonical
// entity. Unique on (OriginalName, CanonicalEntityID); writes are upserts.
type VariationRecord struct {
	ID                string    `json:"id"`
	OriginalName      string    `json:"original_name"`
	CanonicalEntityID string    `json:"canonical_entity_id"`
	Confidence        float64   `json:"confidence_score"`
	Source            string    `json:"source"`
	Verified          bool      `json:"verified"`
	CreatedBy         string    `json:"created_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// VariationInput is the upsert payload for a variation record.
type VariationInput struct {
	OriginalName      string
	CanonicalEntityID string
	Confidence        float64
	Source            string
	CreatedBy         string
}

// ScoredEntity is one fuzzy-search hit with its composite confidence.
type ScoredEntity struct {
	Entity     *CanonicalEntity
	Confidence float64
	// MatchedName is the stored string that produced the score: the
	// canonical name itself or a variation original name.
	MatchedName string
}

// CategoryStats is the per-category aggregate exposed by GetStats.
type CategoryStats struct {
	Category       string  `json:"category"`
	CanonicalCount int     `json:"canonical_count"`
	VariationCount int     `json:"variation_count"`
	AvgConfidence  float64 `json:"avg_confidence"`
	VerifiedCount  int     `json:"verified_count"`
}
