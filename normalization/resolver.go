package normalization

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"meatnorm/database"
	"meatnorm/mapping"
	"meatnorm/normalization/algorithms"
)

// ErrInvalidInput rejects empty (or all-noise) listing names.
var ErrInvalidInput = errors.New("invalid input text")

// Decision thresholds, tuned against the curated dictionary.
const (
	// ReuseThreshold: above it the top candidate's entity is reused.
	ReuseThreshold = 0.8
	// MappingFuzzyThreshold gates fuzzy hits against the mapping table.
	MappingFuzzyThreshold = 0.85
	// DefaultNormalizeMinConfidence bounds store fuzzy search in
	// normalize mode.
	DefaultNormalizeMinConfidence = 0.6
	// DefaultAnalyzeMinConfidence bounds store fuzzy search in
	// analyze/preview mode.
	DefaultAnalyzeMinConfidence = 0.4

	// defaultAlternatives is how many runner-up candidates an envelope
	// carries.
	defaultAlternatives = 5
)

// sourcePriority breaks confidence ties deterministically: curated mapping
// beats mapping fuzzy beats database fuzzy.
var sourcePriority = map[string]int{
	database.SourceMapping:      3,
	database.SourceMappingFuzzy: 2,
	database.SourceDatabase:     1,
}

// Store is the persistence contract the resolver depends on. Implemented
// by database.DB; any engine with exact lookup, transactional upsert and a
// fuzzy-text primitive can back it.
type Store interface {
	FindByExactName(ctx context.Context, name string) (*database.CanonicalEntity, error)
	FuzzySearch(ctx context.Context, text string, minConfidence float64, limit int) ([]database.ScoredEntity, error)
	CreateCanonical(ctx context.Context, fields database.CanonicalFields) (*database.CanonicalEntity, error)
	CreateCanonicalWithVariation(ctx context.Context, fields database.CanonicalFields, variation database.VariationInput) (*database.CanonicalEntity, *database.VariationRecord, error)
	UpsertVariation(ctx context.Context, variation database.VariationInput) (*database.VariationRecord, error)
	GetStats(ctx context.Context) ([]database.CategoryStats, error)
}

// Options steer a single Normalize call.
type Options struct {
	// ForceCreate mints a new entity even when a confident match exists.
	ForceCreate bool
	// CategoryHint and CutTypeHint override detector output.
	CategoryHint string
	CutTypeHint  string
	// MinConfidence overrides the fuzzy-search confidence floor; 0 means
	// the mode default, negative means no floor at all.
	MinConfidence float64
	// UserID is recorded as variation provenance.
	UserID string
	// Source overrides the provenance tag of a newly minted entity's
	// first variation.
	Source string
}

// Candidate is one ranked match candidate.
type Candidate struct {
	// Name is the canonical name the candidate resolves to.
	Name string `json:"name"`
	// EntityID is set for store-backed candidates.
	EntityID string `json:"entity_id,omitempty"`
	// MatchedName is the variation or name that produced the score.
	MatchedName string  `json:"matched_name"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source"`
}

// ResolutionEnvelope is the outcome of a Normalize call.
type ResolutionEnvelope struct {
	Entity       *database.CanonicalEntity `json:"canonical_entity"`
	Variation    *database.VariationRecord `json:"variation_record"`
	IsNewEntity  bool                      `json:"is_new_entity"`
	Confidence   float64                   `json:"confidence"`
	Source       string                    `json:"source"`
	Alternatives []Candidate               `json:"alternatives,omitempty"`
}

// AnalysisReport is the read-only preview of how a name would resolve.
type AnalysisReport struct {
	CleanedName      string      `json:"cleaned_name"`
	DetectedCategory string      `json:"detected_category,omitempty"`
	DetectedCutType  string      `json:"detected_cut_type,omitempty"`
	IsPremium        bool        `json:"is_premium"`
	Confidence       float64     `json:"confidence"`
	RankedCandidates []Candidate `json:"ranked_candidates,omitempty"`
}

// FindOptions steer FindBestMatches. MinConfidence follows the Options
// convention: 0 means the analyze default, negative means no floor.
type FindOptions struct {
	MinConfidence float64
	Category      string
	Limit         int
}

// Resolver orchestrates canonicalization, mapping lookup, fuzzy scanning
// and the decision policy. Holds no mutable state; safe for concurrent
// use.
type Resolver struct {
	table         *mapping.Table
	store         Store
	canonicalizer *Canonicalizer
	detector      *Detector
	metrics       *algorithms.SimilarityMetrics
}

// NewResolver builds a resolver over an immutable mapping table and a
// store.
func NewResolver(table *mapping.Table, store Store) *Resolver {
	if table == nil {
		table = mapping.Empty()
	}
	return &Resolver{
		table:         table,
		store:         store,
		canonicalizer: NewCanonicalizer(),
		detector:      NewDetector(),
		metrics:       algorithms.NewSimilarityMetrics(),
	}
}

// Canonicalizer exposes the resolver's canonicalizer for callers that only
// need text cleanup.
func (r *Resolver) Canonicalizer() *Canonicalizer {
	return r.canonicalizer
}

// Normalize resolves a raw listing name onto a canonical entity, creating
// one when no confident match exists, and records the variation. May
// persist; storage failures abort with no partial writes.
func (r *Resolver) Normalize(ctx context.Context, text string, opts Options) (*ResolutionEnvelope, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}

	cleaned := r.canonicalizer.Canonicalize(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: nothing left after cleanup of %q", ErrInvalidInput, raw)
	}

	minConfidence := resolveMinConfidence(opts.MinConfidence, DefaultNormalizeMinConfidence)

	candidates, err := r.collectCandidates(ctx, cleaned, minConfidence)
	if err != nil {
		return nil, err
	}

	if len(candidates) > 0 && candidates[0].Confidence > ReuseThreshold && !opts.ForceCreate {
		return r.reuse(ctx, raw, cleaned, candidates, opts)
	}
	return r.create(ctx, raw, cleaned, candidates, opts)
}

// Analyze previews how a name would resolve: cleanup, detector output and
// ranked candidates. Read-only, persists nothing.
func (r *Resolver) Analyze(ctx context.Context, text string) (*AnalysisReport, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}

	cleaned := r.canonicalizer.Canonicalize(raw)
	report := &AnalysisReport{CleanedName: cleaned}
	if cleaned == "" {
		return report, nil
	}

	report.DetectedCategory, _ = r.detector.DetectCategory(cleaned)
	report.DetectedCutType, _ = r.detector.DetectCutType(cleaned)
	report.IsPremium = r.detector.IsPremium(cleaned)

	candidates, err := r.collectCandidates(ctx, cleaned, DefaultAnalyzeMinConfidence)
	if err != nil {
		return nil, err
	}
	report.RankedCandidates = candidates
	if len(candidates) > 0 {
		report.Confidence = candidates[0].Confidence
	}
	return report, nil
}

// FindBestMatches returns ranked candidates from both the mapping table
// and the store without persisting anything. Unlike Normalize, the mapping
// table is scanned with the caller's confidence bound rather than the
// strict mapping-fuzzy threshold.
func (r *Resolver) FindBestMatches(ctx context.Context, text string, opts FindOptions) ([]Candidate, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	cleaned := r.canonicalizer.Canonicalize(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: nothing left after cleanup of %q", ErrInvalidInput, raw)
	}

	minConfidence := resolveMinConfidence(opts.MinConfidence, DefaultAnalyzeMinConfidence)
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultAlternatives * 2
	}

	// Best score per canonical name across the whole mapping table.
	bestByName := make(map[string]Candidate)
	if name, ok := r.table.LookupExact(cleaned); ok {
		bestByName[name] = Candidate{
			Name: name, MatchedName: cleaned,
			Confidence: 1.0, Source: database.SourceMapping,
		}
	}
	for _, entry := range r.table.Entries() {
		score := r.metrics.Composite(cleaned, entry.Variation)
		if score < minConfidence {
			continue
		}
		if existing, ok := bestByName[entry.Canonical]; !ok || score > existing.Confidence {
			bestByName[entry.Canonical] = Candidate{
				Name: entry.Canonical, MatchedName: entry.Variation,
				Confidence: score, Source: database.SourceMappingFuzzy,
			}
		}
	}

	candidates := make([]Candidate, 0, len(bestByName))
	for _, c := range bestByName {
		candidates = append(candidates, c)
	}

	stored, err := r.store.FuzzySearch(ctx, cleaned, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("store fuzzy search failed: %w", err)
	}
	for _, hit := range stored {
		candidates = append(candidates, Candidate{
			Name:        hit.Entity.Name,
			EntityID:    hit.Entity.ID,
			MatchedName: hit.MatchedName,
			Confidence:  hit.Confidence,
			Source:      database.SourceDatabase,
		})
	}

	candidates = dedupeByName(candidates)
	if opts.Category != "" {
		candidates = r.filterByCategory(candidates, opts.Category)
	}
	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// GetStats reports per-category aggregates from the store.
func (r *Resolver) GetStats(ctx context.Context) ([]database.CategoryStats, error) {
	return r.store.GetStats(ctx)
}

// BatchResult pairs one input of NormalizeBatch with its outcome.
type BatchResult struct {
	Text     string
	Envelope *ResolutionEnvelope
	Err      error
}

// NormalizeBatch resolves a slice of names sequentially. Invalid inputs
// are reported per item; storage failures abort the batch.
func (r *Resolver) NormalizeBatch(ctx context.Context, texts []string, opts Options) ([]BatchResult, error) {
	results := make([]BatchResult, len(texts))
	for i, text := range texts {
		envelope, err := r.Normalize(ctx, text, opts)
		results[i] = BatchResult{Text: text, Envelope: envelope, Err: err}
		if err != nil && !errors.Is(err, ErrInvalidInput) {
			return results, err
		}
	}
	return results, nil
}

// collectCandidates runs the lookup cascade: exact mapping, then mapping
// fuzzy, then (only when the mapping produced nothing) store fuzzy search.
func (r *Resolver) collectCandidates(ctx context.Context, cleaned string, minConfidence float64) ([]Candidate, error) {
	var candidates []Candidate

	if name, ok := r.table.LookupExact(cleaned); ok {
		candidates = append(candidates, Candidate{
			Name: name, MatchedName: cleaned,
			Confidence: 1.0, Source: database.SourceMapping,
		})
	} else {
		for _, entry := range r.table.Entries() {
			score := r.metrics.Composite(cleaned, entry.Variation)
			if score > MappingFuzzyThreshold {
				candidates = append(candidates, Candidate{
					Name: entry.Canonical, MatchedName: entry.Variation,
					Confidence: score, Source: database.SourceMappingFuzzy,
				})
			}
		}
		candidates = dedupeByName(candidates)
	}

	if len(candidates) == 0 {
		stored, err := r.store.FuzzySearch(ctx, cleaned, minConfidence, defaultAlternatives*2)
		if err != nil {
			return nil, fmt.Errorf("store fuzzy search failed: %w", err)
		}
		for _, hit := range stored {
			candidates = append(candidates, Candidate{
				Name:        hit.Entity.Name,
				EntityID:    hit.Entity.ID,
				MatchedName: hit.MatchedName,
				Confidence:  hit.Confidence,
				Source:      database.SourceDatabase,
			})
		}
	}

	sortCandidates(candidates)
	return candidates, nil
}

// reuse attaches the raw text to the top candidate's entity, creating the
// entity first when a mapping candidate names one the store has not seen.
func (r *Resolver) reuse(ctx context.Context, raw, cleaned string, candidates []Candidate, opts Options) (*ResolutionEnvelope, error) {
	top := candidates[0]

	entity, isNew, err := r.ensureEntity(ctx, top, opts)
	if err != nil {
		return nil, err
	}

	variation, err := r.store.UpsertVariation(ctx, database.VariationInput{
		OriginalName:      raw,
		CanonicalEntityID: entity.ID,
		Confidence:        top.Confidence,
		Source:            top.Source,
		CreatedBy:         opts.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record variation: %w", err)
	}

	return &ResolutionEnvelope{
		Entity:       entity,
		Variation:    variation,
		IsNewEntity:  isNew,
		Confidence:   top.Confidence,
		Source:       top.Source,
		Alternatives: alternatives(candidates),
	}, nil
}

// create mints a new canonical entity from the cleaned text and detector
// evidence, with its first variation, as one atomic unit.
func (r *Resolver) create(ctx context.Context, raw, cleaned string, candidates []Candidate, opts Options) (*ResolutionEnvelope, error) {
	category, cutType, isPremium := r.attributes(cleaned, opts)

	name := cleaned
	if category != "" && cutType != "" {
		name = cutType + " " + category
	}

	source := opts.Source
	if source == "" {
		source = database.SourceOriginal
		if opts.UserID != "" {
			source = database.SourceManual
		}
	}

	fields := database.CanonicalFields{
		Name:      name,
		Category:  category,
		CutType:   cutType,
		IsPremium: isPremium,
	}
	variation := database.VariationInput{
		OriginalName: raw,
		Confidence:   1.0,
		Source:       source,
		CreatedBy:    opts.UserID,
	}

	entity, record, err := r.store.CreateCanonicalWithVariation(ctx, fields, variation)
	if errors.Is(err, database.ErrDuplicateName) {
		// Lost a creation race (or the name was already minted): fall
		// back to lookup + upsert.
		log.Printf("[Resolver] Entity %q already exists, reusing", name)
		return r.adoptExisting(ctx, raw, name, source, candidates, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create canonical entity: %w", err)
	}

	return &ResolutionEnvelope{
		Entity:       entity,
		Variation:    record,
		IsNewEntity:  true,
		Confidence:   record.Confidence,
		Source:       source,
		Alternatives: topN(candidates, defaultAlternatives),
	}, nil
}

func (r *Resolver) adoptExisting(ctx context.Context, raw, name, source string, candidates []Candidate, opts Options) (*ResolutionEnvelope, error) {
	entity, err := r.store.FindByExactName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up entity after duplicate: %w", err)
	}
	if entity == nil {
		return nil, fmt.Errorf("entity %q reported duplicate but cannot be found", name)
	}

	variation, err := r.store.UpsertVariation(ctx, database.VariationInput{
		OriginalName:      raw,
		CanonicalEntityID: entity.ID,
		Confidence:        1.0,
		Source:            source,
		CreatedBy:         opts.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record variation: %w", err)
	}

	return &ResolutionEnvelope{
		Entity:       entity,
		Variation:    variation,
		IsNewEntity:  false,
		Confidence:   variation.Confidence,
		Source:       source,
		Alternatives: topN(candidates, defaultAlternatives),
	}, nil
}

// ensureEntity resolves a candidate to a stored entity, creating it when a
// mapping candidate names one the store does not hold yet. Creation races
// degrade to lookup.
func (r *Resolver) ensureEntity(ctx context.Context, top Candidate, opts Options) (*database.CanonicalEntity, bool, error) {
	entity, err := r.store.FindByExactName(ctx, top.Name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up entity %q: %w", top.Name, err)
	}
	if entity != nil {
		return entity, false, nil
	}

	category, cutType, isPremium := r.attributes(top.Name, opts)
	entity, err = r.store.CreateCanonical(ctx, database.CanonicalFields{
		Name:      top.Name,
		Category:  category,
		CutType:   cutType,
		IsPremium: isPremium,
	})
	if errors.Is(err, database.ErrDuplicateName) {
		entity, err = r.store.FindByExactName(ctx, top.Name)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up entity after duplicate: %w", err)
		}
		if entity == nil {
			return nil, false, fmt.Errorf("entity %q reported duplicate but cannot be found", top.Name)
		}
		return entity, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create entity %q: %w", top.Name, err)
	}
	return entity, true, nil
}

// attributes merges caller hints with detector output; hints win.
func (r *Resolver) attributes(cleaned string, opts Options) (category, cutType string, isPremium bool) {
	category = opts.CategoryHint
	if category == "" {
		category, _ = r.detector.DetectCategory(cleaned)
	}
	cutType = opts.CutTypeHint
	if cutType == "" {
		cutType, _ = r.detector.DetectCutType(cleaned)
	}
	isPremium = r.detector.IsPremium(cleaned)
	return category, cutType, isPremium
}

// resolveMinConfidence maps the caller's confidence floor onto an
// effective one: positive values are taken as-is, zero selects the mode
// default, negative values disable the floor.
func resolveMinConfidence(requested, fallback float64) float64 {
	switch {
	case requested > 0:
		return requested
	case requested < 0:
		return 0
	default:
		return fallback
	}
}

// sortCandidates orders by descending confidence, then source priority,
// then shorter matched name. Stable and deterministic.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		pi := sourcePriority[candidates[i].Source]
		pj := sourcePriority[candidates[j].Source]
		if pi != pj {
			return pi > pj
		}
		return len([]rune(candidates[i].MatchedName)) < len([]rune(candidates[j].MatchedName))
	})
}

// filterByCategory drops candidates whose canonical name does not detect
// as the requested category.
func (r *Resolver) filterByCategory(candidates []Candidate, category string) []Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		detected, _ := r.detector.DetectCategory(c.Name)
		if detected == category {
			out = append(out, c)
		}
	}
	return out
}

// dedupeByName keeps each canonical name's best candidate.
func dedupeByName(candidates []Candidate) []Candidate {
	if len(candidates) < 2 {
		return candidates
	}
	best := make(map[string]Candidate, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		existing, ok := best[c.Name]
		if !ok {
			best[c.Name] = c
			order = append(order, c.Name)
			continue
		}
		if c.Confidence > existing.Confidence {
			best[c.Name] = c
		}
	}
	out := make([]Candidate, 0, len(best))
	for _, name := range order {
		out = append(out, best[name])
	}
	return out
}

// alternatives returns the runner-up candidates, excluding the winner in
// the first slot.
func alternatives(candidates []Candidate) []Candidate {
	if len(candidates) <= 1 {
		return nil
	}
	return topN(candidates[1:], defaultAlternatives)
}

func topN(candidates []Candidate, n int) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
