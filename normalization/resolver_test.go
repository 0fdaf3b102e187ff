package normalization

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meatnorm/database"
	"meatnorm/mapping"
	"meatnorm/normalization/algorithms"
)

// fakeStore is an in-memory Store for resolver tests.
type fakeStore struct {
	entities   map[string]*database.CanonicalEntity // keyed by lowercase name
	variations map[string]*database.VariationRecord // keyed by name|entity
	metrics    *algorithms.SimilarityMetrics
	writes     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entities:   make(map[string]*database.CanonicalEntity),
		variations: make(map[string]*database.VariationRecord),
		metrics:    algorithms.NewSimilarityMetrics(),
	}
}

func (s *fakeStore) FindByExactName(_ context.Context, name string) (*database.CanonicalEntity, error) {
	entity, ok := s.entities[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	return entity, nil
}

func (s *fakeStore) CreateCanonical(_ context.Context, fields database.CanonicalFields) (*database.CanonicalEntity, error) {
	key := strings.ToLower(fields.Name)
	if _, exists := s.entities[key]; exists {
		return nil, database.ErrDuplicateName
	}
	s.writes++
	entity := &database.CanonicalEntity{
		ID:        uuid.NewString(),
		Name:      fields.Name,
		Category:  fields.Category,
		CutType:   fields.CutType,
		IsPremium: fields.IsPremium,
	}
	s.entities[key] = entity
	return entity, nil
}

func (s *fakeStore) CreateCanonicalWithVariation(ctx context.Context, fields database.CanonicalFields, variation database.VariationInput) (*database.CanonicalEntity, *database.VariationRecord, error) {
	entity, err := s.CreateCanonical(ctx, fields)
	if err != nil {
		return nil, nil, err
	}
	variation.CanonicalEntityID = entity.ID
	record, err := s.UpsertVariation(ctx, variation)
	if err != nil {
		return nil, nil, err
	}
	return entity, record, nil
}

func (s *fakeStore) UpsertVariation(_ context.Context, variation database.VariationInput) (*database.VariationRecord, error) {
	s.writes++
	key := strings.ToLower(variation.OriginalName) + "|" + variation.CanonicalEntityID
	record, ok := s.variations[key]
	if !ok {
		record = &database.VariationRecord{
			ID:                uuid.NewString(),
			OriginalName:      variation.OriginalName,
			CanonicalEntityID: variation.CanonicalEntityID,
		}
		s.variations[key] = record
	}
	record.Confidence = variation.Confidence
	record.Source = variation.Source
	record.CreatedBy = variation.CreatedBy
	copied := *record
	return &copied, nil
}

func (s *fakeStore) FuzzySearch(_ context.Context, text string, minConfidence float64, limit int) ([]database.ScoredEntity, error) {
	var hits []database.ScoredEntity
	for _, entity := range s.entities {
		best := s.metrics.Composite(text, strings.ToLower(entity.Name))
		matched := entity.Name
		for _, v := range s.variations {
			if v.CanonicalEntityID != entity.ID {
				continue
			}
			if score := s.metrics.Composite(text, strings.ToLower(v.OriginalName)); score > best {
				best = score
				matched = v.OriginalName
			}
		}
		if best >= minConfidence {
			hits = append(hits, database.ScoredEntity{Entity: entity, Confidence: best, MatchedName: matched})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Confidence > hits[j].Confidence })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *fakeStore) GetStats(_ context.Context) ([]database.CategoryStats, error) {
	counts := make(map[string]int)
	for _, entity := range s.entities {
		counts[entity.Category]++
	}
	var stats []database.CategoryStats
	for category, n := range counts {
		stats = append(stats, database.CategoryStats{Category: category, CanonicalCount: n})
	}
	return stats, nil
}

func newTestResolver(t *testing.T) (*Resolver, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewResolver(mapping.Default(), store), store
}

func TestNormalizeExactMappingHit(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	env, err := r.Normalize(ctx, "אנטרקוט בלק אנגוס טרי 500 גרם", Options{})
	require.NoError(t, err)

	assert.Equal(t, "אנטריקוט", env.Entity.Name)
	assert.Equal(t, database.SourceMapping, env.Source)
	assert.Equal(t, 1.0, env.Confidence)
	assert.True(t, env.IsNewEntity)
	assert.Equal(t, "בקר", env.Entity.Category)
	assert.Equal(t, "אנטרקוט בלק אנגוס טרי 500 גרם", env.Variation.OriginalName)
	assert.Len(t, store.entities, 1)
}

func TestNormalizeReusesExistingEntity(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	first, err := r.Normalize(ctx, "אנטריקוט טרי", Options{})
	require.NoError(t, err)
	require.True(t, first.IsNewEntity)

	second, err := r.Normalize(ctx, "אנטרקוט 500 גרם", Options{})
	require.NoError(t, err)

	assert.False(t, second.IsNewEntity)
	assert.Equal(t, first.Entity.ID, second.Entity.ID)
	assert.Len(t, store.entities, 1)
	assert.Len(t, store.variations, 2)
}

func TestNormalizeCreatesEntityForUnknownName(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	env, err := r.Normalize(ctx, "מעדן מסתורי מיוחד", Options{})
	require.NoError(t, err)

	assert.True(t, env.IsNewEntity)
	assert.Equal(t, "מעדן מסתורי מיוחד", env.Entity.Name)
	assert.Equal(t, database.SourceOriginal, env.Source)
	assert.Equal(t, 1.0, env.Confidence)
	assert.Len(t, store.entities, 1)
}

func TestNormalizeComposesNameFromHints(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	env, err := r.Normalize(ctx, "נתח מיוחד לבישול ארוך", Options{
		CategoryHint: "עגל",
		CutTypeHint:  "צלי",
		UserID:       "curator-1",
	})
	require.NoError(t, err)

	assert.True(t, env.IsNewEntity)
	assert.Equal(t, "צלי עגל", env.Entity.Name)
	assert.Equal(t, "עגל", env.Entity.Category)
	assert.Equal(t, "צלי", env.Entity.CutType)
	assert.Equal(t, database.SourceManual, env.Source)
	assert.Equal(t, "curator-1", env.Variation.CreatedBy)
}

func TestNormalizeForceCreate(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	_, err := r.Normalize(ctx, "אנטריקוט", Options{})
	require.NoError(t, err)

	// ForceCreate skips reuse, but the composed name collides with the
	// existing entity, so the resolver adopts it instead of failing.
	env, err := r.Normalize(ctx, "אנטריקוט", Options{ForceCreate: true, CategoryHint: "בקר"})
	require.NoError(t, err)
	assert.False(t, env.IsNewEntity)
	assert.Len(t, store.entities, 1)
}

func TestNormalizeInvalidInput(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	for _, in := range []string{"", "   ", "טרי במבצע", "500 גרם"} {
		_, err := r.Normalize(ctx, in, Options{})
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", in)
	}
}

func TestAnalyzeIsReadOnly(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	report, err := r.Analyze(ctx, "צלעות בקר טרי")
	require.NoError(t, err)

	assert.Equal(t, "צלעות בקר", report.CleanedName)
	assert.Equal(t, "בקר", report.DetectedCategory)
	assert.Equal(t, "צלעות", report.DetectedCutType)
	assert.False(t, report.IsPremium)
	assert.Zero(t, store.writes, "analyze must not persist anything")
}

func TestAnalyzeDetectsPremium(t *testing.T) {
	r, _ := newTestResolver(t)

	report, err := r.Analyze(context.Background(), "סטייק וואגיו מיושן")
	require.NoError(t, err)
	assert.True(t, report.IsPremium)
	assert.Equal(t, "סטייק", report.DetectedCutType)
}

func TestFindBestMatchesRanksAcrossSources(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	candidates, err := r.FindBestMatches(ctx, "פילה", FindOptions{MinConfidence: 0.4, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	names := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		names[c.Name] = c.Confidence
	}
	assert.Contains(t, names, "פילה בקר")
	assert.Contains(t, names, "פילה סלמון")

	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Confidence, candidates[i].Confidence)
	}
}

func TestFindBestMatchesCategoryFilter(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	candidates, err := r.FindBestMatches(ctx, "פילה", FindOptions{
		MinConfidence: 0.4,
		Category:      CategoryFish,
		Limit:         10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		detected, _ := NewDetector().DetectCategory(c.Name)
		assert.Equal(t, CategoryFish, detected, "candidate %q", c.Name)
	}
}

func TestFindBestMatchesNegativeFloorDisablesFilter(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	// A negative floor admits every dictionary candidate, one per
	// canonical name.
	all, err := r.FindBestMatches(ctx, "פילה", FindOptions{MinConfidence: -1, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, all, len(mapping.Default().CanonicalNames()))

	low := 0
	for _, c := range all {
		if c.Confidence < DefaultAnalyzeMinConfidence {
			low++
		}
	}
	assert.Greater(t, low, 0, "unfloored search must surface low-confidence candidates")

	// Zero still means the mode default.
	floored, err := r.FindBestMatches(ctx, "פילה", FindOptions{Limit: 100})
	require.NoError(t, err)
	assert.Less(t, len(floored), len(all))
	for _, c := range floored {
		assert.GreaterOrEqual(t, c.Confidence, DefaultAnalyzeMinConfidence)
	}
}

func TestNormalizeBatchReportsPerItemErrors(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	results, err := r.NormalizeBatch(ctx, []string{"אנטריקוט", "", "שניצל עוף"}, Options{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrInvalidInput)
	assert.NoError(t, results[2].Err)
	assert.NotNil(t, results[2].Envelope)
}
