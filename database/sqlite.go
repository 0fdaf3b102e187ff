package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"meatnorm/normalization/algorithms"
)

// ErrDuplicateName is returned by CreateCanonical when another entity
// already holds the name (case-insensitive). Resolved internally by the
// resolver, never surfaced to callers.
var ErrDuplicateName = errors.New("canonical name already exists")

// ScoreFunc scores the similarity of two strings in [0,1]. FuzzySearch
// uses it against canonical names and variation original names.
type ScoreFunc func(a, b string) float64

// Config tunes the sqlite connection pool.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB is the sqlite-backed normalization store.
type DB struct {
	conn  *sql.DB
	score ScoreFunc
}

// New opens (and if needed initializes) the normalization database at
// dbPath. A nil scorer falls back to the composite similarity metric.
func New(dbPath string, score ScoreFunc) (*DB, error) {
	config := Config{}

	// In-memory SQLite must run on a single connection, otherwise every
	// new pool connection sees an empty schema.
	if isInMemory(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	return NewWithConfig(dbPath, config, score)
}

// NewWithConfig opens the database with explicit pool settings.
func NewWithConfig(dbPath string, config Config, score ScoreFunc) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open normalization database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		// SQLite handles large connection counts poorly; cap to avoid
		// writer lock contention.
		conn.SetMaxOpenConns(10)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(3)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping normalization database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL lets concurrent normalize calls read while one writes. Not
	// critical, so a failure is only logged.
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Printf("[DB] Warning: failed to enable WAL mode: %v", err)
	}

	if err := initSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if score == nil {
		metrics := algorithms.NewSimilarityMetrics()
		score = metrics.Composite
	}

	return &DB{conn: conn, score: score}, nil
}

func isInMemory(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}
	return strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory")
}

func initSchema(conn *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS canonical_entities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		cut_type TEXT NOT NULL DEFAULT '',
		subcategory TEXT NOT NULL DEFAULT '',
		is_premium INTEGER NOT NULL DEFAULT 0,
		typical_weight_range TEXT NOT NULL DEFAULT '',
		cooking_methods TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_canonical_entities_name
		ON canonical_entities(name COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS variation_records (
		id TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		canonical_entity_id TEXT NOT NULL
			REFERENCES canonical_entities(id) ON DELETE CASCADE,
		confidence_score REAL NOT NULL,
		source TEXT NOT NULL,
		verified INTEGER NOT NULL DEFAULT 0,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(original_name, canonical_entity_id)
	);
	CREATE INDEX IF NOT EXISTS idx_variation_records_entity
		ON variation_records(canonical_entity_id);
	`
	if _, err := conn.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// FindByExactName returns the entity with the given name, case-insensitive,
// or (nil, nil) when absent.
func (db *DB) FindByExactName(ctx context.Context, name string) (*CanonicalEntity, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, category, cut_type, subcategory, is_premium,
		       typical_weight_range, cooking_methods, created_at, updated_at
		FROM canonical_entities
		WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name))

	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find canonical entity by name: %w", err)
	}
	return entity, nil
}

// CreateCanonical inserts a new canonical entity, failing with
// ErrDuplicateName on a case-insensitive name collision.
func (db *DB) CreateCanonical(ctx context.Context, fields CanonicalFields) (*CanonicalEntity, error) {
	entity, err := db.insertCanonical(ctx, db.conn, fields)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (db *DB) insertCanonical(ctx context.Context, ex execer, fields CanonicalFields) (*CanonicalEntity, error) {
	name := strings.TrimSpace(fields.Name)
	if name == "" {
		return nil, fmt.Errorf("canonical name must not be empty")
	}

	methods := fields.CookingMethods
	if methods == nil {
		methods = []string{}
	}
	methodsJSON, err := json.Marshal(methods)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cooking methods: %w", err)
	}

	now := time.Now().UTC()
	entity := &CanonicalEntity{
		ID:                 uuid.NewString(),
		Name:               name,
		Category:           fields.Category,
		CutType:            fields.CutType,
		Subcategory:        fields.Subcategory,
		IsPremium:          fields.IsPremium,
		TypicalWeightRange: fields.TypicalWeightRange,
		CookingMethods:     methods,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO canonical_entities
			(id, name, category, cut_type, subcategory, is_premium,
			 typical_weight_range, cooking_methods, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID, entity.Name, entity.Category, entity.CutType,
		entity.Subcategory, boolToInt(entity.IsPremium),
		entity.TypicalWeightRange, string(methodsJSON),
		formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("canonical entity %q: %w", name, ErrDuplicateName)
		}
		return nil, fmt.Errorf("failed to insert canonical entity: %w", err)
	}

	return entity, nil
}

// CreateCanonicalWithVariation creates an entity and its first variation
// record as a single transaction: either both commit or neither does.
func (db *DB) CreateCanonicalWithVariation(ctx context.Context, fields CanonicalFields, variation VariationInput) (*CanonicalEntity, *VariationRecord, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entity, err := db.insertCanonical(ctx, tx, fields)
	if err != nil {
		return nil, nil, err
	}

	variation.CanonicalEntityID = entity.ID
	record, err := upsertVariationIn(ctx, tx, variation)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit entity creation: %w", err)
	}
	return entity, record, nil
}

// UpsertVariation inserts a variation record or, when the
// (original_name, canonical_entity_id) pair already exists, refreshes its
// confidence, source and updated_at. Idempotent.
func (db *DB) UpsertVariation(ctx context.Context, variation VariationInput) (*VariationRecord, error) {
	return upsertVariationIn(ctx, db.conn, variation)
}

type queryExecer interface {
	execer
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func upsertVariationIn(ctx context.Context, qe queryExecer, variation VariationInput) (*VariationRecord, error) {
	name := strings.TrimSpace(variation.OriginalName)
	if name == "" {
		return nil, fmt.Errorf("variation original name must not be empty")
	}
	if variation.CanonicalEntityID == "" {
		return nil, fmt.Errorf("variation canonical entity id must not be empty")
	}

	now := formatTime(time.Now().UTC())
	createdBy := sql.NullString{String: variation.CreatedBy, Valid: variation.CreatedBy != ""}

	_, err := qe.ExecContext(ctx, `
		INSERT INTO variation_records
			(id, original_name, canonical_entity_id, confidence_score,
			 source, verified, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(original_name, canonical_entity_id) DO UPDATE SET
			confidence_score = excluded.confidence_score,
			source = excluded.source,
			created_by = COALESCE(variation_records.created_by, excluded.created_by),
			updated_at = excluded.updated_at`,
		uuid.NewString(), name, variation.CanonicalEntityID,
		variation.Confidence, variation.Source, createdBy, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert variation record: %w", err)
	}

	row := qe.QueryRowContext(ctx, `
		SELECT id, original_name, canonical_entity_id, confidence_score,
		       source, verified, created_by, created_at, updated_at
		FROM variation_records
		WHERE original_name = ? AND canonical_entity_id = ?`,
		name, variation.CanonicalEntityID)

	record, err := scanVariation(row)
	if err != nil {
		return nil, fmt.Errorf("failed to read back variation record: %w", err)
	}
	return record, nil
}

// FuzzySearch scores the text against every canonical name and every
// variation original name, keeping each entity's best score. Results are
// ranked by descending confidence. The scan is linear in store size; fine
// for low-thousands of entries, a known limit beyond that.
func (db *DB) FuzzySearch(ctx context.Context, text string, minConfidence float64, limit int) ([]ScoredEntity, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, nil
	}

	entities, err := db.listEntities(ctx)
	if err != nil {
		return nil, err
	}

	type hit struct {
		entity      *CanonicalEntity
		confidence  float64
		matchedName string
	}
	best := make(map[string]*hit, len(entities))

	consider := func(entity *CanonicalEntity, candidate string) {
		score := db.score(text, strings.ToLower(candidate))
		if score < minConfidence {
			return
		}
		if existing, ok := best[entity.ID]; !ok || score > existing.confidence {
			best[entity.ID] = &hit{entity: entity, confidence: score, matchedName: candidate}
		}
	}

	for _, entity := range entities {
		consider(entity, entity.Name)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT original_name, canonical_entity_id FROM variation_records`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan variation records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var originalName, entityID string
		if err := rows.Scan(&originalName, &entityID); err != nil {
			return nil, fmt.Errorf("failed to scan variation row: %w", err)
		}
		if entity, ok := entities[entityID]; ok {
			consider(entity, originalName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variation rows: %w", err)
	}

	results := make([]ScoredEntity, 0, len(best))
	for _, h := range best {
		results = append(results, ScoredEntity{
			Entity:      h.entity,
			Confidence:  h.confidence,
			MatchedName: h.matchedName,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Entity.Name < results[j].Entity.Name
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (db *DB) listEntities(ctx context.Context) (map[string]*CanonicalEntity, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, category, cut_type, subcategory, is_premium,
		       typical_weight_range, cooking_methods, created_at, updated_at
		FROM canonical_entities`)
	if err != nil {
		return nil, fmt.Errorf("failed to list canonical entities: %w", err)
	}
	defer rows.Close()

	entities := make(map[string]*CanonicalEntity)
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan canonical entity: %w", err)
		}
		entities[entity.ID] = entity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate canonical entities: %w", err)
	}
	return entities, nil
}

// GetStats returns per-category aggregates over entities and variations,
// ordered by category name.
func (db *DB) GetStats(ctx context.Context) ([]CategoryStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT e.category,
		       COUNT(DISTINCT e.id),
		       COUNT(v.id),
		       COALESCE(AVG(v.confidence_score), 0),
		       COALESCE(SUM(v.verified), 0)
		FROM canonical_entities e
		LEFT JOIN variation_records v ON v.canonical_entity_id = e.id
		GROUP BY e.category
		ORDER BY e.category`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	defer rows.Close()

	var stats []CategoryStats
	for rows.Next() {
		var s CategoryStats
		if err := rows.Scan(&s.Category, &s.CanonicalCount, &s.VariationCount,
			&s.AvgConfidence, &s.VerifiedCount); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats rows: %w", err)
	}
	return stats, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(s scanner) (*CanonicalEntity, error) {
	var (
		entity      CanonicalEntity
		isPremium   int
		methodsJSON string
		createdAt   string
		updatedAt   string
	)
	if err := s.Scan(&entity.ID, &entity.Name, &entity.Category, &entity.CutType,
		&entity.Subcategory, &isPremium, &entity.TypicalWeightRange,
		&methodsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	entity.IsPremium = isPremium != 0
	if err := json.Unmarshal([]byte(methodsJSON), &entity.CookingMethods); err != nil {
		entity.CookingMethods = []string{}
	}
	entity.CreatedAt = parseTime(createdAt)
	entity.UpdatedAt = parseTime(updatedAt)
	return &entity, nil
}

func scanVariation(s scanner) (*VariationRecord, error) {
	var (
		record    VariationRecord
		verified  int
		createdBy sql.NullString
		createdAt string
		updatedAt string
	)
	if err := s.Scan(&record.ID, &record.OriginalName, &record.CanonicalEntityID,
		&record.Confidence, &record.Source, &verified, &createdBy,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	record.Verified = verified != 0
	record.CreatedBy = createdBy.String
	record.CreatedAt = parseTime(createdAt)
	record.UpdatedAt = parseTime(updatedAt)
	return &record, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000Z07:00",
	"2006-01-02 15:04:05",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
