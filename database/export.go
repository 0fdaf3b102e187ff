package database

import (
	"context"
	"fmt"
	"time"
)

// ExportRow is one variation joined with its canonical entity, as exposed
// to the report exporter.
type ExportRow struct {
	OriginalName  string    `json:"original_name"`
	CanonicalName string    `json:"canonical_name"`
	Category      string    `json:"category"`
	CutType       string    `json:"cut_type"`
	IsPremium     bool      `json:"is_premium"`
	Confidence    float64   `json:"confidence_score"`
	Source        string    `json:"source"`
	Verified      bool      `json:"verified"`
	CreatedBy     string    `json:"created_by,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ExportFilter narrows ListExportRows output. Zero values mean no filter.
type ExportFilter struct {
	Category      string
	Source        string
	MinConfidence float64
	VerifiedOnly  bool
	Limit         int
}

// ListExportRows returns variations joined with their entities, ordered by
// canonical name then original name.
func (db *DB) ListExportRows(ctx context.Context, filter ExportFilter) ([]ExportRow, error) {
	query := `
		SELECT v.original_name, e.name, e.category, e.cut_type, e.is_premium,
		       v.confidence_score, v.source, v.verified,
		       COALESCE(v.created_by, ''), v.updated_at
		FROM variation_records v
		JOIN canonical_entities e ON e.id = v.canonical_entity_id
		WHERE 1=1`
	args := []interface{}{}

	if filter.Category != "" {
		query += " AND e.category = ?"
		args = append(args, filter.Category)
	}
	if filter.Source != "" {
		query += " AND v.source = ?"
		args = append(args, filter.Source)
	}
	if filter.MinConfidence > 0 {
		query += " AND v.confidence_score >= ?"
		args = append(args, filter.MinConfidence)
	}
	if filter.VerifiedOnly {
		query += " AND v.verified = 1"
	}

	query += " ORDER BY e.name, v.original_name"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export rows: %w", err)
	}
	defer rows.Close()

	result := []ExportRow{}
	for rows.Next() {
		var (
			row       ExportRow
			isPremium int
			verified  int
			updatedAt string
		)
		if err := rows.Scan(&row.OriginalName, &row.CanonicalName, &row.Category,
			&row.CutType, &isPremium, &row.Confidence, &row.Source, &verified,
			&row.CreatedBy, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		row.IsPremium = isPremium != 0
		row.Verified = verified != 0
		row.UpdatedAt = parseTime(updatedAt)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate export rows: %w", err)
	}
	return result, nil
}
