package normalization

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"meatnorm/database"
)

type stubExportSource struct {
	rows []database.ExportRow
}

func (s *stubExportSource) ListExportRows(_ context.Context, _ database.ExportFilter) ([]database.ExportRow, error) {
	return s.rows, nil
}

func exportRows() []database.ExportRow {
	return []database.ExportRow{
		{
			OriginalName:  "אנטרקוט בלק אנגוס",
			CanonicalName: "אנטריקוט",
			Category:      "בקר",
			CutType:       "סטייק",
			IsPremium:     true,
			Confidence:    1.0,
			Source:        database.SourceMapping,
			UpdatedAt:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			OriginalName:  "שניצל עוף טרי",
			CanonicalName: "שניצל עוף",
			Category:      "עוף",
			CutType:       "שניצל",
			Confidence:    0.92,
			Source:        database.SourceDatabase,
			UpdatedAt:     time.Date(2025, 3, 11, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestExportToJSON(t *testing.T) {
	e := NewExporter(&stubExportSource{rows: exportRows()})
	path := filepath.Join(t.TempDir(), "catalog.json")

	require.NoError(t, e.ExportToJSON(context.Background(), path, database.ExportFilter{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Total int                  `json:"total"`
		Items []database.ExportRow `json:"items"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 2, doc.Total)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "אנטריקוט", doc.Items[0].CanonicalName)
	assert.True(t, doc.Items[0].IsPremium)
}

func TestExportToCSV(t *testing.T) {
	e := NewExporter(&stubExportSource{rows: exportRows()})
	path := filepath.Join(t.TempDir(), "catalog.csv")

	require.NoError(t, e.ExportToCSV(context.Background(), path, database.ExportFilter{}))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, "אנטרקוט בלק אנגוס", records[1][0])
	assert.Equal(t, "1.00", records[1][5])
}

func TestExportToExcel(t *testing.T) {
	e := NewExporter(&stubExportSource{rows: exportRows()})
	path := filepath.Join(t.TempDir(), "catalog.xlsx")

	require.NoError(t, e.ExportToExcel(context.Background(), path, database.ExportFilter{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Catalog", "B2")
	require.NoError(t, err)
	assert.Equal(t, "אנטריקוט", name)

	source, err := f.GetCellValue("Catalog", "G3")
	require.NoError(t, err)
	assert.Equal(t, database.SourceDatabase, source)
}

func TestExportUnknownFormat(t *testing.T) {
	e := NewExporter(&stubExportSource{})
	err := e.Export(context.Background(), ExportFormat("xml"), "out.xml", database.ExportFilter{})
	assert.Error(t, err)
}
