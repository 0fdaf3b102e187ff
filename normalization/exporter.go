package normalization

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"meatnorm/database"
)

// ExportFormat selects the report file format.
type ExportFormat string

const (
	FormatJSON  ExportFormat = "json"
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
)

// exportSource lists the rows a report is built from. Implemented by
// database.DB.
type exportSource interface {
	ListExportRows(ctx context.Context, filter database.ExportFilter) ([]database.ExportRow, error)
}

// Exporter writes the variation-to-entity catalog as a report file.
type Exporter struct {
	source exportSource
}

// NewExporter creates an exporter over the store.
func NewExporter(source exportSource) *Exporter {
	return &Exporter{source: source}
}

// Export writes the catalog to filename in the given format.
func (e *Exporter) Export(ctx context.Context, format ExportFormat, filename string, filter database.ExportFilter) error {
	switch format {
	case FormatJSON:
		return e.ExportToJSON(ctx, filename, filter)
	case FormatCSV:
		return e.ExportToCSV(ctx, filename, filter)
	case FormatExcel:
		return e.ExportToExcel(ctx, filename, filter)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// ExportToJSON writes the catalog as an indented JSON document with an
// envelope carrying the export timestamp and row count.
func (e *Exporter) ExportToJSON(ctx context.Context, filename string, filter database.ExportFilter) error {
	rows, err := e.source.ListExportRows(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to fetch export rows: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	result := map[string]interface{}{
		"exported_at": time.Now().Format(time.RFC3339),
		"total":       len(rows),
		"items":       rows,
	}
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportToCSV writes the catalog as a CSV file with a header row.
func (e *Exporter) ExportToCSV(ctx context.Context, filename string, filter database.ExportFilter) error {
	rows, err := e.source.ListExportRows(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to fetch export rows: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(exportHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.OriginalName,
			row.CanonicalName,
			row.Category,
			row.CutType,
			fmt.Sprintf("%t", row.IsPremium),
			fmt.Sprintf("%.2f", row.Confidence),
			row.Source,
			fmt.Sprintf("%t", row.Verified),
			row.CreatedBy,
			row.UpdatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

var exportHeaders = []string{
	"Original Name", "Canonical Name", "Category", "Cut Type",
	"Premium", "Confidence", "Source", "Verified", "Created By", "Updated At",
}

// ExportToExcel writes the catalog as an xlsx workbook with a styled
// header row.
func (e *Exporter) ExportToExcel(ctx context.Context, filename string, filter database.ExportFilter) error {
	rows, err := e.source.ListExportRows(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to fetch export rows: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Catalog"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		n := rowIdx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", n), row.OriginalName)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", n), row.CanonicalName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", n), row.Category)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", n), row.CutType)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", n), row.IsPremium)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", n), row.Confidence)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", n), row.Source)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", n), row.Verified)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", n), row.CreatedBy)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", n), row.UpdatedAt.Format(time.RFC3339))
	}

	for i := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	f.SetActiveSheet(index)

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}
