package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"meatnorm/database"
	"meatnorm/internal/config"
	"meatnorm/normalization"
)

func main() {
	format := flag.String("format", "csv", "Export format: json, csv or excel")
	out := flag.String("out", "", "Output file (default catalog.<ext>)")
	category := flag.String("category", "", "Only export this category")
	source := flag.String("source", "", "Only export variations with this source")
	minConfidence := flag.Float64("min-confidence", 0, "Only export variations at or above this confidence")
	verified := flag.Bool("verified", false, "Only export verified variations")
	limit := flag.Int("limit", 0, "Maximum number of rows (0 = all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewWithConfig(cfg.DatabasePath, database.Config{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, nil)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	exportFormat := normalization.ExportFormat(*format)
	filename := *out
	if filename == "" {
		switch exportFormat {
		case normalization.FormatJSON:
			filename = "catalog.json"
		case normalization.FormatExcel:
			filename = "catalog.xlsx"
		default:
			filename = "catalog.csv"
		}
	}

	started := time.Now()
	exporter := normalization.NewExporter(db)
	err = exporter.Export(context.Background(), exportFormat, filename, database.ExportFilter{
		Category:      *category,
		Source:        *source,
		MinConfidence: *minConfidence,
		VerifiedOnly:  *verified,
		Limit:         *limit,
	})
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}

	fmt.Printf("Exported catalog to %s in %s\n", filename, time.Since(started).Round(time.Millisecond))
}
