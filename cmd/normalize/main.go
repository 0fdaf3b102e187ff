package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"meatnorm/database"
	"meatnorm/internal/config"
	"meatnorm/mapping"
	"meatnorm/normalization"
)

func main() {
	text := flag.String("text", "", "Listing name to normalize")
	file := flag.String("file", "", "File with one listing name per line (batch mode)")
	analyze := flag.Bool("analyze", false, "Preview resolution without writing anything")
	find := flag.Bool("find", false, "List ranked match candidates without writing anything")
	stats := flag.Bool("stats", false, "Print per-category statistics")
	force := flag.Bool("force", false, "Create a new entity even when a confident match exists")
	category := flag.String("category", "", "Category hint, overrides detection")
	cutType := flag.String("cut", "", "Cut-type hint, overrides detection")
	minConfidence := flag.Float64("min-confidence", 0, "Minimum candidate confidence (0 = mode default)")
	user := flag.String("user", "", "User recorded as variation provenance")
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

	table := mapping.Default()
	if cfg.MappingPath != "" {
		table = mapping.LoadOrEmpty(cfg.MappingPath)
	}
	resolver := normalization.NewResolver(table, db)
	ctx := context.Background()

	if *minConfidence == 0 {
		*minConfidence = cfg.MinConfidence
	}

	switch {
	case *stats:
		report, err := resolver.GetStats(ctx)
		if err != nil {
			log.Fatalf("failed to collect stats: %v", err)
		}
		printJSON(report)

	case *find:
		requireText(*text)
		candidates, err := resolver.FindBestMatches(ctx, *text, normalization.FindOptions{
			MinConfidence: *minConfidence,
			Category:      *category,
		})
		if err != nil {
			log.Fatalf("failed to find matches: %v", err)
		}
		printJSON(candidates)

	case *analyze:
		requireText(*text)
		report, err := resolver.Analyze(ctx, *text)
		if err != nil {
			log.Fatalf("failed to analyze: %v", err)
		}
		printJSON(report)

	case *file != "":
		names, err := readLines(*file)
		if err != nil {
			log.Fatalf("failed to read input file: %v", err)
		}
		results, err := resolver.NormalizeBatch(ctx, names, normalization.Options{
			ForceCreate:   *force,
			CategoryHint:  *category,
			CutTypeHint:   *cutType,
			MinConfidence: *minConfidence,
			UserID:        *user,
		})
		if err != nil {
			log.Fatalf("batch aborted: %v", err)
		}
		ok := 0
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "skip %q: %v\n", r.Text, r.Err)
				continue
			}
			ok++
			fmt.Printf("%s -> %s (%.2f, %s)\n",
				r.Text, r.Envelope.Entity.Name, r.Envelope.Confidence, r.Envelope.Source)
		}
		fmt.Printf("Normalized %d of %d names\n", ok, len(results))

	default:
		requireText(*text)
		envelope, err := resolver.Normalize(ctx, *text, normalization.Options{
			ForceCreate:   *force,
			CategoryHint:  *category,
			CutTypeHint:   *cutType,
			MinConfidence: *minConfidence,
			UserID:        *user,
		})
		if err != nil {
			log.Fatalf("failed to normalize: %v", err)
		}
		printJSON(envelope)
	}
}

func requireText(text string) {
	if strings.TrimSpace(text) == "" {
		flag.Usage()
		os.Exit(2)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode output: %v", err)
	}
	fmt.Println(string(data))
}
