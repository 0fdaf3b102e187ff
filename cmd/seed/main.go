package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"meatnorm/database"
	"meatnorm/internal/config"
	"meatnorm/mapping"
	"meatnorm/normalization"
)

func main() {
	randomSeed := flag.Int64("seed", 42, "Random seed for generated demo fields")
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

	created, err := database.SeedDemo(context.Background(), db, seedsFromMapping(table), *randomSeed)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	fmt.Printf("Seeded %d entities from %d dictionary names\n", created, len(table.CanonicalNames()))
}

// seedsFromMapping turns every dictionary canonical name into a demo seed,
// classifying it with the same detector the resolver uses.
func seedsFromMapping(table *mapping.Table) []database.DemoSeed {
	detector := normalization.NewDetector()

	variationsFor := make(map[string][]string)
	for _, entry := range table.Entries() {
		if entry.Variation == entry.Canonical {
			continue
		}
		variationsFor[entry.Canonical] = append(variationsFor[entry.Canonical], entry.Variation)
	}

	var seeds []database.DemoSeed
	for _, name := range table.CanonicalNames() {
		category, _ := detector.DetectCategory(name)
		cutType, _ := detector.DetectCutType(name)
		seeds = append(seeds, database.DemoSeed{
			Fields: database.CanonicalFields{
				Name:      name,
				Category:  category,
				CutType:   cutType,
				IsPremium: detector.IsPremium(name),
			},
			Variations: variationsFor[name],
		})
	}
	return seeds
}
