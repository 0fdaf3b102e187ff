package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/brianvoe/gofakeit/v6"
)

// DemoSeed describes one canonical entity to seed together with raw
// variation strings observed for it.
type DemoSeed struct {
	Fields     CanonicalFields
	Variations []string
}

// SeedDemo populates a database with demo entities and variations so a
// fresh installation has data to resolve against. Existing entities are
// left untouched; the call is safe to repeat. Returns the number of
// entities created.
func SeedDemo(ctx context.Context, db *DB, seeds []DemoSeed, randomSeed int64) (int, error) {
	faker := gofakeit.New(randomSeed)
	created := 0

	for _, seed := range seeds {
		existing, err := db.FindByExactName(ctx, seed.Fields.Name)
		if err != nil {
			return created, fmt.Errorf("failed to check existing entity %q: %w", seed.Fields.Name, err)
		}
		if existing != nil {
			continue
		}

		fields := seed.Fields
		if fields.TypicalWeightRange == "" {
			low := faker.Number(150, 500)
			fields.TypicalWeightRange = fmt.Sprintf("%d-%d גרם", low, low+faker.Number(100, 700))
		}

		entity, err := db.CreateCanonical(ctx, fields)
		if err != nil {
			// Another seeder may race us; duplicate names are not a
			// seeding failure.
			if errors.Is(err, ErrDuplicateName) {
				continue
			}
			return created, fmt.Errorf("failed to seed entity %q: %w", seed.Fields.Name, err)
		}
		created++

		for _, variation := range seed.Variations {
			input := VariationInput{
				OriginalName:      variation,
				CanonicalEntityID: entity.ID,
				Confidence:        faker.Float64Range(0.85, 1.0),
				Source:            SourceMapping,
				CreatedBy:         faker.Username(),
			}
			if _, err := db.UpsertVariation(ctx, input); err != nil {
				return created, fmt.Errorf("failed to seed variation %q: %w", variation, err)
			}
		}
	}

	log.Printf("[Seed] Created %d demo entities", created)
	return created, nil
}
