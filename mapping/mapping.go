// Package mapping loads the curated canonical→variations dictionary and
// builds the immutable reverse index used for exact and fuzzy lookups.
package mapping

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

//go:embed meat_mapping.json
var embeddedDictionary []byte

// Entry is one (variation, canonical name) pair of the reverse index.
type Entry struct {
	Variation string
	Canonical string
}

// Table is the immutable mapping table. Built once at startup and safe to
// share across arbitrarily many concurrent lookups without locking.
type Table struct {
	byVariation map[string]string
	entries     []Entry
	canonical   []string
}

// Load reads a JSON object {canonicalName: [variations...]} from path and
// builds the reverse index. The value must be a non-empty object of
// string→array-of-strings; any violation returns an error.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return Parse(raw)
}

// LoadOrEmpty loads the dictionary from path, degrading to an empty table
// with a logged warning when loading fails. Mapping load failure is
// non-fatal: the engine keeps working on store-backed fuzzy search alone.
func LoadOrEmpty(path string) *Table {
	table, err := Load(path)
	if err != nil {
		log.Printf("[Mapping] Warning: %v, continuing with empty mapping table", err)
		return Empty()
	}
	return table
}

// Default builds the table from the dictionary embedded in the binary.
func Default() *Table {
	table, err := Parse(embeddedDictionary)
	if err != nil {
		// The embedded dictionary is validated by tests; reaching this
		// means a broken build.
		log.Printf("[Mapping] Warning: embedded dictionary invalid: %v", err)
		return Empty()
	}
	return table
}

// Empty returns a table with no entries.
func Empty() *Table {
	return &Table{byVariation: map[string]string{}}
}

// Parse builds a table from raw JSON dictionary bytes.
func Parse(raw []byte) (*Table, error) {
	var dict map[string][]string
	if err := json.Unmarshal(raw, &dict); err != nil {
		return nil, fmt.Errorf("failed to parse mapping dictionary: %w", err)
	}
	if len(dict) == 0 {
		return nil, fmt.Errorf("mapping dictionary is empty")
	}

	// Canonical names are iterated in sorted order so collision handling
	// (first-inserted wins) is deterministic across processes.
	names := make([]string, 0, len(dict))
	for name := range dict {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("mapping dictionary contains an empty canonical name")
		}
		names = append(names, name)
	}
	sort.Strings(names)

	t := &Table{
		byVariation: make(map[string]string),
		canonical:   names,
	}

	for _, name := range names {
		// Every canonical name maps to itself.
		t.insert(name, name)
		for _, variation := range dict[name] {
			t.insert(variation, name)
		}
	}

	sort.Slice(t.entries, func(i, j int) bool {
		if t.entries[i].Variation != t.entries[j].Variation {
			return t.entries[i].Variation < t.entries[j].Variation
		}
		return t.entries[i].Canonical < t.entries[j].Canonical
	})

	return t, nil
}

func (t *Table) insert(variation, canonical string) {
	key := strings.ToLower(strings.TrimSpace(variation))
	if key == "" {
		return
	}
	if existing, ok := t.byVariation[key]; ok {
		if existing != canonical {
			log.Printf("[Mapping] Conflict: variation %q claimed by %q and %q, keeping %q",
				key, existing, canonical, existing)
		}
		return
	}
	t.byVariation[key] = canonical
	t.entries = append(t.entries, Entry{Variation: key, Canonical: canonical})
}

// LookupExact returns the canonical name for a variation. The input is
// lowercased and trimmed before lookup.
func (t *Table) LookupExact(text string) (string, bool) {
	name, ok := t.byVariation[strings.ToLower(strings.TrimSpace(text))]
	return name, ok
}

// Entries returns the reverse-index pairs in deterministic order for fuzzy
// scans. Callers must not mutate the returned slice.
func (t *Table) Entries() []Entry {
	return t.entries
}

// CanonicalNames returns the sorted canonical names of the dictionary.
func (t *Table) CanonicalNames() []string {
	return t.canonical
}

// Len returns the number of reverse-index entries.
func (t *Table) Len() int {
	return len(t.entries)
}
