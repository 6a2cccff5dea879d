package memory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/source"
)

// SeedDocument loads a YAML or JSON document of the form
//
//	sites:
//	  - {id: "1", name: Harbor}
//
// and returns the number of records added. Kinds are seeded in name order.
func (s *Store) SeedDocument(data []byte) (int, error) {
	var doc map[string][]map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("memory: parse seed document: %w", err)
	}
	kinds := make([]string, 0, len(doc))
	for kind := range doc {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	total := 0
	for _, kind := range kinds {
		rows := doc[kind]
		records := make([]source.Record, 0, len(rows))
		for _, row := range rows {
			records = append(records, source.Record(row))
		}
		s.Seed(kind, records...)
		total += len(records)
	}
	return total, nil
}

// SeedFile reads path and passes it to SeedDocument.
func (s *Store) SeedFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("memory: read seed file: %w", err)
	}
	return s.SeedDocument(data)
}
