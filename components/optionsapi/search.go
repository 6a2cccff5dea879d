package optionsapi

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/source"
)

// Search filters records whose fields contain query, case-insensitively.
// Records where a field starts with the query come first; order is otherwise
// preserved.
func Search(records []source.Record, fields []string, query string, limit int, opts Options) []source.Record {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode != EmptySearchAll {
			return nil
		}
		if len(records) <= limit {
			return append([]source.Record{}, records...)
		}
		return append([]source.Record{}, records[:limit]...)
	}

	q := strings.ToLower(query)
	matches := make([]matchedRecord, 0, 32)
	for _, rec := range records {
		found, prefix := matchRecord(rec, fields, q)
		if !found {
			continue
		}
		matches = append(matches, matchedRecord{record: rec, isPrefix: prefix})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].isPrefix && !matches[j].isPrefix
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]source.Record, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.record)
	}
	return out
}

func matchRecord(rec source.Record, fields []string, q string) (found, prefix bool) {
	check := func(field string) {
		value := strings.ToLower(rec.String(field))
		if value == "" || !strings.Contains(value, q) {
			return
		}
		found = true
		if strings.HasPrefix(value, q) {
			prefix = true
		}
	}
	if len(fields) > 0 {
		for _, field := range fields {
			check(field)
		}
		return found, prefix
	}
	for field := range rec {
		check(field)
	}
	return found, prefix
}

type matchedRecord struct {
	record   source.Record
	isPrefix bool
}
