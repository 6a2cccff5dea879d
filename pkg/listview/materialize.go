package listview

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/source"
)

// View is the result of one materialization. StartIndex is the zero-based
// offset of the first row in the filtered set and EndIndex is exclusive.
type View struct {
	Rows       []source.Record
	TotalPages int
	TotalCount int
	StartIndex int
	EndIndex   int
	Query      Query
}

// Stale reports a page past the end of a non-empty result set. The engine
// does not correct this; callers move back with SetPage.
func (v View) Stale() bool {
	return len(v.Rows) == 0 && v.Query.Page > 1 && v.TotalCount > 0
}

// Materialize filters, sorts and paginates records. It never mutates records
// or q and never fails.
func Materialize(records []source.Record, schema Schema, q Query) View {
	q = q.normalized()

	filtered := filter(records, schema, q.SearchTerm)
	sortRecords(filtered, q.SortField, q.SortDirection)

	total := len(filtered)
	view := View{
		TotalCount: total,
		TotalPages: TotalPages(total, q.PageSize),
		Query:      q,
	}

	start, end := total, total
	// Compare page counts before multiplying so huge pages cannot overflow.
	if q.Page-1 < TotalPages(total, q.PageSize) {
		start = (q.Page - 1) * q.PageSize
		end = min(start+q.PageSize, total)
	}
	view.StartIndex = start
	view.EndIndex = end
	view.Rows = filtered[start:end:end]
	return view
}

func filter(records []source.Record, schema Schema, term string) []source.Record {
	out := make([]source.Record, 0, len(records))
	if term == "" {
		return append(out, records...)
	}

	lower := strings.ToLower(term)
	for _, rec := range records {
		for _, field := range schema.Searchable {
			value, ok := rec.Get(field)
			if !ok {
				continue
			}
			if matches(value, lower, schema.Match) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// sortRecords uses sort.Slice, so records with equal keys keep no particular
// relative order.
func sortRecords(records []source.Record, field string, dir Direction) {
	if field == "" || len(records) < 2 {
		return
	}
	less := func(i, j int) bool {
		a, _ := records[i].Get(field)
		b, _ := records[j].Get(field)
		if dir == Descending {
			return compareValues(a, b) > 0
		}
		return compareValues(a, b) < 0
	}
	sort.Slice(records, less)
}
