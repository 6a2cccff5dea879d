// Package listview turns a raw record collection plus a user query into the
// exact page of rows a table renders: filter by search text, sort by one
// field, slice one page.
//
// The pipeline itself (Materialize) is pure. Engine holds the mutable Query
// for one screen instance and Screen adds the record source fetch.
package listview

import "strings"

// Direction is the sort direction of a Query.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// ParseDirection accepts "asc"/"desc" (any case, with "ascending" and
// "descending" spelled out). Anything else is Ascending.
func ParseDirection(raw string) Direction {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "desc", "descending":
		return Descending
	default:
		return Ascending
	}
}

// DefaultPageSize is used when neither the schema nor an option sets one.
const DefaultPageSize = 10

// Query is the user-controlled part of a list screen.
type Query struct {
	SearchTerm    string
	SortField     string
	SortDirection Direction
	Page          int
	PageSize      int
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.SortDirection == "" {
		q.SortDirection = Ascending
	}
	return q
}

// TotalPages returns ceil(count/pageSize) with a minimum of 1.
func TotalPages(count, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	return (count-1)/pageSize + 1
}
