package listview

import (
	"sync"

	"github.com/goliatone/go-formflow/pkg/source"
)

// Engine owns the Query of one list screen. Mutators and Materialize may be
// called from different goroutines; Materialize works on a snapshot.
type Engine struct {
	mu     sync.RWMutex
	schema Schema
	query  Query
	// pages is the TotalPages of the most recent materialization, 0 before
	// the first one.
	pages int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize overrides the schema page size.
func WithPageSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.query.PageSize = size
		}
	}
}

// WithSort overrides the schema default sort.
func WithSort(field string, dir Direction) Option {
	return func(e *Engine) {
		e.query.SortField = field
		e.query.SortDirection = dir
	}
}

// WithSearchTerm seeds the search text, for example from a URL parameter.
func WithSearchTerm(term string) Option {
	return func(e *Engine) {
		e.query.SearchTerm = term
	}
}

// New constructs an Engine starting from schema.InitialQuery.
func New(schema Schema, opts ...Option) *Engine {
	e := &Engine{
		schema: schema,
		query:  schema.InitialQuery(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.query = e.query.normalized()
	return e
}

// Schema returns the engine schema.
func (e *Engine) Schema() Schema {
	return e.schema
}

// Query returns a snapshot of the current query.
func (e *Engine) Query() Query {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.query
}

// SetSearchTerm replaces the search text and returns to page 1. Sort is kept.
func (e *Engine) SetSearchTerm(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query.SearchTerm = text
	e.query.Page = 1
}

// SetSort toggles the direction when field is already the sort field,
// otherwise sorts ascending by field. The page is kept. Fields the schema
// does not allow are ignored.
func (e *Engine) SetSort(field string) {
	if !e.schema.CanSort(field) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.query.SortField == field {
		e.query.SortDirection = e.query.SortDirection.Toggle()
		return
	}
	e.query.SortField = field
	e.query.SortDirection = Ascending
}

// SetPage moves to page n and reports whether it did. Requests outside
// [1, TotalPages] of the last materialization are ignored.
func (e *Engine) SetPage(n int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n < 1 {
		return false
	}
	if e.pages > 0 && n > e.pages {
		return false
	}
	e.query.Page = n
	return true
}

// SetPageSize changes the page size and returns to page 1.
func (e *Engine) SetPageSize(size int) {
	if size < 1 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query.PageSize = size
	e.query.Page = 1
}

// Materialize runs the pipeline over records with the current query.
func (e *Engine) Materialize(records []source.Record) View {
	q := e.Query()
	view := Materialize(records, e.schema, q)

	e.mu.Lock()
	e.pages = view.TotalPages
	e.mu.Unlock()
	return view
}
