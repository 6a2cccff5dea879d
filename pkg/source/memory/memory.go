// Package memory provides an in-process record store used by tests, demos and
// the CLI when no backend is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/source"
)

// Store keeps records per kind in insertion order. Records handed in or out
// are copied.
type Store struct {
	mu      sync.RWMutex
	records map[string][]source.Record
	newID   func() string
}

var _ source.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid generator used by Create.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records: make(map[string][]source.Record),
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Seed appends records to kind. Records without an "id" get one.
func (s *Store) Seed(kind string, records ...source.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		clone := rec.Clone()
		if clone == nil {
			clone = source.Record{}
		}
		if _, ok := clone.Get("id"); !ok {
			clone["id"] = s.newID()
		}
		s.records[kind] = append(s.records[kind], clone)
	}
}

// Fetch returns copies of every record of kind.
func (s *Store) Fetch(ctx context.Context, kind string) ([]source.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, source.NetworkError("fetch "+kind, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.records[kind]
	out := make([]source.Record, 0, len(stored))
	for _, rec := range stored {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Create stores payload under a fresh identifier.
func (s *Store) Create(ctx context.Context, kind string, payload map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", source.NetworkError("create "+kind, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	rec := make(source.Record, len(payload)+1)
	for k, v := range payload {
		rec[k] = v
	}
	rec["id"] = id
	s.records[kind] = append(s.records[kind], rec)
	return id, nil
}

// Update merges payload into the record with id.
func (s *Store) Update(ctx context.Context, kind, id string, payload map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", source.NetworkError("update "+kind, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.records[kind] {
		if rec.String("id") != id {
			continue
		}
		next := rec.Clone()
		for k, v := range payload {
			next[k] = v
		}
		next["id"] = rec["id"]
		s.records[kind][i] = next
		return id, nil
	}
	return "", source.ServerError("update "+kind, 404, nil, fmt.Errorf("record %q not found", id))
}

// Get returns a copy of the record with id.
func (s *Store) Get(kind, id string) (source.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records[kind] {
		if rec.String("id") == id {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// Len returns the number of records of kind.
func (s *Store) Len(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[kind])
}
