// Package source defines the record source and sink contracts consumed by the
// list and form engines, together with the error kinds every adapter reports.
//
// Adapters live in sub-packages: memory (in-process), httpsource (REST/JSON)
// and pgsource (PostgreSQL).
package source

import (
	"context"
	"fmt"
	"time"
)

// Record is an opaque field name to scalar value mapping. Values are usually
// string, a numeric type, bool, time.Time or decimal.Decimal.
type Record map[string]any

// Get returns the value stored under field. Missing fields and nil values
// report false.
func (r Record) Get(field string) (any, bool) {
	if r == nil {
		return nil, false
	}
	value, ok := r[field]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// String renders the value stored under field, or "" when it is missing.
func (r Record) String(field string) string {
	value, ok := r.Get(field)
	if !ok {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case time.Time:
		return typed.Format(time.RFC3339)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RecordSource supplies raw records for a kind (for example "payments",
// "sites" or "employees"). Implementations must honour ctx cancellation.
type RecordSource interface {
	Fetch(ctx context.Context, kind string) ([]Record, error)
}

// RecordSink persists form payloads. Both calls return the backend
// identifier of the written record.
type RecordSink interface {
	Create(ctx context.Context, kind string, payload map[string]any) (string, error)
	Update(ctx context.Context, kind, id string, payload map[string]any) (string, error)
}

// Store is a convenience union for adapters that implement both sides.
type Store interface {
	RecordSource
	RecordSink
}

// SourceFunc adapts a function into a RecordSource.
type SourceFunc func(ctx context.Context, kind string) ([]Record, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, kind string) ([]Record, error) {
	return f(ctx, kind)
}
