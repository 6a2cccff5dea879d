// Package options models the id/display-value pairs that back a dropdown
// and the per-field load state machine used by the form engine.
package options

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/source"
)

// Option is one selectable entry. ID is the backend identifier sent on
// submit; DisplayValue is what the user sees and selects.
type Option struct {
	ID           string
	DisplayValue string
	Extra        map[string]any
}

// Set is an ordered option list for one field. A Set is never modified in
// place; loaders replace it wholesale.
type Set struct {
	items []Option
}

// NewSet copies items into a Set.
func NewSet(items []Option) Set {
	if len(items) == 0 {
		return Set{}
	}
	out := make([]Option, len(items))
	copy(out, items)
	return Set{items: out}
}

// Len returns the number of options.
func (s Set) Len() int {
	return len(s.items)
}

// Items returns a copy of the options.
func (s Set) Items() []Option {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]Option, len(s.items))
	copy(out, s.items)
	return out
}

// DisplayValues returns the display values in order.
func (s Set) DisplayValues() []string {
	out := make([]string, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.DisplayValue)
	}
	return out
}

// ByDisplay returns the first option whose display value equals value and
// the number of options that matched.
func (s Set) ByDisplay(value string) (Option, int) {
	var (
		first Option
		count int
	)
	for _, item := range s.items {
		if item.DisplayValue != value {
			continue
		}
		if count == 0 {
			first = item
		}
		count++
	}
	return first, count
}

// ByID returns the option with the given identifier.
func (s Set) ByID(id string) (Option, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Option{}, false
}

// Contains reports whether value is one of the display values.
func (s Set) Contains(value string) bool {
	_, n := s.ByDisplay(value)
	return n > 0
}

// Duplicates lists display values that occur more than once.
func (s Set) Duplicates() []string {
	seen := make(map[string]int, len(s.items))
	var dups []string
	for _, item := range s.items {
		seen[item.DisplayValue]++
		if seen[item.DisplayValue] == 2 {
			dups = append(dups, item.DisplayValue)
		}
	}
	return dups
}

// Mapping names the record fields that hold an option's id and display
// value. Display may be a template of several fields joined by Separator,
// e.g. first and last name.
type Mapping struct {
	IDField       string
	DisplayFields []string
	Separator     string
	ExtraFields   []string
}

// FromRecords converts raw records into a Set. Records without an id are
// skipped; an empty display falls back to the id.
func FromRecords(records []source.Record, m Mapping) Set {
	idField := m.IDField
	if idField == "" {
		idField = "id"
	}
	sep := m.Separator
	if sep == "" {
		sep = " "
	}

	items := make([]Option, 0, len(records))
	for _, rec := range records {
		id := IDString(rec[idField])
		if id == "" {
			continue
		}
		parts := make([]string, 0, len(m.DisplayFields))
		for _, field := range m.DisplayFields {
			if part := strings.TrimSpace(rec.String(field)); part != "" {
				parts = append(parts, part)
			}
		}
		display := strings.Join(parts, sep)
		if display == "" {
			display = id
		}
		opt := Option{ID: id, DisplayValue: display}
		if len(m.ExtraFields) > 0 {
			opt.Extra = make(map[string]any, len(m.ExtraFields))
			for _, field := range m.ExtraFields {
				if v, ok := rec.Get(field); ok {
					opt.Extra[field] = v
				}
			}
		}
		items = append(items, opt)
	}
	return Set{items: items}
}

// IDString normalises an identifier value read from a record.
func IDString(v any) string {
	if v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprint(typed)
	default:
		return fmt.Sprint(typed)
	}
}
