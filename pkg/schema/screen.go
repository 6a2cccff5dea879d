// Package schema loads declarative screen definitions (list columns, search
// and sort fields, form fields and their option sources) from YAML or JSON
// files, and derives form schemas from OpenAPI request bodies.
package schema

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/listview"
	"github.com/goliatone/go-formflow/pkg/options"
)

// Screen describes one record kind's list and create/edit screens.
type Screen struct {
	Name  string      `json:"name" yaml:"name"`
	Kind  string      `json:"kind" yaml:"kind"`
	Title string      `json:"title,omitempty" yaml:"title,omitempty"`
	List  *ListConfig `json:"list,omitempty" yaml:"list,omitempty"`
	Form  *FormConfig `json:"form,omitempty" yaml:"form,omitempty"`
}

// ListConfig configures the list screen.
type ListConfig struct {
	Columns     []Column `json:"columns,omitempty" yaml:"columns,omitempty"`
	Searchable  []string `json:"searchable,omitempty" yaml:"searchable,omitempty"`
	Sortable    []string `json:"sortable,omitempty" yaml:"sortable,omitempty"`
	DefaultSort string   `json:"defaultSort,omitempty" yaml:"defaultSort,omitempty"`
	Direction   string   `json:"direction,omitempty" yaml:"direction,omitempty"`
	PageSize    int      `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	Match       string   `json:"match,omitempty" yaml:"match,omitempty"`
}

// Column is one rendered table column.
type Column struct {
	Field string `json:"field" yaml:"field"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// FormConfig configures the create/edit screen.
type FormConfig struct {
	Fields []FieldConfig `json:"fields" yaml:"fields"`
}

// FieldConfig mirrors form.Field in file form.
type FieldConfig struct {
	Name       string         `json:"name" yaml:"name"`
	Label      string         `json:"label,omitempty" yaml:"label,omitempty"`
	Required   bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Type       string         `json:"type,omitempty" yaml:"type,omitempty"`
	Rules      string         `json:"rules,omitempty" yaml:"rules,omitempty"`
	PayloadKey string         `json:"payloadKey,omitempty" yaml:"payloadKey,omitempty"`
	RecordKey  string         `json:"recordKey,omitempty" yaml:"recordKey,omitempty"`
	Options    *OptionsConfig `json:"options,omitempty" yaml:"options,omitempty"`
}

// OptionsConfig names the record kind backing a dropdown and how its
// records map onto options.
type OptionsConfig struct {
	Kind      string   `json:"kind" yaml:"kind"`
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Display   []string `json:"display,omitempty" yaml:"display,omitempty"`
	Separator string   `json:"separator,omitempty" yaml:"separator,omitempty"`
	Extra     []string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// ListSchema converts the list configuration.
func (s Screen) ListSchema() (listview.Schema, error) {
	if s.List == nil {
		return listview.Schema{}, fmt.Errorf("schema: screen %q has no list configuration", s.Name)
	}
	cfg := s.List
	match := listview.MatchMode(strings.ToLower(strings.TrimSpace(cfg.Match)))
	switch match {
	case "":
		match = listview.MatchSubstring
	case listview.MatchSubstring, listview.MatchFuzzy:
	default:
		return listview.Schema{}, fmt.Errorf("schema: screen %q has unknown match mode %q", s.Name, cfg.Match)
	}
	if cfg.PageSize < 0 {
		return listview.Schema{}, fmt.Errorf("schema: screen %q has negative page size", s.Name)
	}

	out := listview.Schema{
		Searchable:       append([]string(nil), cfg.Searchable...),
		Sortable:         append([]string(nil), cfg.Sortable...),
		DefaultSort:      cfg.DefaultSort,
		DefaultDirection: listview.ParseDirection(cfg.Direction),
		PageSize:         cfg.PageSize,
		Match:            match,
	}
	if out.DefaultSort != "" && !out.CanSort(out.DefaultSort) {
		return listview.Schema{}, fmt.Errorf("schema: screen %q default sort %q is not sortable", s.Name, out.DefaultSort)
	}
	return out, nil
}

// ColumnsOrDefault returns the configured columns, or one column per
// searchable field when none are configured.
func (s Screen) ColumnsOrDefault() []Column {
	if s.List == nil {
		return nil
	}
	if len(s.List.Columns) > 0 {
		return append([]Column(nil), s.List.Columns...)
	}
	out := make([]Column, 0, len(s.List.Searchable))
	for _, field := range s.List.Searchable {
		out = append(out, Column{Field: field})
	}
	return out
}

// FormSchema converts the form configuration and validates it.
func (s Screen) FormSchema() (form.Schema, error) {
	if s.Form == nil {
		return form.Schema{}, fmt.Errorf("schema: screen %q has no form configuration", s.Name)
	}
	out := form.Schema{Kind: s.Kind, Fields: make([]form.Field, 0, len(s.Form.Fields))}
	for _, fc := range s.Form.Fields {
		field := form.Field{
			Name:       strings.TrimSpace(fc.Name),
			Label:      fc.Label,
			Required:   fc.Required,
			Type:       form.TypeHint(strings.ToLower(strings.TrimSpace(fc.Type))),
			Rules:      fc.Rules,
			PayloadKey: fc.PayloadKey,
			RecordKey:  fc.RecordKey,
		}
		if fc.Options != nil {
			field.Options = &form.OptionSource{
				Kind: fc.Options.Kind,
				Mapping: options.Mapping{
					IDField:       fc.Options.ID,
					DisplayFields: append([]string(nil), fc.Options.Display...),
					Separator:     fc.Options.Separator,
					ExtraFields:   append([]string(nil), fc.Options.Extra...),
				},
			}
		}
		out.Fields = append(out.Fields, field)
	}
	if err := out.Validate(); err != nil {
		return form.Schema{}, fmt.Errorf("schema: screen %q: %w", s.Name, err)
	}
	return out, nil
}

// OptionKinds lists the record kinds the form's dropdowns load, in field
// order without duplicates.
func (s Screen) OptionKinds() []string {
	if s.Form == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, f := range s.Form.Fields {
		if f.Options == nil || f.Options.Kind == "" {
			continue
		}
		if _, ok := seen[f.Options.Kind]; ok {
			continue
		}
		seen[f.Options.Kind] = struct{}{}
		out = append(out, f.Options.Kind)
	}
	return out
}
