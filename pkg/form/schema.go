package form

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/options"
)

// TypeHint tells the payload builder how to coerce a scalar field.
type TypeHint string

const (
	HintString  TypeHint = "string"
	HintInt     TypeHint = "int"
	HintFloat   TypeHint = "float"
	HintDecimal TypeHint = "decimal"
	HintBool    TypeHint = "bool"
	HintDate    TypeHint = "date"
)

// OptionSource describes where an option-backed field loads its options.
type OptionSource struct {
	// Kind is the record kind requested from the record source.
	Kind    string
	Mapping options.Mapping
}

// Field declares one form field.
type Field struct {
	Name     string
	Label    string
	Required bool
	Type     TypeHint
	// Rules holds go-playground/validator tags applied after the required
	// check, e.g. "gt=0". Int, float and decimal fields are checked against
	// their coerced number; other fields against the trimmed display value.
	Rules string
	// Options makes the field option-backed.
	Options *OptionSource
	// PayloadKey is the submitted key; defaults to Name. Option-backed fields
	// usually submit under an id key such as "site_id".
	PayloadKey string
	// RecordKey is the key read from the initial record in edit mode;
	// defaults to PayloadKey.
	RecordKey string
}

// OptionBacked reports whether the field resolves through an option set.
func (f Field) OptionBacked() bool {
	return f.Options != nil
}

func (f Field) numeric() bool {
	switch f.Type {
	case HintInt, HintFloat, HintDecimal:
		return true
	}
	return false
}

func (f Field) payloadKey() string {
	if f.PayloadKey != "" {
		return f.PayloadKey
	}
	return f.Name
}

func (f Field) recordKey() string {
	if f.RecordKey != "" {
		return f.RecordKey
	}
	return f.payloadKey()
}

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Schema declares the fields of one create/edit screen.
type Schema struct {
	// Kind is the record kind written to the sink.
	Kind   string
	Fields []Field
}

// Field returns the named field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the schema for configuration mistakes.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Kind) == "" {
		return fmt.Errorf("form: schema kind is required")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("form: schema %q has no fields", s.Kind)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	keys := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("form: schema %q has a field without a name", s.Kind)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("form: duplicate field %q", name)
		}
		seen[name] = struct{}{}
		if other, dup := keys[f.payloadKey()]; dup {
			return fmt.Errorf("form: fields %q and %q share payload key %q", other, name, f.payloadKey())
		}
		keys[f.payloadKey()] = name
		if f.Options != nil && strings.TrimSpace(f.Options.Kind) == "" {
			return fmt.Errorf("form: option field %q has no source kind", name)
		}
		switch f.Type {
		case "", HintString, HintInt, HintFloat, HintDecimal, HintBool, HintDate:
		default:
			return fmt.Errorf("form: field %q has unknown type hint %q", name, f.Type)
		}
	}
	return nil
}
