package schema

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/options"
)

// Extensions read from OpenAPI documents.
const (
	// KindExtension on an operation names the written record kind; the last
	// static path segment is used otherwise.
	KindExtension = "x-formflow-kind"
	// OptionsExtension on a property makes it option-backed:
	//   x-formflow-options: {kind: sites, display: [name], id: id}
	OptionsExtension = "x-formflow-options"
	// OrderExtension on a property sets its position; unordered properties
	// follow in name order.
	OrderExtension = "x-formflow-order"
)

// FormFromOpenAPI builds a form schema from the JSON request body of the
// operation with operationID.
func FormFromOpenAPI(ctx context.Context, data []byte, operationID string) (form.Schema, error) {
	if len(data) == 0 {
		return form.Schema{}, errors.New("schema: openapi document is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return form.Schema{}, fmt.Errorf("schema: load openapi document: %w", err)
	}

	op, opPath := findOperation(doc, operationID)
	if op == nil {
		return form.Schema{}, fmt.Errorf("schema: operation %q not found", operationID)
	}
	body := requestSchema(op.RequestBody)
	if body == nil || len(body.Properties) == 0 {
		return form.Schema{}, fmt.Errorf("schema: operation %q has no object request body", operationID)
	}

	kind := kindFor(op, opPath)
	required := make(map[string]struct{}, len(body.Required))
	for _, name := range body.Required {
		required[name] = struct{}{}
	}

	out := form.Schema{Kind: kind}
	for _, name := range orderedProperties(body.Properties) {
		prop := body.Properties[name]
		if prop == nil || prop.Value == nil || prop.Value.ReadOnly {
			continue
		}
		_, isRequired := required[name]
		field, err := fieldFromProperty(name, prop.Value, isRequired)
		if err != nil {
			return form.Schema{}, fmt.Errorf("schema: operation %q property %q: %w", operationID, name, err)
		}
		out.Fields = append(out.Fields, field)
	}
	if err := out.Validate(); err != nil {
		return form.Schema{}, fmt.Errorf("schema: operation %q: %w", operationID, err)
	}
	return out, nil
}

func findOperation(doc *openapi3.T, operationID string) (*openapi3.Operation, string) {
	if doc == nil || doc.Paths == nil {
		return nil, ""
	}
	for p, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op, p
			}
		}
	}
	return nil, ""
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	mt := body.Value.Content.Get("application/json")
	if mt == nil {
		for _, candidate := range body.Value.Content {
			mt = candidate
			break
		}
	}
	if mt == nil || mt.Schema == nil {
		return nil
	}
	return mt.Schema.Value
}

func kindFor(op *openapi3.Operation, opPath string) string {
	if raw, ok := op.Extensions[KindExtension].(string); ok && strings.TrimSpace(raw) != "" {
		return strings.TrimSpace(raw)
	}
	segments := strings.Split(strings.Trim(opPath, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg != "" && !strings.HasPrefix(seg, "{") {
			return seg
		}
	}
	return path.Base(opPath)
}

func orderedProperties(props openapi3.Schemas) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	order := func(name string) (float64, bool) {
		prop := props[name]
		if prop == nil || prop.Value == nil {
			return 0, false
		}
		v, ok := prop.Value.Extensions[OrderExtension].(float64)
		return v, ok
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, hasI := order(names[i])
		oj, hasJ := order(names[j])
		switch {
		case hasI && hasJ && oi != oj:
			return oi < oj
		case hasI != hasJ:
			return hasI
		default:
			return names[i] < names[j]
		}
	})
	return names
}

func fieldFromProperty(name string, prop *openapi3.Schema, required bool) (form.Field, error) {
	field := form.Field{
		Name:     name,
		Label:    prop.Title,
		Required: required,
		Type:     hintFor(prop),
		Rules:    rulesFor(prop),
	}
	if raw, ok := prop.Extensions[OptionsExtension]; ok {
		src, err := optionSource(raw)
		if err != nil {
			return form.Field{}, err
		}
		field.Options = src
		field.Type = ""
		field.Rules = ""
	}
	return field, nil
}

func hintFor(prop *openapi3.Schema) form.TypeHint {
	switch {
	case prop.Type.Is(openapi3.TypeInteger):
		return form.HintInt
	case prop.Type.Is(openapi3.TypeNumber):
		if prop.Format == "decimal" || prop.Format == "money" {
			return form.HintDecimal
		}
		return form.HintFloat
	case prop.Type.Is(openapi3.TypeBoolean):
		return form.HintBool
	case prop.Type.Is(openapi3.TypeString):
		switch prop.Format {
		case "date":
			return form.HintDate
		case "decimal":
			return form.HintDecimal
		}
		return form.HintString
	default:
		return form.HintString
	}
}

// rulesFor translates string constraints into validator tags.
func rulesFor(prop *openapi3.Schema) string {
	if !prop.Type.Is(openapi3.TypeString) || prop.Format == "decimal" {
		return ""
	}
	var rules []string
	if prop.MinLength > 0 {
		rules = append(rules, fmt.Sprintf("min=%d", prop.MinLength))
	}
	if prop.MaxLength != nil {
		rules = append(rules, fmt.Sprintf("max=%d", *prop.MaxLength))
	}
	switch prop.Format {
	case "email":
		rules = append(rules, "email")
	case "uuid":
		rules = append(rules, "uuid")
	case "uri", "url":
		rules = append(rules, "url")
	}
	if len(prop.Enum) > 0 {
		values := make([]string, 0, len(prop.Enum))
		for _, v := range prop.Enum {
			s, ok := v.(string)
			if !ok || strings.ContainsAny(s, " ,") {
				values = nil
				break
			}
			values = append(values, s)
		}
		if len(values) > 0 {
			rules = append(rules, "oneof="+strings.Join(values, " "))
		}
	}
	return strings.Join(rules, ",")
}

func optionSource(raw any) (*form.OptionSource, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", OptionsExtension)
	}
	kind, _ := m["kind"].(string)
	if strings.TrimSpace(kind) == "" {
		return nil, fmt.Errorf("%s.kind is required", OptionsExtension)
	}
	src := &form.OptionSource{Kind: strings.TrimSpace(kind)}
	src.Mapping = options.Mapping{
		IDField:       stringValue(m["id"]),
		Separator:     stringValue(m["separator"]),
		DisplayFields: stringList(m["display"]),
		ExtraFields:   stringList(m["extra"]),
	}
	return src, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func stringList(v any) []string {
	switch typed := v.(type) {
	case string:
		if s := strings.TrimSpace(typed); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
