package form

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var messagePolicy = bluemonday.StrictPolicy()

// FlattenFieldErrors turns a structured server error payload into one
// human-readable line per message. Nested maps are joined as
// "field: subfield: message". Form-level keys ("non_field_errors", "__all__",
// "detail", ...) produce the bare message. labels optionally renames
// top-level keys. Output is sorted by key path, messages keep server order.
func FlattenFieldErrors(fields map[string]any, labels map[string]string) []string {
	if len(fields) == 0 {
		return nil
	}
	var out []string
	flattenInto(&out, nil, fields, labels)
	return normalizeMessages(out)
}

func flattenInto(out *[]string, path []string, value any, labels map[string]string) {
	switch typed := value.(type) {
	case nil:
		return
	case string:
		appendMessage(out, path, typed)
	case []string:
		for _, msg := range typed {
			appendMessage(out, path, msg)
		}
	case []any:
		for _, item := range typed {
			flattenInto(out, path, item, labels)
		}
	case map[string]string:
		nested := make(map[string]any, len(typed))
		for k, v := range typed {
			nested[k] = v
		}
		flattenInto(out, path, nested, labels)
	case map[string][]string:
		nested := make(map[string]any, len(typed))
		for k, v := range typed {
			nested[k] = v
		}
		flattenInto(out, path, nested, labels)
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			segment := strings.TrimSpace(key)
			if len(path) == 0 {
				if label, ok := labels[segment]; ok && label != "" {
					segment = label
				}
			}
			next := path
			if !isFormLevelKey(segment) {
				next = append(append([]string(nil), path...), segment)
			}
			flattenInto(out, next, typed[key], labels)
		}
	default:
		appendMessage(out, path, fmt.Sprint(typed))
	}
}

func appendMessage(out *[]string, path []string, msg string) {
	msg = strings.TrimSpace(html.UnescapeString(messagePolicy.Sanitize(msg)))
	if msg == "" {
		return
	}
	if len(path) == 0 {
		*out = append(*out, msg)
		return
	}
	*out = append(*out, strings.Join(path, ": ")+": "+msg)
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "non-field-errors", "detail", "message":
		return true
	default:
		return false
	}
}
