package form

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire layout of HintDate values.
const DateLayout = "2006-01-02"

// coerce converts a trimmed display value according to hint. Empty values of
// non-string hints become nil.
func coerce(f Field, raw string) (any, error) {
	value := strings.TrimSpace(raw)
	if f.Type == "" || f.Type == HintString {
		return raw, nil
	}
	if value == "" {
		return nil, nil
	}

	switch f.Type {
	case HintInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, &ValidationError{Field: f.label(), Message: "must be a whole number"}
		}
		return n, nil
	case HintFloat:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, &ValidationError{Field: f.label(), Message: "must be a number"}
		}
		return n, nil
	case HintDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, &ValidationError{Field: f.label(), Message: "must be a decimal number"}
		}
		return d, nil
	case HintBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, &ValidationError{Field: f.label(), Message: "must be true or false"}
		}
		return b, nil
	case HintDate:
		t, err := time.Parse(DateLayout, value)
		if err != nil {
			return nil, &ValidationError{Field: f.label(), Message: "must be a date (YYYY-MM-DD)"}
		}
		return t.Format(DateLayout), nil
	default:
		return raw, nil
	}
}

// displayFromRecord renders an initial record value for a scalar field.
func displayFromRecord(f Field, v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		if f.Type == HintDate {
			if t, err := time.Parse(time.RFC3339, typed); err == nil {
				return t.Format(DateLayout)
			}
		}
		return typed
	case time.Time:
		if f.Type == HintDate {
			return typed.Format(DateLayout)
		}
		return typed.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case decimal.Decimal:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}
