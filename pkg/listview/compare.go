package listview

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"
)

// compareValues orders two field values by their natural type order. Missing
// values sort before present ones; mismatched types fall back to their
// printed form.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if c, ok := compareNumbers(a, b); ok {
		return c
	}

	switch va := a.(type) {
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb)
		}
	case string:
		if vb, ok := b.(string); ok {
			return strings.Compare(va, vb)
		}
	case bool:
		if vb, ok := b.(bool); ok {
			return compareOrdered(boolRank(va), boolRank(vb))
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareOrdered[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolRank(v bool) int {
	if v {
		return 1
	}
	return 0
}

// compareNumbers orders two numeric values of any Go number type or
// decimal.Decimal. Integers and decimals compare exactly; only non-finite
// floats are compared as floats.
func compareNumbers(a, b any) (int, bool) {
	fa, ok := toFloat(a)
	if !ok {
		return 0, false
	}
	fb, ok := toFloat(b)
	if !ok {
		return 0, false
	}
	_, aFloat := a.(float64)
	_, bFloat := b.(float64)
	if (aFloat && bFloat) || !finite(fa) || !finite(fb) {
		return compareOrdered(fa, fb), true
	}
	return exactNumber(a).Cmp(exactNumber(b)), true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	default:
		return 0, false
	}
}

// exactNumber converts a finite number accepted by toFloat into a decimal
// without going through float64 for integers.
func exactNumber(v any) decimal.Decimal {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n))
	case int8:
		return decimal.NewFromInt(int64(n))
	case int16:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(n)), 0)
	case uint8:
		return decimal.NewFromInt(int64(n))
	case uint16:
		return decimal.NewFromInt(int64(n))
	case uint32:
		return decimal.NewFromInt(int64(n))
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0)
	case float32:
		return decimal.NewFromFloat32(n)
	case float64:
		return decimal.NewFromFloat(n)
	case decimal.Decimal:
		return n
	default:
		return decimal.Zero
	}
}

// searchText renders a field value the way it is matched against the search
// term.
func searchText(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case time.Time:
		return typed.Format("2006-01-02")
	case decimal.Decimal:
		return typed.String()
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

func matches(value any, lowerTerm string, mode MatchMode) bool {
	if value == nil {
		return false
	}
	text := strings.ToLower(searchText(value))
	if mode == MatchFuzzy {
		return fuzzy.Match(lowerTerm, text)
	}
	return strings.Contains(text, lowerTerm)
}
