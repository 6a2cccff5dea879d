package form

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// checkRules runs the field's validator tags against a non-empty value.
// Numeric fields are coerced first so gt/lt compare magnitudes rather than
// string lengths.
func checkRules(f Field, value string) error {
	if f.Rules == "" {
		return nil
	}
	var operand any = value
	if f.numeric() {
		typed, err := coerce(f, value)
		if err != nil {
			return err
		}
		operand = ruleOperand(typed)
	}
	err := validate.Var(operand, f.Rules)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		// Invalid tag syntax is a schema bug, not user input.
		return fmt.Errorf("form: field %q rules %q: %w", f.Name, f.Rules, err)
	}
	return &ValidationError{Field: f.label(), Message: ruleMessage(verrs[0])}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "numeric", "number":
		return "must be a number"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("is invalid (%s)", fe.Tag())
	}
}

// ruleOperand converts a coerced value into a kind the validator compares
// numerically.
func ruleOperand(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return v
}
