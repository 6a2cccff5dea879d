package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/source"
)

var (
	// ErrSubmitInFlight rejects a submit while another one is running.
	ErrSubmitInFlight = errors.New("form: submit already in flight")
	// ErrClosed is returned by operations on a torn-down form.
	ErrClosed = errors.New("form: closed")
	// ErrUnknownField is returned by UpdateField for undeclared names.
	ErrUnknownField = errors.New("form: unknown field")
)

// MissingRequiredMessage is the single message reported for empty required
// fields.
const MissingRequiredMessage = "Please fill in all required fields."

// GenericFailureMessage is shown for failures nothing more specific explains.
const GenericFailureMessage = "Something went wrong. Please try again."

// ValidationError is detected locally and never reaches the sink. Field is
// empty for the missing-required case, which does not name fields.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "form: validation: " + e.Message
	}
	return fmt.Sprintf("form: validation: %s: %s", e.Field, e.Message)
}

// StaleSelectionError reports an option-backed value that no longer matches
// any option of its field.
type StaleSelectionError struct {
	Field string
	Label string
	Value string
}

func (e *StaleSelectionError) Error() string {
	return fmt.Sprintf("form: stale selection %q for field %s", e.Value, e.Field)
}

// ReauthenticateError means the session is missing or expired.
type ReauthenticateError struct {
	Err error
}

func (e *ReauthenticateError) Error() string {
	return "form: reauthentication required: " + errString(e.Err)
}

func (e *ReauthenticateError) Unwrap() error { return e.Err }

// ServerFieldError carries the backend's field-level validation messages,
// flattened to "field: message" lines.
type ServerFieldError struct {
	Messages []string
	Err      error
}

func (e *ServerFieldError) Error() string {
	return "form: server rejected fields: " + strings.Join(e.Messages, "; ")
}

func (e *ServerFieldError) Unwrap() error { return e.Err }

// UnclassifiedError wraps any other submit failure.
type UnclassifiedError struct {
	Err error
}

func (e *UnclassifiedError) Error() string {
	return "form: submit failed: " + errString(e.Err)
}

func (e *UnclassifiedError) Unwrap() error { return e.Err }

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// classifySubmitError maps a sink failure onto the submit error taxonomy.
// Transient failures are not retried on submit and surface as unclassified.
func classifySubmitError(err error, labels map[string]string) error {
	switch {
	case source.IsUnauthorized(err):
		return &ReauthenticateError{Err: err}
	case len(source.FieldErrorsOf(err)) > 0:
		msgs := FlattenFieldErrors(source.FieldErrorsOf(err), labels)
		if len(msgs) == 0 {
			return &UnclassifiedError{Err: err}
		}
		return &ServerFieldError{Messages: msgs, Err: err}
	default:
		return &UnclassifiedError{Err: err}
	}
}

// UserMessages renders err as the messages shown to the user.
func UserMessages(err error) []string {
	if err == nil {
		return nil
	}
	var (
		validation *ValidationError
		stale      *StaleSelectionError
		reauth     *ReauthenticateError
		fields     *ServerFieldError
	)
	switch {
	case errors.As(err, &validation):
		if validation.Field == "" {
			return []string{validation.Message}
		}
		return []string{validation.Field + ": " + validation.Message}
	case errors.As(err, &stale):
		name := stale.Label
		if name == "" {
			name = stale.Field
		}
		return []string{fmt.Sprintf("%s: the selected option is no longer available. Please choose again.", name)}
	case errors.As(err, &reauth):
		return []string{"Your session has expired. Please sign in again."}
	case errors.As(err, &fields):
		return append([]string(nil), fields.Messages...)
	case errors.Is(err, ErrSubmitInFlight):
		return []string{"Your previous submission is still being processed."}
	default:
		return []string{GenericFailureMessage}
	}
}

// NeedsReauthentication reports whether err asks the caller to sign in again.
func NeedsReauthentication(err error) bool {
	var reauth *ReauthenticateError
	return errors.As(err, &reauth)
}
