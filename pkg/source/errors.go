package source

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies collaborator failures.
type Kind string

const (
	// KindNetwork is a transient transport failure; callers may retry.
	KindNetwork Kind = "network"
	// KindUnauthorized means the session is missing or expired.
	KindUnauthorized Kind = "unauthorized"
	// KindServer is any other backend failure. Fields carries structured
	// validation messages when the backend returned them.
	KindServer Kind = "server"
)

// ErrMissingSession is reported when no bearer credential is available.
var ErrMissingSession = errors.New("source: missing session credential")

// Error is the single error type adapters return.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	// Fields maps a field name to a message, a list of messages, or a nested
	// map with the same shape.
	Fields map[string]any
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// HasFields reports whether the backend returned field-addressable messages.
func (e *Error) HasFields() bool {
	return e != nil && len(e.Fields) > 0
}

// NetworkError wraps err as a transient failure.
func NetworkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// UnauthorizedError wraps err as an authorization failure.
func UnauthorizedError(op string, err error) *Error {
	return &Error{Kind: KindUnauthorized, Op: op, Err: err}
}

// ServerError builds a server failure, optionally carrying field errors.
func ServerError(op string, status int, fields map[string]any, err error) *Error {
	return &Error{Kind: KindServer, Op: op, Status: status, Fields: fields, Err: err}
}

// KindOf returns the kind carried by err. Errors that are not *Error are
// classified heuristically: net.Error and deadline errors are transient,
// ErrMissingSession is unauthorized, anything else is a server failure.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var srcErr *Error
	if errors.As(err, &srcErr) && srcErr != nil {
		return srcErr.Kind
	}
	if errors.Is(err, ErrMissingSession) {
		return KindUnauthorized
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindServer
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	return KindOf(err) == KindNetwork
}

// IsUnauthorized reports whether err signals a missing or expired session.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// FieldErrorsOf returns the structured field errors carried by err, if any.
func FieldErrorsOf(err error) map[string]any {
	var srcErr *Error
	if errors.As(err, &srcErr) && srcErr != nil {
		return srcErr.Fields
	}
	return nil
}
