package form

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/pkg/options"
)

// Submit outcomes recorded through Metrics.
const (
	OutcomeSuccess        = "success"
	OutcomeValidation     = "validation"
	OutcomeStale          = "stale_selection"
	OutcomeReauthenticate = "reauthenticate"
	OutcomeServerFields   = "server_fields"
	OutcomeUnclassified   = "unclassified"
	OutcomeRejected       = "rejected"
)

type submitSnapshot struct {
	values map[string]string
	sets   map[string]options.Set
}

// Submit validates the form, resolves option-backed display values to
// identifiers, builds the payload and dispatches it to the sink as a create
// or an update. At most one submit runs at a time; a second call while one is
// in flight returns ErrSubmitInFlight without touching the sink.
//
// Returned errors are one of *ValidationError, *StaleSelectionError,
// *ReauthenticateError, *ServerFieldError, *UnclassifiedError, ErrClosed or
// ErrSubmitInFlight. Local failures never reach the sink.
func (e *Engine) Submit(ctx context.Context) (Submission, error) {
	snap, err := e.beginSubmit()
	if err != nil {
		e.metrics.Submitted(e.schema.Kind, OutcomeRejected)
		return Submission{}, err
	}
	defer e.endSubmit()

	payload, err := e.buildPayload(snap)
	if err != nil {
		e.metrics.Submitted(e.schema.Kind, outcomeOf(err))
		e.logger.WithError(err).Debug("form: submit rejected locally")
		return Submission{}, err
	}

	mode := e.Mode()
	var id string
	if mode == ModeUpdate {
		id, err = e.sink.Update(ctx, e.schema.Kind, e.editID, payload)
		if err == nil && id == "" {
			id = e.editID
		}
	} else {
		id, err = e.sink.Create(ctx, e.schema.Kind, payload)
	}
	if err != nil {
		classified := classifySubmitError(err, e.labels())
		outcome := outcomeOf(classified)
		e.metrics.Submitted(e.schema.Kind, outcome)
		e.logger.WithError(err).WithFields(logrus.Fields{
			"mode":    mode,
			"outcome": outcome,
		}).Warn("form: submit failed")
		return Submission{}, classified
	}

	e.mu.Lock()
	if !e.closed {
		e.dirty = make(map[string]struct{})
	}
	e.mu.Unlock()

	e.metrics.Submitted(e.schema.Kind, OutcomeSuccess)
	e.logger.WithFields(logrus.Fields{"mode": mode, "id": id}).Info("form: submitted")
	return Submission{ID: id, Mode: mode, Payload: payload}, nil
}

func (e *Engine) beginSubmit() (submitSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return submitSnapshot{}, ErrClosed
	}
	if e.submitting {
		return submitSnapshot{}, ErrSubmitInFlight
	}
	e.submitting = true

	snap := submitSnapshot{
		values: make(map[string]string, len(e.values)),
		sets:   make(map[string]options.Set, len(e.optStates)),
	}
	for k, v := range e.values {
		snap.values[k] = v
	}
	for k, st := range e.optStates {
		snap.sets[k] = st.Set
	}
	return snap, nil
}

func (e *Engine) endSubmit() {
	e.mu.Lock()
	e.submitting = false
	e.mu.Unlock()
}

// buildPayload runs the local checks in order: required fields, field
// rules, option resolution and scalar coercion.
func (e *Engine) buildPayload(snap submitSnapshot) (Payload, error) {
	for _, f := range e.schema.Fields {
		if f.Required && strings.TrimSpace(snap.values[f.Name]) == "" {
			return nil, &ValidationError{Message: MissingRequiredMessage}
		}
	}

	for _, f := range e.schema.Fields {
		value := strings.TrimSpace(snap.values[f.Name])
		if value == "" || f.OptionBacked() {
			continue
		}
		if err := checkRules(f, value); err != nil {
			return nil, err
		}
	}

	payload := make(Payload, len(e.schema.Fields))
	for _, f := range e.schema.Fields {
		raw := snap.values[f.Name]
		if !f.OptionBacked() {
			continue
		}
		display := strings.TrimSpace(raw)
		if display == "" {
			payload[f.payloadKey()] = nil
			continue
		}
		opt, matches := snap.sets[f.Name].ByDisplay(display)
		if matches == 0 {
			return nil, &StaleSelectionError{Field: f.Name, Label: f.label(), Value: display}
		}
		payload[f.payloadKey()] = opt.ID
	}

	for _, f := range e.schema.Fields {
		if f.OptionBacked() {
			continue
		}
		v, err := coerce(f, snap.values[f.Name])
		if err != nil {
			return nil, err
		}
		payload[f.payloadKey()] = v
	}
	return payload, nil
}

// labels maps both field names and payload keys to display labels so server
// errors keyed either way read naturally.
func (e *Engine) labels() map[string]string {
	out := make(map[string]string, 2*len(e.schema.Fields))
	for _, f := range e.schema.Fields {
		if f.Label == "" {
			continue
		}
		out[f.Name] = f.Label
		out[f.payloadKey()] = f.Label
	}
	return out
}

func outcomeOf(err error) string {
	var (
		validation *ValidationError
		stale      *StaleSelectionError
		reauth     *ReauthenticateError
		fields     *ServerFieldError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &validation):
		return OutcomeValidation
	case errors.As(err, &stale):
		return OutcomeStale
	case errors.As(err, &reauth):
		return OutcomeReauthenticate
	case errors.As(err, &fields):
		return OutcomeServerFields
	case errors.Is(err, ErrClosed), errors.Is(err, ErrSubmitInFlight):
		return OutcomeRejected
	default:
		return OutcomeUnclassified
	}
}
