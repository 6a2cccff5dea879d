// Package prompt drives a form engine from an interactive terminal: option
// backed fields become select prompts over the loaded display values and
// scalar fields become text inputs.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/options"
)

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrCancelled is returned when the user declines to retry.
	ErrCancelled = errors.New("prompt: cancelled")
)

// noneOption lets the user clear an optional dropdown.
const noneOption = "(none)"

// Session fills and submits one form.
type Session struct {
	engine *form.Engine
	driver Driver
	logger *logrus.Entry
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New binds engine to driver. The engine must already be mounted.
func New(engine *form.Engine, driver Driver, opts ...Option) (*Session, error) {
	if engine == nil {
		return nil, errors.New("prompt: engine is required")
	}
	if driver == nil {
		return nil, errors.New("prompt: driver is required")
	}
	s := &Session{engine: engine, driver: driver, logger: logging.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Run fills every field, then submits. Local validation failures and server
// field errors are printed and the user may correct the form and try again.
// Stale selections re-prompt only the stale field.
func (s *Session) Run(ctx context.Context) (form.Submission, error) {
	if err := s.Fill(ctx); err != nil {
		return form.Submission{}, err
	}
	for {
		sub, err := s.engine.Submit(ctx)
		if err == nil {
			return sub, nil
		}
		for _, msg := range form.UserMessages(err) {
			if infoErr := s.driver.Info(ctx, msg); infoErr != nil {
				return form.Submission{}, infoErr
			}
		}
		if form.NeedsReauthentication(err) {
			return form.Submission{}, err
		}

		var stale *form.StaleSelectionError
		if errors.As(err, &stale) {
			field, ok := s.engine.Schema().Field(stale.Field)
			if !ok {
				return form.Submission{}, err
			}
			if err := s.fillField(ctx, field); err != nil {
				return form.Submission{}, err
			}
			continue
		}

		retry, confirmErr := s.driver.Confirm(ctx, ConfirmConfig{Message: "Edit and try again?", Default: true})
		if confirmErr != nil {
			return form.Submission{}, confirmErr
		}
		if !retry {
			return form.Submission{}, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		if err := s.Fill(ctx); err != nil {
			return form.Submission{}, err
		}
	}
}

// Fill prompts for every field in schema order.
func (s *Session) Fill(ctx context.Context) error {
	s.engine.Wait()
	for _, field := range s.engine.Schema().Fields {
		if err := s.fillField(ctx, field); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) fillField(ctx context.Context, field form.Field) error {
	if field.OptionBacked() {
		return s.fillSelect(ctx, field)
	}
	value, err := s.driver.Input(ctx, InputConfig{
		Message: labelOf(field) + ":",
		Default: s.engine.Value(field.Name),
		Help:    field.Rules,
		Validator: func(v string) error {
			if field.Required && v == "" {
				return errors.New(form.MissingRequiredMessage)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	return s.engine.UpdateField(field.Name, value)
}

func (s *Session) fillSelect(ctx context.Context, field form.Field) error {
	for {
		state := s.engine.OptionState(field.Name)
		switch state.Status {
		case options.StatusReady:
			return s.selectFrom(ctx, field, state.Set)
		case options.StatusFailed:
			if err := s.driver.Info(ctx, labelOf(field)+": "+state.Message); err != nil {
				return err
			}
			retry, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Reload " + labelOf(field) + "?", Default: true})
			if err != nil {
				return err
			}
			if !retry {
				return ErrCancelled
			}
			if err := s.engine.ReloadOptions(field.Name); err != nil {
				return err
			}
			s.engine.Wait()
		default:
			s.engine.Wait()
			if st := s.engine.OptionState(field.Name).Status; st != options.StatusReady && st != options.StatusFailed {
				return fmt.Errorf("prompt: options for %s are not loaded", field.Name)
			}
		}
	}
}

func (s *Session) selectFrom(ctx context.Context, field form.Field, set options.Set) error {
	choices := set.DisplayValues()
	if !field.Required {
		choices = append([]string{noneOption}, choices...)
	}
	if len(choices) == 0 {
		return fmt.Errorf("prompt: %s has no options to choose from", labelOf(field))
	}
	current := s.engine.Value(field.Name)
	def := indexOf(choices, current)
	if def < 0 {
		def = 0
	}
	idx, err := s.driver.Select(ctx, SelectConfig{
		Message:      labelOf(field) + ":",
		Options:      choices,
		DefaultIndex: def,
		PageSize:     10,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(choices) {
		return fmt.Errorf("prompt: invalid selection for %s", field.Name)
	}
	value := choices[idx]
	if value == noneOption && !field.Required {
		value = ""
	}
	s.logger.WithFields(logrus.Fields{"field": field.Name, "value": value}).Debug("prompt: selected")
	return s.engine.UpdateField(field.Name, value)
}

func labelOf(f form.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}
