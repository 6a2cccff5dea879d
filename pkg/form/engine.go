// Package form implements the dependent dropdown and validated submission
// workflow of create/edit screens.
//
// An Engine holds the display values the user sees, loads one option set per
// option-backed field concurrently, resolves selected display values back to
// backend identifiers on Submit and classifies the outcome.
package form

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/source"
)

// Mode tells whether Submit creates or updates.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// Payload is the submitted body: option-backed fields carry identifiers,
// scalar fields carry coerced values.
type Payload map[string]any

// Submission is the successful outcome of Submit.
type Submission struct {
	ID      string
	Mode    Mode
	Payload Payload
}

// Event is delivered to the change hook after every state change.
type Event struct {
	Field  string
	Value  string
	Status options.Status
}

// Engine is one form instance. It is safe for concurrent use.
type Engine struct {
	schema  Schema
	src     source.RecordSource
	sink    source.RecordSink
	policy  options.RetryPolicy
	logger  *logrus.Entry
	metrics Metrics
	strict  bool
	onEvent func(Event)

	editID  string
	initial source.Record

	mu         sync.Mutex
	values     map[string]string
	dirty      map[string]struct{}
	optStates  map[string]options.State
	pending    map[string]string
	mounted    bool
	closed     bool
	submitting bool

	ctx    context.Context
	cancel context.CancelFunc
	loads  errgroup.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithEditRecord opens the form in edit mode for record id. Initial display
// values come from rec; option-backed fields resolve rec's identifiers once
// their option sets are loaded.
func WithEditRecord(id string, rec source.Record) Option {
	return func(e *Engine) {
		e.editID = strings.TrimSpace(id)
		e.initial = rec.Clone()
	}
}

// WithRetryPolicy overrides the option load retry budget.
func WithRetryPolicy(p options.RetryPolicy) Option {
	return func(e *Engine) {
		if p.MaxRetries >= 0 {
			e.policy = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records option loads and submit outcomes.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithStrictOptions treats duplicate display values in a loaded option set
// as a configuration error instead of resolving to the first match.
func WithStrictOptions() Option {
	return func(e *Engine) {
		e.strict = true
	}
}

// WithChangeHook registers fn to run after every state change. fn runs on
// the goroutine that made the change and must not block.
func WithChangeHook(fn func(Event)) Option {
	return func(e *Engine) {
		e.onEvent = fn
	}
}

// New validates schema and constructs an unmounted Engine.
func New(schema Schema, src source.RecordSource, sink source.RecordSink, opts ...Option) (*Engine, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("form: record sink is required")
	}
	e := &Engine{
		schema:    schema,
		src:       src,
		sink:      sink,
		policy:    options.DefaultRetryPolicy,
		logger:    logging.Nop(),
		metrics:   nopMetrics{},
		values:    make(map[string]string, len(schema.Fields)),
		dirty:     make(map[string]struct{}),
		optStates: make(map[string]options.State),
		pending:   make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	hasOptions := false
	for _, f := range schema.Fields {
		if f.OptionBacked() {
			hasOptions = true
			e.optStates[f.Name] = options.State{Status: options.StatusIdle}
		}
	}
	if hasOptions && src == nil {
		return nil, errors.New("form: record source is required for option-backed fields")
	}

	e.logger = e.logger.WithField("form", schema.Kind)
	e.seedInitial()
	return e, nil
}

func (e *Engine) seedInitial() {
	if e.editID == "" && e.initial != nil {
		e.editID = options.IDString(e.initial["id"])
	}
	for _, f := range e.schema.Fields {
		e.values[f.Name] = ""
		if e.initial == nil {
			continue
		}
		raw, ok := e.initial.Get(f.recordKey())
		if !ok {
			continue
		}
		if f.OptionBacked() {
			if id := options.IDString(raw); id != "" {
				e.pending[f.Name] = id
			}
			continue
		}
		e.values[f.Name] = displayFromRecord(f, raw)
	}
}

// Mode reports whether Submit will create or update.
func (e *Engine) Mode() Mode {
	if e.editID != "" {
		return ModeUpdate
	}
	return ModeCreate
}

// Schema returns the form schema.
func (e *Engine) Schema() Schema {
	return e.schema
}

// Mount starts loading every option set concurrently and returns without
// waiting. A failure in one field never affects the others. ctx bounds the
// lifetime of the loads; Close cancels them.
func (e *Engine) Mount(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.mounted {
		e.mu.Unlock()
		return nil
	}
	e.mounted = true
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	for _, f := range e.schema.Fields {
		if f.OptionBacked() {
			e.startLoad(f)
		}
	}
	return nil
}

// ReloadOptions refetches one field's option set, replacing it wholesale on
// success. It is how a terminally failed field is retried by the user.
func (e *Engine) ReloadOptions(name string) error {
	f, ok := e.schema.Field(name)
	if !ok || !f.OptionBacked() {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if !e.mounted {
		e.mu.Unlock()
		return errors.New("form: not mounted")
	}
	e.mu.Unlock()

	e.startLoad(f)
	return nil
}

func (e *Engine) startLoad(f Field) {
	loader := &options.Loader{
		Name:   f.Name,
		Policy: e.policy,
		Logger: e.logger,
		Fetch: func(ctx context.Context) (options.Set, error) {
			records, err := e.src.Fetch(ctx, f.Options.Kind)
			if err != nil {
				return options.Set{}, err
			}
			return options.FromRecords(records, f.Options.Mapping), nil
		},
		OnState: func(s options.State) { e.applyOptionState(f, s) },
	}
	ctx := e.ctx
	e.loads.Go(func() error {
		final := loader.Load(ctx)
		e.metrics.OptionsLoaded(f.Options.Kind, final.Status, final.Attempts)
		return nil
	})
}

// applyOptionState is the completion callback of a loader. Nothing is
// mutated after Close.
func (e *Engine) applyOptionState(f Field, s options.State) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	prev := e.optStates[f.Name]
	if s.Status != options.StatusReady {
		// The last good set stays usable while reloading or after a failure.
		s.Set = prev.Set
	}
	if s.Status == options.StatusReady && e.strict {
		if dups := s.Set.Duplicates(); len(dups) > 0 {
			err := fmt.Errorf("form: options for %s contain duplicate display values %q", f.Name, dups)
			s = options.State{
				Status:   options.StatusFailed,
				Set:      prev.Set,
				Attempts: s.Attempts,
				Terminal: true,
				Err:      err,
				Message:  fmt.Sprintf("Options for %s are misconfigured.", f.label()),
			}
			e.logger.WithError(err).WithField("field", f.Name).Error("form: duplicate option display values")
		}
	}
	e.optStates[f.Name] = s

	events := []Event{{Field: f.Name, Value: e.values[f.Name], Status: s.Status}}
	if s.Status == options.StatusReady {
		if ev, ok := e.resolvePendingLocked(f, s.Set); ok {
			events = append(events, ev)
		}
	}
	e.mu.Unlock()

	for _, ev := range events {
		e.emit(ev)
	}
}

// resolvePendingLocked fills an untouched edit-mode field from its initial
// identifier once the option set is available.
func (e *Engine) resolvePendingLocked(f Field, set options.Set) (Event, bool) {
	id, ok := e.pending[f.Name]
	if !ok {
		return Event{}, false
	}
	if _, touched := e.dirty[f.Name]; touched || e.values[f.Name] != "" {
		delete(e.pending, f.Name)
		return Event{}, false
	}
	opt, found := set.ByID(id)
	if !found {
		// Keep waiting: a later reload may contain the record.
		e.logger.WithFields(logrus.Fields{"field": f.Name, "id": id}).Warn("form: initial identifier not in option set")
		return Event{}, false
	}
	delete(e.pending, f.Name)
	e.values[f.Name] = opt.DisplayValue
	return Event{Field: f.Name, Value: opt.DisplayValue, Status: options.StatusReady}, true
}

// Wait blocks until every option load started so far has finished.
func (e *Engine) Wait() {
	_ = e.loads.Wait()
}

// Close tears the form down: in-flight loads are cancelled and late
// completions are dropped. Option sets are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
	e.optStates = make(map[string]options.State)
}

// UpdateField assigns value to a field and marks it dirty. No validation
// happens here; Submit does it.
func (e *Engine) UpdateField(name, value string) error {
	if _, ok := e.schema.Field(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.values[name] = value
	e.dirty[name] = struct{}{}
	delete(e.pending, name)
	status := e.optStates[name].Status
	e.mu.Unlock()

	e.emit(Event{Field: name, Value: value, Status: status})
	return nil
}

// Value returns a field's current display value.
func (e *Engine) Value(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values[name]
}

// Values returns a copy of all display values.
func (e *Engine) Values() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Dirty lists the touched fields, sorted.
func (e *Engine) Dirty() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.dirty))
	for name := range e.dirty {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OptionState returns the load state of an option-backed field.
func (e *Engine) OptionState(name string) options.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.optStates[name]
}

// Submitting reports whether a submit is in flight.
func (e *Engine) Submitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

// Reset restores the initial values and clears the dirty set.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.dirty = make(map[string]struct{})
	e.pending = make(map[string]string)
	e.seedInitial()
	for _, f := range e.schema.Fields {
		if !f.OptionBacked() {
			continue
		}
		if st := e.optStates[f.Name]; st.Status == options.StatusReady {
			e.resolvePendingLocked(f, st.Set)
		}
	}
}

func (e *Engine) emit(ev Event) {
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}
