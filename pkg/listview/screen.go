package listview

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/source"
)

// Screen binds an Engine to a record source for one record kind. Loading
// and empty states are left to the caller; Screen only tracks whether the
// last refresh succeeded.
type Screen struct {
	kind   string
	src    source.RecordSource
	engine *Engine
	logger *logrus.Entry
	obs    RefreshObserver

	mu      sync.RWMutex
	records []source.Record
	loaded  bool
	lastErr error
}

// ScreenOption configures a Screen.
type ScreenOption func(*Screen)

// WithScreenLogger sets the logger used for refresh failures.
func WithScreenLogger(logger *logrus.Entry) ScreenOption {
	return func(s *Screen) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// RefreshObserver is notified after every Refresh.
type RefreshObserver interface {
	ListRefreshed(kind string, err error)
}

// WithRefreshObserver registers obs, typically a metrics collector.
func WithRefreshObserver(obs RefreshObserver) ScreenOption {
	return func(s *Screen) {
		s.obs = obs
	}
}

// NewScreen constructs a Screen. engine must not be nil.
func NewScreen(src source.RecordSource, kind string, engine *Engine, opts ...ScreenOption) (*Screen, error) {
	if src == nil {
		return nil, errors.New("listview: record source is required")
	}
	if kind == "" {
		return nil, errors.New("listview: record kind is required")
	}
	if engine == nil {
		return nil, errors.New("listview: engine is required")
	}
	s := &Screen{
		kind:   kind,
		src:    src,
		engine: engine,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Engine exposes the query mutators.
func (s *Screen) Engine() *Engine {
	return s.engine
}

// Refresh fetches the record collection. On failure the previous snapshot
// is kept and the error (a source error kind) is returned.
func (s *Screen) Refresh(ctx context.Context) error {
	records, err := s.src.Fetch(ctx, s.kind)
	if s.obs != nil {
		s.obs.ListRefreshed(s.kind, err)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"kind":     s.kind,
			"category": source.KindOf(err),
		}).Warn("listview: refresh failed")
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.records = records
	s.loaded = true
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"kind": s.kind, "count": len(records)}).Debug("listview: refreshed")
	return nil
}

// Loaded reports whether at least one refresh succeeded.
func (s *Screen) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Err returns the error of the last refresh, nil after a success.
func (s *Screen) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// View materializes the last fetched snapshot with the current query.
func (s *Screen) View() View {
	s.mu.RLock()
	records := s.records
	s.mu.RUnlock()
	return s.engine.Materialize(records)
}
