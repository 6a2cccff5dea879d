// Package formflow wires the list and form engines to a record store built
// from configuration and a catalog of screen definitions.
//
// A Runtime is the usual entry point:
//
//	rt, err := formflow.New(cat, store, formflow.WithLogger(logger))
//	list, err := rt.ListScreen("payments")
//	engine, err := rt.CreateForm("payments")
package formflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/internal/metrics"
	"github.com/goliatone/go-formflow/pkg/config"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/listview"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/source"
	"github.com/goliatone/go-formflow/pkg/source/httpsource"
	"github.com/goliatone/go-formflow/pkg/source/memory"
	"github.com/goliatone/go-formflow/pkg/source/pgsource"
)

// Runtime builds screens and forms for the screens in a catalog.
type Runtime struct {
	catalog  *schema.Catalog
	store    source.Store
	logger   *logrus.Entry
	metrics  *metrics.Collector
	policy   options.RetryPolicy
	strict   bool
	pageSize int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger handed to every engine.
func WithLogger(logger *logrus.Entry) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics registers collectors on reg and reports loads, submits and
// refreshes through them.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Runtime) {
		if reg != nil {
			r.metrics = metrics.New(reg)
		}
	}
}

// WithRetryPolicy overrides the option load retry budget.
func WithRetryPolicy(p options.RetryPolicy) Option {
	return func(r *Runtime) {
		r.policy = p
	}
}

// WithStrictOptions fails option loads whose display values collide.
func WithStrictOptions(strict bool) Option {
	return func(r *Runtime) {
		r.strict = strict
	}
}

// WithPageSize sets the page size used when a screen does not set one.
func WithPageSize(size int) Option {
	return func(r *Runtime) {
		if size > 0 {
			r.pageSize = size
		}
	}
}

// FromConfig applies the retry, strictness and page size settings of cfg.
func FromConfig(cfg *config.Config) Option {
	return func(r *Runtime) {
		if cfg == nil {
			return
		}
		r.policy = cfg.RetryPolicy()
		r.strict = cfg.StrictOptions
		if cfg.PageSize > 0 {
			r.pageSize = cfg.PageSize
		}
	}
}

// New constructs a Runtime over cat and store.
func New(cat *schema.Catalog, store source.Store, opts ...Option) (*Runtime, error) {
	if cat == nil {
		return nil, errors.New("formflow: catalog is required")
	}
	if store == nil {
		return nil, errors.New("formflow: store is required")
	}
	r := &Runtime{
		catalog:  cat,
		store:    store,
		logger:   logging.Nop(),
		policy:   options.DefaultRetryPolicy,
		pageSize: listview.DefaultPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Catalog returns the screen catalog.
func (r *Runtime) Catalog() *schema.Catalog {
	return r.catalog
}

// Store returns the record store.
func (r *Runtime) Store() source.Store {
	return r.store
}

// ListScreen builds a list screen for the named screen. Call Refresh on the
// result before reading its View.
func (r *Runtime) ListScreen(name string) (*listview.Screen, error) {
	screen, err := r.screen(name)
	if err != nil {
		return nil, err
	}
	ls, err := screen.ListSchema()
	if err != nil {
		return nil, err
	}
	if ls.PageSize == 0 {
		ls.PageSize = r.pageSize
	}
	opts := []listview.ScreenOption{listview.WithScreenLogger(r.logger.WithField("screen", name))}
	if r.metrics != nil {
		opts = append(opts, listview.WithRefreshObserver(r.metrics))
	}
	return listview.NewScreen(r.store, screen.Kind, listview.New(ls), opts...)
}

// CreateForm builds a form engine for a new record of the named screen.
func (r *Runtime) CreateForm(name string, opts ...form.Option) (*form.Engine, error) {
	return r.newForm(name, opts...)
}

// EditForm fetches the record with id and builds a form engine editing it.
func (r *Runtime) EditForm(ctx context.Context, name, id string, opts ...form.Option) (*form.Engine, error) {
	screen, err := r.screen(name)
	if err != nil {
		return nil, err
	}
	rec, err := r.Record(ctx, screen.Kind, id)
	if err != nil {
		return nil, err
	}
	return r.newForm(name, append([]form.Option{form.WithEditRecord(id, rec)}, opts...)...)
}

// Record fetches kind and returns the record whose id is id.
func (r *Runtime) Record(ctx context.Context, kind, id string) (source.Record, error) {
	records, err := r.store.Fetch(ctx, kind)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if options.IDString(rec["id"]) == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("formflow: %s record %q not found", kind, id)
}

func (r *Runtime) newForm(name string, opts ...form.Option) (*form.Engine, error) {
	screen, err := r.screen(name)
	if err != nil {
		return nil, err
	}
	fs, err := screen.FormSchema()
	if err != nil {
		return nil, err
	}
	base := []form.Option{
		form.WithLogger(r.logger.WithField("screen", name)),
		form.WithRetryPolicy(r.policy),
	}
	if r.strict {
		base = append(base, form.WithStrictOptions())
	}
	if r.metrics != nil {
		base = append(base, form.WithMetrics(r.metrics))
	}
	return form.New(fs, r.store, r.store, append(base, opts...)...)
}

func (r *Runtime) screen(name string) (schema.Screen, error) {
	screen, ok := r.catalog.Screen(name)
	if !ok {
		return schema.Screen{}, fmt.Errorf("formflow: unknown screen %q", name)
	}
	return screen, nil
}

// OpenStore picks a backend from cfg: Postgres when DatabaseURL is set, the
// REST API when APIBaseURL is set, and an empty in-memory store otherwise.
// The REST client is unauthenticated when APIToken is blank.
// The returned close function releases the backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logrus.Entry) (source.Store, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("formflow: config is required")
	}
	logger = logging.OrNop(logger)
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		pool, err := pgsource.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("formflow: using postgres store")
		return pgsource.New(pool, pgsource.WithLogger(logger)), pool.Close, nil
	case strings.TrimSpace(cfg.APIBaseURL) != "":
		client, err := httpsource.New(cfg.APIBaseURL, SessionFor(cfg.APIToken),
			httpsource.WithLogger(logger),
			httpsource.WithTimeout(cfg.HTTPTimeout),
		)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("base_url", cfg.APIBaseURL).Info("formflow: using http store")
		return client, func() {}, nil
	default:
		logger.Warn("formflow: no backend configured, using in-memory store")
		return memory.New(), func() {}, nil
	}
}

// SessionFor wraps token in a JWT-aware provider when it looks like a JWT and
// in a static provider otherwise. A blank token yields nil, so the HTTP store
// sends no Authorization header.
func SessionFor(token string) session.Provider {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if strings.Count(token, ".") == 2 {
		return session.NewJWTProvider(token)
	}
	return session.Static(token)
}
