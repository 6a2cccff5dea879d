package optionsapi

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/source"
)

type EmptySearchMode string

const (
	// EmptySearchAll returns every record when no search term is given.
	EmptySearchAll  EmptySearchMode = "all"
	EmptySearchNone EmptySearchMode = "none"
)

type GuardFunc func(r *http.Request) error

type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
	Guard           GuardFunc
	ReadOnly        bool

	// SearchFields restricts matching; empty means every field.
	SearchFields map[string][]string

	Store  source.Store
	Logger *logrus.Entry
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:       "/api/records",
		SearchParam:     "q",
		LimitParam:      "limit",
		DefaultLimit:    500,
		MaxLimit:        1000,
		EmptySearchMode: EmptySearchAll,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 500
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 1000
	}
	if opts.EmptySearchMode == "" {
		opts.EmptySearchMode = EmptySearchAll
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/api/records"
	}
	if opts.SearchParam == "" {
		opts.SearchParam = "q"
	}
	if opts.LimitParam == "" {
		opts.LimitParam = "limit"
	}
	opts.Logger = logging.OrNop(opts.Logger)
	if opts.SearchFields != nil {
		cloned := make(map[string][]string, len(opts.SearchFields))
		for kind, fields := range opts.SearchFields {
			cloned[kind] = append([]string{}, fields...)
		}
		opts.SearchFields = cloned
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithSearchParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SearchParam = name
	}
}

func WithLimitParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.LimitParam = name
	}
}

func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.DefaultLimit = limit
	}
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxLimit = limit
	}
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.EmptySearchMode = mode
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

// WithReadOnly disables the write routes.
func WithReadOnly() OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.ReadOnly = true
	}
}

// WithSearchFields limits search on kind to fields.
func WithSearchFields(kind string, fields ...string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		if o.SearchFields == nil {
			o.SearchFields = make(map[string][]string)
		}
		o.SearchFields[kind] = append([]string{}, fields...)
	}
}

func WithStore(store source.Store) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Store = store
	}
}

func WithLogger(logger *logrus.Entry) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}

func clampLimit(limit int, opts Options) int {
	if limit < 0 {
		return 0
	}
	if limit == 0 {
		limit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		return opts.MaxLimit
	}
	return limit
}
