package optionsapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/pkg/source"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type listResponse struct {
	Data []source.Record `json:"data"`
}

type writeResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error  string         `json:"error"`
	Errors map[string]any `json:"errors,omitempty"`
}

// Handler builds a net/http handler with default options plus any overrides.
func Handler(fns ...OptionFn) http.Handler {
	return NewHandler(fns...)
}

func NewHandler(fns ...OptionFn) http.Handler {
	opts := NewOptions(fns...)
	return HandlerWithOptions(opts)
}

// HandlerWithOptions builds the handler from a pre-constructed Options
// value. Request paths are interpreted relative to opts.RoutePath.
func HandlerWithOptions(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if opts.Store == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no record store configured"})
			return
		}

		if opts.Guard != nil {
			if err := opts.Guard(r); err != nil {
				writeGuardError(w, err)
				return
			}
		}

		kind, id, ok := splitPath(r.URL.Path, opts.RoutePath)
		if !ok {
			http.NotFound(w, r)
			return
		}

		switch {
		case id == "" && (r.Method == http.MethodGet || r.Method == http.MethodHead):
			serveList(w, r, opts, kind)
		case id == "" && r.Method == http.MethodPost && !opts.ReadOnly:
			serveWrite(w, r, opts, kind, "")
		case id != "" && (r.Method == http.MethodPatch || r.Method == http.MethodPut) && !opts.ReadOnly:
			serveWrite(w, r, opts, kind, id)
		default:
			allow := http.MethodGet + ", " + http.MethodHead
			if !opts.ReadOnly {
				if id == "" {
					allow += ", " + http.MethodPost
				} else {
					allow = http.MethodPatch + ", " + http.MethodPut
				}
			}
			w.Header().Set("Allow", allow)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})
}

func serveList(w http.ResponseWriter, r *http.Request, opts Options, kind string) {
	records, err := opts.Store.Fetch(r.Context(), kind)
	if err != nil {
		writeStoreError(w, opts, "fetch "+kind, err)
		return
	}
	query := r.URL.Query().Get(opts.SearchParam)
	limit := parseInt(r.URL.Query().Get(opts.LimitParam))

	results := Search(records, opts.SearchFields[kind], query, limit, opts)
	if results == nil {
		results = []source.Record{}
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: results})
}

func serveWrite(w http.ResponseWriter, r *http.Request, opts Options, kind, id string) {
	var payload map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	normalizeNumbers(payload)

	var (
		written string
		err     error
		status  = http.StatusCreated
	)
	if id == "" {
		written, err = opts.Store.Create(r.Context(), kind, payload)
	} else {
		written, err = opts.Store.Update(r.Context(), kind, id, payload)
		status = http.StatusOK
	}
	if err != nil {
		writeStoreError(w, opts, "write "+kind, err)
		return
	}
	opts.Logger.WithFields(logrus.Fields{"kind": kind, "id": written}).Info("optionsapi: record written")
	writeJSON(w, status, writeResponse{ID: written})
}

// normalizeNumbers turns json.Number values into int64 when integral and
// float64 otherwise.
func normalizeNumbers(m map[string]any) {
	for k, v := range m {
		num, ok := v.(json.Number)
		if !ok {
			continue
		}
		if n, err := num.Int64(); err == nil {
			m[k] = n
			continue
		}
		if f, err := num.Float64(); err == nil {
			m[k] = f
			continue
		}
		m[k] = num.String()
	}
}

func writeStoreError(w http.ResponseWriter, opts Options, op string, err error) {
	opts.Logger.WithError(err).WithField("category", source.KindOf(err)).Warn("optionsapi: " + op + " failed")
	switch source.KindOf(err) {
	case source.KindUnauthorized:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case source.KindNetwork:
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable"})
	default:
		var srcErr *source.Error
		status := http.StatusInternalServerError
		if errors.As(err, &srcErr) && srcErr.Status >= 400 && srcErr.Status < 600 {
			status = srcErr.Status
		}
		if fields := source.FieldErrorsOf(err); len(fields) > 0 {
			if status >= 500 {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, errorResponse{Error: "validation failed", Errors: fields})
			return
		}
		writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func writeGuardError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	http.Error(w, http.StatusText(code), code)
}

// splitPath extracts {kind} and the optional {id} below routePath.
func splitPath(requestPath, routePath string) (kind, id string, ok bool) {
	rest := requestPath
	if idx := strings.Index(requestPath, strings.TrimRight(routePath, "/")+"/"); idx >= 0 {
		rest = requestPath[idx+len(strings.TrimRight(routePath, "/"))+1:]
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return parts[0], "", true
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
