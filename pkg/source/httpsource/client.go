// Package httpsource reads and writes records over a REST/JSON backend,
// authenticating every request with the session provider's bearer token.
package httpsource

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/source"
)

var tracer = otel.Tracer("formflow-httpsource")

// DefaultTimeout bounds a single request when no client is supplied.
const DefaultTimeout = 15 * time.Second

// Endpoint overrides how one record kind is addressed.
type Endpoint struct {
	// Path is joined to the base URL; defaults to the kind.
	Path string
	// ResultsPath is a dot path to the record array inside a list response,
	// e.g. "data.items". Empty means the response is the array itself, or an
	// object with one of "results", "data" or "items".
	ResultsPath string
	// Params are added to list requests.
	Params map[string]string
	// IDField names the identifier in write responses; defaults to "id".
	IDField string
	// UpdateMethod defaults to PATCH.
	UpdateMethod string
}

// Client implements source.Store over HTTP.
type Client struct {
	base      *url.URL
	http      *http.Client
	session   session.Provider
	endpoints map[string]Endpoint
	logger    *logrus.Entry
}

var _ source.Store = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout replaces the default client with one bounded by d.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

// WithEndpoint registers an Endpoint for kind.
func WithEndpoint(kind string, ep Endpoint) Option {
	return func(cl *Client) {
		cl.endpoints[kind] = ep
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// New builds a Client for baseURL. sess may be nil for unauthenticated
// backends.
func New(baseURL string, sess session.Provider, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrap(err, "httpsource: parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("httpsource: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: DefaultTimeout},
		session:   sess,
		endpoints: make(map[string]Endpoint),
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Fetch lists every record of kind.
func (c *Client) Fetch(ctx context.Context, kind string) ([]source.Record, error) {
	ep := c.endpoint(kind)
	op := "fetch " + kind

	reqURL := c.resolve(ep.Path)
	q := reqURL.Query()
	for k, v := range ep.Params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()

	var payload any
	if err := c.do(ctx, op, http.MethodGet, reqURL, nil, &payload); err != nil {
		return nil, err
	}

	items := extractResults(payload, ep.ResultsPath)
	out := make([]source.Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, source.Record(obj))
	}
	return out, nil
}

// Create POSTs payload to the kind's collection.
func (c *Client) Create(ctx context.Context, kind string, payload map[string]any) (string, error) {
	ep := c.endpoint(kind)
	return c.write(ctx, "create "+kind, http.MethodPost, c.resolve(ep.Path), ep, payload)
}

// Update sends payload to the record's URL.
func (c *Client) Update(ctx context.Context, kind, id string, payload map[string]any) (string, error) {
	ep := c.endpoint(kind)
	method := strings.ToUpper(strings.TrimSpace(ep.UpdateMethod))
	if method == "" {
		method = http.MethodPatch
	}
	written, err := c.write(ctx, "update "+kind, method, c.resolve(ep.Path, id), ep, payload)
	if err != nil {
		return "", err
	}
	if written == "" {
		written = id
	}
	return written, nil
}

func (c *Client) write(ctx context.Context, op, method string, target *url.URL, ep Endpoint, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", source.ServerError(op, 0, nil, errors.Wrap(err, "encode payload"))
	}
	var resp any
	if err := c.do(ctx, op, method, target, body, &resp); err != nil {
		return "", err
	}
	obj, _ := resp.(map[string]any)
	idField := ep.IDField
	if idField == "" {
		idField = "id"
	}
	return pickValue(obj, idField), nil
}

func (c *Client) do(ctx context.Context, op, method string, target *url.URL, body []byte, out any) error {
	ctx, span := tracer.Start(ctx, "httpsource."+strings.ReplaceAll(op, " ", "."))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", target.String()),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return c.fail(span, source.ServerError(op, 0, nil, errors.Wrap(err, "build request")))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		token, err := c.session.Token(ctx)
		if err != nil {
			if source.IsUnauthorized(err) {
				return c.fail(span, err)
			}
			return c.fail(span, source.UnauthorizedError(op, err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(span, source.NetworkError(op, errors.Wrap(err, "do request")))
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(span, source.NetworkError(op, errors.Wrap(err, "read body")))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(span, classifyStatus(op, resp.StatusCode, raw))
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(span, source.ServerError(op, resp.StatusCode, nil, errors.Wrap(err, "decode response")))
	}
	return nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.WithError(err).WithField("category", source.KindOf(err)).Debug("httpsource: request failed")
	return err
}

// classifyStatus maps a non-2xx response onto the source error kinds.
func classifyStatus(op string, status int, body []byte) error {
	cause := errors.Errorf("unexpected status %d", status)
	switch {
	case status == http.StatusUnauthorized:
		return source.UnauthorizedError(op, cause)
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return source.NetworkError(op, cause)
	case status >= 400 && status < 500:
		return source.ServerError(op, status, decodeFieldErrors(body), cause)
	default:
		return source.ServerError(op, status, nil, cause)
	}
}

// decodeFieldErrors accepts {"errors": {...}}, {"fields": {...}} or a bare
// field map.
func decodeFieldErrors(body []byte) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return nil
	}
	for _, key := range []string{"errors", "fields", "field_errors"} {
		if nested, ok := payload[key].(map[string]any); ok && len(nested) > 0 {
			return nested
		}
	}
	return payload
}

func (c *Client) endpoint(kind string) Endpoint {
	ep := c.endpoints[kind]
	if ep.Path == "" {
		ep.Path = kind
	}
	return ep
}

func (c *Client) resolve(segments ...string) *url.URL {
	u := *c.base
	parts := append([]string{u.Path}, segments...)
	u.Path = path.Join(parts...)
	return &u
}

func extractResults(payload any, resultsPath string) []any {
	if payload == nil {
		return nil
	}
	cur := payload
	if resultsPath != "" {
		for _, segment := range strings.Split(resultsPath, ".") {
			node, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = node[segment]
		}
	} else if obj, ok := cur.(map[string]any); ok {
		for _, key := range []string{"results", "data", "items"} {
			if list, ok := obj[key].([]any); ok {
				return list
			}
		}
		return nil
	}
	list, _ := cur.([]any)
	return list
}

func pickValue(m map[string]any, fieldPath string) string {
	if m == nil || fieldPath == "" {
		return ""
	}
	cur := any(m)
	for _, segment := range strings.Split(fieldPath, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = node[segment]
	}
	return options.IDString(cur)
}
