// Package pgsource reads and writes records in PostgreSQL tables, one table
// per record kind.
package pgsource

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/source"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)

// Table maps a record kind onto a table.
type Table struct {
	Name string
	// IDColumn defaults to "id".
	IDColumn string
	// OrderBy is an optional column for a stable fetch order.
	OrderBy string
}

// Store implements source.Store on top of a Querier.
type Store struct {
	db     Querier
	tables map[string]Table
	logger *logrus.Entry
}

var _ source.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTable maps kind onto t. Unmapped kinds use a table of the same name.
func WithTable(kind string, t Table) Option {
	return func(s *Store) {
		s.tables[kind] = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wraps db.
func New(db Querier, opts ...Option) *Store {
	s := &Store{
		db:     db,
		tables: make(map[string]Table),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Connect opens a pool for dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "pgsource: open pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify("ping", errors.Wrap(err, "pgsource: ping"))
	}
	return pool, nil
}

// Fetch returns every row of the kind's table.
func (s *Store) Fetch(ctx context.Context, kind string) ([]source.Record, error) {
	t := s.table(kind)
	query := "SELECT * FROM " + pgx.Identifier{t.Name}.Sanitize()
	if t.OrderBy != "" {
		query += " ORDER BY " + pgx.Identifier{t.OrderBy}.Sanitize()
	}

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, s.fail("fetch "+kind, errors.Wrap(err, "failed to query records"))
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, s.fail("fetch "+kind, errors.Wrap(err, "failed to scan records"))
	}

	out := make([]source.Record, 0, len(maps))
	for _, m := range maps {
		rec := make(source.Record, len(m))
		for k, v := range m {
			rec[k] = normalize(v)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Create inserts payload and returns the generated identifier.
func (s *Store) Create(ctx context.Context, kind string, payload map[string]any) (string, error) {
	t := s.table(kind)
	cols := sortedKeys(payload)
	if len(cols) == 0 {
		return "", source.ServerError("create "+kind, 0, nil, errors.New("empty payload"))
	}

	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		names[i] = pgx.Identifier{col}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = payload[col]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		pgx.Identifier{t.Name}.Sanitize(),
		strings.Join(names, ", "),
		strings.Join(params, ", "),
		pgx.Identifier{t.IDColumn}.Sanitize(),
	)

	var id any
	if err := s.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", s.fail("create "+kind, errors.Wrap(err, "failed to insert record"))
	}
	return idString(id), nil
}

// Update writes payload to the row with id.
func (s *Store) Update(ctx context.Context, kind, id string, payload map[string]any) (string, error) {
	t := s.table(kind)
	cols := sortedKeys(payload)
	if len(cols) == 0 {
		return id, nil
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), i+1)
		args = append(args, payload[col])
	}
	args = append(args, id)
	idCol := pgx.Identifier{t.IDColumn}.Sanitize()
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s::text = $%d RETURNING %s",
		pgx.Identifier{t.Name}.Sanitize(),
		strings.Join(sets, ", "),
		idCol, len(args), idCol,
	)

	var written any
	if err := s.db.QueryRow(ctx, query, args...).Scan(&written); err != nil {
		return "", s.fail("update "+kind, errors.Wrap(err, "failed to update record"))
	}
	return idString(written), nil
}

func (s *Store) table(kind string) Table {
	t, ok := s.tables[kind]
	if !ok || t.Name == "" {
		t.Name = kind
	}
	if t.IDColumn == "" {
		t.IDColumn = "id"
	}
	return t
}

func (s *Store) fail(op string, err error) error {
	mapped := classify(op, err)
	s.logger.WithError(err).WithFields(logrus.Fields{
		"op":       op,
		"category": source.KindOf(mapped),
	}).Debug("pgsource: query failed")
	return mapped
}

// classify maps driver failures onto the source error kinds. Integrity
// violations carry the offending column or constraint as a field error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return source.ServerError(op, 404, nil, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return source.NetworkError(op, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		var connErr *pgconn.ConnectError
		if errors.As(err, &connErr) {
			return source.NetworkError(op, err)
		}
		return source.ServerError(op, 0, nil, err)
	}

	switch {
	case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "40001", pgErr.Code == "40P01":
		// Connection exceptions, admin shutdown and serialization conflicts
		// can succeed on retry.
		return source.NetworkError(op, err)
	case strings.HasPrefix(pgErr.Code, "28"):
		return source.UnauthorizedError(op, err)
	case strings.HasPrefix(pgErr.Code, "23"), strings.HasPrefix(pgErr.Code, "22"):
		return source.ServerError(op, 422, fieldErrors(pgErr), err)
	default:
		return source.ServerError(op, 500, nil, err)
	}
}

func fieldErrors(pgErr *pgconn.PgError) map[string]any {
	key := pgErr.ColumnName
	if key == "" {
		key = pgErr.ConstraintName
	}
	msg := constraintMessage(pgErr)
	if key == "" {
		return map[string]any{"non_field_errors": msg}
	}
	return map[string]any{key: msg}
}

func constraintMessage(pgErr *pgconn.PgError) string {
	switch pgErr.Code {
	case "23505":
		return "already exists"
	case "23503":
		return "refers to a record that does not exist"
	case "23502":
		return "is required"
	case "23514":
		return "is invalid"
	default:
		if pgErr.Message != "" {
			return pgErr.Message
		}
		return "is invalid"
	}
}

// normalize converts driver values into the scalar types records carry.
func normalize(v any) any {
	switch typed := v.(type) {
	case [16]byte:
		return uuid.UUID(typed).String()
	case pgtype.Numeric:
		if !typed.Valid {
			return nil
		}
		raw, err := typed.Value()
		if err != nil {
			return nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return s
		}
		return d
	case int32:
		return int64(typed)
	case int16:
		return int64(typed)
	case float32:
		return float64(typed)
	default:
		return v
	}
}

func idString(v any) string {
	switch typed := normalize(v).(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
