package pgsource

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/source"
)

type stubRow struct {
	value any
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*any)) = r.value
	return nil
}

type stubDB struct {
	sql  []string
	args [][]any
	row  stubRow
}

func (d *stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (d *stubDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.sql = append(d.sql, sql)
	d.args = append(d.args, args)
	return d.row
}

func TestCreateBuildsSortedInsert(t *testing.T) {
	t.Parallel()

	db := &stubDB{row: stubRow{value: int64(101)}}
	store := New(db, WithTable("payments", Table{Name: "payment_entries"}))

	id, err := store.Create(context.Background(), "payments", map[string]any{"site_id": "7", "amount": "12.5"})
	require.NoError(t, err)
	require.Equal(t, "101", id)
	require.Equal(t,
		`INSERT INTO "payment_entries" ("amount", "site_id") VALUES ($1, $2) RETURNING "id"`,
		db.sql[0])
	require.Equal(t, []any{"12.5", "7"}, db.args[0])
}

func TestUpdateBuildsKeyedUpdate(t *testing.T) {
	t.Parallel()

	db := &stubDB{row: stubRow{value: "42"}}
	store := New(db)

	id, err := store.Update(context.Background(), "payments", "42", map[string]any{"amount": "1"})
	require.NoError(t, err)
	require.Equal(t, "42", id)
	require.Equal(t,
		`UPDATE "payments" SET "amount" = $1 WHERE "id"::text = $2 RETURNING "id"`,
		db.sql[0])
}

func TestUpdateMissingRowIsServerError(t *testing.T) {
	t.Parallel()

	store := New(&stubDB{row: stubRow{err: pgx.ErrNoRows}})
	_, err := store.Update(context.Background(), "payments", "nope", map[string]any{"amount": "1"})
	require.Equal(t, source.KindServer, source.KindOf(err))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		kind   source.Kind
		fields map[string]any
	}{
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "payments_reference_key"}, source.KindServer,
			map[string]any{"payments_reference_key": "already exists"}},
		{"not null", &pgconn.PgError{Code: "23502", ColumnName: "amount"}, source.KindServer,
			map[string]any{"amount": "is required"}},
		{"auth", &pgconn.PgError{Code: "28P01"}, source.KindUnauthorized, nil},
		{"connection", &pgconn.PgError{Code: "08006"}, source.KindNetwork, nil},
		{"deadline", context.DeadlineExceeded, source.KindNetwork, nil},
		{"other", errors.New("boom"), source.KindServer, nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := classify("create payments", tc.err)
			require.Equal(t, tc.kind, source.KindOf(err))
			require.Equal(t, tc.fields, source.FieldErrorsOf(err))
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("0b9f3c52-8f3a-4bd1-9d43-3c8b7c1c2f10")
	require.Equal(t, id.String(), normalize([16]byte(id)))
	require.Equal(t, int64(3), normalize(int32(3)))

	var n pgtype.Numeric
	require.NoError(t, n.Scan("12.50"))
	d, ok := normalize(n).(decimal.Decimal)
	require.True(t, ok)
	require.True(t, d.Equal(decimal.RequireFromString("12.5")))
}
