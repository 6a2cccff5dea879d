package source_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/source"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestKindOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want source.Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "typed network", err: source.NetworkError("fetch", errors.New("boom")), want: source.KindNetwork},
		{name: "wrapped typed", err: fmt.Errorf("load: %w", source.UnauthorizedError("fetch", nil)), want: source.KindUnauthorized},
		{name: "missing session", err: fmt.Errorf("token: %w", source.ErrMissingSession), want: source.KindUnauthorized},
		{name: "deadline", err: context.DeadlineExceeded, want: source.KindNetwork},
		{name: "net error", err: timeoutErr{}, want: source.KindNetwork},
		{name: "plain", err: errors.New("bad"), want: source.KindServer},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, source.KindOf(tc.err), tc.name)
	}
}

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	err := source.ServerError("create payments", 422, map[string]any{"amount": "required"}, errors.New("unprocessable"))
	require.Equal(t, "create payments: server (status 422): unprocessable", err.Error())
	require.True(t, err.HasFields())
	require.Equal(t, map[string]any{"amount": "required"}, source.FieldErrorsOf(fmt.Errorf("wrap: %w", err)))
	require.False(t, source.IsTransient(err))
}

func TestRecordAccessors(t *testing.T) {
	t.Parallel()

	rec := source.Record{"name": "Site A", "qty": 3, "missing": nil}

	_, ok := rec.Get("missing")
	require.False(t, ok)
	require.Equal(t, "3", rec.String("qty"))
	require.Equal(t, "", rec.String("nope"))

	clone := rec.Clone()
	clone["name"] = "Site B"
	require.Equal(t, "Site A", rec["name"])
}
