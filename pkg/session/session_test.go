package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/source"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestStatic(t *testing.T) {
	t.Parallel()

	token, err := session.Static("abc").Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", token)

	_, err = session.Static("  ").Token(context.Background())
	require.True(t, source.IsUnauthorized(err))
}

func TestJWTProvider(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	valid := signedToken(t, now.Add(time.Hour))
	p := session.NewJWTProvider(valid, session.WithClock(clock))

	got, err := p.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, valid, got)

	p.Set(signedToken(t, now.Add(-time.Minute)))
	_, err = p.Token(context.Background())
	require.True(t, source.IsUnauthorized(err))
	require.True(t, errors.Is(err, session.ErrExpired))

	p.Clear()
	_, err = p.Token(context.Background())
	require.True(t, errors.Is(err, source.ErrMissingSession))

	p.Set("not-a-jwt")
	_, err = p.Token(context.Background())
	require.True(t, source.IsUnauthorized(err))
}

func TestJWTProviderLeeway(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := session.NewJWTProvider(
		signedToken(t, now.Add(20*time.Second)),
		session.WithClock(func() time.Time { return now }),
		session.WithLeeway(30*time.Second),
	)

	_, err := p.Token(context.Background())
	require.ErrorIs(t, err, session.ErrExpired)
}
