// Package session supplies bearer credentials to record adapters. Missing or
// expired credentials surface as source.KindUnauthorized so both engines
// handle them the same way.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-formflow/pkg/source"
)

// ErrExpired is returned when the stored credential is past its expiry.
var ErrExpired = errors.New("session: credential expired")

// Provider returns the bearer credential for outgoing calls.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static always returns the same token. An empty token is reported as a
// missing session.
type Static string

// Token implements Provider.
func (s Static) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", source.UnauthorizedError("session", source.ErrMissingSession)
	}
	return token, nil
}

// JWTProvider holds a JWT and checks its exp claim before handing it out. The
// signature is not verified here; that is the backend's job.
type JWTProvider struct {
	mu     sync.RWMutex
	token  string
	now    func() time.Time
	leeway time.Duration
}

// JWTOption configures a JWTProvider.
type JWTOption func(*JWTProvider)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) JWTOption {
	return func(p *JWTProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLeeway treats tokens expiring within d as already expired.
func WithLeeway(d time.Duration) JWTOption {
	return func(p *JWTProvider) {
		if d > 0 {
			p.leeway = d
		}
	}
}

// NewJWTProvider constructs a provider around token.
func NewJWTProvider(token string, opts ...JWTOption) *JWTProvider {
	p := &JWTProvider{
		token: strings.TrimSpace(token),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Set replaces the stored credential, for example after reauthentication.
func (p *JWTProvider) Set(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = strings.TrimSpace(token)
}

// Clear drops the stored credential.
func (p *JWTProvider) Clear() {
	p.Set("")
}

// Token implements Provider.
func (p *JWTProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	if token == "" {
		return "", source.UnauthorizedError("session", source.ErrMissingSession)
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", source.UnauthorizedError("session", fmt.Errorf("parse token: %w", err))
	}
	if claims.ExpiresAt != nil && !p.now().Add(p.leeway).Before(claims.ExpiresAt.Time) {
		return "", source.UnauthorizedError("session", ErrExpired)
	}
	return token, nil
}
