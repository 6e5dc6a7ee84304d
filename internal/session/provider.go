// Package session supplies the bearer credential used to authorize API calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// TokenKey is the storage key holding the bearer token.
const TokenKey = "userToken"

var (
	// ErrNoSession means no token is stored.
	ErrNoSession = errors.New("no session token stored")
	// ErrSessionExpired means the stored token carries an exp claim in the past.
	ErrSessionExpired = errors.New("session token expired")
)

// Store is the persisted key-value storage the token lives in.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Provider reads and writes the session token.
type Provider struct {
	store  Store
	clock  clockwork.Clock
	parser *jwt.Parser
}

// NewProvider creates a Provider. A nil clock uses the real clock.
func NewProvider(store Store, clock clockwork.Clock) *Provider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Provider{store: store, clock: clock, parser: jwt.NewParser()}
}

// Token returns the stored bearer token. JWTs are inspected without
// verification, which the backend does; anything else is returned as is.
func (p *Provider) Token(ctx context.Context) (string, error) {
	token, ok, err := p.store.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("read session token: %w", err)
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", ErrNoSession
	}

	claims := jwt.MapClaims{}
	if _, _, err := p.parser.ParseUnverified(token, claims); err != nil {
		return token, nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return token, nil
	}
	if !p.clock.Now().Before(exp.Time) {
		return "", ErrSessionExpired
	}
	return token, nil
}

// Store saves token as the current session.
func (p *Provider) Store(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session token is empty")
	}
	if err := p.store.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	return nil
}

// Clear removes the current session.
func (p *Provider) Clear(ctx context.Context) error {
	if err := p.store.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}
