package auth

import (
	"context"
	"errors"
)

// ErrAuthFailure wraps every sign-in failure. Callers fall back to a locally
// generated identifier and never show it to the user.
var ErrAuthFailure = errors.New("auth failure")

// Principal is an authenticated identity. ID never changes once issued.
type Principal struct {
	ID        string
	Anonymous bool
	// Token is the signed session token to hand back to the browser so the
	// next page load starts already authenticated.
	Token string
}

// StateHandler receives the current principal, or nil when nobody is signed in.
type StateHandler func(p *Principal)

// Provider is the capability the session layer needs from an identity backend.
type Provider interface {
	OnStateChange(handler StateHandler) (unsubscribe func())
	SignInAnonymously(ctx context.Context) (*Principal, error)
	SignInWithToken(ctx context.Context, token string) (*Principal, error)
}
