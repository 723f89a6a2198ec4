package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dva-dashboard-be/internal/config"

	"github.com/google/uuid"
)

// JWTProvider is a per-view auth client. It starts from the session token the
// browser presented, if any, and notifies handlers whenever the signed-in
// principal changes.
type JWTProvider struct {
	issuer *Issuer

	mu       sync.Mutex
	current  *Principal
	nextID   int
	handlers map[int]StateHandler
}

// NewJWTProvider builds a provider for one view. An existing session token
// that fails verification is dropped and the view starts signed out.
func NewJWTProvider(cfg config.ServiceConfig, secret string, sessionTTL time.Duration, sessionToken string) *JWTProvider {
	issuer := NewIssuer(secret, sessionTTL, cfg.ProjectID, cfg.AuthDomain)

	p := &JWTProvider{
		issuer:   issuer,
		handlers: make(map[int]StateHandler),
	}

	if sessionToken != "" {
		if principal, err := issuer.Parse(sessionToken); err == nil {
			p.current = principal
		}
	}
	return p
}

// OnStateChange registers handler and delivers the current state to it
// asynchronously, the way hosted identity SDKs do.
func (p *JWTProvider) OnStateChange(handler StateHandler) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	current := p.current
	p.mu.Unlock()

	go p.deliver(id, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.handlers, id)
			p.mu.Unlock()
		})
	}
}

func (p *JWTProvider) SignInAnonymously(ctx context.Context) (*Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}

	uid := uuid.NewString()
	token, err := p.issuer.Issue(uid, true)
	if err != nil {
		return nil, fmt.Errorf("%w: anonymous sign-in: %v", ErrAuthFailure, err)
	}

	return p.setCurrent(&Principal{ID: uid, Anonymous: true, Token: token}), nil
}

func (p *JWTProvider) SignInWithToken(ctx context.Context, token string) (*Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}

	claimed, err := p.issuer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: custom token sign-in: %v", ErrAuthFailure, err)
	}

	// Exchange the one-time token for a regular session token.
	session, err := p.issuer.Issue(claimed.ID, false)
	if err != nil {
		return nil, fmt.Errorf("%w: custom token sign-in: %v", ErrAuthFailure, err)
	}

	return p.setCurrent(&Principal{ID: claimed.ID, Token: session}), nil
}

// Verify checks a session token without changing provider state.
func (p *JWTProvider) Verify(token string) (*Principal, error) {
	return p.issuer.Parse(token)
}

func (p *JWTProvider) setCurrent(principal *Principal) *Principal {
	p.mu.Lock()
	p.current = principal
	ids := make([]int, 0, len(p.handlers))
	for id := range p.handlers {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		go p.deliver(id, principal)
	}
	return principal
}

func (p *JWTProvider) deliver(id int, principal *Principal) {
	p.mu.Lock()
	handler, ok := p.handlers[id]
	p.mu.Unlock()

	if ok {
		handler(principal)
	}
}
