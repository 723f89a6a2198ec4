package session

import (
	"context"
	"sync"
	"time"

	"dva-dashboard-be/internal/auth"
	"dva-dashboard-be/internal/pkg/logger"

	"github.com/google/uuid"
)

const module = "SessionEstablisher"

// signInTimeout bounds a single sign-in attempt so a hung backend ends in
// degraded mode instead of an unready session.
const signInTimeout = 10 * time.Second

// Session holds the identity of one view. Ready closes exactly once and the
// identifier never changes after that.
type Session struct {
	ready     chan struct{}
	readyOnce sync.Once

	mu         sync.RWMutex
	identifier string
	token      string
	degraded   bool
	closed     bool

	unsubscribe func()
	cancel      context.CancelFunc
}

// Establish subscribes to provider state changes and resolves an identity on
// the first notification. The session is returned immediately; wait on Ready.
func Establish(ctx context.Context, provider auth.Provider, initialToken string, log logger.ILogger) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ready:  make(chan struct{}),
		cancel: cancel,
	}

	unsubscribe := provider.OnStateChange(func(p *auth.Principal) {
		s.handleState(ctx, provider, initialToken, p, log)
	})

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	return s
}

func (s *Session) handleState(ctx context.Context, provider auth.Provider, initialToken string, p *auth.Principal, log logger.ILogger) {
	if !s.alive() || s.IsReady() {
		return
	}

	if p != nil {
		s.resolve(p.ID, p.Token, false)
		return
	}

	attemptCtx, cancel := context.WithTimeout(ctx, signInTimeout)
	defer cancel()

	var (
		principal *auth.Principal
		err       error
		method    = "anonymous"
	)
	if initialToken != "" {
		method = "custom_token"
		principal, err = provider.SignInWithToken(attemptCtx, initialToken)
	} else {
		principal, err = provider.SignInAnonymously(attemptCtx)
	}

	if err != nil || principal == nil {
		fallback := uuid.NewString()
		log.Error(module, "Sign-in failed, continuing with a local identifier", map[string]interface{}{
			"method":     method,
			"error":      err,
			"identifier": fallback,
		})
		s.resolve(fallback, "", true)
		return
	}

	s.resolve(principal.ID, principal.Token, false)
}

func (s *Session) resolve(identifier, token string, degraded bool) {
	s.readyOnce.Do(func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.identifier = identifier
		s.token = token
		s.degraded = degraded
		s.mu.Unlock()
		close(s.ready)
	})
}

func (s *Session) alive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// Ready is closed once the identifier is known.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

func (s *Session) IsReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

func (s *Session) Identifier() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identifier
}

// Token is the signed session token, empty in degraded mode.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Degraded reports whether the identifier was generated locally after a
// failed sign-in.
func (s *Session) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Close releases the auth subscription. Pending sign-ins are cancelled and
// their results ignored. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	s.cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
}
