package matrix

import (
	"context"
	"errors"
	"sync"
	"time"

	"dva-dashboard-be/internal/auth"
	"dva-dashboard-be/internal/config"
	"dva-dashboard-be/internal/docstore"
	"dva-dashboard-be/internal/entity"
	"dva-dashboard-be/internal/livequery"
	"dva-dashboard-be/internal/pkg/logger"
	"dva-dashboard-be/internal/session"
)

const module = "MatrixPage"

const msgStalled = "Timed out waiting for use cases. Reload the page to try again."

// MatrixConfig is everything a matrix view needs from its host. It is built
// once at startup and passed in; views never read the environment.
type MatrixConfig struct {
	ServiceConfigJSON string
	EmbedURL          string
	InitialAuthToken  string
	// StallTimeout turns a view that is still loading after this long into an
	// error. Zero waits forever.
	StallTimeout time.Duration
}

// ProviderFactory creates the auth client for one view. sessionToken is the
// token the browser presented, possibly empty.
type ProviderFactory func(cfg config.ServiceConfig, sessionToken string) auth.Provider

type PageDeps struct {
	Store       docstore.Store
	NewProvider ProviderFactory
	Logger      logger.ILogger
}

// UseCasesQuery is the standing query behind the matrix list.
func UseCasesQuery() docstore.Query {
	return docstore.Collection(entity.UseCasesCollection).OrderBy("total_score", docstore.Descending)
}

// Page is one live instance of the prioritization matrix. It owns the auth
// subscription and the collection subscription and releases both in Close.
type Page struct {
	cfg          MatrixConfig
	deps         PageDeps
	sessionToken string
	embed        config.EmbedTarget

	mu       sync.Mutex
	opened   bool
	closed   bool
	disabled bool
	stalled  bool
	fetch    livequery.FetchState
	sel      entity.FilterSelection
	model    ViewModel
	sess     *session.Session
	sub      *livequery.Subscription

	updates     chan ViewModel
	settled     chan struct{}
	settledOnce sync.Once
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewPage(cfg MatrixConfig, deps PageDeps, sessionToken string) *Page {
	p := &Page{
		cfg:          cfg,
		deps:         deps,
		sessionToken: sessionToken,
		embed:        config.ResolveEmbedTarget(cfg.EmbedURL),
		fetch:        livequery.LoadingState(),
		sel:          entity.DefaultFilterSelection(),
		updates:      make(chan ViewModel, 1),
		settled:      make(chan struct{}),
		done:         make(chan struct{}),
		cancel:       func() {},
	}
	p.model = p.composeLocked()
	return p
}

// Open starts the view. A missing service configuration disables the list,
// makes no auth or store call and returns config.ErrConfigMissing.
func (p *Page) Open(ctx context.Context) error {
	p.mu.Lock()
	if p.opened || p.closed {
		p.mu.Unlock()
		return errors.New("matrix page already opened")
	}
	p.opened = true
	p.mu.Unlock()

	svcCfg, err := config.ResolveServiceConfig(p.cfg.ServiceConfigJSON)
	if err != nil {
		p.deps.Logger.Error(module, "Service config is missing or invalid, matrix disabled", map[string]interface{}{"error": err})

		p.mu.Lock()
		p.disabled = true
		p.publishLocked()
		p.mu.Unlock()

		p.settle()
		close(p.done)
		return err
	}

	if !p.embed.Configured {
		p.deps.Logger.Warn(module, "Embed URL is not configured", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	provider := p.deps.NewProvider(svcCfg, p.sessionToken)
	sess := session.Establish(runCtx, provider, p.cfg.InitialAuthToken, p.deps.Logger)

	p.mu.Lock()
	p.cancel = cancel
	p.sess = sess
	p.mu.Unlock()

	go p.run(runCtx, sess)
	return nil
}

func (p *Page) run(ctx context.Context, sess *session.Session) {
	defer close(p.done)

	var stall <-chan time.Time
	if p.cfg.StallTimeout > 0 {
		timer := time.NewTimer(p.cfg.StallTimeout)
		defer timer.Stop()
		stall = timer.C
	}

	select {
	case <-sess.Ready():
	case <-ctx.Done():
		return
	case <-stall:
		p.markStalled()
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.publishLocked()
	p.mu.Unlock()

	p.deps.Logger.Info(module, "Session ready, subscribing to use cases", map[string]interface{}{
		"session_id": sess.Identifier(),
		"degraded":   sess.Degraded(),
		"path":       entity.UseCasesCollection,
	})

	sub := livequery.Subscribe(p.deps.Store, UseCasesQuery(), p.onFetchState, p.deps.Logger)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		sub.Close()
		return
	}
	p.sub = sub
	p.mu.Unlock()

	select {
	case <-p.settled:
	case <-ctx.Done():
	case <-stall:
		p.markStalled()
	}
}

func (p *Page) onFetchState(s livequery.FetchState) {
	p.mu.Lock()
	if p.closed || p.stalled {
		p.mu.Unlock()
		return
	}
	p.fetch = s
	p.publishLocked()
	p.mu.Unlock()

	if s.Kind != livequery.Loading {
		p.settle()
	}
}

func (p *Page) markStalled() {
	p.mu.Lock()
	if p.closed || p.fetch.Kind != livequery.Loading {
		p.mu.Unlock()
		return
	}
	p.stalled = true
	p.fetch = livequery.FailedState(msgStalled)
	p.publishLocked()
	sub := p.sub
	p.sub = nil
	p.mu.Unlock()

	p.deps.Logger.Warn(module, "Matrix view stalled while loading", map[string]interface{}{"timeout": p.cfg.StallTimeout.String()})
	if sub != nil {
		sub.Close()
	}
	p.settle()
}

func (p *Page) settle() {
	p.settledOnce.Do(func() { close(p.settled) })
}

// SetFilter applies a new selection and republishes the view.
func (p *Page) SetFilter(sel entity.FilterSelection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sel = sel.Normalize()
	p.publishLocked()
}

// Model returns the latest view model.
func (p *Page) Model() ViewModel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model
}

// Updates yields view models as they change. Only the newest pending model is
// kept. The channel is closed by Close.
func (p *Page) Updates() <-chan ViewModel {
	return p.updates
}

// Settled is closed once the list has left the loading state for any reason.
func (p *Page) Settled() <-chan struct{} {
	return p.settled
}

// SessionToken is the signed token to return to the browser, if any.
func (p *Page) SessionToken() string {
	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()
	if sess == nil || !sess.IsReady() {
		return ""
	}
	return sess.Token()
}

// Close releases the auth and collection subscriptions together. No update is
// published after it returns. Safe to call more than once.
func (p *Page) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	opened := p.opened
	cancel := p.cancel
	close(p.updates)
	p.mu.Unlock()

	cancel()
	if opened {
		<-p.done
	}

	p.mu.Lock()
	sub, sess := p.sub, p.sess
	p.sub, p.sess = nil, nil
	p.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if sess != nil {
		sess.Close()
	}
}

func (p *Page) publishLocked() {
	if p.closed {
		return
	}
	p.model = p.composeLocked()

	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- p.model:
	default:
	}
}

func (p *Page) composeLocked() ViewModel {
	if p.disabled {
		return Disabled(p.sel, p.embed)
	}

	vm := Compose(p.fetch, p.sel, p.embed)
	if p.sess != nil && p.sess.IsReady() {
		vm.SessionID = p.sess.Identifier()
		vm.Degraded = p.sess.Degraded()
	}
	return vm
}
