package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dva-dashboard-be/internal/auth"
	"dva-dashboard-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider records calls and lets the test decide when and how often the
// state handler fires.
type fakeProvider struct {
	mu       sync.Mutex
	handler  auth.StateHandler
	released atomic.Bool

	anonResult  *auth.Principal
	anonErr     error
	tokenResult *auth.Principal
	tokenErr    error

	anonCalls  atomic.Int32
	tokenCalls atomic.Int32
}

func (f *fakeProvider) OnStateChange(h auth.StateHandler) func() {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	return func() { f.released.Store(true) }
}

func (f *fakeProvider) fire(p *auth.Principal) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(p)
}

func (f *fakeProvider) SignInAnonymously(ctx context.Context) (*auth.Principal, error) {
	f.anonCalls.Add(1)
	return f.anonResult, f.anonErr
}

func (f *fakeProvider) SignInWithToken(ctx context.Context, token string) (*auth.Principal, error) {
	f.tokenCalls.Add(1)
	return f.tokenResult, f.tokenErr
}

func waitReady(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("session never became ready")
	}
}

func TestEstablish_Branches(t *testing.T) {
	failure := errors.Join(auth.ErrAuthFailure, errors.New("backend unreachable"))

	tests := []struct {
		name         string
		provider     *fakeProvider
		initialToken string
		state        *auth.Principal
		wantID       string
		wantDegraded bool
		wantAnon     int32
		wantToken    int32
	}{
		{
			name:     "existing principal",
			provider: &fakeProvider{},
			state:    &auth.Principal{ID: "existing", Token: "tok"},
			wantID:   "existing",
		},
		{
			name:         "custom token",
			provider:     &fakeProvider{tokenResult: &auth.Principal{ID: "from-token"}},
			initialToken: "one-time",
			wantID:       "from-token",
			wantToken:    1,
		},
		{
			name:     "anonymous",
			provider: &fakeProvider{anonResult: &auth.Principal{ID: "anon", Anonymous: true}},
			wantID:   "anon",
			wantAnon: 1,
		},
		{
			name:         "custom token fails",
			provider:     &fakeProvider{tokenErr: failure},
			initialToken: "one-time",
			wantDegraded: true,
			wantToken:    1,
		},
		{
			name:         "anonymous fails",
			provider:     &fakeProvider{anonErr: failure},
			wantDegraded: true,
			wantAnon:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Establish(context.Background(), tt.provider, tt.initialToken, logger.NewNopLogger())
			defer s.Close()

			assert.False(t, s.IsReady())
			tt.provider.fire(tt.state)
			waitReady(t, s)

			assert.Equal(t, tt.wantDegraded, s.Degraded())
			if tt.wantDegraded {
				_, err := uuid.Parse(s.Identifier())
				assert.NoError(t, err, "degraded identifier should be a uuid")
			} else {
				assert.Equal(t, tt.wantID, s.Identifier())
			}
			assert.Equal(t, tt.wantAnon, tt.provider.anonCalls.Load())
			assert.Equal(t, tt.wantToken, tt.provider.tokenCalls.Load())
		})
	}
}

func TestEstablish_ReadyOnlyOnce(t *testing.T) {
	p := &fakeProvider{anonResult: &auth.Principal{ID: "first"}}
	s := Establish(context.Background(), p, "", logger.NewNopLogger())
	defer s.Close()

	p.fire(nil)
	waitReady(t, s)

	// Later notifications must not reassign the identifier or re-close Ready.
	assert.NotPanics(t, func() {
		p.fire(&auth.Principal{ID: "second"})
		p.fire(nil)
	})
	assert.Equal(t, "first", s.Identifier())
	assert.Equal(t, int32(1), p.anonCalls.Load())
}

func TestEstablish_CloseReleasesSubscription(t *testing.T) {
	p := &fakeProvider{anonResult: &auth.Principal{ID: "late"}}
	s := Establish(context.Background(), p, "", logger.NewNopLogger())

	s.Close()
	s.Close()
	require.True(t, p.released.Load())

	// A callback racing with teardown is ignored.
	p.fire(nil)
	assert.False(t, s.IsReady())
	assert.Empty(t, s.Identifier())
	assert.Equal(t, int32(0), p.anonCalls.Load())
}

func TestEstablish_StalledProviderStaysUnready(t *testing.T) {
	p := &fakeProvider{}
	s := Establish(context.Background(), p, "", logger.NewNopLogger())
	defer s.Close()

	select {
	case <-s.Ready():
		t.Fatal("session became ready without an auth notification")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, s.IsReady())
}

// boundedProvider reports the deadline of the sign-in context it was given
// and fails the way a hung backend does once that deadline passes.
type boundedProvider struct {
	fakeProvider
	deadline chan time.Time
}

func (b *boundedProvider) SignInAnonymously(ctx context.Context) (*auth.Principal, error) {
	d, _ := ctx.Deadline()
	b.deadline <- d
	return nil, context.DeadlineExceeded
}

func TestEstablish_SignInAttemptIsBounded(t *testing.T) {
	p := &boundedProvider{deadline: make(chan time.Time, 1)}
	start := time.Now()
	s := Establish(context.Background(), p, "", logger.NewNopLogger())
	defer s.Close()

	go p.fire(nil)

	var deadline time.Time
	select {
	case deadline = <-p.deadline:
	case <-time.After(time.Second):
		t.Fatal("sign-in was never attempted")
	}
	require.False(t, deadline.IsZero(), "sign-in context carries no deadline")
	assert.WithinDuration(t, start.Add(signInTimeout), deadline, time.Second)

	waitReady(t, s)
	assert.True(t, s.Degraded())
	assert.Empty(t, s.Token())
	_, err := uuid.Parse(s.Identifier())
	assert.NoError(t, err)
}
