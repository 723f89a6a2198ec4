package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"dva-dashboard-be/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var testServiceConfig = config.ServiceConfig{
	APIKey:     "k",
	AuthDomain: "dva.firebaseapp.com",
	ProjectID:  "dva",
	AppID:      "app",
}

func waitState(t *testing.T, ch <-chan *Principal) *Principal {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(time.Second):
		t.Fatal("no auth state notification")
		return nil
	}
}

func TestJWTProvider_InitialStateSignedOut(t *testing.T) {
	p := NewJWTProvider(testServiceConfig, testSecret, time.Hour, "")

	states := make(chan *Principal, 1)
	unsubscribe := p.OnStateChange(func(pr *Principal) { states <- pr })
	defer unsubscribe()

	assert.Nil(t, waitState(t, states))
}

func TestJWTProvider_ExistingSessionIsRestored(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour, "dva", "dva.firebaseapp.com")
	token, err := issuer.Issue("user-1", false)
	require.NoError(t, err)

	p := NewJWTProvider(testServiceConfig, testSecret, time.Hour, token)

	states := make(chan *Principal, 1)
	unsubscribe := p.OnStateChange(func(pr *Principal) { states <- pr })
	defer unsubscribe()

	got := waitState(t, states)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.ID)
}

func TestJWTProvider_TamperedSessionIsIgnored(t *testing.T) {
	other := NewIssuer("another-secret", time.Hour, "dva", "")
	token, err := other.Issue("intruder", false)
	require.NoError(t, err)

	p := NewJWTProvider(testServiceConfig, testSecret, time.Hour, token)

	states := make(chan *Principal, 1)
	unsubscribe := p.OnStateChange(func(pr *Principal) { states <- pr })
	defer unsubscribe()

	assert.Nil(t, waitState(t, states))
}

func TestJWTProvider_SignInAnonymously(t *testing.T) {
	p := NewJWTProvider(testServiceConfig, testSecret, time.Hour, "")

	principal, err := p.SignInAnonymously(context.Background())
	require.NoError(t, err)
	assert.True(t, principal.Anonymous)
	assert.NotEmpty(t, principal.ID)

	verified, err := p.Verify(principal.Token)
	require.NoError(t, err)
	assert.Equal(t, principal.ID, verified.ID)
	assert.True(t, verified.Anonymous)
}

func TestJWTProvider_SignInWithToken(t *testing.T) {
	custom := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": "analyst-7"})
	token, err := custom.SignedString([]byte(testSecret))
	require.NoError(t, err)

	p := NewJWTProvider(testServiceConfig, testSecret, time.Hour, "")

	principal, err := p.SignInWithToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "analyst-7", principal.ID)
	assert.False(t, principal.Anonymous)
	assert.NotEqual(t, token, principal.Token)
}

func TestJWTProvider_SignInFailures(t *testing.T) {
	wrongAudience := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": "u", "aud": "other-project"})
	wrongAudienceToken, err := wrongAudience.SignedString([]byte(testSecret))
	require.NoError(t, err)

	noUID := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"})
	noUIDToken, err := noUID.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong audience", token: wrongAudienceToken},
		{name: "missing uid", token: noUIDToken},
	}

	p := NewJWTProvider(testServiceConfig, testSecret, time.Hour, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.SignInWithToken(context.Background(), tt.token)
			assert.True(t, errors.Is(err, ErrAuthFailure), "got %v", err)
		})
	}
}

func TestJWTProvider_NoSecretFailsSignIn(t *testing.T) {
	p := NewJWTProvider(testServiceConfig, "", time.Hour, "")

	_, err := p.SignInAnonymously(context.Background())
	assert.True(t, errors.Is(err, ErrAuthFailure))
}

func TestJWTProvider_UnsubscribeStopsNotifications(t *testing.T) {
	p := NewJWTProvider(testServiceConfig, testSecret, time.Hour, "")

	states := make(chan *Principal, 4)
	unsubscribe := p.OnStateChange(func(pr *Principal) { states <- pr })
	waitState(t, states)
	unsubscribe()
	unsubscribe()

	_, err := p.SignInAnonymously(context.Background())
	require.NoError(t, err)

	select {
	case pr := <-states:
		t.Fatalf("unexpected notification after unsubscribe: %+v", pr)
	case <-time.After(50 * time.Millisecond):
	}
}
