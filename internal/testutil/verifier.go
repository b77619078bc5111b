package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"go.uber.org/zap"
)

// ErrFakeRejected is returned by FakeVerifier for unknown tokens or cookies.
var ErrFakeRejected = errors.New("fake verifier: rejected")

// FakeVerifier is an in-memory stand-in for the Firebase auth client.
// ID tokens registered with Allow mint session cookies "session:<token>".
type FakeVerifier struct {
	mu      sync.Mutex
	users   map[string]TestUser
	revoked map[string]bool

	// Down makes every call fail, as if the provider were unreachable.
	Down bool
}

// NewFakeVerifier returns an empty verifier.
func NewFakeVerifier() *FakeVerifier {
	return &FakeVerifier{
		users:   make(map[string]TestUser),
		revoked: make(map[string]bool),
	}
}

// Allow registers idToken as a valid token for u.
func (f *FakeVerifier) Allow(idToken string, u TestUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[idToken] = u
}

// Revoke invalidates every session minted from idToken.
func (f *FakeVerifier) Revoke(idToken string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[idToken] = true
}

// SessionCookie implements auth.TokenVerifier.
func (f *FakeVerifier) SessionCookie(_ context.Context, idToken string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return "", ErrFakeRejected
	}
	if _, ok := f.users[idToken]; !ok {
		return "", ErrFakeRejected
	}
	return "session:" + idToken, nil
}

// VerifySessionCookie implements auth.TokenVerifier.
func (f *FakeVerifier) VerifySessionCookie(_ context.Context, cookie string) (*fbauth.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return nil, ErrFakeRejected
	}
	idToken, ok := strings.CutPrefix(cookie, "session:")
	if !ok || f.revoked[idToken] {
		return nil, ErrFakeRejected
	}
	u, ok := f.users[idToken]
	if !ok {
		return nil, ErrFakeRejected
	}
	return &fbauth.Token{
		UID: u.UID,
		Claims: map[string]interface{}{
			"email": u.Email,
			"name":  u.Name,
		},
	}, nil
}

// NewSessionManager returns a SessionManager for handler tests, backed by v.
func NewSessionManager(t *testing.T, v auth.TokenVerifier) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", 24*time.Hour, false, v, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}
