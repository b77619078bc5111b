package authgoogle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/studentportal/internal/app/features/authgoogle"
	"github.com/dalemusser/studentportal/internal/app/store/audit"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/identity"
	"github.com/dalemusser/studentportal/internal/app/system/viewstate"
	"github.com/dalemusser/studentportal/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"
)

const idpPath = "/accounts:signInWithIdp"

type fixture struct {
	handler  *authgoogle.Handler
	backend  *testutil.Backend
	verifier *testutil.FakeVerifier
	state    *viewstate.Memory
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, clientID, clientSecret string) fixture {
	t.Helper()
	backend := testutil.NewBackend(t)
	verifier := testutil.NewFakeVerifier()
	sm := testutil.NewSessionManager(t, verifier)

	state := viewstate.NewMemory(time.Minute)
	t.Cleanup(state.Close)

	core, logs := observer.New(zapcore.InfoLevel)
	al := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.DestLog, Admin: auditlog.DestOff})

	client := &identity.Client{
		BaseURL: backend.URL,
		APIKey:  "test-key",
		HTTP:    &http.Client{Timeout: 2 * time.Second},
		Log:     zap.NewNop(),
	}

	h := authgoogle.NewHandler(sm, al, state, client, clientID, clientSecret, "http://localhost:8080/", zap.NewNop())
	h.Endpoint = oauth2.Endpoint{
		AuthURL:   backend.URL + "/o/auth",
		TokenURL:  backend.URL + "/o/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return fixture{handler: h, backend: backend, verifier: verifier, state: state, logs: logs}
}

// begin runs ServeLogin and returns the state it issued.
func begin(t *testing.T, f fixture, target string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeLogin(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("ServeLogin status: got %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("consent redirect carried no state")
	}
	return state
}

func callback(f fixture, state, code string) *httptest.ResponseRecorder {
	q := url.Values{"state": {state}, "code": {code}}
	rec := httptest.NewRecorder()
	f.handler.ServeCallback(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+q.Encode(), nil))
	return rec
}

func TestNewHandler_TrimsBaseURL(t *testing.T) {
	f := newFixture(t, "id", "secret")
	if f.handler.RedirectURL != "http://localhost:8080/auth/google/callback" {
		t.Errorf("RedirectURL: got %q", f.handler.RedirectURL)
	}
}

func TestIsConfigured(t *testing.T) {
	if !newFixture(t, "id", "secret").handler.IsConfigured() {
		t.Error("IsConfigured() should be true with client ID and secret")
	}
	if newFixture(t, "", "").handler.IsConfigured() {
		t.Error("IsConfigured() should be false without client ID and secret")
	}
}

func TestServeLogin_NotConfigured(t *testing.T) {
	f := newFixture(t, "", "")

	rec := httptest.NewRecorder()
	f.handler.ServeLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "google_not_configured") {
		t.Errorf("Location: got %q", loc)
	}
}

func TestServeLogin_StoresState(t *testing.T) {
	f := newFixture(t, "id", "secret")
	state := begin(t, f, "/auth/google?return=/fees")

	var pending struct {
		Return string `json:"return"`
	}
	found, err := f.state.Load(context.Background(), viewstate.OAuthStateKey(state), &pending)
	if err != nil || !found {
		t.Fatalf("state not stored: found=%v err=%v", found, err)
	}
	if pending.Return != "/fees" {
		t.Errorf("return: got %q, want %q", pending.Return, "/fees")
	}
}

func TestServeCallback_Success(t *testing.T) {
	f := newFixture(t, "id", "secret")
	user := testutil.StaffUser()
	f.verifier.Allow("firebase-token", user)
	f.backend.JSON(http.MethodPost, "/o/token", http.StatusOK, map[string]any{
		"access_token": "access",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     "google-id-token",
	})
	f.backend.JSON(http.MethodPost, idpPath, http.StatusOK, map[string]string{
		"idToken": "firebase-token",
		"email":   user.Email,
	})

	state := begin(t, f, "/auth/google?return=/register")
	rec := callback(f, state, "auth-code")

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/register" {
		t.Errorf("Location: got %q, want %q", loc, "/register")
	}
	bodies := f.backend.Bodies(http.MethodPost, idpPath)
	if len(bodies) != 1 || !strings.Contains(bodies[0], "google-id-token") {
		t.Errorf("identity request did not carry the Google token: %v", bodies)
	}
	if n := f.logs.FilterField(zap.String("event_type", audit.EventLoginSuccess)).Len(); n != 1 {
		t.Errorf("login_success events: got %d, want 1", n)
	}
}

func TestServeCallback_StateIsSingleUse(t *testing.T) {
	f := newFixture(t, "id", "secret")
	f.backend.Fail(http.MethodPost, "/o/token", http.StatusBadRequest)

	state := begin(t, f, "/auth/google")
	callback(f, state, "auth-code")
	rec := callback(f, state, "auth-code")

	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_state") {
		t.Errorf("Location: got %q, want invalid_state", loc)
	}
	if got := f.backend.Hits(http.MethodPost, "/o/token"); got != 1 {
		t.Errorf("token exchanges: got %d, want 1", got)
	}
}

func TestServeCallback_UnknownState(t *testing.T) {
	f := newFixture(t, "id", "secret")

	rec := callback(f, "forged", "auth-code")

	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_state") {
		t.Errorf("Location: got %q, want invalid_state", loc)
	}
	if f.backend.TotalHits() != 0 {
		t.Error("no provider call expected for a forged state")
	}
}

func TestServeCallback_ProviderDenied(t *testing.T) {
	f := newFixture(t, "id", "secret")

	rec := httptest.NewRecorder()
	f.handler.ServeCallback(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied", nil))

	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "google_denied") {
		t.Errorf("Location: got %q, want google_denied", loc)
	}
}

func TestServeCallback_DisabledAccount(t *testing.T) {
	f := newFixture(t, "id", "secret")
	f.backend.JSON(http.MethodPost, "/o/token", http.StatusOK, map[string]any{
		"access_token": "access",
		"token_type":   "Bearer",
		"id_token":     "google-id-token",
	})
	f.backend.JSON(http.MethodPost, idpPath, http.StatusBadRequest, map[string]any{
		"error": map[string]any{"message": "USER_DISABLED"},
	})

	state := begin(t, f, "/auth/google")
	rec := callback(f, state, "auth-code")

	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "account_disabled") {
		t.Errorf("Location: got %q, want account_disabled", loc)
	}
	if n := f.logs.FilterField(zap.String("event_type", audit.EventLoginFailedUserDisabled)).Len(); n != 1 {
		t.Errorf("user disabled events: got %d, want 1", n)
	}
}
