package login_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/studentportal/internal/app/features/errors"
	"github.com/dalemusser/studentportal/internal/app/features/login"
	"github.com/dalemusser/studentportal/internal/app/store/audit"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/identity"
	"github.com/dalemusser/studentportal/internal/app/system/ratelimit"
	"github.com/dalemusser/studentportal/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const signInPath = "/accounts:signInWithPassword"

type fixture struct {
	handler  *login.Handler
	backend  *testutil.Backend
	verifier *testutil.FakeVerifier
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, limiter *ratelimit.LoginLimiter) fixture {
	t.Helper()
	backend := testutil.NewBackend(t)
	verifier := testutil.NewFakeVerifier()
	sm := testutil.NewSessionManager(t, verifier)

	core, logs := observer.New(zapcore.InfoLevel)
	al := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.DestLog, Admin: auditlog.DestOff})

	client := &identity.Client{
		BaseURL: backend.URL,
		APIKey:  "test-key",
		HTTP:    &http.Client{Timeout: 2 * time.Second},
		Log:     zap.NewNop(),
	}
	h := login.NewHandler(sm, uierrors.NewErrorLogger(zap.NewNop()), client, limiter, al, false, zap.NewNop())
	return fixture{handler: h, backend: backend, verifier: verifier, logs: logs}
}

func postLogin(email, password, ret string) *http.Request {
	form := url.Values{"email": {email}, "password": {password}}
	if ret != "" {
		form.Set("return", ret)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func auditEvents(logs *observer.ObservedLogs, eventType string) int {
	return logs.FilterField(zap.String("event_type", eventType)).Len()
}

func TestHandleLoginPost_Success(t *testing.T) {
	f := newFixture(t, nil)
	user := testutil.StaffUser()
	f.verifier.Allow("id-token-1", user)
	f.backend.JSON(http.MethodPost, signInPath, http.StatusOK, map[string]string{
		"idToken": "id-token-1",
		"email":   user.Email,
		"localId": user.UID,
	})

	rec := httptest.NewRecorder()
	f.handler.HandleLoginPost(rec, postLogin(user.Email, "secret", ""))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/welcome" {
		t.Errorf("Location: got %q, want %q", loc, "/welcome")
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}
	if got := f.backend.Hits(http.MethodPost, signInPath); got != 1 {
		t.Errorf("identity calls: got %d, want 1", got)
	}
	if got := auditEvents(f.logs, audit.EventLoginSuccess); got != 1 {
		t.Errorf("login_success events: got %d, want 1", got)
	}
}

func TestHandleLoginPost_HonoursLocalReturn(t *testing.T) {
	f := newFixture(t, nil)
	user := testutil.StaffUser()
	f.verifier.Allow("id-token-1", user)
	f.backend.JSON(http.MethodPost, signInPath, http.StatusOK, map[string]string{"idToken": "id-token-1"})

	rec := httptest.NewRecorder()
	f.handler.HandleLoginPost(rec, postLogin(user.Email, "secret", "/fees"))

	if loc := rec.Header().Get("Location"); loc != "/fees" {
		t.Errorf("Location: got %q, want %q", loc, "/fees")
	}
}

func TestHandleLoginPost_InvalidCredentials(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.JSON(http.MethodPost, signInPath, http.StatusBadRequest, map[string]any{
		"error": map[string]any{"code": 400, "message": "INVALID_LOGIN_CREDENTIALS"},
	})

	rec := httptest.NewRecorder()
	testutil.RenderSafely(func() {
		f.handler.HandleLoginPost(rec, postLogin("staff@example.edu", "wrong", ""))
	})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec.Header().Get("Location") != "" {
		t.Error("failed sign-in must not redirect")
	}
	if got := auditEvents(f.logs, audit.EventLoginFailedInvalidCredentials); got != 1 {
		t.Errorf("invalid credential events: got %d, want 1", got)
	}
}

func TestHandleLoginPost_MissingFields(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	testutil.RenderSafely(func() {
		f.handler.HandleLoginPost(rec, postLogin("", "", ""))
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if f.backend.TotalHits() != 0 {
		t.Error("identity provider should not be called without credentials")
	}
}

func TestHandleLoginPost_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLoginLimiter(1)
	t.Cleanup(limiter.Stop)
	f := newFixture(t, limiter)
	f.backend.JSON(http.MethodPost, signInPath, http.StatusBadRequest, map[string]any{
		"error": map[string]any{"message": "INVALID_PASSWORD"},
	})

	testutil.RenderSafely(func() {
		f.handler.HandleLoginPost(httptest.NewRecorder(), postLogin("staff@example.edu", "wrong", ""))
	})

	rec := httptest.NewRecorder()
	testutil.RenderSafely(func() {
		f.handler.HandleLoginPost(rec, postLogin("staff@example.edu", "wrong", ""))
	})

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := f.backend.Hits(http.MethodPost, signInPath); got != 1 {
		t.Errorf("identity calls: got %d, want 1", got)
	}
	if got := auditEvents(f.logs, audit.EventLoginFailedRateLimit); got != 1 {
		t.Errorf("rate limit events: got %d, want 1", got)
	}
}

func TestHandleLoginPost_SessionMintFails(t *testing.T) {
	f := newFixture(t, nil)
	f.verifier.Down = true
	f.backend.JSON(http.MethodPost, signInPath, http.StatusOK, map[string]string{"idToken": "id-token-1"})

	rec := httptest.NewRecorder()
	testutil.RenderSafely(func() {
		f.handler.HandleLoginPost(rec, postLogin("staff@example.edu", "secret", ""))
	})

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if got := auditEvents(f.logs, audit.EventLoginFailedProvider); got != 1 {
		t.Errorf("provider failure events: got %d, want 1", got)
	}
}

func TestServeLogin_SignedInUserRedirects(t *testing.T) {
	f := newFixture(t, nil)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/login?return=/register", testutil.StaffUser())
	rec := httptest.NewRecorder()
	f.handler.ServeLogin(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/register" {
		t.Errorf("Location: got %q, want %q", loc, "/register")
	}
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		err    error
		status int
		event  string
	}{
		{identity.ErrInvalidCredentials, http.StatusUnauthorized, audit.EventLoginFailedInvalidCredentials},
		{identity.ErrUserDisabled, http.StatusForbidden, audit.EventLoginFailedUserDisabled},
		{identity.ErrTooManyAttempts, http.StatusTooManyRequests, audit.EventLoginFailedRateLimit},
		{errors.New("boom"), http.StatusBadGateway, audit.EventLoginFailedProvider},
	}
	for _, tt := range tests {
		status, msg, event := login.ClassifyFailure(tt.err)
		if status != tt.status || event != tt.event {
			t.Errorf("%v: got (%d, %q), want (%d, %q)", tt.err, status, event, tt.status, tt.event)
		}
		if msg == "" {
			t.Errorf("%v: empty user message", tt.err)
		}
	}
}
