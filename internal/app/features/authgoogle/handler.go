// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/studentportal/internal/app/store/audit"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/app/system/identity"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/studentportal/internal/app/system/viewstate"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// googleProviderID is the Firebase provider id for Google accounts.
const googleProviderID = "google.com"

// IdpSigner exchanges a federated ID token for a Firebase ID token.
// *identity.Client implements it.
type IdpSigner interface {
	SignInWithIdp(ctx context.Context, providerID, providerIDToken, requestURI string) (*identity.SignInResult, error)
}

// Handler handles Google OAuth authentication.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	State      viewstate.Store
	Identity   IdpSigner

	// OAuth configuration
	ClientID     string
	ClientSecret string
	BaseURL      string // e.g., "https://portal.example.edu"
	RedirectURL  string // BaseURL + "/auth/google/callback"

	// Endpoint defaults to Google's; tests point it elsewhere.
	Endpoint oauth2.Endpoint
}

// pendingLogin is stored under the OAuth state until the callback.
type pendingLogin struct {
	Return string `json:"return"`
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	state viewstate.Store,
	signer IdpSigner,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Handler{
		Log:          logger,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		State:        state,
		Identity:     signer,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		BaseURL:      baseURL,
		RedirectURL:  baseURL + "/auth/google/callback",
		Endpoint:     google.Endpoint,
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state := generateState()
	if state == "" {
		h.Log.Error("failed to generate OAuth state")
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	returnURL := query.Get(r, "return")
	if err := h.State.Save(ctx, viewstate.OAuthStateKey(state), pendingLogin{Return: returnURL}); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, trades Google's ID token for a Firebase one and signs   |
| the staff member in.                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.API())
	defer cancel()

	state := query.Get(r, "state")
	pending, ok := h.consumeState(ctx, state)
	if !ok {
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}
	googleIDToken, _ := token.Extra("id_token").(string)
	if googleIDToken == "" {
		h.Log.Error("token response carried no id_token")
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	res, err := h.Identity.SignInWithIdp(ctx, googleProviderID, googleIDToken, h.RedirectURL)
	if err != nil {
		event := audit.EventLoginFailedProvider
		reason := "google"
		switch {
		case errors.Is(err, identity.ErrUserDisabled):
			event, reason = audit.EventLoginFailedUserDisabled, "account_disabled"
		case errors.Is(err, identity.ErrInvalidCredentials):
			event, reason = audit.EventLoginFailedInvalidCredentials, "no_account"
		default:
			h.Log.Error("identity provider rejected Google token", zap.Error(err))
		}
		h.AuditLog.LoginFailed(ctx, r, event, "", "google", err.Error())
		http.Redirect(w, r, "/login?error="+reason, http.StatusSeeOther)
		return
	}

	u, err := h.SessionMgr.SignIn(w, r, res.IDToken)
	if err != nil {
		h.Log.Error("session cookie not issued", zap.Error(err))
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedProvider, res.Email, "google", err.Error())
		http.Redirect(w, r, "/login?error=google", http.StatusSeeOther)
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, auditlog.Actor{UID: u.UID, Email: u.Email}, "google")
	h.Log.Info("user signed in", zap.String("uid", u.UID), zap.String("method", "google"))

	http.Redirect(w, r, urlutil.SafeReturn(pending.Return, "", "/welcome"), http.StatusSeeOther)
}

// consumeState loads and deletes the pending login for state. A state
// can be redeemed once.
func (h *Handler) consumeState(ctx context.Context, state string) (pendingLogin, bool) {
	var p pendingLogin
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		return p, false
	}
	key := viewstate.OAuthStateKey(state)
	found, err := h.State.Load(ctx, key, &p)
	if err != nil {
		h.Log.Error("failed to load OAuth state", zap.Error(err))
		return p, false
	}
	if !found {
		h.Log.Warn("invalid or expired OAuth state")
		return p, false
	}
	if err := h.State.Delete(ctx, key); err != nil {
		h.Log.Warn("failed to delete OAuth state", zap.Error(err))
	}
	return p, true
}

// generateState returns a URL-safe random state, or "" if the system
// random source failed.
func generateState() string {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
