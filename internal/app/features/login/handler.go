// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/studentportal/internal/app/features/errors"
	"github.com/dalemusser/studentportal/internal/app/store/audit"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/app/system/identity"
	"github.com/dalemusser/studentportal/internal/app/system/ratelimit"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/studentportal/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// PasswordSigner verifies an email/password pair with the identity
// provider. *identity.Client implements it.
type PasswordSigner interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identity.SignInResult, error)
}

type Handler struct {
	Log           *zap.Logger
	SessionMgr    *auth.SessionManager
	ErrLog        *uierrors.ErrorLogger
	Identity      PasswordSigner
	Limiter       *ratelimit.LoginLimiter
	AuditLog      *auditlog.Logger
	GoogleEnabled bool // True if Google sign-in is configured
}

type loginFormData struct {
	viewdata.BaseVM
	Error         string
	Email         string
	ReturnURL     string
	GoogleEnabled bool
}

func NewHandler(
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	signer PasswordSigner,
	limiter *ratelimit.LoginLimiter,
	audit *auditlog.Logger,
	googleEnabled bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:           logger,
		SessionMgr:    sessionMgr,
		ErrLog:        errLog,
		Identity:      signer,
		Limiter:       limiter,
		AuditLog:      audit,
		GoogleEnabled: googleEnabled,
	}
}

const defaultDest = "/welcome"

// redirectErrors maps ?error= codes set by the Google flow to messages.
var redirectErrors = map[string]string{
	"google_not_configured": "Google sign-in is not available.",
	"google_denied":         "Google sign-in was cancelled.",
	"invalid_state":         "Your sign-in session expired. Please try again.",
	"invalid_code":          "Google sign-in failed. Please try again.",
	"token_exchange":        "Google sign-in failed. Please try again.",
	"no_account":            "No staff account is linked to that Google account.",
	"account_disabled":      "This account has been disabled.",
	"google":                "Sign-in is unavailable right now. Please try again.",
	"internal":              "Something went wrong. Please try again.",
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	ret := query.Get(r, "return")

	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, urlutil.SafeReturn(ret, "", defaultDest), http.StatusSeeOther)
		return
	}

	data := loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Login", ""),
		Error:         redirectErrors[query.Get(r, "error")],
		ReturnURL:     ret,
		GoogleEnabled: h.GoogleEnabled,
	}
	data.Flash = h.SessionMgr.PopFlash(w, r)
	templates.Render(w, r, "login", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.renderFormWithError(w, r, http.StatusBadRequest, "Please enter your email and password.", email)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, email); !ok {
			h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedRateLimit, email, "password", "rate limited")
			h.renderFormWithError(w, r, http.StatusTooManyRequests, reason, email)
			return
		}
	}

	res, err := h.Identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		status, msg, event := classifyFailure(err)
		if event == audit.EventLoginFailedProvider {
			h.Log.Warn("identity provider sign-in failed", zap.Error(err))
		}
		h.AuditLog.LoginFailed(ctx, r, event, email, "password", err.Error())
		h.renderFormWithError(w, r, status, msg, email)
		return
	}

	u, err := h.SessionMgr.SignIn(w, r, res.IDToken)
	if err != nil {
		h.Log.Error("session cookie not issued", zap.Error(err))
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedProvider, email, "password", err.Error())
		h.renderFormWithError(w, r, http.StatusBadGateway, "Sign-in is unavailable right now. Please try again.", email)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(ctx, r, auditlog.Actor{UID: u.UID, Email: u.Email}, "password")
	h.Log.Info("user signed in", zap.String("uid", u.UID), zap.String("method", "password"))

	http.Redirect(w, r, urlutil.SafeReturn(r.FormValue("return"), "", defaultDest), http.StatusSeeOther)
}

// classifyFailure maps a sign-in error to a status, user message and
// audit event.
func classifyFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password.", audit.EventLoginFailedInvalidCredentials
	case errors.Is(err, identity.ErrUserDisabled):
		return http.StatusForbidden, "This account has been disabled.", audit.EventLoginFailedUserDisabled
	case errors.Is(err, identity.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many sign-in attempts. Please try again later.", audit.EventLoginFailedRateLimit
	default:
		return http.StatusBadGateway, "Sign-in is unavailable right now. Please try again.", audit.EventLoginFailedProvider
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| helper: render the form with an error                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, status int, msg, email string) {
	// From POST, "return" will be in the form; from GET, we might rely on the query.
	ret := strings.TrimSpace(r.FormValue("return"))
	if ret == "" {
		ret = query.Get(r, "return")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "login", loginFormData{
		BaseVM:        viewdata.NewBaseVM(r, "Login", ""),
		Error:         msg,
		Email:         email,
		ReturnURL:     ret,
		GoogleEnabled: h.GoogleEnabled,
	})
}
