package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "studentportal-session"

	sessionCookieKey = "fb_session"
	userEmailKey     = "user_email"
	userNameKey      = "user_name"
)

// Firebase accepts session cookie lifetimes between five minutes and two weeks.
const (
	MinSessionAge = 5 * time.Minute
	MaxSessionAge = 14 * 24 * time.Hour
)

// ErrNoSession is returned by Identify when the request carries no
// verifiable identity.
var ErrNoSession = errors.New("auth: no session")

// TokenVerifier mints and verifies identity-provider session cookies.
// *firebase.google.com/go/v4/auth.Client satisfies it.
type TokenVerifier interface {
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*fbauth.Token, error)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the verified identity injected into r.Context().
type SessionUser struct {
	UID   string
	Email string
	Name  string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser returns a copy of r carrying u, as LoadSessionUser would.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and the identity verifier. It is
// built once in bootstrap and passed to every feature that needs a guard.
type SessionManager struct {
	store    *sessions.CookieStore
	name     string
	maxAge   time.Duration
	verifier TokenVerifier
	log      *zap.Logger
}

// NewSessionManager creates a session manager backed by a gorilla cookie
// store. The `secure` flag controls whether cookies are marked Secure and
// which SameSite mode is used.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, verifier TokenVerifier, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if verifier == nil {
		return nil, fmt.Errorf("token verifier is nil")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}
	switch {
	case maxAge < MinSessionAge:
		logger.Warn("session max age below provider minimum; clamping",
			zap.Duration("max_age", maxAge), zap.Duration("min", MinSessionAge))
		maxAge = MinSessionAge
	case maxAge > MaxSessionAge:
		logger.Warn("session max age above provider maximum; clamping",
			zap.Duration("max_age", maxAge), zap.Duration("max", MaxSessionAge))
		maxAge = MaxSessionAge
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{
		store:    store,
		name:     name,
		maxAge:   maxAge,
		verifier: verifier,
		log:      logger,
	}, nil
}

// Store exposes the underlying cookie store.
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// Name is the session cookie name.
func (sm *SessionManager) Name() string { return sm.name }

// GetSession returns the request's session. A cookie that fails to decode
// (rotated key, tampering) yields a fresh empty session.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			sm.log.Debug("discarding undecodable session cookie", zap.Error(err))
			return sess, nil
		}
		return sess, err
	}
	return sess, nil
}

// Identify resolves the identity for r by verifying the stored provider
// session cookie. Every failure is reported as ErrNoSession (wrapped).
func (sm *SessionManager) Identify(r *http.Request) (*SessionUser, error) {
	sess, err := sm.GetSession(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	cookie, _ := sess.Values[sessionCookieKey].(string)
	if cookie == "" {
		return nil, ErrNoSession
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	tok, err := sm.verifier.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return userFromToken(tok, sess), nil
}

// LoadSessionUser injects the verified user into context when there is one.
// Missing, expired or revoked sessions all continue without a user.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := sm.Identify(r)
		if err != nil {
			// Bare ErrNoSession means no cookie at all; anything else had one.
			if err != ErrNoSession {
				sm.log.Debug("session not verified", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}

		ret := url.QueryEscape(currentURI(r))

		// HTMX: full-page client redirect (no partial swap)
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", "/login?return="+ret)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if wantsHTML(r) {
			http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
			return
		}

		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

// SignIn exchanges a provider ID token for a session cookie and stores it.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, idToken string) (*SessionUser, error) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cookie, err := sm.verifier.SessionCookie(ctx, idToken, sm.maxAge)
	if err != nil {
		return nil, fmt.Errorf("mint session cookie: %w", err)
	}
	tok, err := sm.verifier.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return nil, fmt.Errorf("verify new session cookie: %w", err)
	}

	sess, _ := sm.GetSession(r)
	u := userFromToken(tok, sess)
	sess.Values[sessionCookieKey] = cookie
	sess.Values[userEmailKey] = u.Email
	sess.Values[userNameKey] = u.Name
	if err := sess.Save(r, w); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return u, nil
}

// SignOut deletes the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.GetSession(r)
	delete(sess.Values, sessionCookieKey)
	delete(sess.Values, userEmailKey)
	delete(sess.Values, userNameKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// AddFlash stores a one-shot message shown on the next page render.
func (sm *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, msg string) {
	sess, _ := sm.GetSession(r)
	sess.AddFlash(msg)
	if err := sess.Save(r, w); err != nil {
		sm.log.Warn("save flash failed", zap.Error(err))
	}
}

// PopFlash returns and clears the pending flash message, if any.
func (sm *SessionManager) PopFlash(w http.ResponseWriter, r *http.Request) string {
	sess, _ := sm.GetSession(r)
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	if err := sess.Save(r, w); err != nil {
		sm.log.Warn("clear flash failed", zap.Error(err))
	}
	msg, _ := flashes[0].(string)
	return msg
}

// helpers

func userFromToken(tok *fbauth.Token, sess *sessions.Session) *SessionUser {
	u := &SessionUser{UID: tok.UID}
	if v, ok := tok.Claims["email"].(string); ok {
		u.Email = v
	}
	if v, ok := tok.Claims["name"].(string); ok {
		u.Name = v
	}
	if u.Email == "" {
		u.Email = getString(sess, userEmailKey)
	}
	if u.Name == "" {
		u.Name = getString(sess, userNameKey)
	}
	return u
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func getString(s *sessions.Session, key string) string {
	if s == nil {
		return ""
	}
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}
