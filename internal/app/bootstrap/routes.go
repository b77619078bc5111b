// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"net/url"
	"sync"

	auditlogfeature "github.com/dalemusser/studentportal/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/studentportal/internal/app/features/authgoogle"
	errorsfeature "github.com/dalemusser/studentportal/internal/app/features/errors"
	feestatusfeature "github.com/dalemusser/studentportal/internal/app/features/feestatus"
	healthfeature "github.com/dalemusser/studentportal/internal/app/features/health"
	homefeature "github.com/dalemusser/studentportal/internal/app/features/home"
	loginfeature "github.com/dalemusser/studentportal/internal/app/features/login"
	logoutfeature "github.com/dalemusser/studentportal/internal/app/features/logout"
	registrationfeature "github.com/dalemusser/studentportal/internal/app/features/registration"
	welcomefeature "github.com/dalemusser/studentportal/internal/app/features/welcome"
	attendancestore "github.com/dalemusser/studentportal/internal/app/store/attendance"
	auditstore "github.com/dalemusser/studentportal/internal/app/store/audit"
	feestore "github.com/dalemusser/studentportal/internal/app/store/fees"
	studentstore "github.com/dalemusser/studentportal/internal/app/store/students"
	userstore "github.com/dalemusser/studentportal/internal/app/store/users"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/app/system/identity"
	"github.com/dalemusser/studentportal/internal/app/system/metrics"
	"github.com/dalemusser/studentportal/internal/app/system/portalapi"
	"github.com/dalemusser/studentportal/internal/app/system/ratelimit"
	"github.com/dalemusser/studentportal/internal/app/system/reqgen"
	"github.com/dalemusser/studentportal/internal/app/system/viewstate"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// In-process resources started by BuildHandler and stopped by Shutdown.
var (
	closersMu sync.Mutex
	closers   []func()
)

func onShutdown(f func()) {
	closersMu.Lock()
	defer closersMu.Unlock()
	closers = append(closers, f)
}

func closeRuntime(logger *zap.Logger) {
	closersMu.Lock()
	defer closersMu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	if len(closers) > 0 {
		logger.Info("stopped in-process workers", zap.Int("count", len(closers)))
	}
	closers = nil
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The portal builds its backend client,
// stores, view-state store and audit logger here, applies the global
// middleware (request id, real IP, recoverer, metrics, CSRF, session
// loading) and mounts every feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, deps.FirebaseAuth, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)
	m := metrics.New()

	// Portal backend and the stores over it.
	api := portalapi.New(appCfg.PortalAPIURL, appCfg.PortalAPITimeout, m, logger)
	students := studentstore.New(api)
	users := userstore.New(api)
	fees := feestore.New(api)
	attendance := attendancestore.New(api)

	state := buildViewState(appCfg, deps, logger)
	gens := reqgen.New(state)

	// A nil *auditstore.Store must not reach the Sink or EventQuerier interfaces.
	var (
		sink   auditlog.Sink
		events auditlogfeature.EventQuerier
	)
	if deps.MongoDatabase != nil {
		store := auditstore.New(deps.MongoDatabase)
		sink, events = store, store
	}
	audit := auditlog.New(sink, logger, auditlog.Config{Auth: appCfg.AuditLogAuth, Admin: appCfg.AuditLogAdmin})

	idp := identity.New(appCfg.FirebaseAPIKey, appCfg.PortalAPITimeout, logger)
	limiter := ratelimit.NewLoginLimiter(appCfg.LoginRateLimit)
	onShutdown(limiter.Stop)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(csrfMiddleware(appCfg, secure))

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Ops endpoints
	checks := []healthfeature.Check{{Name: "viewstate", Ping: state.Ping}}
	if deps.MongoClient != nil {
		checks = append([]healthfeature.Check{healthfeature.MongoCheck(deps.MongoClient)}, checks...)
	}
	healthHandler := healthfeature.NewHandler(logger, checks...)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", m.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	homeHandler := homefeature.NewHandler(logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(sessionMgr, errLog, idp, limiter, audit, appCfg.GoogleEnabled(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	googleHandler := authgooglefeature.NewHandler(sessionMgr, audit, state, idp,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Portal pages
	welcomeHandler := welcomefeature.NewHandler(students, users, fees, attendance, gens, errLog, logger)
	r.Mount("/welcome", welcomefeature.Routes(welcomeHandler, sessionMgr))

	feesHandler := feestatusfeature.NewHandler(students, fees, state, sessionMgr, audit, m, errLog, logger)
	r.Mount("/fees", feestatusfeature.Routes(feesHandler, sessionMgr))

	registrationHandler := registrationfeature.NewHandler(students, state, audit, errLog, logger)
	r.Mount("/register", registrationfeature.Routes(registrationHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(events, errLog, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}

// buildViewState returns the Redis store when Redis is connected and an
// in-memory store otherwise.
func buildViewState(appCfg AppConfig, deps DBDeps, logger *zap.Logger) viewstate.Store {
	if deps.Redis != nil {
		logger.Info("view state shared through Redis")
		return viewstate.NewRedis(deps.Redis, "", appCfg.ViewStateTTL)
	}
	logger.Info("view state kept in memory (single instance only)")
	mem := viewstate.NewMemory(appCfg.ViewStateTTL)
	onShutdown(mem.Close)
	return mem
}

// csrfMiddleware protects every state-changing request. The token is read
// from the "gorilla.csrf.Token" form field or the X-CSRF-Token header that
// the layout adds to htmx requests.
func csrfMiddleware(appCfg AppConfig, secure bool) func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	}
	if u, err := url.Parse(appCfg.BaseURL); err == nil && u.Host != "" {
		opts = append(opts, csrf.TrustedOrigins([]string{u.Host}))
	}
	protect := csrf.Protect([]byte(appCfg.SessionKey)[:32], opts...)

	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secure {
			return h
		}
		// Plain-HTTP development: skip the HTTPS referer check.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
