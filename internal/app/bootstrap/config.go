// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the student portal.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: portal_api_url, session_name, etc.
//   - Environment variables: STUDENTPORTAL_PORTAL_API_URL, STUDENTPORTAL_SESSION_NAME, etc.
//   - Command-line flags: --portal_api_url, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "portal_api_url", Default: "http://localhost:8081", Desc: "Base URL of the portal backend API"},
	{Name: "portal_api_timeout", Default: "10s", Desc: "HTTP client timeout for portal backend calls"},

	// Firebase
	{Name: "firebase_project_id", Default: "", Desc: "Firebase project ID"},
	{Name: "firebase_api_key", Default: "", Desc: "Firebase Web API key (Identity Toolkit)"},
	{Name: "firebase_credentials_file", Default: "", Desc: "Service account JSON (blank uses application default credentials)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "studentportal-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session lifetime (Firebase allows 5m to 336h)"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL (OAuth redirect)"},

	// Audit store (optional)
	{Name: "mongo_uri", Default: "", Desc: "MongoDB connection URI for the audit trail (blank disables)"},
	{Name: "mongo_database", Default: "student_portal", Desc: "MongoDB database name"},

	// View-state store (optional Redis)
	{Name: "redis_addr", Default: "", Desc: "Redis address for shared view state (blank keeps it in memory)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "viewstate_ttl", Default: "30m", Desc: "How long roster snapshots and drafts are kept"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "login_rate_limit", Default: 10, Desc: "Sign-in attempts allowed per IP per minute"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges, with precedence
// flags > env (WAFFLE_* for core, STUDENTPORTAL_* for app) > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STUDENTPORTAL", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		PortalAPIURL:     appValues.String("portal_api_url"),
		PortalAPITimeout: appValues.Duration("portal_api_timeout", 10*time.Second),

		FirebaseProjectID:       appValues.String("firebase_project_id"),
		FirebaseAPIKey:          appValues.String("firebase_api_key"),
		FirebaseCredentialsFile: appValues.String("firebase_credentials_file"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		BaseURL: appValues.String("base_url"),

		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),
		ViewStateTTL:  appValues.Duration("viewstate_ttl", 30*time.Minute),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		LoginRateLimit: appValues.Int("login_rate_limit"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := validateAppConfig(appCfg); err != nil {
		logger.Error("invalid app config", zap.Error(err))
		return err
	}
	return nil
}

func validateAppConfig(appCfg AppConfig) error {
	u, err := url.Parse(appCfg.PortalAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("portal_api_url must be an absolute http(s) URL (got %q)", appCfg.PortalAPIURL)
	}

	if appCfg.FirebaseProjectID == "" {
		return errors.New("firebase_project_id is required")
	}
	if appCfg.FirebaseAPIKey == "" {
		return errors.New("firebase_api_key is required")
	}

	if len(appCfg.SessionKey) < 32 {
		return errors.New("session_key must be at least 32 characters")
	}
	if appCfg.SessionMaxAge < auth.MinSessionAge || appCfg.SessionMaxAge > auth.MaxSessionAge {
		return fmt.Errorf("session_max_age must be between %s and %s (got %s)", auth.MinSessionAge, auth.MaxSessionAge, appCfg.SessionMaxAge)
	}

	if appCfg.GoogleEnabled() && appCfg.BaseURL == "" {
		return errors.New("base_url is required when Google sign-in is configured")
	}

	if appCfg.MongoEnabled() {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	}

	return auditlog.Config{Auth: appCfg.AuditLogAuth, Admin: appCfg.AuditLogAdmin}.Validate()
}
