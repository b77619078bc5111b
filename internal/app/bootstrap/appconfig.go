// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and request limits; everything the portal itself
// needs lives here.
type AppConfig struct {
	// Portal backend (students, fees, attendance, registration)
	PortalAPIURL     string        // e.g., https://portal-api.example.edu
	PortalAPITimeout time.Duration // per-request HTTP client timeout

	// Firebase identity provider
	FirebaseProjectID       string
	FirebaseAPIKey          string // Web API key for Identity Toolkit REST calls
	FirebaseCredentialsFile string // Service account JSON; blank uses application default credentials

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: studentportal-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Lifetime of the Firebase session cookie

	// Google sign-in (disabled when either value is blank)
	GoogleClientID     string
	GoogleClientSecret string

	// Public base URL, used for the OAuth redirect
	BaseURL string // e.g., "https://portal.example.edu" or "http://localhost:3000"

	// MongoDB holds the audit trail. Optional: blank URI logs audit events to zap only.
	MongoURI      string
	MongoDatabase string

	// Redis backs the view-state store. Optional: blank address keeps it in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ViewStateTTL  time.Duration

	// Audit logging destinations: all, db, log, off
	AuditLogAuth  string
	AuditLogAdmin string

	// Sign-in attempts allowed per client IP per minute
	LoginRateLimit int
}

// MongoEnabled reports whether an audit database is configured.
func (c AppConfig) MongoEnabled() bool { return c.MongoURI != "" }

// RedisEnabled reports whether view state is shared through Redis.
func (c AppConfig) RedisEnabled() bool { return c.RedisAddr != "" }

// GoogleEnabled reports whether Google sign-in is configured.
func (c AppConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
