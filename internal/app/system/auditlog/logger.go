// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/studentportal/internal/app/store/audit"
	"github.com/dalemusser/studentportal/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Destinations accepted for each category.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls sign-in and sign-out events.
	Auth string
	// Admin controls staff changes made through the portal (fee status,
	// registrations, exports).
	Admin string
}

// Validate rejects unknown destinations.
func (c Config) Validate() error {
	for name, v := range map[string]string{"audit_log_auth": c.Auth, "audit_log_admin": c.Admin} {
		switch v {
		case DestAll, DestDB, DestLog, DestOff:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", name, v)
		}
	}
	return nil
}

// Sink persists events. *audit.Store implements it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger writes audit events to zap and, when a sink is configured, to Mongo.
type Logger struct {
	store  Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. store may be nil when Mongo is not
// configured; "db" destinations are then dropped and "all" logs to zap only.
func New(store Sink, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// Actor identifies who performed an action.
type Actor struct {
	UID   string
	Email string
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.ActorUID != "" {
		fields = append(fields, zap.String("actor_uid", event.ActorUID))
	}
	if event.ActorEmail != "" {
		fields = append(fields, zap.String("actor_email", event.ActorEmail))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the category's destination.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = DestAll
	}

	if setting == DestOff {
		return
	}
	if setting == DestAll || setting == DestLog {
		l.logToZap(event)
	}
	if (setting == DestAll || setting == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func base(r *http.Request, category, eventType string, a Actor, ok bool) audit.Event {
	return audit.Event{
		Category:   category,
		EventType:  eventType,
		ActorUID:   a.UID,
		ActorEmail: a.Email,
		IP:         ratelimit.ClientIP(r),
		UserAgent:  r.UserAgent(),
		Success:    ok,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in. method is "password" or "google".
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, a Actor, method string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginSuccess, a, true)
	e.Details = map[string]string{"auth_method": method}
	l.Log(ctx, e)
}

// LoginFailed logs a rejected sign-in attempt. eventType is one of the
// audit.EventLoginFailed* constants.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType, attemptedEmail, method, reason string) {
	e := base(r, audit.CategoryAuth, eventType, Actor{Email: attemptedEmail}, false)
	e.FailureReason = reason
	e.Details = map[string]string{"auth_method": method}
	l.Log(ctx, e)
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, a Actor) {
	l.Log(ctx, base(r, audit.CategoryAuth, audit.EventLogout, a, true))
}

// --- Admin Events ---

// FeeStatusChanged logs a fee status update attempt and its outcome.
func (l *Logger) FeeStatusChanged(ctx context.Context, r *http.Request, a Actor, roll, status string, err error) {
	e := base(r, audit.CategoryAdmin, audit.EventFeeStatusChanged, a, err == nil)
	if err != nil {
		e.FailureReason = err.Error()
	}
	e.Details = map[string]string{"roll_number": roll, "fee_status": status}
	l.Log(ctx, e)
}

// StudentRegistered logs a registration submission and its outcome.
func (l *Logger) StudentRegistered(ctx context.Context, r *http.Request, a Actor, studentName string, year int, err error) {
	e := base(r, audit.CategoryAdmin, audit.EventStudentRegistered, a, err == nil)
	if err != nil {
		e.FailureReason = err.Error()
	}
	e.Details = map[string]string{
		"student_name":      studentName,
		"year_of_admission": fmt.Sprint(year),
	}
	l.Log(ctx, e)
}

// RosterExported logs a roster download.
func (l *Logger) RosterExported(ctx context.Context, r *http.Request, a Actor, format string, rows int) {
	e := base(r, audit.CategoryAdmin, audit.EventRosterExported, a, true)
	e.Details = map[string]string{"format": format, "rows": fmt.Sprint(rows)}
	l.Log(ctx, e)
}
