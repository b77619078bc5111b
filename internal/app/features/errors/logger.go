// internal/app/features/errors/logger.go
package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// AlertEvent is the HX-Trigger event name the client turns into a blocking
// window.alert.
const AlertEvent = "portal:alert"

// ErrorLogger logs handler failures and answers with an HTMX-aware response:
// htmx requests get an alert trigger, full page requests get an error page.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// LogServerError logs err at Error level and responds 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.Log.Error(msg, zap.Error(err), zap.String("path", r.URL.Path))
	e.respond(w, r, http.StatusInternalServerError, userMsg, backURL)
}

// LogBadRequest logs err at Warn level and responds 400.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.Log.Warn(msg, zap.Error(err), zap.String("path", r.URL.Path))
	e.respond(w, r, http.StatusBadRequest, userMsg, backURL)
}

// LogBackendError logs a failed write to the school backend and responds 502.
func (e *ErrorLogger) LogBackendError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.Log.Warn(msg, zap.Error(err), zap.String("path", r.URL.Path))
	e.respond(w, r, http.StatusBadGateway, userMsg, backURL)
}

func (e *ErrorLogger) respond(w http.ResponseWriter, r *http.Request, status int, userMsg, backURL string) {
	if r.Header.Get("HX-Request") == "true" {
		TriggerAlert(w, userMsg)
		w.Header().Set("HX-Reswap", "none")
		w.WriteHeader(status)
		return
	}
	RenderError(w, r, status, userMsg, backURL)
}

// TriggerAlert sets an HX-Trigger header that raises a blocking alert with
// msg in the browser. It must be called before the header is written.
func TriggerAlert(w http.ResponseWriter, msg string) {
	payload, _ := json.Marshal(map[string]any{
		AlertEvent: map[string]string{"message": msg},
	})
	w.Header().Set("HX-Trigger", string(payload))
}
