package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Check is one dependency probed by GET /health.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// MongoCheck probes the primary of client.
func MongoCheck(client *mongo.Client) Check {
	return Check{
		Name: "database",
		Ping: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Checks []Check
	Log    *zap.Logger
}

// NewHandler constructs a health Handler probing checks in order.
func NewHandler(logger *zap.Logger, checks ...Check) *Handler {
	return &Handler{
		Checks: checks,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "components":{"database":"connected","viewstate":"connected"} }
//
// When any check fails: 503 and
//
//	{ "status":"error", "components":{...,"viewstate":"disconnected"}, "message":"viewstate unavailable", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{Status: "ok", Components: make(map[string]string, len(h.Checks))}
	status := http.StatusOK

	for _, c := range h.Checks {
		if err := c.Ping(ctx); err != nil {
			h.Log.Error("health-check: ping failed", zap.String("component", c.Name), zap.Error(err))
			resp.Components[c.Name] = "disconnected"
			if status == http.StatusOK {
				status = http.StatusServiceUnavailable
				resp.Status = "error"
				resp.Message = c.Name + " unavailable"
				resp.Error = err.Error()
			}
			continue
		}
		resp.Components[c.Name] = "connected"
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
