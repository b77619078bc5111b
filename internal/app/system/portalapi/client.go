// Package portalapi is the HTTP client for the remote school backend.
//
// Every call is a single request: no retries and no caching. Callers decide
// whether a failure is best-effort (reads) or must be surfaced (writes).
package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// ErrEmptyBody is returned when a response that must carry JSON is empty.
var ErrEmptyBody = errors.New("portalapi: empty response body")

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 200 {
		msg = msg[:200] + "…"
	}
	if msg == "" {
		return fmt.Sprintf("portalapi: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("portalapi: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Observer receives one observation per call. *metrics.Metrics implements it.
type Observer interface {
	ObserveAPICall(endpoint, method, outcome string, d time.Duration)
}

// Request describes one backend call. Path must already be escaped.
type Request struct {
	Name   string // metrics/log label, e.g. "studentcount"
	Method string
	Path   string
	Body   any // JSON-encoded when non-nil
}

// Client talks to the backend rooted at BaseURL.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
	obs     Observer
}

// New returns a Client. obs may be nil.
func New(baseURL string, timeout time.Duration, obs Observer, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger,
		obs:     obs,
	}
}

// BaseURL is the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, name, path string, out any) error {
	return c.Do(ctx, Request{Name: name, Method: http.MethodGet, Path: path}, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, name, path string, body, out any) error {
	return c.Do(ctx, Request{Name: name, Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, name, path string, body, out any) error {
	return c.Do(ctx, Request{Name: name, Method: http.MethodPut, Path: path, Body: body}, out)
}

// Do performs req. When out is nil the response body is discarded; when out
// is non-nil an empty body yields ErrEmptyBody.
func (c *Client) Do(ctx context.Context, req Request, out any) (err error) {
	start := time.Now()
	reqID := uuid.NewString()
	defer func() {
		outcome := outcomeOf(err)
		if c.obs != nil {
			c.obs.ObserveAPICall(req.Name, req.Method, outcome, time.Since(start))
		}
		c.log.Debug("portal api call",
			zap.String("endpoint", req.Name),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("request_id", reqID),
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	var body io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("portalapi: encode %s body: %w", req.Name, err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return fmt.Errorf("portalapi: build %s request: %w", req.Name, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("portalapi: %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("portalapi: read %s response: %w", req.Name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("portalapi: decode %s response: %w", req.Name, err)
	}
	return nil
}

func outcomeOf(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return "status_" + fmt.Sprint(se.StatusCode/100) + "xx"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrEmptyBody):
		return "empty"
	default:
		return "error"
	}
}
