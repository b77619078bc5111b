// Package identity signs staff in against the Firebase Identity Toolkit
// REST API and returns the Firebase ID token that the session manager
// exchanges for a session cookie.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public Identity Toolkit endpoint.
const DefaultBaseURL = "https://identitytoolkit.googleapis.com/v1"

// Sign-in failures callers branch on.
var (
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrUserDisabled       = errors.New("identity: account disabled")
	ErrTooManyAttempts    = errors.New("identity: too many attempts")
)

// SignInResult is the subset of the sign-in response the portal uses.
type SignInResult struct {
	IDToken     string `json:"idToken"`
	Email       string `json:"email"`
	LocalID     string `json:"localId"`
	DisplayName string `json:"displayName"`
}

// Client calls Identity Toolkit with a project API key.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Log     *zap.Logger
}

// New returns a Client for the public endpoint.
func New(apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
		Log:     logger,
	}
}

// SignInWithPassword verifies an email/password pair.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	return c.call(ctx, "accounts:signInWithPassword", body)
}

// SignInWithIdp exchanges a federated provider ID token (e.g. Google) for a
// Firebase ID token. requestURI must be a URI the project trusts.
func (c *Client) SignInWithIdp(ctx context.Context, providerID, providerIDToken, requestURI string) (*SignInResult, error) {
	post := url.Values{}
	post.Set("id_token", providerIDToken)
	post.Set("providerId", providerID)
	body := map[string]any{
		"postBody":            post.Encode(),
		"requestUri":          requestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	return c.call(ctx, "accounts:signInWithIdp", body)
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, payload any) (*SignInResult, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("identity %s: encode: %w", method, err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/" + method + "?key=" + url.QueryEscape(c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("identity %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("identity %s: read: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		if c.Log != nil {
			c.Log.Debug("identity toolkit rejected sign-in",
				zap.String("method", method),
				zap.Int("status", resp.StatusCode),
				zap.String("reason", ae.Error.Message))
		}
		return nil, classify(method, resp.StatusCode, ae.Error.Message)
	}

	var out SignInResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("identity %s: decode: %w", method, err)
	}
	if out.IDToken == "" {
		return nil, fmt.Errorf("identity %s: response carried no idToken", method)
	}
	return &out, nil
}

// classify maps Identity Toolkit error messages onto sentinel errors.
// Messages may carry a suffix ("TOO_MANY_ATTEMPTS_TRY_LATER : ...").
func classify(method string, status int, msg string) error {
	code, _, _ := strings.Cut(msg, " ")
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "INVALID_IDP_RESPONSE":
		return ErrInvalidCredentials
	case "USER_DISABLED":
		return ErrUserDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ErrTooManyAttempts
	}
	return fmt.Errorf("identity %s: status %d: %s", method, status, msg)
}
