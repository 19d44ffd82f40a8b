// Package client talks to the okrboard HTTP API. It implements the session store's
// AuthProvider and ProfileLoader ports so CLI and other Go clients share the store logic.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/reliability/circuitbreaker"
)

// APIError is a non-2xx answer from the API. It unwraps to the domain sentinel matching its status.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// Breaker fails calls fast after repeated network or server failures. Nil disables it.
	Breaker *circuitbreaker.CircuitBreaker
	Logger  *slog.Logger
}

// Client is an HTTP client for the API.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		opts.HTTPClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		breaker: opts.Breaker,
		logger:  opts.Logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	var sess domain.Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, credentialsRequest{Email: email, Password: password}, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignUp registers a new account and returns its first session.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*domain.Session, error) {
	var sess domain.Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, credentialsRequest{Email: email, Password: password, FullName: fullName}, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignOut revokes the session's token on the server.
func (c *Client) SignOut(ctx context.Context, s *domain.Session) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", s, nil, nil)
}

// LoadProfile fetches the caller's profile.
func (c *Client) LoadProfile(ctx context.Context, s *domain.Session) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", s, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SelectTenant stores a root user's working tenant on the server.
func (c *Client) SelectTenant(ctx context.Context, s *domain.Session, tenantID string) (*domain.Tenant, error) {
	var t domain.Tenant
	body := map[string]string{"tenantId": tenantID}
	if err := c.do(ctx, http.MethodPut, "/api/session/tenant", s, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ClearTenant drops the server-side selection.
func (c *Client) ClearTenant(ctx context.Context, s *domain.Session) error {
	return c.do(ctx, http.MethodDelete, "/api/session/tenant", s, nil, nil)
}

// ListTenants lists every organization. Root only.
func (c *Client) ListTenants(ctx context.Context, s *domain.Session) ([]*domain.Tenant, error) {
	var ts []*domain.Tenant
	if err := c.do(ctx, http.MethodGet, "/api/tenants", s, nil, &ts); err != nil {
		return nil, err
	}
	return ts, nil
}

func (c *Client) do(ctx context.Context, method, path string, s *domain.Session, in, out any) error {
	call := func() error { return c.roundTrip(ctx, method, path, s, in, out) }
	if c.breaker == nil {
		return call()
	}
	err := c.breaker.Do(call, countsAsOutage)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		c.logger.Warn("api circuit open", slog.String("path", path))
	}
	return err
}

// countsAsOutage is true for transport failures and 5xx answers.
func countsAsOutage(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, s *domain.Session, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s != nil && s.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	e := &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		e.kind = errInvalidRequest
	case http.StatusUnauthorized:
		e.kind = domain.ErrInvalidCredentials
	case http.StatusForbidden:
		e.kind = domain.ErrForbidden
	case http.StatusNotFound:
		e.kind = domain.ErrNotFound
	case http.StatusConflict:
		if body.Error == "no organization" {
			e.kind = domain.ErrNoTenant
		} else {
			e.kind = domain.ErrAlreadyExists
		}
	}
	return e
}

var errInvalidRequest = errors.New("invalid request")
