// Package authapi talks to the listing platform's authentication endpoint.
package authapi

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
)

// DefaultSessionsPath is where credentials are exchanged for a session.
const DefaultSessionsPath = "/sessions"

const maxResponseBytes = 1 << 20

var (
	// ErrUnavailable reports that the endpoint could not be reached or failed
	// on its side.
	ErrUnavailable = errors.New("authapi: endpoint unavailable")
	// ErrRejected reports that the endpoint refused the credentials.
	ErrRejected = errors.New("authapi: credentials rejected")
	// ErrMalformedResponse reports a 2xx answer without a usable body.
	ErrMalformedResponse = errors.New("authapi: malformed response")
)

// StatusError is returned for non-2xx answers.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authapi: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("authapi: unexpected status %d: %s", e.StatusCode, e.Message)
}

// Is makes 4xx match ErrRejected and 5xx match ErrUnavailable.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return e.StatusCode >= 400 && e.StatusCode < 500
	case ErrUnavailable:
		return e.StatusCode >= 500
	}
	return false
}

// Credentials are the sign-in form values.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Response is the endpoint's answer. User is kept verbatim.
type Response struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

// Authenticator exchanges credentials for a token and user record.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Response, error)
}

// Client is the HTTP Authenticator.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	path       string
	httpClient *http.Client
	timeout    time.Duration
}

// WithSessionsPath overrides DefaultSessionsPath.
func WithSessionsPath(path string) Option {
	return func(o *clientOptions) {
		o.path = path
	}
}

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithTimeout bounds each request when no HTTP client is supplied.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := clientOptions{path: DefaultSessionsPath}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("authapi: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("authapi: base url %q must be http or https", baseURL)
	}

	path := o.path
	if path == "" {
		path = DefaultSessionsPath
	}
	endpoint := strings.TrimRight(base.String(), "/") + "/" + strings.TrimLeft(path, "/")

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: o.timeout}
	}

	return &Client{endpoint: endpoint, httpClient: hc}, nil
}

// Endpoint returns the resolved sessions URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Authenticate posts creds and decodes the session pair. A response without
// a user object is reported as ErrMalformedResponse. The token may be empty:
// whether that matters depends on who the user is, which is the caller's call.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*Response, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("authapi: encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("authapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if res.StatusCode/100 != 2 {
		return nil, &StatusError{StatusCode: res.StatusCode, Message: errorMessage(raw)}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	user := bytes.TrimSpace(out.User)
	if len(user) == 0 || bytes.Equal(user, []byte("null")) {
		return nil, fmt.Errorf("%w: user missing", ErrMalformedResponse)
	}
	out.User = append(json.RawMessage(nil), user...)
	return &out, nil
}

// errorMessage pulls a "message" field out of an error body, if there is one.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Message
	}
	return ""
}
