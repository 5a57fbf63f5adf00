// Package graphql executes queries and mutations against the platform's
// GraphQL API. Authentication is the transport's concern: pass an
// *http.Client built with transport.Bearer.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxResponseBytes = 8 << 20

// ErrUnauthorized matches a 401 answer, usually an expired session.
var ErrUnauthorized = errors.New("graphql: unauthorized")

// Request is one GraphQL operation.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Error is one entry of a response's "errors" array.
type Error struct {
	Message    string          `json:"message"`
	Path       []any           `json:"path,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
	Locations  []ErrorLocation `json:"locations,omitempty"`
}

// ErrorLocation points into the query document.
type ErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Errors is returned when the server reported GraphQL errors.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// StatusError is returned for non-2xx HTTP answers.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graphql: error from API: %s", e.Status)
}

// Is matches ErrUnauthorized for 401.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Client posts operations to a single endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New returns a client. A nil httpClient selects http.DefaultClient.
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// Do runs req and decodes the response's "data" member into out, which may
// be nil. When the response carries both data and errors, out is filled and
// Errors is returned.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if strings.TrimSpace(req.Query) == "" {
		return errors.New("graphql: empty query")
	}

	bs, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("graphql: failed to encode request: %w", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bs))
	if err != nil {
		return fmt.Errorf("graphql: failed to create http request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(hreq)
	if err != nil {
		return fmt.Errorf("graphql: failed to make http request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))
		return &StatusError{StatusCode: res.StatusCode, Status: res.Status}
	}

	var body struct {
		Data   json.RawMessage `json:"data"`
		Errors Errors          `json:"errors"`
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&body); err != nil {
		return fmt.Errorf("graphql: failed to decode json body: %w", err)
	}

	if out != nil && len(body.Data) > 0 && !bytes.Equal(body.Data, []byte("null")) {
		if err := json.Unmarshal(body.Data, out); err != nil {
			return fmt.Errorf("graphql: failed to decode data: %w", err)
		}
	}
	if len(body.Errors) > 0 {
		return body.Errors
	}
	return nil
}
