package transport

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/imoveisdeluxo/admsession/credential"
)

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-ID"

// TokenSource yields the bearer token to attach, if any.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, bool)

// Token calls f(ctx).
func (f TokenSourceFunc) Token(ctx context.Context) (string, bool) {
	return f(ctx)
}

// Bearer attaches "Authorization: Bearer <token>" when src has a token at the
// time of the request. Requests that already carry an Authorization header
// pass through unchanged.
func Bearer(src TokenSource) Constructor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if src == nil || req.Header.Get("Authorization") != "" {
				return next.RoundTrip(req)
			}
			tok, ok := src.Token(req.Context())
			if !ok || tok == "" {
				return next.RoundTrip(req)
			}
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+tok)
			return next.RoundTrip(req)
		})
	}
}

// RequestID sets RequestIDHeader to a random UUID when the caller did not.
func RequestID() Constructor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(req)
			}
			req = req.Clone(req.Context())
			req.Header.Set(RequestIDHeader, uuid.NewString())
			return next.RoundTrip(req)
		})
	}
}

// StoreTokenSource reads the token from a credential store on every call, so
// a sign-out written to the store by another process applies to the next
// request. The admconsole query command sends through it.
type StoreTokenSource struct {
	Store credential.Store
}

// Token implements TokenSource. Storage errors are treated as no session.
func (s StoreTokenSource) Token(ctx context.Context) (string, bool) {
	if s.Store == nil {
		return "", false
	}
	rec, err := s.Store.Load(ctx)
	if err != nil || rec.Token == "" {
		return "", false
	}
	return rec.Token, true
}
