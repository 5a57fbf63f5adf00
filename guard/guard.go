package guard

import (
	"context"
	"net/http"

	"github.com/imoveisdeluxo/admsession/session"
)

// DefaultPublicPath is the sign-in page.
const DefaultPublicPath = "/"

// Source reports the session status together with the session it was
// derived from. *session.State implements it.
type Source interface {
	StatusSnapshot() (session.Status, session.Snapshot)
}

// Decision is what the guard does with a request.
type Decision int

const (
	// RenderPlaceholder shows the loading placeholder.
	RenderPlaceholder Decision = iota
	// RenderChildren serves the wrapped handler.
	RenderChildren
)

// Decide is the guard's rule, independent of HTTP.
func Decide(status session.Status, path, publicPath string) Decision {
	switch status {
	case session.StatusAuthenticated:
		return RenderChildren
	case session.StatusUnauthenticated:
		if path == publicPath {
			return RenderChildren
		}
	}
	return RenderPlaceholder
}

// Options configures New.
type Options struct {
	// PublicPath is reachable without a session. Empty means DefaultPublicPath.
	PublicPath string
	// Placeholder renders gated requests. Nil selects the built-in page.
	// It receives the status that caused the request to be gated.
	Placeholder func(w http.ResponseWriter, r *http.Request, status session.Status)
}

type sessionContextKey struct{}

// SessionFromContext returns the snapshot seen by the guard for this request.
func SessionFromContext(ctx context.Context) (session.Snapshot, bool) {
	snap, ok := ctx.Value(sessionContextKey{}).(session.Snapshot)
	return snap, ok
}

// New returns middleware enforcing Decide on every request.
func New(src Source, opts Options) func(http.Handler) http.Handler {
	publicPath := opts.PublicPath
	if publicPath == "" {
		publicPath = DefaultPublicPath
	}
	placeholder := opts.Placeholder
	if placeholder == nil {
		placeholder = DefaultPlaceholder
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			status := session.StatusLoading
			var snap session.Snapshot
			if src != nil {
				status, snap = src.StatusSnapshot()
			}

			if Decide(status, r.URL.Path, publicPath) != RenderChildren {
				placeholder(w, r, status)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, snap)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
