package admsession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/imoveisdeluxo/admsession/authapi"
	"github.com/imoveisdeluxo/admsession/credential"
	"github.com/imoveisdeluxo/admsession/graphql"
	"github.com/imoveisdeluxo/admsession/guard"
	"github.com/imoveisdeluxo/admsession/identity"
	"github.com/imoveisdeluxo/admsession/session"
)

// MinPasswordLength is the shortest password the sign-in form accepts.
const MinPasswordLength = 6

// Console owns one administrative session. It is safe for concurrent use
// once built.
type Console struct {
	config  Config
	allowed []identity.Role

	store      credential.Store
	state      *session.State
	loader     *session.Loader
	auth       authapi.Authenticator
	httpClient *http.Client
	graphql    *graphql.Client
	ownedRedis redis.UniversalClient

	audit   *auditDispatcher
	metrics *Metrics
	logger  zerolog.Logger
	now     func() time.Time

	// attempt numbers sign-ins; SignOut advances it too. commitMu
	// serializes every write to store and state.
	attempt  atomic.Uint64
	commitMu sync.Mutex

	startOnce   sync.Once
	startResult session.LoadResult
	closeOnce   sync.Once
}

// Start restores the persisted session, then marks the console ready. It
// runs once; later calls return the first result. A failed restore leaves
// the console signed out and is reported in the result, never returned.
func (c *Console) Start(ctx context.Context) session.LoadResult {
	if c == nil {
		return session.LoadResult{Err: ErrConsoleNotReady}
	}
	c.startOnce.Do(func() {
		c.commitMu.Lock()
		res := c.loader.Load(ctx)
		snap := c.state.Snapshot()
		c.commitMu.Unlock()
		c.startResult = res
		c.reportStart(ctx, res, snap)
	})
	return c.startResult
}

func (c *Console) reportStart(ctx context.Context, res session.LoadResult, snap session.Snapshot) {
	switch {
	case res.Restored && snap.Authenticated():
		c.metrics.Inc(MetricSessionRestored)
		c.emitAudit(ctx, AuditSessionRestored, true, snap.User, "", nil)
		c.logger.Info().Str("user_id", string(snap.User.ID)).Msg("admsession: session restored")
	case res.Expired:
		c.metrics.Inc(MetricSessionExpired)
		c.emitAudit(ctx, AuditSessionRestoreFailed, false, nil, "", map[string]string{"reason": "expired"})
		c.logger.Info().Msg("admsession: persisted session expired")
	case res.Err != nil:
		c.metrics.Inc(MetricSessionRestoreFailed)
		c.emitAudit(ctx, AuditSessionRestoreFailed, false, nil, "", map[string]string{"reason": restoreReason(res.Err)})
		c.logger.Warn().Err(res.Err).Msg("admsession: session restore failed")
	default:
		c.logger.Debug().Msg("admsession: no persisted session")
	}
}

func restoreReason(err error) string {
	if errors.Is(err, session.ErrMalformedState) {
		return "malformed"
	}
	return "unavailable"
}

// Ready is closed once Start has finished.
func (c *Console) Ready() <-chan struct{} {
	return c.state.Loaded()
}

// Status is the guard-visible state of the session.
func (c *Console) Status() session.Status {
	if c == nil {
		return session.StatusLoading
	}
	return c.state.Status()
}

// Session returns the current session.
func (c *Console) Session() session.Snapshot {
	if c == nil {
		return session.Snapshot{}
	}
	return c.state.Snapshot()
}

// StatusSnapshot implements guard.Source.
func (c *Console) StatusSnapshot() (session.Status, session.Snapshot) {
	if c == nil {
		return session.StatusLoading, session.Snapshot{}
	}
	return c.state.StatusSnapshot()
}

// State exposes the session state, for callers composing their own
// transports or guards.
func (c *Console) State() *session.State {
	return c.state
}

// CredentialStore returns the store the console persists sessions in.
func (c *Console) CredentialStore() credential.Store {
	return c.store
}

// HTTPClient sends requests with the current bearer token, read at send time.
func (c *Console) HTTPClient() *http.Client {
	return c.httpClient
}

// GraphQL returns the API client, or nil when api.graphql_url is empty.
func (c *Console) GraphQL() *graphql.Client {
	return c.graphql
}

// Guard gates next on the session using the configured public path.
func (c *Console) Guard(next http.Handler) http.Handler {
	return guard.New(c, guard.Options{PublicPath: c.config.Guard.PublicPath})(next)
}

// Config returns a copy of the console configuration.
func (c *Console) Config() Config {
	return cloneConfig(c.config)
}

// SignIn exchanges email and password for a session. Only users whose type
// is an allowed role get one; anyone else gets ErrAuthorizationDenied and
// nothing changes. The session is persisted before it becomes visible.
//
// When another SignIn or a SignOut starts while this one waits on the API,
// this attempt returns ErrSignInSuperseded without changing anything.
func (c *Console) SignIn(ctx context.Context, email, password string) (*identity.User, error) {
	if c == nil {
		return nil, ErrConsoleNotReady
	}

	attempt := c.attempt.Add(1)
	email = strings.TrimSpace(email)

	if err := validateSignIn(email, password); err != nil {
		c.metrics.Inc(MetricSignInRejected)
		c.emitAudit(ctx, AuditSignInFailure, false, nil, email, map[string]string{"reason": "invalid_input"})
		return nil, err
	}

	start := c.now()
	res, err := c.auth.Authenticate(ctx, authapi.Credentials{Email: email, Password: password})
	c.metrics.Observe(MetricSignInLatency, c.now().Sub(start))
	if err != nil {
		return nil, c.signInFailed(ctx, email, err)
	}

	// The role decides before anything else in the body: a user outside
	// the allowed roles is denied even when the token or type is missing.
	user, err := identity.Decode(res.User)
	if err != nil {
		return nil, c.signInFailed(ctx, email, fmt.Errorf("%w: %w", authapi.ErrMalformedResponse, err))
	}
	if !user.HasRole(c.allowed...) {
		c.metrics.Inc(MetricSignInDenied)
		c.emitAudit(ctx, AuditSignInDenied, false, user, email, nil)
		c.logger.Warn().Str("email", email).Str("role", string(user.Type)).Msg("admsession: sign-in denied")
		return nil, ErrAuthorizationDenied
	}
	if res.Token == "" {
		return nil, c.signInFailed(ctx, email, fmt.Errorf("%w: token missing", authapi.ErrMalformedResponse))
	}

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	if c.attempt.Load() != attempt {
		c.metrics.Inc(MetricSignInSuperseded)
		c.emitAudit(ctx, AuditSignInSuperseded, false, user, email, nil)
		c.logger.Debug().Str("email", email).Msg("admsession: sign-in superseded")
		return nil, ErrSignInSuperseded
	}

	if err := c.store.Save(ctx, res.Token, res.User); err != nil {
		c.metrics.Inc(MetricSignInFailure)
		c.emitAudit(ctx, AuditSignInFailure, false, user, email, map[string]string{"reason": "persist"})
		c.logger.Error().Err(err).Str("email", email).Msg("admsession: credential persist failed")
		return nil, fmt.Errorf("%w: %w", ErrCredentialPersist, err)
	}
	if err := c.state.Set(res.Token, user); err != nil {
		// The checks above guarantee a user and a token; keep store and
		// state in agreement regardless.
		_ = c.store.Clear(ctx)
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}

	c.metrics.Inc(MetricSignInSuccess)
	c.emitAudit(ctx, AuditSignInSuccess, true, user, email, nil)
	c.logger.Info().Str("email", email).Str("user_id", string(user.ID)).Msg("admsession: signed in")
	return user, nil
}

func (c *Console) signInFailed(ctx context.Context, email string, err error) error {
	if errors.Is(err, authapi.ErrRejected) {
		c.metrics.Inc(MetricSignInRejected)
		c.emitAudit(ctx, AuditSignInFailure, false, nil, email, map[string]string{"reason": "rejected"})
		c.logger.Info().Str("email", email).Err(err).Msg("admsession: sign-in rejected")
		return fmt.Errorf("%w: %w", ErrSignInRejected, err)
	}
	c.metrics.Inc(MetricSignInFailure)
	c.emitAudit(ctx, AuditSignInFailure, false, nil, email, map[string]string{"reason": "network"})
	c.logger.Warn().Str("email", email).Err(err).Msg("admsession: sign-in request failed")
	return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
}

func validateSignIn(email, password string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidSignIn)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email is not valid", ErrInvalidSignIn)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", ErrInvalidSignIn, MinPasswordLength)
	}
	return nil
}

// SignOut forgets the session in memory and in the credential store. It makes
// no network call and cannot fail: a store error is logged and the in-memory
// session is cleared anyway. Any sign-in still in flight is superseded.
func (c *Console) SignOut(ctx context.Context) {
	if c == nil {
		return
	}
	c.attempt.Add(1)

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	prev := c.state.Snapshot()
	if err := c.store.Clear(ctx); err != nil {
		c.metrics.Inc(MetricSignOutStoreFailure)
		c.logger.Error().Err(err).Msg("admsession: credential clear failed during sign-out")
	}
	c.state.Reset()

	c.metrics.Inc(MetricSignOut)
	c.emitAudit(ctx, AuditSignOut, true, prev.User, "", nil)
	if prev.Authenticated() {
		c.logger.Info().Str("user_id", string(prev.User.ID)).Msg("admsession: signed out")
	}
}

// Close stops the audit dispatcher and closes a Redis client the console
// opened itself.
func (c *Console) Close() error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		c.audit.Close()
		err = c.closeRedis()
	})
	return err
}

func (c *Console) closeRedis() error {
	if c.ownedRedis == nil {
		return nil
	}
	return c.ownedRedis.Close()
}

// MetricsSnapshot copies the console counters.
func (c *Console) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return c.metrics.Snapshot()
}

// AuditDropped counts audit events dropped because the queue was full.
func (c *Console) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

// consoleTokenSource feeds the bearer tripper and counts what it hands out.
type consoleTokenSource struct {
	c *Console
}

func (s consoleTokenSource) Token(ctx context.Context) (string, bool) {
	tok, ok := s.c.state.Token(ctx)
	if ok {
		s.c.metrics.Inc(MetricRequestAuthorized)
	} else {
		s.c.metrics.Inc(MetricRequestAnonymous)
	}
	return tok, ok
}
