package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/imoveisdeluxo/admsession/credential"
	"github.com/imoveisdeluxo/admsession/identity"
	"github.com/imoveisdeluxo/admsession/token"
)

// ErrMalformedState reports a persisted pair that cannot become a session.
var ErrMalformedState = errors.New("malformed persisted session")

// LoadResult describes what the loader did.
type LoadResult struct {
	// Restored is true when the State now holds the persisted session.
	Restored bool
	// Expired is true when a persisted token had already expired.
	Expired bool
	// Err is the reason restoring failed, if any. The State is
	// unauthenticated whenever Err is set.
	Err error
}

// Loader restores a State from a credential store exactly once.
type Loader struct {
	store  credential.Store
	state  *State
	logger zerolog.Logger
	now    func() time.Time

	once   sync.Once
	result LoadResult
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(logger zerolog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithClock overrides the clock used to check token expiry.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLoader returns a loader that fills state from store.
func NewLoader(store credential.Store, state *State, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:  store,
		state:  state,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load restores the session on the first call and marks the State loaded,
// whatever the outcome. Later calls return the first result without touching
// the store. Load never panics and never leaves the State in StatusLoading.
func (l *Loader) Load(ctx context.Context) LoadResult {
	l.once.Do(func() {
		defer l.state.MarkLoaded()
		defer func() {
			if r := recover(); r != nil {
				l.state.Reset()
				l.result = LoadResult{Err: fmt.Errorf("session: restore panicked: %v", r)}
				l.logger.Error().Interface("panic", r).Msg("session: restore panicked")
			}
		}()
		l.result = l.restore(ctx)
	})
	return l.result
}

func (l *Loader) restore(ctx context.Context) LoadResult {
	if l.store == nil {
		return LoadResult{}
	}

	rec, err := l.store.Load(ctx)
	switch {
	case errors.Is(err, credential.ErrNotFound):
		return LoadResult{}
	case errors.Is(err, credential.ErrCorrupt):
		return l.discard(ctx, fmt.Errorf("%w: %v", ErrMalformedState, err))
	case err != nil:
		l.logger.Warn().Err(err).Msg("session: credential store unavailable, starting signed out")
		return LoadResult{Err: err}
	}

	user, err := identity.Parse(rec.User)
	if err != nil {
		return l.discard(ctx, fmt.Errorf("%w: user record: %v", ErrMalformedState, err))
	}

	if info, err := token.Inspect(rec.Token); err == nil && info.Expired(l.now()) {
		l.clear(ctx)
		l.logger.Info().Time("expired_at", info.ExpiresAt).Msg("session: persisted token expired")
		return LoadResult{Expired: true}
	}

	if err := l.state.Set(rec.Token, user); err != nil {
		return l.discard(ctx, fmt.Errorf("%w: %v", ErrMalformedState, err))
	}

	l.logger.Debug().Str("user_id", string(user.ID)).Msg("session: restored")
	return LoadResult{Restored: true}
}

func (l *Loader) discard(ctx context.Context, err error) LoadResult {
	l.clear(ctx)
	l.logger.Warn().Err(err).Msg("session: discarding persisted credential")
	return LoadResult{Err: err}
}

func (l *Loader) clear(ctx context.Context) {
	if err := l.store.Clear(ctx); err != nil {
		l.logger.Warn().Err(err).Msg("session: failed to clear persisted credential")
	}
}
