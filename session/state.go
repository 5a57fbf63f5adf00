package session

import (
	"context"
	"errors"
	"sync"

	"github.com/imoveisdeluxo/admsession/identity"
)

// ErrPartialSession is returned by Set when the token or user is missing.
var ErrPartialSession = errors.New("session requires both token and user")

// Status is the observable state of a session.
type Status uint8

const (
	StatusLoading Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	Token string
	User  *identity.User
}

// Authenticated reports whether the snapshot holds a session.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// State is the process's session. It is safe for concurrent use.
type State struct {
	mu    sync.RWMutex
	token string
	user  *identity.User

	loaded   chan struct{}
	loadOnce sync.Once
}

// NewState returns a State in StatusLoading.
func NewState() *State {
	return &State{loaded: make(chan struct{})}
}

// Set replaces the session.
func (s *State) Set(token string, user *identity.User) error {
	if token == "" || user == nil {
		return ErrPartialSession
	}
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
	return nil
}

// Reset clears the session. Resetting an empty session is a no-op.
func (s *State) Reset() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

// Snapshot returns the current session.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Token: s.token, User: s.user}
}

// Token returns the current bearer token. It satisfies transport.TokenSource.
func (s *State) Token(context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// MarkLoaded ends StatusLoading. Later calls do nothing.
func (s *State) MarkLoaded() {
	s.loadOnce.Do(func() {
		close(s.loaded)
	})
}

// Loaded returns a channel closed once the loader has finished.
func (s *State) Loaded() <-chan struct{} {
	return s.loaded
}

// IsLoaded reports whether MarkLoaded has been called.
func (s *State) IsLoaded() bool {
	select {
	case <-s.loaded:
		return true
	default:
		return false
	}
}

// Status derives the observable state.
func (s *State) Status() Status {
	status, _ := s.StatusSnapshot()
	return status
}

// StatusSnapshot returns the status and the session it was derived from,
// read under one lock so the two always agree.
func (s *State) StatusSnapshot() (Status, Snapshot) {
	loaded := s.IsLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Token: s.token, User: s.user}
	switch {
	case !loaded:
		return StatusLoading, snap
	case s.user != nil:
		return StatusAuthenticated, snap
	default:
		return StatusUnauthenticated, snap
	}
}
