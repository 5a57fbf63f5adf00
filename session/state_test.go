package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/imoveisdeluxo/admsession/identity"
)

func TestStateStartsLoading(t *testing.T) {
	s := NewState()
	if got := s.Status(); got != StatusLoading {
		t.Fatalf("expected loading, got %v", got)
	}
	// Session contents do not matter while loading.
	if err := s.Set("abc", &identity.User{Type: identity.RoleAdmin}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := s.Status(); got != StatusLoading {
		t.Fatalf("expected loading with a session present, got %v", got)
	}
}

func TestStateTransitions(t *testing.T) {
	s := NewState()
	s.MarkLoaded()
	if got := s.Status(); got != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", got)
	}

	if err := s.Set("abc", &identity.User{Type: identity.RoleAdmin}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := s.Status(); got != StatusAuthenticated {
		t.Fatalf("expected authenticated, got %v", got)
	}

	s.Reset()
	if got := s.Status(); got != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated after reset, got %v", got)
	}
	s.Reset()
	if snap := s.Snapshot(); snap.Token != "" || snap.User != nil {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestStateRejectsPartialPair(t *testing.T) {
	s := NewState()
	if err := s.Set("", &identity.User{Type: identity.RoleAdmin}); !errors.Is(err, ErrPartialSession) {
		t.Fatalf("expected ErrPartialSession for missing token, got %v", err)
	}
	if err := s.Set("abc", nil); !errors.Is(err, ErrPartialSession) {
		t.Fatalf("expected ErrPartialSession for missing user, got %v", err)
	}
	if snap := s.Snapshot(); snap.Token != "" || snap.User != nil {
		t.Fatalf("rejected set must not change state, got %+v", snap)
	}
}

func TestStateToken(t *testing.T) {
	s := NewState()
	if _, ok := s.Token(context.Background()); ok {
		t.Fatal("expected no token")
	}
	_ = s.Set("abc", &identity.User{Type: identity.RoleAdmin})
	if tok, ok := s.Token(context.Background()); !ok || tok != "abc" {
		t.Fatalf("expected abc, got %q %v", tok, ok)
	}
}

func TestStateMarkLoadedConcurrent(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.MarkLoaded()
		}()
	}
	wg.Wait()
	select {
	case <-s.Loaded():
	default:
		t.Fatal("expected loaded channel to be closed")
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusLoading:         "loading",
		StatusAuthenticated:   "authenticated",
		StatusUnauthenticated: "unauthenticated",
		Status(9):             "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("status %d: want %q, got %q", s, want, got)
		}
	}
}

func TestStatusSnapshotAgrees(t *testing.T) {
	s := NewState()
	if st, _ := s.StatusSnapshot(); st != StatusLoading {
		t.Fatalf("expected loading, got %v", st)
	}
	s.MarkLoaded()
	if err := s.Set("abc", &identity.User{ID: "1", Type: identity.RoleAdmin}); err != nil {
		t.Fatalf("set: %v", err)
	}
	st, snap := s.StatusSnapshot()
	if st != StatusAuthenticated || !snap.Authenticated() || snap.Token != "abc" {
		t.Fatalf("unexpected %v %+v", st, snap)
	}
	s.Reset()
	st, snap = s.StatusSnapshot()
	if st != StatusUnauthenticated || snap.Authenticated() {
		t.Fatalf("unexpected %v %+v", st, snap)
	}
}
