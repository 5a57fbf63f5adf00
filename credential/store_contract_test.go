package credential

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// contractHarness wires a backend to a clock that can move its expiry.
type contractHarness struct {
	store   Store
	advance func(time.Duration)
}

func runStoreContract(t *testing.T, newHarness func(t *testing.T, ttl time.Duration) contractHarness) {
	t.Helper()
	ctx := context.Background()
	user := []byte(`{"type":"adm","id":1}`)

	t.Run("empty load", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		if _, err := h.store.Load(ctx); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		if err := h.store.Save(ctx, "abc", user); err != nil {
			t.Fatalf("save: %v", err)
		}
		rec, err := h.store.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if rec.Token != "abc" || string(rec.User) != string(user) {
			t.Fatalf("unexpected record %+v", rec)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		_ = h.store.Save(ctx, "first", user)
		if err := h.store.Save(ctx, "second", []byte(`{"type":"adm","id":2}`)); err != nil {
			t.Fatalf("save: %v", err)
		}
		rec, err := h.store.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if rec.Token != "second" || string(rec.User) != `{"type":"adm","id":2}` {
			t.Fatalf("expected second pair, got %+v", rec)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		if err := h.store.Save(ctx, "abc", user); err != nil {
			t.Fatalf("save: %v", err)
		}
		h.advance(time.Hour + time.Second)
		if _, err := h.store.Load(ctx); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after expiry, got %v", err)
		}
	})

	t.Run("clear idempotent", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		if err := h.store.Clear(ctx); err != nil {
			t.Fatalf("clear empty: %v", err)
		}
		_ = h.store.Save(ctx, "abc", user)
		if err := h.store.Clear(ctx); err != nil {
			t.Fatalf("first clear: %v", err)
		}
		if err := h.store.Clear(ctx); err != nil {
			t.Fatalf("second clear: %v", err)
		}
		if _, err := h.store.Load(ctx); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after clear, got %v", err)
		}
	})

	t.Run("rejects partial save", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		if err := h.store.Save(ctx, "", user); !errors.Is(err, ErrEmptyPair) {
			t.Fatalf("expected ErrEmptyPair for empty token, got %v", err)
		}
		if err := h.store.Save(ctx, "abc", nil); !errors.Is(err, ErrEmptyPair) {
			t.Fatalf("expected ErrEmptyPair for empty user, got %v", err)
		}
		if _, err := h.store.Load(ctx); !errors.Is(err, ErrNotFound) {
			t.Fatalf("rejected save must not persist, got %v", err)
		}
	})
}
