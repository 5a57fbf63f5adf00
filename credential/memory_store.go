package credential

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	record *Record
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore returns an empty store. A nil clock selects time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		ttl: normalizeTTL(ttl),
		now: now,
	}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, token string, user []byte) error {
	if err := checkPair(token, user); err != nil {
		return err
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = &Record{
		Token:     token,
		User:      bytes.Clone(user),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record == nil {
		return nil, ErrNotFound
	}
	if s.record.Expired(s.now()) {
		s.record = nil
		return nil, ErrNotFound
	}
	out := *s.record
	out.User = bytes.Clone(s.record.User)
	return &out, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.record = nil
	s.mu.Unlock()
	return nil
}
