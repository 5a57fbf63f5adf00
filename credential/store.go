package credential

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long a saved credential pair stays valid.
const DefaultTTL = 48 * time.Hour

var (
	// ErrNotFound is returned by Load when no complete, unexpired pair exists.
	ErrNotFound = errors.New("credential not found")
	// ErrCorrupt is returned by Load when the stored bytes cannot be decoded.
	ErrCorrupt = errors.New("credential record corrupt")
	// ErrUnavailable wraps backend I/O failures.
	ErrUnavailable = errors.New("credential backend unavailable")
	// ErrEmptyPair is returned by Save when the token or user is empty.
	ErrEmptyPair = errors.New("credential token and user are both required")
)

// Record is a persisted credential pair.
type Record struct {
	Token     string
	User      []byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r *Record) Expired(now time.Time) bool {
	if r == nil {
		return true
	}
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Store persists one credential pair.
type Store interface {
	Save(ctx context.Context, token string, user []byte) error
	Load(ctx context.Context) (*Record, error)
	Clear(ctx context.Context) error
}

func checkPair(token string, user []byte) error {
	if token == "" || len(user) == 0 {
		return ErrEmptyPair
	}
	return nil
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
