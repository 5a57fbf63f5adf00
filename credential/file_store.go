package credential

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// DefaultProfile names the credential file when no profile is configured.
const DefaultProfile = "default"

// FileStore keeps one encoded record per profile under a directory.
//
// The file is replaced atomically on every save, so the token and the user
// can never be read from two different writes. A filesystem does not expire
// entries, so Load checks ExpiresAt itself and removes stale files.
type FileStore struct {
	dir     string
	profile string
	ttl     time.Duration
	sealer  Sealer
	now     func() time.Time
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithSealer encrypts the record at rest.
func WithSealer(s Sealer) FileOption {
	return func(f *FileStore) {
		f.sealer = s
	}
}

// WithFileClock overrides the clock used for issue and expiry times.
func WithFileClock(now func() time.Time) FileOption {
	return func(f *FileStore) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFileStore creates dir if needed. An empty dir selects the user cache
// directory.
func NewFileStore(dir, profile string, ttl time.Duration, opts ...FileOption) (*FileStore, error) {
	if dir == "" {
		root, err := os.UserCacheDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(root, "admconsole", "credentials")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("error creating credential directory: %w", err)
	}

	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	if strings.ContainsAny(profile, `/\`) || profile == "." || profile == ".." {
		return nil, fmt.Errorf("invalid credential profile %q", profile)
	}

	fs := &FileStore{
		dir:     dir,
		profile: profile,
		ttl:     normalizeTTL(ttl),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs, nil
}

// Path returns the file backing this store.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, s.profile+".cred")
}

// Save replaces the record for this profile.
func (s *FileStore) Save(_ context.Context, token string, user []byte) error {
	if err := checkPair(token, user); err != nil {
		return err
	}

	now := s.now()
	data, err := Encode(&Record{
		Token:     token,
		User:      user,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return err
	}
	if s.sealer != nil {
		if data, err = s.sealer.Seal(data); err != nil {
			return fmt.Errorf("seal credential record: %w", err)
		}
	}

	if err := atomic.WriteFile(s.Path(), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Load reads and checks the record.
func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if s.sealer != nil {
		if data, err = s.sealer.Open(data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if rec.Token == "" || len(rec.User) == 0 {
		_ = s.Clear(ctx)
		return nil, ErrNotFound
	}
	if rec.Expired(s.now()) {
		_ = s.Clear(ctx)
		return nil, ErrNotFound
	}
	return rec, nil
}

// Clear removes the file. A missing file is not an error.
func (s *FileStore) Clear(context.Context) error {
	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
