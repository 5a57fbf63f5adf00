package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the credential keys.
const DefaultRedisPrefix = "@ImoveisDeLuxoAdm"

// RedisStore keeps the pair as "<prefix>:token" and "<prefix>:user".
//
// Both keys are written in one MULTI/EXEC with the same TTL and read together,
// so a reader never sees a pair from two different sign-ins. Expiry is left
// to Redis.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore returns a store using client. An empty prefix selects
// DefaultRedisPrefix and a non-positive ttl selects DefaultTTL.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    normalizeTTL(ttl),
		now:    time.Now,
	}
}

func (s *RedisStore) tokenKey() string {
	return s.prefix + ":token"
}

func (s *RedisStore) userKey() string {
	return s.prefix + ":user"
}

// Save writes token and user atomically with the store TTL.
func (s *RedisStore) Save(ctx context.Context, token string, user []byte) error {
	if err := checkPair(token, user); err != nil {
		return err
	}
	if s.redis == nil {
		return ErrUnavailable
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(), token, s.ttl)
		pipe.Set(ctx, s.userKey(), user, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Load reads both keys in one round trip.
func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	if s.redis == nil {
		return nil, ErrUnavailable
	}

	pipe := s.redis.Pipeline()
	values := pipe.MGet(ctx, s.tokenKey(), s.userKey())
	ttl := pipe.PTTL(ctx, s.tokenKey())
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	vals := values.Val()
	if len(vals) != 2 {
		return nil, ErrCorrupt
	}
	token, tokenOK := vals[0].(string)
	user, userOK := vals[1].(string)

	if !tokenOK && !userOK {
		return nil, ErrNotFound
	}
	if !tokenOK || !userOK || token == "" || user == "" {
		// Orphaned half of a pair: drop it so the next load starts clean.
		_ = s.Clear(ctx)
		return nil, ErrNotFound
	}

	rec := &Record{
		Token: token,
		User:  []byte(user),
	}
	if remaining := ttl.Val(); remaining > 0 {
		rec.ExpiresAt = s.now().Add(remaining)
	}
	return rec, nil
}

// Clear deletes both keys. Deleting missing keys is not an error.
func (s *RedisStore) Clear(ctx context.Context) error {
	if s.redis == nil {
		return ErrUnavailable
	}
	if err := s.redis.Del(ctx, s.tokenKey(), s.userKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
