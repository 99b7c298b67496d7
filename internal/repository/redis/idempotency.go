package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLockValue = "LOCK"
	idemResPrefix = "RES:"
)

// StoredResponse is a completed response kept for replay under an
// idempotency key.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyStore keeps one entry per key: a short-lived LOCK while the
// first request is in flight, then the stored response for ttl.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock claims key for the caller. It reports false when another
// request holds the key or already stored a result.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLockValue, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, res StoredResponse) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, idemResPrefix+string(b), s.ttl).Err()
}

// GetResult returns the stored response for key. ok is false while the key
// is absent or still locked.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (StoredResponse, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, err
	}
	if !strings.HasPrefix(v, idemResPrefix) {
		return StoredResponse{}, false, nil
	}

	var res StoredResponse
	if err := json.Unmarshal([]byte(strings.TrimPrefix(v, idemResPrefix)), &res); err != nil {
		return StoredResponse{}, false, err
	}

	return res, true, nil
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, key string) (bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == idemLockValue, nil
}

// Release drops the key so the request can be retried. It only removes a
// LOCK; a stored result is left alone.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	locked, err := s.IsLocked(ctx, key)
	if err != nil || !locked {
		return err
	}
	return s.rdb.Del(ctx, key).Err()
}
