package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache holds JSON copies of catalog entities under the Key* keys.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// ReadThrough returns the entity cached under key, or loads and caches it.
// Concurrent misses for one key share a single load. A nil cache, a Redis
// error or an unreadable entry all fall through to load; only load's error
// is returned.
func ReadThrough[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return load(ctx)
	}

	var v T
	if c.lookup(ctx, key, &v) {
		return v, nil
	}

	shared, err, _ := c.sf.Do(key, func() (any, error) {
		var fresh T
		if c.lookup(ctx, key, &fresh) {
			return fresh, nil
		}

		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}

		// A failed write only costs the next reader a load.
		_ = c.store(ctx, key, fresh, ttl)

		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := shared.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("redisrepo.ReadThrough: %s holds %T", key, shared)
	}

	return v, nil
}

func (c *Cache) InvalidateVenue(ctx context.Context, venueID int64) error {
	return c.drop(ctx, KeyVenue(venueID))
}

func (c *Cache) InvalidateEvent(ctx context.Context, eventID int64) error {
	return c.drop(ctx, KeyEvent(eventID))
}

func (c *Cache) InvalidateSession(ctx context.Context, sessionID int64) error {
	return c.drop(ctx, KeySession(sessionID))
}

// lookup decodes the entry under key into dst and reports whether it did.
func (c *Cache) lookup(ctx context.Context, key string, dst any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}

	return json.Unmarshal(b, dst) == nil
}

func (c *Cache) store(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, ttl).Err()
}

func (c *Cache) drop(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}

	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redisrepo.Cache.drop %s: %w", key, err)
	}

	return nil
}
