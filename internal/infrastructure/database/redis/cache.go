package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/pkg/errors"
)

// Cache is a JSON value cache over Redis with namespaced keys.  Concurrent
// misses on the same key are collapsed to one loader call via singleflight.
type Cache struct {
	client     *Client
	prefix     string
	defaultTTL time.Duration
	group      singleflight.Group
	logger     logging.Logger
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	// KeyPrefix namespaces every key, e.g. "molrank:".
	KeyPrefix string
	// DefaultTTL applies when Set or GetOrSet is called with ttl <= 0.
	DefaultTTL time.Duration
}

// NewCache builds a cache on top of an established client.
func NewCache(client *Client, opts CacheOptions, logger logging.Logger) *Cache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 10 * time.Minute
	}
	return &Cache{
		client:     client,
		prefix:     opts.KeyPrefix,
		defaultTTL: opts.DefaultTTL,
		logger:     logger,
	}
}

// BuildKey returns the namespaced form of key.
func (c *Cache) BuildKey(key string) string {
	return c.prefix + key
}

// Set stores value under key as JSON.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode cache value")
	}
	if err := c.client.rdb.Set(ctx, c.BuildKey(key), data, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache write failed")
	}
	return nil
}

// Delete removes keys.  Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = c.BuildKey(k)
	}
	if err := c.client.rdb.Del(ctx, namespaced...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache delete failed")
	}
	return nil
}

// GetOrSet returns the cached value under key, or runs loader, stores its
// result, and returns it.  The returned bytes are the JSON encoding of the
// value; callers unmarshal into their own type.  Loader errors propagate
// without caching; cache write failures are logged but do not fail the call,
// since the loader result is already in hand.
func (c *Cache) GetOrSet(ctx context.Context, key string, ttl time.Duration,
	loader func(ctx context.Context) (interface{}, error)) ([]byte, error) {

	full := c.BuildKey(key)
	if data, err := c.client.rdb.Get(ctx, full).Bytes(); err == nil {
		return data, nil
	} else if err != redis.Nil {
		c.logger.Warn("cache read failed, falling through to loader",
			logging.String("key", key), logging.Err(err))
	}

	v, err, _ := c.group.Do(full, func() (interface{}, error) {
		// Re-check after winning the flight; another goroutine may have
		// populated the key while we queued.
		if data, err := c.client.rdb.Get(ctx, full).Bytes(); err == nil {
			return data, nil
		}

		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode cache value")
		}

		effectiveTTL := ttl
		if effectiveTTL <= 0 {
			effectiveTTL = c.defaultTTL
		}
		if err := c.client.rdb.Set(ctx, full, data, effectiveTTL).Err(); err != nil {
			c.logger.Warn("cache write failed", logging.String("key", key), logging.Err(err))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
