package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "cache serialization failed")
)

// nullMarker caches a loader's nil result so absent values are not
// reloaded on every request.
const nullMarker = "__null__"

// Cache stores JSON values under namespaced keys.
type Cache struct {
	client       *Client
	logger       logging.Logger
	nullCacheTTL time.Duration
	jitter       float64
	group        singleflight.Group
}

type CacheOption func(*Cache)

func WithNullCacheTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.nullCacheTTL = ttl }
}

// WithJitter spreads expiries by ±fraction of the TTL. Zero disables it.
func WithJitter(fraction float64) CacheOption {
	return func(c *Cache) { c.jitter = fraction }
}

func NewCache(client *Client, log logging.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		client:       client,
		logger:       log.Named("cache"),
		nullCacheTTL: 30 * time.Second,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsCacheMiss reports whether err means the key holds no value.
func IsCacheMiss(err error) bool {
	return stderrors.Is(err, ErrCacheMiss)
}

func (c *Cache) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = c.client.DefaultTTL()
	}
	if c.jitter <= 0 {
		return ttl
	}
	delta := float64(ttl) * c.jitter * (rand.Float64()*2 - 1)
	return ttl + time.Duration(delta)
}

// Get decodes the value at key into dest. A missing key or a cached nil
// yields ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	rdb, err := c.client.Universal()
	if err != nil {
		return err
	}
	data, err := rdb.Get(ctx, c.client.Key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache get failed")
	}
	if string(data) == nullMarker {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return nil
}

// Set stores value as JSON. A non-positive ttl uses the client default.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	rdb, err := c.client.Universal()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := rdb.Set(ctx, c.client.Key(key), data, c.ttl(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set failed")
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	rdb, err := c.client.Universal()
	if err != nil {
		return err
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.client.Key(k)
	}
	if err := rdb.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache delete failed")
	}
	return nil
}

// GetOrSet serves key from the cache or runs loader once per key across
// concurrent callers in this process. A failed cache write is logged and
// the loaded value still returned.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil || !IsCacheMiss(err) {
		return err
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if loaded == nil {
			if rdb, uerr := c.client.Universal(); uerr == nil {
				rdb.Set(ctx, c.client.Key(key), nullMarker, c.nullCacheTTL)
			}
			return nil, nil
		}
		data, mErr := json.Marshal(loaded)
		if mErr != nil {
			return nil, ErrSerializationFailed.WithCause(mErr)
		}
		if setErr := c.Set(ctx, key, json.RawMessage(data), ttl); setErr != nil {
			c.logger.Warn("cache fill failed", logging.String("key", key), logging.Err(setErr))
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	if v == nil {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(v.([]byte), dest); err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return nil
}
