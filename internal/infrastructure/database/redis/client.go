// Package redis backs the scheduling engine's shared state: the timeline
// cache, idempotent generation results, the overdue snapshot and the
// distributed locks that keep the worker sweep single-runner.
package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

var (
	ErrClientClosed     = errors.New(errors.ErrCodeCacheError, "redis client is closed")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "redis connection failed")
)

const defaultKeyPrefix = "contractnest:"

// Client wraps a go-redis universal client and namespaces every key.
type Client struct {
	rdb        redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	logger     logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient connects to the address in cfg and pings it.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, ErrConnectionFailed.WithCause(err)
	}

	log.Info("connected to redis", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return NewClientFromUniversal(rdb, cfg.KeyPrefix, cfg.DefaultTTL, log), nil
}

// NewClientFromUniversal wraps an existing client. Tests hand in a redismock
// or miniredis backed client here.
func NewClientFromUniversal(rdb redis.UniversalClient, prefix string, defaultTTL time.Duration, log logging.Logger) *Client {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &Client{rdb: rdb, prefix: prefix, defaultTTL: defaultTTL, logger: log.Named("redis")}
}

func applyDefaults(cfg *config.RedisConfig) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 20
	}
	if cfg.MinIdleConns < 0 {
		cfg.MinIdleConns = 0
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
}

// Key joins parts under the client's namespace.
func (c *Client) Key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

func (c *Client) DefaultTTL() time.Duration { return c.defaultTTL }

// Universal exposes the underlying client, or an error once closed.
func (c *Client) Universal() (redis.UniversalClient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	return c.rdb, nil
}

func (c *Client) Ping(ctx context.Context) error {
	rdb, err := c.Universal()
	if err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis ping failed")
	}
	return nil
}

// Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rdb.Close()
	if err == nil {
		c.logger.Info("closed redis client")
	} else {
		c.logger.Error("failed to close redis client", logging.Err(err))
	}
	return err
}
