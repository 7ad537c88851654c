package redis

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "lock is held by another owner")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

// Only the owner's token may release or extend a lock.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

// WithRetryCount sets how many SETNX attempts Lock makes. One means a single try.
func WithRetryCount(count int) LockOption {
	return func(c *lockConfig) { c.retryCount = count }
}

type lockConfig struct {
	ttl        time.Duration
	retryDelay time.Duration
	retryCount int
}

// LockFactory creates mutexes sharing one client.
type LockFactory struct {
	client *Client
	logger logging.Logger
}

func NewLockFactory(client *Client, log logging.Logger) *LockFactory {
	return &LockFactory{client: client, logger: log.Named("lock")}
}

// NewMutex returns an unlocked mutex on name. Each mutex carries its own
// owner token.
func (f *LockFactory) NewMutex(name string, opts ...LockOption) *Mutex {
	cfg := lockConfig{
		ttl:        30 * time.Second,
		retryDelay: 100 * time.Millisecond,
		retryCount: 30,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.retryCount < 1 {
		cfg.retryCount = 1
	}
	return &Mutex{
		client: f.client,
		key:    f.client.Key("lock", name),
		token:  uuid.NewString(),
		config: cfg,
	}
}

// Mutex is a SETNX lock with a TTL. It is not reentrant.
type Mutex struct {
	client *Client
	key    string
	token  string
	config lockConfig
}

func (m *Mutex) Key() string { return m.key }

// TryLock makes one acquisition attempt.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	rdb, err := m.client.Universal()
	if err != nil {
		return false, err
	}
	ok, err := rdb.SetNX(ctx, m.key, m.token, m.config.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquire failed")
	}
	return ok, nil
}

// Lock retries TryLock until it succeeds, the attempts run out or ctx ends.
func (m *Mutex) Lock(ctx context.Context) error {
	for i := 0; i < m.config.retryCount; i++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if i == m.config.retryCount-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.config.retryDelay):
		}
	}
	return ErrLockNotAcquired
}

func (m *Mutex) Unlock(ctx context.Context) error {
	rdb, err := m.client.Universal()
	if err != nil {
		return err
	}
	n, err := unlockScript.Run(ctx, rdb, []string{m.key}, m.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend resets the TTL if the lock is still ours.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	rdb, err := m.client.Universal()
	if err != nil {
		return false, err
	}
	n, err := extendScript.Run(ctx, rdb, []string{m.key}, m.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock extend failed")
	}
	return n == 1, nil
}

// RunExclusive runs fn only if the named lock can be taken on the first
// try. It reports whether fn ran. Used by cron jobs so that exactly one
// replica does the work per tick.
func (f *LockFactory) RunExclusive(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	m := f.NewMutex(name, WithLockTTL(ttl), WithRetryCount(1))
	ok, err := m.TryLock(ctx)
	if err != nil || !ok {
		return false, err
	}
	defer func() {
		// The job may outlive the TTL; losing the lock then is expected.
		if uerr := m.Unlock(context.Background()); uerr != nil && !stderrors.Is(uerr, ErrLockNotHeld) {
			f.logger.Warn("release job lock failed", logging.String("lock", name), logging.Err(uerr))
		}
	}()
	return true, fn(ctx)
}

// EventLocker serializes transitions on one event across processes.
type EventLocker struct {
	factory *LockFactory
	opts    []LockOption
}

var _ lifecycle.Locker = (*EventLocker)(nil)

func NewEventLocker(factory *LockFactory, opts ...LockOption) *EventLocker {
	return &EventLocker{factory: factory, opts: opts}
}

func (l *EventLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	m := l.factory.NewMutex("event:"+eventID, l.opts...)
	if err := m.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := m.Unlock(context.Background()); err != nil {
			l.factory.logger.Warn("release event lock failed", logging.EventID(eventID), logging.Err(err))
		}
	}, nil
}
