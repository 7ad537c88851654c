// Package scheduling orchestrates schedule generation, event lifecycle and
// the read views of a contract on top of the domain packages.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds tuneable parameters for the service.
type Config struct {
	// ViewCacheTTL bounds how long summary and timeline views are cached.
	// Default: 5 minutes.
	ViewCacheTTL time.Duration

	// IdempotencyTTL is how long a generation result replays for the same
	// idempotency key. Default: 24 hours.
	IdempotencyTTL time.Duration

	// SweepLimit caps the events collected by one overdue sweep. Default: 5000.
	SweepLimit int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ViewCacheTTL:   5 * time.Minute,
		IdempotencyTTL: 24 * time.Hour,
		SweepLimit:     5000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ViewCacheTTL <= 0 {
		c.ViewCacheTTL = d.ViewCacheTTL
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = d.IdempotencyTTL
	}
	if c.SweepLimit <= 0 {
		c.SweepLimit = d.SweepLimit
	}
	return c
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Dependencies are the mandatory collaborators of a Service. Authority is
// built from Events and Tables when nil.
type Dependencies struct {
	Events    schedule.EventRepository
	Overrides schedule.OverrideRepository
	Tickets   schedule.TicketRepository
	Tables    lifecycle.TablesProvider
	Authority *lifecycle.Authority
	Logger    logging.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithCache(c CachePort) Option                   { return func(s *Service) { s.cache = c } }
func WithPublisher(p EventPublisher) Option          { return func(s *Service) { s.publisher = p } }
func WithMetrics(m Metrics) Option                   { return func(s *Service) { s.metrics = m } }
func WithIdempotencyStore(i IdempotencyStore) Option { return func(s *Service) { s.idempotency = i } }
func WithOverdueStore(o OverdueStore) Option         { return func(s *Service) { s.overdue = o } }
func WithConfig(c Config) Option                     { return func(s *Service) { s.config = c.withDefaults() } }

// WithClock replaces time.Now; "today" is the UTC day of the returned instant.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// Service is the application facade used by the HTTP API, the CLI and the
// worker.
type Service struct {
	events    schedule.EventRepository
	overrides schedule.OverrideRepository
	tickets   schedule.TicketRepository
	tables    lifecycle.TablesProvider
	authority *lifecycle.Authority

	cache       CachePort
	publisher   EventPublisher
	metrics     Metrics
	idempotency IdempotencyStore
	overdue     OverdueStore

	inflight singleflight.Group
	config   Config
	now      func() time.Time
	logger   logging.Logger
}

// NewService validates deps and applies opts. Unset optional ports fall back
// to no-op implementations, except the overdue store which must be provided
// for SweepOverdue to persist anything.
func NewService(deps Dependencies, opts ...Option) (*Service, error) {
	switch {
	case deps.Events == nil:
		return nil, errors.Internal("scheduling: event repository must not be nil")
	case deps.Overrides == nil:
		return nil, errors.Internal("scheduling: override repository must not be nil")
	case deps.Tickets == nil:
		return nil, errors.Internal("scheduling: ticket repository must not be nil")
	case deps.Tables == nil:
		return nil, errors.Internal("scheduling: tables provider must not be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	authority := deps.Authority
	if authority == nil {
		authority = lifecycle.NewAuthority(deps.Events, deps.Tables, logger)
	}

	s := &Service{
		events:      deps.Events,
		overrides:   deps.Overrides,
		tickets:     deps.Tickets,
		tables:      deps.Tables,
		authority:   authority,
		cache:       nopCache{},
		publisher:   nopPublisher{},
		metrics:     NopMetrics{},
		idempotency: nopIdempotency{},
		config:      DefaultConfig(),
		now:         time.Now,
		logger:      logger.Named("scheduling"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) today() schedule.Date {
	return schedule.DateOf(s.now().UTC())
}

// ---------------------------------------------------------------------------
// Cache helpers
// ---------------------------------------------------------------------------

const (
	cacheSummary  = "summary"
	cacheTimeline = "timeline"
)

// View keys carry the day because the overdue flags they embed change at
// midnight.
func viewCacheKey(view, contractID string, day schedule.Date) string {
	return fmt.Sprintf("schedule:%s:%s:%s", view, contractID, day)
}

func (s *Service) invalidate(ctx context.Context, contractID string) {
	day := s.today()
	keys := []string{viewCacheKey(cacheSummary, contractID, day), viewCacheKey(cacheTimeline, contractID, day)}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("view cache invalidation failed", logging.ContractID(contractID), logging.Err(err))
	}
}

func cachedView[T any](ctx context.Context, s *Service, view, contractID string, load func(ctx context.Context) (*T, error)) (*T, error) {
	key := viewCacheKey(view, contractID, s.today())

	var cached T
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		s.metrics.CacheAccessed(view, true)
		return &cached, nil
	}
	if !errors.IsNotFound(err) {
		s.logger.Warn("view cache read failed", logging.String("key", key), logging.Err(err))
	}
	s.metrics.CacheAccessed(view, false)

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, v, s.config.ViewCacheTTL); err != nil {
		s.logger.Warn("view cache write failed", logging.String("key", key), logging.Err(err))
	}
	return v, nil
}

// publish never fails the caller: the state change is already durable.
func (s *Service) publish(ctx context.Context, topic, key string, payload interface{}) {
	err := s.publisher.Publish(ctx, topic, key, payload)
	s.metrics.Published(topic, err)
	if err != nil {
		s.logger.Warn("event publish failed", logging.String("topic", topic), logging.String("key", key), logging.Err(err))
	}
}
