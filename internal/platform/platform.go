// Package platform assembles the scheduling service and the infrastructure
// behind it from configuration. The API server and the worker share it.
package platform

import (
	"context"
	"fmt"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/application/scheduling"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/memory"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/postgres"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/postgres/repositories"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/redis"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/messaging/kafka"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/prometheus"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Checker is a named dependency probe.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkFunc) Name() string                    { return c.name }
func (c checkFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// Platform holds every opened resource. Optional ones are nil when disabled.
type Platform struct {
	Config   *config.Config
	Logger   logging.Logger
	Service  *scheduling.Service
	Registry *lifecycle.Registry

	Collector *prometheus.Collector
	Metrics   *prometheus.EngineMetrics

	Conn     *postgres.Connection
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Locks    *redis.LockFactory
	Producer *kafka.Producer

	checkers []Checker
	closers  []func() error
}

// Open connects everything cfg enables, loads the status tables and builds
// the service. On error whatever was already opened is closed.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (p *Platform, err error) {
	p = &Platform{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			p.Close()
			p = nil
		}
	}()

	if err = p.openMetrics(); err != nil {
		return nil, err
	}
	deps, err := p.openStores(ctx)
	if err != nil {
		return nil, err
	}
	if err = p.openTables(ctx, &deps); err != nil {
		return nil, err
	}

	opts := []scheduling.Option{
		scheduling.WithConfig(scheduling.Config{
			IdempotencyTTL: cfg.Idempotency.ResultTTL,
			SweepLimit:     cfg.Scheduler.SweepLimit,
		}),
	}
	if p.Metrics != nil {
		opts = append(opts, scheduling.WithMetrics(p.Metrics))
	}

	var authorityOpts []lifecycle.AuthorityOption
	if cfg.Redis.Enabled {
		if err = p.openRedis(ctx); err != nil {
			return nil, err
		}
		cache := redis.NewCache(p.Redis, logger)
		p.Locks = redis.NewLockFactory(p.Redis, logger)
		authorityOpts = append(authorityOpts, lifecycle.WithLocker(redis.NewEventLocker(p.Locks)))
		opts = append(opts,
			scheduling.WithCache(cache),
			scheduling.WithIdempotencyStore(redis.NewIdempotencyStore(cache)),
			scheduling.WithOverdueStore(redis.NewOverdueStore(p.Redis)),
		)
	} else {
		opts = append(opts, scheduling.WithOverdueStore(memory.NewOverdueStore()))
	}
	deps.Authority = lifecycle.NewAuthority(deps.Events, deps.Tables, logger, authorityOpts...)

	if cfg.Kafka.Enabled {
		if p.Producer, err = kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger); err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		p.closers = append(p.closers, p.Producer.Close)
		opts = append(opts, scheduling.WithPublisher(kafka.NewEnvelopePublisher(p.Producer, cfg.Kafka.Source, logger)))
	}

	if p.Service, err = scheduling.NewService(deps, opts...); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Platform) openMetrics() error {
	if !p.Config.Metrics.Enabled {
		return nil
	}
	c, err := prometheus.NewCollector(prometheus.CollectorConfigFrom(p.Config.Metrics), p.Logger)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}
	p.Collector = c
	p.Metrics = prometheus.NewEngineMetrics(c)
	return nil
}

func (p *Platform) openStores(ctx context.Context) (scheduling.Dependencies, error) {
	deps := scheduling.Dependencies{Logger: p.Logger}
	if p.Config.Database.Driver == config.DriverMemory {
		p.Logger.Warn("using in-memory event store; data is lost on restart")
		events := memory.NewEventStore()
		deps.Events, deps.Overrides, deps.Tickets = events, events, memory.NewTicketStore()
		return deps, nil
	}

	pgCfg := postgres.FromConfig(p.Config.Database)
	conn, err := postgres.NewConnection(pgCfg, p.Logger)
	if err != nil {
		return deps, fmt.Errorf("postgres: %w", err)
	}
	p.Conn = conn
	p.closers = append(p.closers, conn.Close)
	p.checkers = append(p.checkers, checkFunc{"postgres", conn.HealthCheck})

	pool, err := postgres.NewPool(ctx, pgCfg, p.Logger)
	if err != nil {
		return deps, fmt.Errorf("postgres pool: %w", err)
	}
	p.Pool = pool
	p.closers = append(p.closers, func() error { pool.Close(); return nil })

	events := repositories.NewEventRepository(conn, p.Logger)
	deps.Events, deps.Overrides = events, events
	deps.Tickets = repositories.NewTicketRepository(pool, p.Logger)
	return deps, nil
}

// openTables builds the registry. The configured tables are always the
// starting point; with the postgres source they seed an empty table store and
// are then replaced by what the store holds.
func (p *Platform) openTables(ctx context.Context, deps *scheduling.Dependencies) error {
	defs, err := scheduling.TableDefinitionsFromConfig(p.Config.Lifecycle.Tables)
	if err != nil {
		return err
	}
	initial, err := lifecycle.NewTable(defs)
	if err != nil {
		return err
	}

	var store lifecycle.TableStore = lifecycle.NewStaticStore(defs)
	if p.Config.Lifecycle.Source == config.LifecycleSourcePostgres {
		if p.Pool == nil {
			return fmt.Errorf("lifecycle source postgres requires database driver postgres")
		}
		repo := repositories.NewStatusTableRepository(p.Pool, p.Logger)
		stored, err := repo.LoadDefinitions(ctx)
		if err != nil {
			return err
		}
		if len(stored) == 0 {
			p.Logger.Info("status table store is empty; seeding from configuration", logging.Int("event_types", len(defs)))
			if err := repo.Replace(ctx, defs); err != nil {
				return err
			}
		}
		store = repo
	}

	p.Registry = lifecycle.NewRegistry(initial, store, p.Logger)
	if err := p.Registry.Load(ctx); err != nil {
		return err
	}
	deps.Tables = p.Registry
	return nil
}

func (p *Platform) openRedis(ctx context.Context) error {
	client, err := redis.NewClient(p.Config.Redis, p.Logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	p.Redis = client
	p.closers = append(p.closers, client.Close)
	p.checkers = append(p.checkers, checkFunc{"redis", client.Ping})
	return client.Ping(ctx)
}

// Checkers returns a probe for every opened network dependency.
func (p *Platform) Checkers() []Checker {
	return append([]Checker(nil), p.checkers...)
}

// Close releases resources in reverse order of opening.
func (p *Platform) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			p.Logger.Warn("close failed", logging.Err(err))
		}
	}
	p.closers = nil
}
