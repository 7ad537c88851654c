// Command worker runs the scheduling engine's background work: the overdue
// sweep, status table refresh and ingestion of completed service tickets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/messaging/kafka"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/scheduler"
	httpserver "github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http/handlers"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http/middleware"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/platform"
)

const (
	defaultWorkerConfigPath = "configs/config.yaml"
	defaultHealthPort       = 8081
	topicReplication        = 1
)

var version = "dev"

func main() {
	configPath := flag.String("config", defaultWorkerConfigPath, "path to configuration file")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for /healthz, /readyz and metrics")
	sweepOnStart := flag.Bool("sweep-on-start", true, "run the overdue sweep once at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, *healthPort, *sweepOnStart, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, healthPort int, sweepOnStart bool, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting scheduling worker",
		logging.String("version", version),
		logging.String("overdue_sweep", cfg.Scheduler.OverdueSweepSpec),
		logging.String("table_refresh", cfg.Scheduler.TableRefreshSpec),
		logging.Bool("kafka", cfg.Kafka.Enabled),
	)

	p, err := platform.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	sched, err := newScheduler(cfg, p, logger)
	if err != nil {
		return err
	}
	sched.Start()
	if sweepOnStart {
		if err := sched.RunNow(ctx, scheduler.JobOverdueSweep); err != nil {
			logger.Warn("initial overdue sweep failed", logging.Err(err))
		}
	}

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		if consumer, err = startConsumer(ctx, cfg, p, logger); err != nil {
			return err
		}
	}

	healthSrv := newHealthServer(cfg, healthPort, p, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Warn("kafka consumer close failed", logging.Err(err))
		}
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler stop timed out; jobs may still be running", logging.Err(err))
	}
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown failed", logging.Err(err))
	}
	logger.Info("worker stopped")
	return runErr
}

func newScheduler(cfg *config.Config, p *platform.Platform, logger logging.Logger) (*scheduler.Scheduler, error) {
	var opts []scheduler.Option
	var reload scheduler.ReloadMetrics
	if p.Locks != nil {
		opts = append(opts, scheduler.WithLocker(p.Locks))
	} else {
		logger.Warn("redis disabled; the overdue sweep is not coordinated across worker replicas")
	}
	if p.Metrics != nil {
		opts = append(opts, scheduler.WithMetrics(p.Metrics))
		reload = p.Metrics
	}

	s := scheduler.New(logger, opts...)
	if err := s.Add(scheduler.OverdueSweepJob(p.Service, cfg.Scheduler.OverdueSweepSpec, cfg.Scheduler.LockTTL)); err != nil {
		return nil, err
	}
	if err := s.Add(scheduler.TableRefreshJob(p.Registry, cfg.Scheduler.TableRefreshSpec, cfg.Lifecycle.Source, reload)); err != nil {
		return nil, err
	}
	return s, nil
}

// startConsumer ensures the topics exist and feeds completed tickets into the
// service. Messages that keep failing go to the dead letter topic.
func startConsumer(ctx context.Context, cfg *config.Config, p *platform.Platform, logger logging.Logger) (*kafka.Consumer, error) {
	tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		return nil, fmt.Errorf("kafka topic manager: %w", err)
	}
	err = tm.EnsureTopics(kafka.DefaultTopics(topicReplication))
	_ = tm.Close()
	if err != nil {
		return nil, fmt.Errorf("ensure kafka topics: %w", err)
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(cfg.Kafka, kafka.TopicTicketsCompleted), p.Producer, logger)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Subscribe(kafka.TopicTicketsCompleted, kafka.EnvelopeHandler(func(ctx context.Context, env *kafka.EventEnvelope) error {
		return p.Service.HandleTicketCompleted(ctx, env.Payload)
	}))
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Close()
		return nil, err
	}
	return consumer, nil
}

func newHealthServer(cfg *config.Config, port int, p *platform.Platform, logger logging.Logger) *httpserver.Server {
	checkers := p.Checkers()
	hc := make([]handlers.HealthChecker, len(checkers))
	for i, c := range checkers {
		hc[i] = c
	}
	routerCfg := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, hc...),
		Logger:        logger,
		Logging:       middleware.DefaultLoggingConfig(),
	}
	if p.Collector != nil {
		routerCfg.MetricsPath = cfg.Metrics.Path
		routerCfg.MetricsHandler = p.Collector.Handler()
	}

	serverCfg := cfg.Server
	serverCfg.Port = port
	serverCfg.WriteTimeout = 10 * time.Second
	return httpserver.NewServer(serverCfg, httpserver.NewRouter(routerCfg), logger)
}
