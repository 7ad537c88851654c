// Command apiserver serves the contract event scheduling HTTP API and the
// gRPC health protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/application/scheduling"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/grpc"
	httpserver "github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http/handlers"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http/middleware"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/platform"
)

const defaultConfigPath = "configs/config.yaml"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC health port (overrides config, -1 disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}
	if *grpcPort != 0 {
		cfg.Server.GRPCPort = *grpcPort
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("apiserver exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting scheduling API server",
		logging.String("version", version),
		logging.Int("http_port", cfg.Server.Port),
		logging.Int("grpc_port", cfg.Server.GRPCPort),
		logging.String("db_driver", cfg.Database.Driver),
	)

	p, err := platform.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	watchTables(cfg, configPath, p, logger)

	checkers := p.Checkers()
	healthCheckers := make([]handlers.HealthChecker, len(checkers))
	grpcCheckers := make([]grpcserver.Checker, len(checkers))
	for i, c := range checkers {
		healthCheckers[i] = c
		grpcCheckers[i] = c
	}

	loggingCfg := middleware.DefaultLoggingConfig()
	if cfg.Server.SlowRequest > 0 {
		loggingCfg.SlowThreshold = cfg.Server.SlowRequest
	}
	routerCfg := httpserver.RouterConfig{
		ScheduleHandler:  handlers.NewScheduleHandler(p.Service, logger),
		EventHandler:     handlers.NewEventHandler(p.Service, logger),
		LifecycleHandler: handlers.NewLifecycleHandler(p.Service, logger),
		HealthHandler:    handlers.NewHealthHandler(version, healthCheckers...),
		Logger:           logger,
		Logging:          loggingCfg,
		MaxBodySize:      cfg.Server.MaxBodySize,
	}
	var grpcOpts []grpcserver.Option
	if p.Metrics != nil {
		routerCfg.Metrics = p.Metrics
		routerCfg.MetricsPath = cfg.Metrics.Path
		routerCfg.MetricsHandler = p.Collector.Handler()
		grpcOpts = append(grpcOpts, grpcserver.WithMetrics(p.Metrics))
	}

	httpSrv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	errCh := make(chan error, 2)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	var grpcSrv *grpcserver.Server
	if cfg.Server.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = grpcserver.NewServer(logger, grpcCheckers, grpcOpts...)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.Stop(shutdownCtx)
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("servers stopped")
	return runErr
}

// watchTables swaps in edited status tables from the config file without a
// restart. Only the file source is watched; the postgres source is reloaded
// by the worker's refresh job on each replica's own schedule.
func watchTables(cfg *config.Config, configPath string, p *platform.Platform, logger logging.Logger) {
	if cfg.Lifecycle.Source != config.LifecycleSourceFile {
		return
	}
	err := config.Watch(configPath, func(next *config.Config) {
		defs, err := scheduling.TableDefinitionsFromConfig(next.Lifecycle.Tables)
		if err != nil {
			logger.Warn("ignoring invalid status tables from config", logging.Err(err))
			return
		}
		if err := p.Registry.Swap(defs); err != nil {
			logger.Warn("status table swap failed", logging.Err(err))
			return
		}
		logger.Info("status tables reloaded from config", logging.Int("event_types", len(defs)))
	}, func(err error) {
		logger.Warn("config watch error", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}
