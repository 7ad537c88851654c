// Package grpc serves the standard gRPC health protocol next to the HTTP API
// so meshes and load balancers can probe the scheduler natively.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
)

// ServiceName is the health entry that tracks the scheduler as a whole.
const ServiceName = "contractnest.scheduling.v1.Scheduler"

const (
	defaultGracefulTimeout = 10 * time.Second
	defaultCheckInterval   = 10 * time.Second
	checkTimeout           = 3 * time.Second
)

var defaultKeepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle:     15 * time.Minute,
	MaxConnectionAge:      30 * time.Minute,
	MaxConnectionAgeGrace: 5 * time.Second,
	Time:                  5 * time.Minute,
	Timeout:               1 * time.Second,
}

// Checker reports whether one dependency is usable. The HTTP health
// handler's checkers satisfy it.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Metrics records completed RPCs.
type Metrics interface {
	RecordRPC(method, code string, d time.Duration)
}

type Option func(*serverOptions)

type serverOptions struct {
	metrics         Metrics
	reflection      bool
	gracefulTimeout time.Duration
	checkInterval   time.Duration
}

func WithMetrics(m Metrics) Option { return func(o *serverOptions) { o.metrics = m } }

// WithReflection registers the reflection service, for grpcurl in debugging.
func WithReflection() Option { return func(o *serverOptions) { o.reflection = true } }

func WithGracefulTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// WithCheckInterval sets how often dependency checks refresh health status.
func WithCheckInterval(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

// Server owns a grpc.Server with the health service registered. Statuses
// start NOT_SERVING and follow the checkers once Serve runs.
type Server struct {
	grpcServer   *grpc.Server
	healthServer *health.Server
	checkers     []Checker
	opts         serverOptions
	logger       logging.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewServer(logger logging.Logger, checkers []Checker, opts ...Option) *Server {
	o := serverOptions{
		gracefulTimeout: defaultGracefulTimeout,
		checkInterval:   defaultCheckInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger = logger.Named("grpc")

	gs := grpc.NewServer(
		grpc.KeepaliveParams(defaultKeepaliveParams),
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(logger),
			loggingUnaryInterceptor(logger),
			metricsUnaryInterceptor(o.metrics),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	for _, c := range checkers {
		hs.SetServingStatus(c.Name(), healthpb.HealthCheckResponse_NOT_SERVING)
	}
	if o.reflection {
		reflection.Register(gs)
	}

	return &Server{
		grpcServer:   gs,
		healthServer: hs,
		checkers:     checkers,
		opts:         o,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Serve runs checks immediately, keeps them fresh in the background and
// blocks serving lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("grpc server already started")
	}
	s.started = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.refresh(ctx)
	go s.watch(ctx)

	s.logger.Info("grpc server listening", logging.String("addr", lis.Addr().String()))
	err := s.grpcServer.Serve(lis)
	if err == grpc.ErrServerStopped {
		return nil
	}
	return err
}

func (s *Server) watch(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh runs every checker and publishes per-component and overall status.
func (s *Server) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	results := make([]error, len(s.checkers))
	var wg sync.WaitGroup
	for i, c := range s.checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			results[i] = c.Check(ctx)
		}(i, c)
	}
	wg.Wait()

	overall := healthpb.HealthCheckResponse_SERVING
	for i, c := range s.checkers {
		st := healthpb.HealthCheckResponse_SERVING
		if results[i] != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = st
			s.logger.Warn("health check failed", logging.String("component", c.Name()), logging.Err(results[i]))
		}
		s.healthServer.SetServingStatus(c.Name(), st)
	}
	s.healthServer.SetServingStatus("", overall)
	s.healthServer.SetServingStatus(ServiceName, overall)
}

// Stop marks everything NOT_SERVING so clients drain, then stops gracefully,
// forcing the stop when ctx or the graceful timeout ends first.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	s.healthServer.Shutdown()
	if !started {
		s.grpcServer.Stop()
		return
	}
	s.cancel()
	<-s.done

	ctx, cancel := context.WithTimeout(ctx, s.opts.gracefulTimeout)
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		s.logger.Info("grpc server stopped")
	case <-ctx.Done():
		s.logger.Warn("grpc graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Interceptors
// ─────────────────────────────────────────────────────────────────────────────

func recoveryUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc panic recovered",
					logging.String("method", info.FullMethod),
					logging.Any("panic", r),
					logging.String("stack", string(debug.Stack())))
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func isHealthCheck(method string) bool {
	return strings.HasPrefix(method, "/grpc.health.v1.Health/")
}

// loggingUnaryInterceptor logs at debug for health probes, which arrive
// every few seconds, and at info otherwise.
func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []logging.Field{
			logging.String("method", info.FullMethod),
			logging.Duration("duration", time.Since(start)),
			logging.String("code", status.Code(err).String()),
		}
		if isHealthCheck(info.FullMethod) {
			logger.Debug("grpc request", fields...)
		} else {
			logger.Info("grpc request", fields...)
		}
		return resp, err
	}
}

func metricsUnaryInterceptor(m Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if m == nil {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		m.RecordRPC(info.FullMethod, status.Code(err).String(), time.Since(start))
		return resp, err
	}
}
