package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http/handlers"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil handlers leave their routes unmounted.
type RouterConfig struct {
	ScheduleHandler  *handlers.ScheduleHandler
	EventHandler     *handlers.EventHandler
	LifecycleHandler *handlers.LifecycleHandler
	HealthHandler    *handlers.HealthHandler

	Logger      logging.Logger
	Logging     middleware.LoggingConfig
	Metrics     middleware.HTTPMetrics
	MetricsPath string
	// MetricsHandler serves the Prometheus scrape endpoint when set.
	MetricsHandler http.Handler
	MaxBodySize    int64
}

// NewRouter builds the route tree: probes and metrics at the root, the
// scheduling API under /api/v1.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recoverer(logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.RequestLogging(logger, cfg.Logging))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.MaxBodySize > 0 {
			api.Use(chimw.RequestSize(cfg.MaxBodySize))
		}
		api.Use(chimw.AllowContentType("application/json"))

		if cfg.ScheduleHandler != nil {
			cfg.ScheduleHandler.RegisterRoutes(api)
		}
		if cfg.EventHandler != nil {
			cfg.EventHandler.RegisterRoutes(api)
		}
		if cfg.LifecycleHandler != nil {
			cfg.LifecycleHandler.RegisterRoutes(api)
		}
	})

	return r
}
