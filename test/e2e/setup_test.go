//go:build e2e

// End-to-end tests drive the public SDK against a running API. By default
// an embedded server backed by in-memory stores is started; set
// CONTRACTNEST_E2E_BASE_URL to target a deployed instance instead.
package e2e_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	httpserver "github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/interfaces/http/handlers"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/platform"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/client"
)

type testEnv struct {
	baseURL      string
	sdk          *client.Client
	cleanupFuncs []func()
}

var env *testEnv

func TestMain(m *testing.M) {
	var err error
	env, err = setupTestEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "E2E test setup failed: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	for i := len(env.cleanupFuncs) - 1; i >= 0; i-- {
		env.cleanupFuncs[i]()
	}
	os.Exit(code)
}

func setupTestEnv() (*testEnv, error) {
	e := &testEnv{baseURL: os.Getenv("CONTRACTNEST_E2E_BASE_URL")}
	if e.baseURL == "" {
		if err := e.startEmbedded(); err != nil {
			return nil, err
		}
	}
	if err := waitForHealthy(e.baseURL, 30*time.Second); err != nil {
		return nil, err
	}

	sdk, err := client.NewClient(e.baseURL, client.WithTimeout(10*time.Second), client.WithRetryWait(50*time.Millisecond))
	if err != nil {
		return nil, err
	}
	e.sdk = sdk
	return e, nil
}

func (e *testEnv) startEmbedded() error {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Database.Driver = config.DriverMemory
	cfg.Lifecycle.Source = config.LifecycleSourceFile

	logger := logging.NewNopLogger()
	p, err := platform.Open(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("open platform: %w", err)
	}
	e.cleanupFuncs = append(e.cleanupFuncs, p.Close)

	srv := httptest.NewServer(httpserver.NewRouter(httpserver.RouterConfig{
		ScheduleHandler:  handlers.NewScheduleHandler(p.Service, logger),
		EventHandler:     handlers.NewEventHandler(p.Service, logger),
		LifecycleHandler: handlers.NewLifecycleHandler(p.Service, logger),
		HealthHandler:    handlers.NewHealthHandler("e2e"),
		Logger:           logger,
		MaxBodySize:      cfg.Server.MaxBodySize,
	}))
	e.cleanupFuncs = append(e.cleanupFuncs, srv.Close)
	e.baseURL = srv.URL
	return nil
}

func waitForHealthy(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := http.Get(baseURL + "/readyz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("service at %s not ready after %s", baseURL, timeout)
		}
		time.Sleep(250 * time.Millisecond)
	}
}
