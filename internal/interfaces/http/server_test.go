package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/testutil"
)

func TestNewServer(t *testing.T) {
	s := NewServer(config.ServerConfig{Port: 8081, ReadTimeout: time.Second}, http.NewServeMux(), testutil.NewMockLogger())
	assert.Equal(t, ":8081", s.Addr())
	assert.Equal(t, time.Second, s.srv.ReadTimeout)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) })
	log := testutil.NewMockLogger()
	s := NewServer(config.ServerConfig{}, mux, log)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", ln.Addr()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
	assert.True(t, log.HasMessage("info", "HTTP server stopped"))
}
