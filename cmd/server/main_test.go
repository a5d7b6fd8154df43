package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/cnvsim/internal/config"
	"github.com/copyleftdev/cnvsim/internal/logging"
	"github.com/copyleftdev/cnvsim/internal/server"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg, err := config.Parse()
	require.NoError(t, err)

	logger := logging.New(logging.ErrorLevel, io.Discard)
	r := newRouter(cfg, logger)
	srv := server.NewServer(cfg, logger)
	t.Cleanup(func() { _ = srv.Close() })
	srv.RegisterRoutes(r)
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
	return r
}

func TestRouter(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name     string
		path     string
		status   int
		contains string
	}{
		{name: "health", path: "/healthz", status: http.StatusOK, contains: "OK"},
		{name: "metrics", path: "/metrics", status: http.StatusOK, contains: "go_goroutines"},
		{name: "recovered panic", path: "/panic", status: http.StatusInternalServerError, contains: "Internal Server Error"},
		{name: "unknown route", path: "/nope", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, shutdownTimeout(0), shutdownTimeout(-1))
	assert.Positive(t, shutdownTimeout(0))
	assert.Equal(t, 5*time.Second, shutdownTimeout(5*time.Second))
}
