package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func entries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		out = append(out, e)
	}
	return out
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WarnLevel, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown", map[string]interface{}{"trials": 500})
	logger.Error("shown too")

	got := entries(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "WARN", got[0]["level"])
	assert.Equal(t, "shown", got[0]["message"])
	assert.Equal(t, float64(500), got[0]["trials"])
	assert.Contains(t, got[0]["caller"], "logging/logging_test.go")
	assert.Equal(t, "ERROR", got[1]["level"])
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(InfoLevel, &buf)
	child := base.WithFields(map[string]interface{}{"experiment_id": "abc"}).WithError(errors.New("boom"))

	child.Info("child")
	base.Info("parent")

	got := entries(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "abc", got[0]["experiment_id"])
	assert.Equal(t, "boom", got[0]["error"])
	assert.NotContains(t, got[1], "experiment_id", "parent fields unchanged")
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf).WithFormat(TextFormat)

	logger.Info("Scenario finished", map[string]interface{}{"scenario": "Neutral", "fixed": 3})

	line := buf.String()
	assert.Contains(t, line, "INFO  Scenario finished")
	assert.Contains(t, line, "fixed=3 scenario=Neutral")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l := logger.WithField("worker", i)
			for j := 0; j < 50; j++ {
				l.Info("trial")
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, entries(t, &buf), 400)
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cnvsim.log")
	logger, err := NewLogger(&Config{Level: "debug", Format: "text", Output: path})
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, logger.Level())

	logger.Debug("written")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG written")

	logger, err = NewLogger(nil)
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, logger.Level())

	_, err = NewLogger(&Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, parseLevel("debug"))
	assert.Equal(t, WarnLevel, parseLevel("WARN"))
	assert.Equal(t, WarnLevel, parseLevel("warning"))
	assert.Equal(t, InfoLevel, parseLevel("verbose"))
}

func TestZapLogger(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf)).Named("experiment").With(zap.String("scenario", "Neutral"))

	zl.Debug("hidden")
	zl.Info("Scenario finished",
		zap.Int("fixed", 3),
		zap.Uint64("seed", 42),
		zap.Float64("fixation_probability", 0.006),
		zap.Float32("ratio", 0.5),
		zap.Bool("done", true),
		zap.Duration("elapsed", 1500*time.Millisecond),
		zap.Stringer("outcome", stringer("lost")),
		zap.Error(errors.New("none")),
	)

	got := entries(t, &buf)
	require.Len(t, got, 1)
	e := got[0]
	assert.Equal(t, "INFO", e["level"])
	assert.Equal(t, "Scenario finished", e["message"])
	assert.Equal(t, "experiment", e["logger"])
	assert.Equal(t, "Neutral", e["scenario"])
	assert.Equal(t, float64(3), e["fixed"])
	assert.Equal(t, float64(42), e["seed"])
	assert.Equal(t, 0.006, e["fixation_probability"])
	assert.Equal(t, 0.5, e["ratio"])
	assert.Equal(t, true, e["done"])
	assert.Equal(t, "1.5s", e["elapsed"])
	assert.Equal(t, "lost", e["outcome"])
	assert.Equal(t, "none", e["error"])
	assert.Contains(t, e["caller"], "logging/logging_test.go")
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	r := chi.NewRouter()
	r.Use(Middleware(logger))
	r.Get("/api/v1/experiments/{id}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/experiments/42", nil))

	got := entries(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "inside handler", got[0]["message"])
	assert.Equal(t, "/api/v1/experiments/42", got[0]["path"])

	assert.Equal(t, "WARN", got[1]["level"])
	assert.Equal(t, float64(http.StatusNotFound), got[1]["status"])
	assert.Equal(t, "/api/v1/experiments/{id}", got[1]["route"])
	assert.Equal(t, "Not Found", got[1]["error"])
}
