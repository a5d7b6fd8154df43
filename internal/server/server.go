// Package server exposes the simulator and the experiment runner over
// REST and JSON-RPC 2.0.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/copyleftdev/cnvsim/internal/config"
	"github.com/copyleftdev/cnvsim/internal/errors"
	"github.com/copyleftdev/cnvsim/internal/experiment"
	"github.com/copyleftdev/cnvsim/internal/logging"
	"github.com/copyleftdev/cnvsim/internal/simulation"
	"github.com/copyleftdev/cnvsim/internal/simulation/wrightfisher"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

var (
	errInvalidRequest = errors.New("invalid request")
	errNotFound       = errors.New("experiment not found")
	errNotRunning     = errors.New("experiment is not running")
	errNotCompleted   = errors.New("experiment has not completed")
	errTooManyJobs    = errors.New("too many experiments in progress")
)

// Server implements the HTTP and JSON-RPC server for the simulation service.
// Single trajectories are simulated synchronously; experiments run as
// background jobs that can be polled and cancelled.
type Server struct {
	cfg       *config.Config
	logger    Logger
	validate  *validator.Validate
	simulator *wrightfisher.Simulator

	// Experiment state management
	experiments   map[string]*ExperimentState
	experimentsMu sync.RWMutex // Protects the experiments map and every state in it
	wg            sync.WaitGroup
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:         cfg,
		logger:      logger,
		validate:    newValidator(),
		simulator:   wrightfisher.NewSimulator(logging.NewZapLogger(logger.WithFields(map[string]interface{}{"component": "simulator"}))),
		experiments: make(map[string]*ExperimentState),
	}
}

// RegisterRoutes mounts the REST API under /api/v1 and JSON-RPC at /rpc.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/simulate", s.handleSimulate)
		r.Post("/step", s.handleStep)
		r.Post("/experiments", s.handleStartExperiment)
		r.Get("/experiments", s.handleListExperiments)
		r.Get("/experiments/{id}", s.handleExperimentStatus)
		r.Get("/experiments/{id}/chart", s.handleExperimentChart)
		r.Delete("/experiments/{id}", s.handleCancelExperiment)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Close cancels every experiment still in progress and waits for the jobs
// to stop.
func (s *Server) Close() error {
	s.experimentsMu.Lock()
	now := time.Now()
	for _, exp := range s.experiments {
		if exp.Status.Terminal() {
			continue
		}
		exp.cancel()
		exp.Status = StatusCancelled
		exp.EndTime = &now
		exp.LastUpdated = now
	}
	s.experimentsMu.Unlock()

	s.wg.Wait()
	return nil
}

// httpStatus maps an error to the HTTP status reported to clients.
func httpStatus(err error) int {
	switch {
	case isInvalid(err):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNotRunning), errors.Is(err, errNotCompleted):
		return http.StatusConflict
	case errors.Is(err, errTooManyJobs):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func isInvalid(err error) bool {
	return errors.Is(err, errInvalidRequest) || simulation.IsInvalidParameter(err) || errors.Is(err, experiment.ErrInvalidPlan)
}
