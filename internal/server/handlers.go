package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/cnvsim/internal/errors"
	"github.com/copyleftdev/cnvsim/internal/report"
	"github.com/copyleftdev/cnvsim/internal/simulation/rng"
	"github.com/copyleftdev/cnvsim/internal/simulation/theory"
	"github.com/copyleftdev/cnvsim/internal/simulation/wrightfisher"
)

var chartContentTypes = map[string]string{
	"png": "image/png",
	"svg": "image/svg+xml",
	"pdf": "application/pdf",
}

// simulate runs one trajectory synchronously.
func (s *Server) simulate(req SimulateRequest) (*SimulateResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	params := req.parameters()
	if err := s.checkParameterLimits(params); err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	traj, err := s.simulator.Simulate(params, rng.New(seed))
	if err != nil {
		return nil, err
	}
	expected, err := theory.FixationProbability(params)
	if err != nil {
		return nil, err
	}

	return &SimulateResponse{
		Parameters:  params,
		Seed:        seed,
		Trajectory:  traj,
		Generations: traj.Generations(),
		Final:       traj.Final(),
		Outcome:     traj.Outcome().String(),
		Expected:    expected,
	}, nil
}

// step advances a frequency by one generation.
func (s *Server) step(req StepRequest) (*StepResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.checkLimit("population_size", req.PopulationSize, s.cfg.Simulation.MaxPopulationSize); err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &StepResponse{
		Seed:                    seed,
		TransmissionProbability: wrightfisher.TransmissionProbability(req.Frequency, req.SelectionCoefficient),
		Frequency:               wrightfisher.Step(req.Frequency, req.PopulationSize, req.SelectionCoefficient, rng.New(seed)),
	}, nil
}

// handleSimulate handles POST /api/v1/simulate
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := decode(r.Body, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.simulate(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStep handles POST /api/v1/step
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := decode(r.Body, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.step(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStartExperiment handles POST /api/v1/experiments
func (s *Server) handleStartExperiment(w http.ResponseWriter, r *http.Request) {
	var req ExperimentRequest
	if err := decode(r.Body, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	st, err := s.startExperiment(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/experiments/"+st.ID)
	writeJSON(w, http.StatusAccepted, st)
}

// handleListExperiments handles GET /api/v1/experiments
func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"experiments": s.listExperiments(),
	})
}

// handleExperimentStatus handles GET /api/v1/experiments/{id}
func (s *Server) handleExperimentStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.experimentStatus(ExperimentRef{ID: chi.URLParam(r, "id")})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleExperimentChart handles GET /api/v1/experiments/{id}/chart?format=png
func (s *Server) handleExperimentChart(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "png"
	}
	contentType, ok := chartContentTypes[format]
	if !ok {
		s.respondError(w, r, errors.Wrapf(errInvalidRequest, "unsupported chart format %q", format))
		return
	}

	result, err := s.completedResult(ExperimentRef{ID: chi.URLParam(r, "id")})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := report.BarChart(result)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if err := report.WriteChart(w, p, format); err != nil {
		s.logger.Error("Writing chart failed", map[string]interface{}{"error": err.Error()})
	}
}

// handleCancelExperiment handles DELETE /api/v1/experiments/{id}
func (s *Server) handleCancelExperiment(w http.ResponseWriter, r *http.Request) {
	st, err := s.cancelExperiment(ExperimentRef{ID: chi.URLParam(r, "id")})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// respondError writes err as a JSON error body with the matching status.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	fields := map[string]interface{}{
		"status": status,
		"path":   r.URL.Path,
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", fields)
	} else {
		s.logger.Debug("Request rejected", fields)
	}

	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
