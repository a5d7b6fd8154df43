package server

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/copyleftdev/cnvsim/internal/experiment"
	"github.com/copyleftdev/cnvsim/internal/logging"
)

// Status is the lifecycle state of an experiment job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions happen from st.
func (st Status) Terminal() bool {
	return st == StatusCompleted || st == StatusFailed || st == StatusCancelled
}

// ExperimentState tracks one experiment job. Fields are guarded by the
// server's experimentsMu.
type ExperimentState struct {
	ID          string
	Status      Status
	Plan        experiment.Plan
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	TrialsDone  int
	TrialsTotal int
	Result      *experiment.Result
	Err         string

	cancel context.CancelFunc
}

// ExperimentStatus is the client view of an ExperimentState.
type ExperimentStatus struct {
	ID          string             `json:"experiment_id"`
	Status      Status             `json:"status"`
	Progress    float64            `json:"progress"`
	TrialsDone  int                `json:"trials_done"`
	TrialsTotal int                `json:"trials_total"`
	Seed        uint64             `json:"seed"`
	Workers     int                `json:"workers"`
	StartTime   time.Time          `json:"start_time"`
	EndTime     *time.Time         `json:"end_time,omitempty"`
	LastUpdated time.Time          `json:"last_update"`
	Error       string             `json:"error,omitempty"`
	Result      *experiment.Result `json:"result,omitempty"`
}

func (e *ExperimentState) snapshot() ExperimentStatus {
	st := ExperimentStatus{
		ID:          e.ID,
		Status:      e.Status,
		TrialsDone:  e.TrialsDone,
		TrialsTotal: e.TrialsTotal,
		Seed:        e.Plan.Seed,
		Workers:     e.Plan.Workers,
		StartTime:   e.StartTime,
		LastUpdated: e.LastUpdated,
		Error:       e.Err,
		Result:      e.Result,
	}
	if e.EndTime != nil {
		end := *e.EndTime
		st.EndTime = &end
	}
	if e.TrialsTotal > 0 {
		st.Progress = float64(e.TrialsDone) / float64(e.TrialsTotal)
	}
	return st
}

// startExperiment validates req and launches the experiment in the
// background.
func (s *Server) startExperiment(req ExperimentRequest) (ExperimentStatus, error) {
	if err := s.validateRequest(req); err != nil {
		return ExperimentStatus{}, err
	}
	plan, err := s.plan(req)
	if err != nil {
		return ExperimentStatus{}, err
	}

	s.experimentsMu.Lock()
	defer s.experimentsMu.Unlock()

	if limit := s.cfg.Simulation.MaxConcurrentJobs; limit > 0 && s.activeLocked() >= limit {
		return ExperimentStatus{}, errTooManyJobs
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	state := &ExperimentState{
		ID:          uuid.NewString(),
		Status:      StatusPending,
		Plan:        plan,
		StartTime:   now,
		LastUpdated: now,
		TrialsTotal: plan.Trials * len(plan.Scenarios),
		cancel:      cancel,
	}
	s.experiments[state.ID] = state

	s.wg.Add(1)
	go s.runExperiment(ctx, state)

	s.logger.Info("Experiment started", map[string]interface{}{
		"experiment_id": state.ID,
		"trials":        plan.Trials,
		"scenarios":     len(plan.Scenarios),
		"seed":          plan.Seed,
		"workers":       plan.Workers,
	})

	return state.snapshot(), nil
}

func (s *Server) activeLocked() int {
	n := 0
	for _, exp := range s.experiments {
		if !exp.Status.Terminal() {
			n++
		}
	}
	return n
}

// experimentStatus returns the current view of experiment id.
func (s *Server) experimentStatus(ref ExperimentRef) (ExperimentStatus, error) {
	if err := s.validateRequest(ref); err != nil {
		return ExperimentStatus{}, err
	}

	s.experimentsMu.RLock()
	defer s.experimentsMu.RUnlock()

	state, ok := s.experiments[ref.ID]
	if !ok {
		return ExperimentStatus{}, errNotFound
	}
	return state.snapshot(), nil
}

// listExperiments returns every known experiment, newest first.
func (s *Server) listExperiments() []ExperimentStatus {
	s.experimentsMu.RLock()
	defer s.experimentsMu.RUnlock()

	out := make([]ExperimentStatus, 0, len(s.experiments))
	for _, state := range s.experiments {
		st := state.snapshot()
		st.Result = nil
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out
}

// completedResult returns the result of a finished experiment.
func (s *Server) completedResult(ref ExperimentRef) (*experiment.Result, error) {
	st, err := s.experimentStatus(ref)
	if err != nil {
		return nil, err
	}
	if st.Status != StatusCompleted {
		return nil, errNotCompleted
	}
	return st.Result, nil
}

// cancelExperiment stops a pending or running experiment.
func (s *Server) cancelExperiment(ref ExperimentRef) (ExperimentStatus, error) {
	if err := s.validateRequest(ref); err != nil {
		return ExperimentStatus{}, err
	}

	s.experimentsMu.Lock()
	defer s.experimentsMu.Unlock()

	state, ok := s.experiments[ref.ID]
	if !ok {
		return ExperimentStatus{}, errNotFound
	}
	if state.Status.Terminal() {
		return state.snapshot(), errNotRunning
	}

	state.cancel()
	now := time.Now()
	state.Status = StatusCancelled
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Experiment cancelled", map[string]interface{}{
		"experiment_id": state.ID,
	})

	return state.snapshot(), nil
}

// runExperiment executes the plan of state and records the outcome.
func (s *Server) runExperiment(ctx context.Context, state *ExperimentState) {
	defer s.wg.Done()
	defer state.cancel()

	s.experimentsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	id, plan := state.ID, state.Plan
	s.experimentsMu.Unlock()

	index := make(map[string]int, len(plan.Scenarios))
	for i, sc := range plan.Scenarios {
		index[sc.Name] = i
	}
	step := plan.Trials / 100
	if step < 1 {
		step = 1
	}

	jobLogger := s.logger.WithFields(map[string]interface{}{"experiment_id": id})
	runner := experiment.NewRunner(
		experiment.WithLogger(logging.NewZapLogger(jobLogger)),
		experiment.WithProgress(func(scenario string, done, total int) {
			if done%step != 0 && done != total {
				return
			}
			s.experimentsMu.Lock()
			if n := index[scenario]*total + done; n > state.TrialsDone {
				state.TrialsDone = n
			}
			state.LastUpdated = time.Now()
			s.experimentsMu.Unlock()
		}),
	)

	result, err := runner.Run(ctx, plan)

	s.experimentsMu.Lock()
	defer s.experimentsMu.Unlock()

	now := time.Now()
	state.LastUpdated = now
	switch {
	case state.Status == StatusCancelled:
		// cancelExperiment already recorded the end time
	case err != nil:
		state.Status = StatusFailed
		state.Err = err.Error()
		state.EndTime = &now
		jobLogger.Error("Experiment failed", map[string]interface{}{"error": err.Error()})
	default:
		state.Status = StatusCompleted
		state.Result = result
		state.TrialsDone = state.TrialsTotal
		state.EndTime = &now
		jobLogger.Info("Experiment completed", map[string]interface{}{
			"elapsed": result.Duration.String(),
		})
	}
}
