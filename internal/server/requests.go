package server

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/copyleftdev/cnvsim/internal/errors"
	"github.com/copyleftdev/cnvsim/internal/experiment"
	"github.com/copyleftdev/cnvsim/internal/simulation"
)

// SimulateRequest is the body of POST /api/v1/simulate and the params of
// simulation.run. An omitted initial_frequency means a single new copy.
type SimulateRequest struct {
	PopulationSize       int      `json:"population_size" validate:"gt=0"`
	SelectionCoefficient float64  `json:"selection_coefficient" validate:"gte=-1"`
	GenerationLimit      int      `json:"generation_limit" validate:"gte=0"`
	InitialFrequency     *float64 `json:"initial_frequency,omitempty" validate:"omitempty,gte=0,lte=1"`
	Seed                 uint64   `json:"seed,omitempty"`
}

// StepRequest is the body of POST /api/v1/step: one generation from Frequency.
type StepRequest struct {
	Frequency            float64 `json:"frequency" validate:"gte=0,lte=1"`
	PopulationSize       int     `json:"population_size" validate:"gt=0"`
	SelectionCoefficient float64 `json:"selection_coefficient" validate:"gte=-1"`
	Seed                 uint64  `json:"seed,omitempty"`
}

// ScenarioRequest describes one experiment scenario.
type ScenarioRequest struct {
	Name                 string   `json:"name" validate:"required"`
	PopulationSize       int      `json:"population_size" validate:"gt=0"`
	SelectionCoefficient float64  `json:"selection_coefficient" validate:"gte=-1"`
	GenerationLimit      int      `json:"generation_limit" validate:"gte=0"`
	InitialFrequency     *float64 `json:"initial_frequency,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// ExperimentRequest is the body of POST /api/v1/experiments and the params
// of experiment.start. Without scenarios the neutral-vs-selection pair is
// built from population_size, generation_limit and selection, each falling
// back to the service defaults.
type ExperimentRequest struct {
	Trials     int               `json:"trials,omitempty" validate:"gte=0"`
	Seed       uint64            `json:"seed,omitempty"`
	Workers    int               `json:"workers,omitempty" validate:"gte=0"`
	Confidence float64           `json:"confidence,omitempty" validate:"omitempty,gt=0,lt=1"`
	Scenarios  []ScenarioRequest `json:"scenarios,omitempty" validate:"omitempty,dive"`

	PopulationSize  int      `json:"population_size,omitempty" validate:"gte=0"`
	GenerationLimit int      `json:"generation_limit,omitempty" validate:"gte=0"`
	Selection       *float64 `json:"selection,omitempty" validate:"omitempty,gte=-1"`
}

// ExperimentRef names an experiment job.
type ExperimentRef struct {
	ID string `json:"experiment_id" validate:"required,uuid"`
}

// SimulateResponse is returned for a single trajectory.
type SimulateResponse struct {
	Parameters  simulation.Parameters `json:"parameters"`
	Seed        uint64                `json:"seed"`
	Trajectory  simulation.Trajectory `json:"trajectory"`
	Generations int                   `json:"generations"`
	Final       float64               `json:"final_frequency"`
	Outcome     string                `json:"outcome"`
	// Expected is Kimura's fixation probability for Parameters.
	Expected float64 `json:"expected_fixation_probability"`
}

// StepResponse is returned for a single generation.
type StepResponse struct {
	Seed                    uint64  `json:"seed"`
	TransmissionProbability float64 `json:"transmission_probability"`
	Frequency               float64 `json:"frequency"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate runs struct validation and reports failures as invalid requests.
func (s *Server) validateRequest(req interface{}) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(errInvalidRequest, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", field, fe.Tag()))
		}
	}
	return errors.Wrap(errInvalidRequest, strings.Join(msgs, "; "))
}

// decode reads a JSON body into dst, rejecting unknown fields.
func decode(r io.Reader, dst interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrapf(errInvalidRequest, "decoding body: %v", err)
	}
	return nil
}

func (s *Server) checkLimit(field string, value, limit int) error {
	if limit > 0 && value > limit {
		return errors.Wrapf(errInvalidRequest, "%s %d exceeds the limit of %d", field, value, limit)
	}
	return nil
}

func (s *Server) checkParameterLimits(p simulation.Parameters) error {
	lim := s.cfg.Simulation
	if err := s.checkLimit("population_size", p.PopulationSize, lim.MaxPopulationSize); err != nil {
		return err
	}
	return s.checkLimit("generation_limit", p.GenerationLimit, lim.MaxGenerations)
}

func initialFrequency(f *float64, n int) float64 {
	if f != nil {
		return *f
	}
	return simulation.SingleCopyFrequency(n)
}

func (req SimulateRequest) parameters() simulation.Parameters {
	return simulation.Parameters{
		PopulationSize:       req.PopulationSize,
		SelectionCoefficient: req.SelectionCoefficient,
		GenerationLimit:      req.GenerationLimit,
		InitialFrequency:     initialFrequency(req.InitialFrequency, req.PopulationSize),
	}
}

// plan converts req to an experiment plan, filling gaps from the service
// configuration and applying the configured limits.
func (s *Server) plan(req ExperimentRequest) (experiment.Plan, error) {
	def := s.cfg.Simulation
	plan := experiment.Plan{
		Trials:     req.Trials,
		Seed:       req.Seed,
		Workers:    req.Workers,
		Confidence: req.Confidence,
	}
	if plan.Trials == 0 {
		plan.Trials = def.Trials
	}
	if plan.Workers == 0 {
		plan.Workers = def.Workers
	}
	if plan.Seed == 0 {
		plan.Seed = uint64(time.Now().UnixNano())
	}
	if err := s.checkLimit("trials", plan.Trials, def.MaxTrials); err != nil {
		return plan, err
	}

	if len(req.Scenarios) == 0 {
		n, gens, sel := req.PopulationSize, req.GenerationLimit, def.Selection
		if n == 0 {
			n = def.PopulationSize
		}
		if gens == 0 {
			gens = def.GenerationLimit
		}
		if req.Selection != nil {
			sel = *req.Selection
		}
		plan.Scenarios = experiment.NeutralVsSelection(n, gens, sel)
	} else {
		plan.Scenarios = make([]experiment.Scenario, 0, len(req.Scenarios))
		for _, sc := range req.Scenarios {
			plan.Scenarios = append(plan.Scenarios, experiment.Scenario{
				Name: sc.Name,
				Parameters: simulation.Parameters{
					PopulationSize:       sc.PopulationSize,
					SelectionCoefficient: sc.SelectionCoefficient,
					GenerationLimit:      sc.GenerationLimit,
					InitialFrequency:     initialFrequency(sc.InitialFrequency, sc.PopulationSize),
				},
			})
		}
	}

	for _, sc := range plan.Scenarios {
		if err := s.checkParameterLimits(sc.Parameters); err != nil {
			return plan, err
		}
	}
	return plan.Resolve()
}
