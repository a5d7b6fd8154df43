package experiment

import (
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/cnvsim/internal/errors"
	"github.com/copyleftdev/cnvsim/internal/simulation"
)

const (
	// DefaultTrials is the number of trajectories per scenario.
	DefaultTrials = 500
	// DefaultPopulationSize is N for the default scenarios.
	DefaultPopulationSize = 100
	// DefaultGenerationLimit bounds every default trajectory.
	DefaultGenerationLimit = 1000
	// DefaultSelection is the adaptive scenario's selection coefficient.
	DefaultSelection = 0.05
	// DefaultConfidence is the level of the reported Wilson interval.
	DefaultConfidence = 0.95
)

// Scenario is one named parameter set run for every trial of a plan.
type Scenario struct {
	Name                  string `json:"name" yaml:"name"`
	simulation.Parameters `yaml:",inline"`
}

// Plan describes a batch of independent trials across scenarios.
type Plan struct {
	// Trials per scenario
	Trials int `json:"trials" yaml:"trials"`
	// Seed for the random streams; 0 draws one from the clock
	Seed uint64 `json:"seed" yaml:"seed"`
	// Workers running trials in parallel; 0 uses GOMAXPROCS
	Workers int `json:"workers" yaml:"workers"`
	// Confidence level of the fixation probability interval
	Confidence float64 `json:"confidence" yaml:"confidence"`
	// Scenarios to compare
	Scenarios []Scenario `json:"scenarios" yaml:"scenarios"`
}

// NeutralVsSelection returns the two-scenario comparison of a single new
// copy under drift only and under positive selection s.
func NeutralVsSelection(n, generations int, s float64) []Scenario {
	p0 := simulation.SingleCopyFrequency(n)
	return []Scenario{
		{
			Name: "Neutral",
			Parameters: simulation.Parameters{
				PopulationSize:   n,
				GenerationLimit:  generations,
				InitialFrequency: p0,
			},
		},
		{
			Name: "Positive Selection",
			Parameters: simulation.Parameters{
				PopulationSize:       n,
				SelectionCoefficient: s,
				GenerationLimit:      generations,
				InitialFrequency:     p0,
			},
		},
	}
}

// DefaultPlan compares drift and s=0.05 for N=100 over 1000 generations,
// 500 trials each.
func DefaultPlan() Plan {
	return Plan{
		Trials:     DefaultTrials,
		Confidence: DefaultConfidence,
		Scenarios:  NeutralVsSelection(DefaultPopulationSize, DefaultGenerationLimit, DefaultSelection),
	}
}

// ErrInvalidPlan is matched by errors.Is for plan-level validation failures.
// Invalid scenario parameters wrap simulation.ErrInvalidParameter instead.
var ErrInvalidPlan = errors.New("invalid plan")

func invalidPlan(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidPlan, format, args...).
		WithOperation("Plan.Validate").WithComponent("experiment")
}

// normalize fills defaults and validates the plan and every scenario.
func (p Plan) normalize() (Plan, error) {
	if p.Trials <= 0 {
		return p, invalidPlan("trials must be positive, got %d", p.Trials)
	}
	if len(p.Scenarios) == 0 {
		return p, invalidPlan("plan must contain at least one scenario")
	}
	if p.Workers < 0 {
		return p, invalidPlan("workers must not be negative, got %d", p.Workers)
	}
	if p.Workers == 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	if p.Workers > p.Trials {
		p.Workers = p.Trials
	}
	if p.Confidence == 0 {
		p.Confidence = DefaultConfidence
	}
	if !(p.Confidence > 0 && p.Confidence < 1) {
		return p, invalidPlan("confidence must lie in (0,1), got %v", p.Confidence)
	}

	seen := make(map[string]struct{}, len(p.Scenarios))
	for _, sc := range p.Scenarios {
		if sc.Name == "" {
			return p, invalidPlan("scenario name must not be empty")
		}
		if _, dup := seen[sc.Name]; dup {
			return p, invalidPlan("duplicate scenario %q", sc.Name)
		}
		seen[sc.Name] = struct{}{}

		if err := sc.Validate(); err != nil {
			return p, errors.Wrapf(err, "scenario %q", sc.Name).
				WithOperation("Plan.Validate").WithComponent("experiment")
		}
	}
	return p, nil
}

// Validate reports whether the plan can be run.
func (p Plan) Validate() error {
	_, err := p.normalize()
	return err
}

// Resolve validates the plan and returns it with defaults filled in: the
// worker count is fixed to GOMAXPROCS when zero and capped at Trials, and
// a zero confidence becomes DefaultConfidence. Running a resolved plan on
// any host with the same seed reproduces the same result.
func (p Plan) Resolve() (Plan, error) {
	return p.normalize()
}

// planFile mirrors Plan for YAML input; an omitted initial_frequency means
// a single new copy, 1/(2N).
type planFile struct {
	Trials     int            `yaml:"trials"`
	Seed       uint64         `yaml:"seed"`
	Workers    int            `yaml:"workers"`
	Confidence float64        `yaml:"confidence"`
	Scenarios  []scenarioFile `yaml:"scenarios"`
}

type scenarioFile struct {
	Name                 string   `yaml:"name"`
	PopulationSize       int      `yaml:"population_size"`
	SelectionCoefficient float64  `yaml:"selection_coefficient"`
	GenerationLimit      int      `yaml:"generation_limit"`
	InitialFrequency     *float64 `yaml:"initial_frequency"`
}

// ReadPlan decodes a YAML plan. Fields left out take DefaultPlan values,
// except scenarios, which must be listed when present.
func ReadPlan(r io.Reader) (Plan, error) {
	var raw planFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return Plan{}, errors.Wrap(err, "decoding plan").WithComponent("experiment")
	}

	plan := DefaultPlan()
	if raw.Trials != 0 {
		plan.Trials = raw.Trials
	}
	if raw.Confidence != 0 {
		plan.Confidence = raw.Confidence
	}
	plan.Seed = raw.Seed
	plan.Workers = raw.Workers

	if len(raw.Scenarios) > 0 {
		plan.Scenarios = make([]Scenario, 0, len(raw.Scenarios))
		for _, sf := range raw.Scenarios {
			params := simulation.Parameters{
				PopulationSize:       sf.PopulationSize,
				SelectionCoefficient: sf.SelectionCoefficient,
				GenerationLimit:      sf.GenerationLimit,
			}
			if sf.InitialFrequency != nil {
				params.InitialFrequency = *sf.InitialFrequency
			} else if sf.PopulationSize > 0 {
				params.InitialFrequency = simulation.SingleCopyFrequency(sf.PopulationSize)
			}
			plan.Scenarios = append(plan.Scenarios, Scenario{Name: sf.Name, Parameters: params})
		}
	}

	return plan, plan.Validate()
}

// LoadPlanFile reads a YAML plan from path.
func LoadPlanFile(path string) (Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return Plan{}, errors.Wrap(err, "opening plan").WithComponent("experiment")
	}
	defer f.Close()

	return ReadPlan(f)
}
