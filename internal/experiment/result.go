package experiment

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/copyleftdev/cnvsim/internal/simulation"
	"github.com/copyleftdev/cnvsim/internal/simulation/theory"
)

// ScenarioResult aggregates the outcomes of every trial of one scenario.
type ScenarioResult struct {
	Name       string                `json:"name"`
	Parameters simulation.Parameters `json:"parameters"`
	Trials     int                   `json:"trials"`

	Fixed       int `json:"fixed"`
	Lost        int `json:"lost"`
	Segregating int `json:"segregating"`

	// FixationProbability is Fixed/Trials.
	FixationProbability float64 `json:"fixation_probability"`
	// CILow and CIHigh bound FixationProbability (Wilson score interval).
	CILow  float64 `json:"ci_low"`
	CIHigh float64 `json:"ci_high"`
	// Expected is Kimura's closed-form fixation probability.
	Expected float64 `json:"expected"`

	// Generations to absorption, over the trials that were absorbed that way.
	// Zero when no trial fixed (or was lost).
	MeanFixationTime   float64 `json:"mean_fixation_time"`
	MedianFixationTime float64 `json:"median_fixation_time"`
	MeanLossTime       float64 `json:"mean_loss_time"`

	Duration time.Duration `json:"duration"`
}

// Result is the outcome of running a Plan.
type Result struct {
	Seed       uint64           `json:"seed"`
	Trials     int              `json:"trials"`
	Workers    int              `json:"workers"`
	Confidence float64          `json:"confidence"`
	Scenarios  []ScenarioResult `json:"scenarios"`
	Duration   time.Duration    `json:"duration"`
}

// Scenario returns the result for the named scenario.
func (r *Result) Scenario(name string) (*ScenarioResult, bool) {
	for i := range r.Scenarios {
		if r.Scenarios[i].Name == name {
			return &r.Scenarios[i], true
		}
	}
	return nil, false
}

// Labels returns the scenario names in plan order.
func (r *Result) Labels() []string {
	labels := make([]string, len(r.Scenarios))
	for i, sc := range r.Scenarios {
		labels[i] = sc.Name
	}
	return labels
}

// Probabilities returns the empirical fixation probabilities in plan order.
func (r *Result) Probabilities() []float64 {
	values := make([]float64, len(r.Scenarios))
	for i, sc := range r.Scenarios {
		values[i] = sc.FixationProbability
	}
	return values
}

// trial is what the runner keeps of one trajectory.
type trial struct {
	outcome     simulation.Outcome
	generations int
}

func summarize(sc Scenario, trials []trial, confidence float64) (*ScenarioResult, error) {
	res := &ScenarioResult{
		Name:       sc.Name,
		Parameters: sc.Parameters,
		Trials:     len(trials),
	}

	var fixTimes, lossTimes []float64
	for _, tr := range trials {
		switch tr.outcome {
		case simulation.Fixed:
			res.Fixed++
			fixTimes = append(fixTimes, float64(tr.generations))
		case simulation.Lost:
			res.Lost++
			lossTimes = append(lossTimes, float64(tr.generations))
		default:
			res.Segregating++
		}
	}

	res.FixationProbability = float64(res.Fixed) / float64(res.Trials)

	var err error
	res.CILow, res.CIHigh, err = theory.WilsonInterval(res.Fixed, res.Trials, confidence)
	if err != nil {
		return nil, err
	}
	res.Expected, err = theory.FixationProbability(sc.Parameters)
	if err != nil {
		return nil, err
	}

	if len(fixTimes) > 0 {
		res.MeanFixationTime, _ = stats.Mean(fixTimes)
		res.MedianFixationTime, _ = stats.Median(fixTimes)
	}
	if len(lossTimes) > 0 {
		res.MeanLossTime, _ = stats.Mean(lossTimes)
	}

	return res, nil
}
