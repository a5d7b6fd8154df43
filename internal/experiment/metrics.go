package experiment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// trialsTotal counts finished trials by selection regime and outcome
	trialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cnvsim_trials_total",
		Help: "Simulated trajectories by selection regime and outcome",
	}, []string{"regime", "outcome"})

	// trajectoryGenerations tracks how long trajectories run before absorption or timeout
	trajectoryGenerations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cnvsim_trajectory_generations",
		Help:    "Generations simulated per trajectory",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1 to 8192
	}, []string{"regime"})

	// scenarioDuration tracks wall time per scenario
	scenarioDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cnvsim_scenario_duration_seconds",
		Help:    "Wall time to run all trials of a scenario",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"regime"})

	// runErrors counts experiment runs that did not complete
	runErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cnvsim_experiment_errors_total",
		Help: "Experiment runs that failed or were cancelled",
	}, []string{"reason"})
)

// regime buckets a scenario by the sign of its selection coefficient.
// Scenario names come from clients and are never used as label values.
func regime(selection float64) string {
	switch {
	case selection > 0:
		return "positive"
	case selection < 0:
		return "negative"
	default:
		return "neutral"
	}
}
