package simulation

import (
	"math"
	"math/rand/v2"
)

// Simulator defines the interface for single-locus trajectory simulators
type Simulator interface {
	// Simulate runs one trajectory using the caller-owned random source
	Simulate(params Parameters, src rand.Source) (Trajectory, error)
}

// Parameters contains the inputs of a single trajectory simulation
type Parameters struct {
	// Number of diploid individuals (N). The allele pool holds 2N copies.
	PopulationSize int `json:"population_size" yaml:"population_size"`

	// Relative fitness advantage of the variant allele (s). 0 is neutral.
	SelectionCoefficient float64 `json:"selection_coefficient" yaml:"selection_coefficient"`

	// Maximum number of generations to simulate
	GenerationLimit int `json:"generation_limit" yaml:"generation_limit"`

	// Starting allele frequency, usually 1/(2N)
	InitialFrequency float64 `json:"initial_frequency" yaml:"initial_frequency"`
}

// AlleleCopies returns the size of the allele pool, 2N.
func (p Parameters) AlleleCopies() int {
	return 2 * p.PopulationSize
}

// Validate reports the first parameter that makes the model undefined.
func (p Parameters) Validate() error {
	const op = "Parameters.Validate"

	if p.PopulationSize <= 0 {
		return invalidParameter(op, "population_size",
			"must be a positive integer, got %d", p.PopulationSize)
	}
	if math.IsNaN(p.SelectionCoefficient) || math.IsInf(p.SelectionCoefficient, 0) {
		return invalidParameter(op, "selection_coefficient",
			"must be finite, got %v", p.SelectionCoefficient)
	}
	if 1+p.SelectionCoefficient < 0 {
		return invalidParameter(op, "selection_coefficient",
			"relative fitness 1+s must be non-negative, got %v", 1+p.SelectionCoefficient)
	}
	if p.GenerationLimit < 0 {
		return invalidParameter(op, "generation_limit",
			"must be non-negative, got %d", p.GenerationLimit)
	}
	if math.IsNaN(p.InitialFrequency) || p.InitialFrequency < 0 || p.InitialFrequency > 1 {
		return invalidParameter(op, "initial_frequency",
			"must lie in [0,1], got %v", p.InitialFrequency)
	}
	return nil
}

// SingleCopyFrequency returns the frequency of one new allele copy in a
// diploid population of n individuals.
func SingleCopyFrequency(n int) float64 {
	return 1 / float64(2*n)
}

// Outcome classifies where a trajectory ended
type Outcome int

const (
	// Segregating means the generation limit was reached before absorption.
	Segregating Outcome = iota
	// Lost means the variant reached frequency 0.
	Lost
	// Fixed means the variant reached frequency 1.
	Fixed
)

func (o Outcome) String() string {
	switch o {
	case Lost:
		return "lost"
	case Fixed:
		return "fixed"
	default:
		return "segregating"
	}
}

// Trajectory is the allele frequency at each generation, starting with the
// initial frequency. It stops on the first 0 or 1.
type Trajectory []float64

// Final returns the last recorded frequency.
func (t Trajectory) Final() float64 {
	if len(t) == 0 {
		return math.NaN()
	}
	return t[len(t)-1]
}

// Generations returns the number of simulated generations.
func (t Trajectory) Generations() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// Outcome reports whether the trajectory was absorbed and at which boundary.
func (t Trajectory) Outcome() Outcome {
	return OutcomeOf(t.Final())
}

// OutcomeOf classifies a single frequency value.
func OutcomeOf(f float64) Outcome {
	switch f {
	case 0:
		return Lost
	case 1:
		return Fixed
	default:
		return Segregating
	}
}

// IsAbsorbing reports whether f is one of the boundary states.
func IsAbsorbing(f float64) bool {
	return f == 0 || f == 1
}
