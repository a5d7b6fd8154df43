// Package theory holds closed-form population-genetics reference values
// that simulated estimates are reported against.
package theory

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/cnvsim/internal/simulation"
)

// maxExponent keeps exp() in range; beyond it the ratio is taken in log space.
const maxExponent = 700

// FixationProbability returns Kimura's fixation probability for a variant
// starting at p0 with genic selection s in a diploid population of N:
//
//	u(p0) = (1 - exp(-4Ns*p0)) / (1 - exp(-4Ns))
//
// which reduces to p0 when s == 0.
func FixationProbability(params simulation.Parameters) (float64, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}

	p0 := params.InitialFrequency
	s := params.SelectionCoefficient
	if s == 0 || simulation.IsAbsorbing(p0) {
		return p0, nil
	}

	a := 4 * float64(params.PopulationSize) * s
	if -a > maxExponent {
		// Strong purifying selection: (e^{|a|p0}-1)/(e^{|a|}-1) ~ e^{|a|(p0-1)}
		return math.Exp(-a * (p0 - 1)), nil
	}
	return math.Expm1(-a*p0) / math.Expm1(-a), nil
}

// WilsonInterval returns the Wilson score interval for a binomial proportion
// of successes out of trials at the given two-sided confidence level.
func WilsonInterval(successes, trials int, confidence float64) (low, high float64, err error) {
	if trials <= 0 {
		return 0, 0, fmt.Errorf("trials must be positive, got %d", trials)
	}
	if successes < 0 || successes > trials {
		return 0, 0, fmt.Errorf("successes must lie in [0,%d], got %d", trials, successes)
	}
	if !(confidence > 0 && confidence < 1) {
		return 0, 0, fmt.Errorf("confidence must lie in (0,1), got %v", confidence)
	}

	n := float64(trials)
	p := float64(successes) / n
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	z2 := z * z

	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	half := z / denom * math.Sqrt(p*(1-p)/n+z2/(4*n*n))

	low, high = math.Max(0, center-half), math.Min(1, center+half)
	if successes == 0 {
		low = 0
	}
	if successes == trials {
		high = 1
	}
	return low, high, nil
}
