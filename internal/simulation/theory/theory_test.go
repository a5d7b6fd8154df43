package theory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/cnvsim/internal/simulation"
)

func TestFixationProbability(t *testing.T) {
	tests := []struct {
		name     string
		params   simulation.Parameters
		expected float64
		tol      float64
	}{
		{
			name:     "neutral equals initial frequency",
			params:   simulation.Parameters{PopulationSize: 100, InitialFrequency: 0.005},
			expected: 0.005,
		},
		{
			name:     "positive selection single copy",
			params:   simulation.Parameters{PopulationSize: 100, SelectionCoefficient: 0.05, InitialFrequency: 0.005},
			expected: (1 - math.Exp(-0.1)) / (1 - math.Exp(-20)),
			tol:      1e-12,
		},
		{
			name:     "weak negative selection",
			params:   simulation.Parameters{PopulationSize: 100, SelectionCoefficient: -0.001, InitialFrequency: 0.005},
			expected: (1 - math.Exp(0.002)) / (1 - math.Exp(0.4)),
			tol:      1e-12,
		},
		{
			name:     "strong negative selection stays finite",
			params:   simulation.Parameters{PopulationSize: 10000, SelectionCoefficient: -0.5, InitialFrequency: 0.5},
			expected: 0,
			tol:      1e-300,
		},
		{
			name:     "fixed stays fixed",
			params:   simulation.Parameters{PopulationSize: 10, SelectionCoefficient: -0.3, InitialFrequency: 1},
			expected: 1,
		},
		{
			name:     "lost stays lost",
			params:   simulation.Parameters{PopulationSize: 10, SelectionCoefficient: 0.3, InitialFrequency: 0},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FixationProbability(tt.params)
			require.NoError(t, err)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.expected, got, tt.tol)
		})
	}
}

func TestFixationProbabilityIncreasesWithSelection(t *testing.T) {
	prev := -1.0
	for _, s := range []float64{-0.01, 0, 0.001, 0.01, 0.05, 0.2} {
		u, err := FixationProbability(simulation.Parameters{
			PopulationSize:       100,
			SelectionCoefficient: s,
			InitialFrequency:     simulation.SingleCopyFrequency(100),
		})
		require.NoError(t, err)
		assert.Greater(t, u, prev, "s=%v", s)
		prev = u
	}
}

func TestFixationProbabilityInvalid(t *testing.T) {
	_, err := FixationProbability(simulation.Parameters{PopulationSize: 0, InitialFrequency: 0.5})
	require.Error(t, err)
	assert.True(t, simulation.IsInvalidParameter(err))
}

func TestWilsonInterval(t *testing.T) {
	tests := []struct {
		name       string
		successes  int
		trials     int
		confidence float64
		low, high  float64
		wantErr    bool
	}{
		{name: "half", successes: 50, trials: 100, confidence: 0.95, low: 0.4038, high: 0.5962},
		{name: "none", successes: 0, trials: 10, confidence: 0.95, low: 0, high: 0.2775},
		{name: "all", successes: 10, trials: 10, confidence: 0.95, low: 0.7225, high: 1},
		{name: "zero trials", successes: 0, trials: 0, confidence: 0.95, wantErr: true},
		{name: "too many successes", successes: 11, trials: 10, confidence: 0.95, wantErr: true},
		{name: "bad confidence", successes: 1, trials: 10, confidence: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high, err := WilsonInterval(tt.successes, tt.trials, tt.confidence)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.low, low, 1e-4)
			assert.InDelta(t, tt.high, high, 1e-4)
			assert.LessOrEqual(t, low, float64(tt.successes)/float64(tt.trials))
			assert.GreaterOrEqual(t, high, float64(tt.successes)/float64(tt.trials))
		})
	}
}
