package experiment

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlan(t *testing.T) {
	plan := DefaultPlan()
	assert.Equal(t, 500, plan.Trials)
	require.Len(t, plan.Scenarios, 2)

	neutral, selected := plan.Scenarios[0], plan.Scenarios[1]
	assert.Equal(t, "Neutral", neutral.Name)
	assert.Equal(t, 100, neutral.PopulationSize)
	assert.Equal(t, 1000, neutral.GenerationLimit)
	assert.Equal(t, 0.0, neutral.SelectionCoefficient)
	assert.Equal(t, 0.005, neutral.InitialFrequency)

	assert.Equal(t, "Positive Selection", selected.Name)
	assert.Equal(t, 0.05, selected.SelectionCoefficient)
	assert.Equal(t, neutral.InitialFrequency, selected.InitialFrequency)

	assert.NoError(t, plan.Validate())
}

func TestResolve(t *testing.T) {
	plan := Plan{Trials: 1000, Scenarios: NeutralVsSelection(10, 10, 0.1)}

	resolved, err := plan.Resolve()
	require.NoError(t, err)
	assert.Equal(t, runtime.GOMAXPROCS(0), resolved.Workers)
	assert.Equal(t, DefaultConfidence, resolved.Confidence)
	assert.Zero(t, plan.Workers, "receiver is not modified")

	plan.Trials, plan.Workers = 2, 8
	resolved, err = plan.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 2, resolved.Workers)

	plan.Workers = -1
	_, err = plan.Resolve()
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestReadPlan(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, plan Plan)
	}{
		{
			name:  "empty document keeps defaults",
			input: "",
			check: func(t *testing.T, plan Plan) {
				assert.Equal(t, DefaultPlan(), plan)
			},
		},
		{
			name: "custom scenarios",
			input: `
trials: 200
seed: 9
workers: 2
scenarios:
  - name: Drift
    population_size: 50
    generation_limit: 400
  - name: Strong
    population_size: 50
    selection_coefficient: 0.2
    generation_limit: 400
    initial_frequency: 0.1
`,
			check: func(t *testing.T, plan Plan) {
				assert.Equal(t, 200, plan.Trials)
				assert.Equal(t, uint64(9), plan.Seed)
				assert.Equal(t, 2, plan.Workers)
				assert.Equal(t, DefaultConfidence, plan.Confidence)
				require.Len(t, plan.Scenarios, 2)
				assert.Equal(t, 0.01, plan.Scenarios[0].InitialFrequency, "defaults to a single copy")
				assert.Equal(t, 0.1, plan.Scenarios[1].InitialFrequency)
				assert.Equal(t, 0.2, plan.Scenarios[1].SelectionCoefficient)
			},
		},
		{
			name:    "unknown field",
			input:   "trails: 10\n",
			wantErr: true,
		},
		{
			name: "invalid scenario",
			input: `
scenarios:
  - name: Broken
    population_size: 0
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ReadPlan(strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, plan)
		})
	}
}

func TestLoadPlanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trials: 25\n"), 0o644))

	plan, err := LoadPlanFile(path)
	require.NoError(t, err)
	assert.Equal(t, 25, plan.Trials)

	_, err = LoadPlanFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
