package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 500, cfg.Simulation.Trials)
	assert.Equal(t, 100, cfg.Simulation.PopulationSize)
	assert.Equal(t, 1000, cfg.Simulation.GenerationLimit)
	assert.Equal(t, 0.05, cfg.Simulation.Selection)
	assert.Equal(t, "results_chart.png", cfg.Simulation.ChartPath)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SIM_TRIALS", "50")
	t.Setenv("SIM_SEED", "12345")
	t.Setenv("SIM_SELECTION", "0.1")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Simulation.Trials)
	assert.Equal(t, uint64(12345), cfg.Simulation.Seed)

	plan, err := cfg.ExperimentPlan()
	require.NoError(t, err)
	assert.Equal(t, 50, plan.Trials)
	assert.Equal(t, uint64(12345), plan.Seed)
	require.Len(t, plan.Scenarios, 2)
	assert.Equal(t, 0.1, plan.Scenarios[1].SelectionCoefficient)
}

func TestParseLogLevelIndependentOfEnvironment(t *testing.T) {
	for _, environment := range []string{"development", "production"} {
		t.Run(environment, func(t *testing.T) {
			t.Setenv("ENV", environment)
			cfg, err := Parse()
			require.NoError(t, err)
			assert.Equal(t, "info", cfg.Logging.Level)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Setenv("SIM_TRIALS", "many")
	_, err := Parse()
	assert.Error(t, err)
}

func TestExperimentPlanFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
trials: 10
scenarios:
  - name: Only
    population_size: 20
    generation_limit: 50
`), 0o644))
	t.Setenv("SIM_PLAN", path)

	cfg, err := Parse()
	require.NoError(t, err)
	plan, err := cfg.ExperimentPlan()
	require.NoError(t, err)
	assert.Equal(t, 10, plan.Trials)
	require.Len(t, plan.Scenarios, 1)
	assert.Equal(t, "Only", plan.Scenarios[0].Name)
}

func TestExperimentPlanInvalid(t *testing.T) {
	t.Setenv("SIM_POPULATION_SIZE", "0")
	cfg, err := Parse()
	require.NoError(t, err)
	_, err = cfg.ExperimentPlan()
	assert.Error(t, err)
}

func TestLoadWithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SIM_TRIALS=77\n"), 0o644))
	t.Chdir(dir)
	t.Setenv("SIM_TRIALS", "")
	os.Unsetenv("SIM_TRIALS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.Simulation.Trials)
}
