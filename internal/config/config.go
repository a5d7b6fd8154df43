// Package config loads settings from environment variables.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/copyleftdev/cnvsim/internal/experiment"
)

// Config holds service and experiment settings read from the environment.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Simulation struct {
		Trials          int     `env:"SIM_TRIALS" envDefault:"500"`
		PopulationSize  int     `env:"SIM_POPULATION_SIZE" envDefault:"100"`
		GenerationLimit int     `env:"SIM_GENERATIONS" envDefault:"1000"`
		Selection       float64 `env:"SIM_SELECTION" envDefault:"0.05"`
		Seed            uint64  `env:"SIM_SEED" envDefault:"0"`
		Workers         int     `env:"SIM_WORKERS" envDefault:"0"`
		ChartPath       string  `env:"SIM_CHART_PATH" envDefault:"results_chart.png"`
		PlanPath        string  `env:"SIM_PLAN"`

		// Upper bounds on requests accepted by the HTTP API
		MaxTrials         int `env:"SIM_MAX_TRIALS" envDefault:"100000"`
		MaxGenerations    int `env:"SIM_MAX_GENERATIONS" envDefault:"1000000"`
		MaxPopulationSize int `env:"SIM_MAX_POPULATION_SIZE" envDefault:"10000000"`
		MaxConcurrentJobs int `env:"SIM_MAX_CONCURRENT_JOBS" envDefault:"4"`
	}
}

// Load reads a .env file from the working directory when one exists and
// then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return Parse()
}

// Parse builds the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExperimentPlan returns the plan described by SIM_PLAN when set, or the
// neutral-vs-selection comparison built from the SIM_* values.
func (c *Config) ExperimentPlan() (experiment.Plan, error) {
	sim := c.Simulation
	if sim.PlanPath != "" {
		return experiment.LoadPlanFile(sim.PlanPath)
	}

	plan := experiment.Plan{
		Trials:     sim.Trials,
		Seed:       sim.Seed,
		Workers:    sim.Workers,
		Confidence: experiment.DefaultConfidence,
		Scenarios:  experiment.NeutralVsSelection(sim.PopulationSize, sim.GenerationLimit, sim.Selection),
	}
	return plan, plan.Validate()
}
