package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/cnvsim/internal/config"
	"github.com/copyleftdev/cnvsim/internal/experiment"
	"github.com/copyleftdev/cnvsim/internal/report"
)

func newExperimentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Compare fixation probability under neutral drift and selection",
		Long: `Run many independent trials per scenario and report the fraction in
which the CNV fixed, with a confidence interval and Kimura's expectation.

By default two scenarios are run, "Neutral" (s=0) and "Positive Selection",
from SIM_* environment values or the flags below. --plan reads the
scenarios from a YAML file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			plan, err := experimentPlan(cmd, cfg)
			if err != nil {
				return err
			}

			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			opts := []experiment.Option{experiment.WithLogger(logger)}
			if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
				opts = append(opts, experiment.WithProgress(progressPrinter(cmd)))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := experiment.NewRunner(opts...).Run(ctx, plan)
			if err != nil {
				return err
			}

			chartPath, _ := cmd.Flags().GetString("chart")
			if !cmd.Flags().Changed("chart") {
				chartPath = cfg.Simulation.ChartPath
			}
			if chartPath != "" {
				if err := report.SaveBarChart(result, chartPath); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(result)
			}
			if err := report.WriteSummary(out, result); err != nil {
				return err
			}
			if chartPath != "" {
				fmt.Fprintf(out, "Chart saved as %s\n", chartPath)
			}
			return nil
		},
	}

	cmd.Flags().Int("trials", experiment.DefaultTrials, "Trials per scenario")
	cmd.Flags().Int("n", experiment.DefaultPopulationSize, "Population size N")
	cmd.Flags().Float64("s", experiment.DefaultSelection, "Selection coefficient of the selected scenario")
	cmd.Flags().Int("generations", experiment.DefaultGenerationLimit, "Maximum generations per trial")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 seeds from the clock)")
	cmd.Flags().Int("workers", 0, "Parallel workers (0 uses GOMAXPROCS)")
	cmd.Flags().String("plan", "", "YAML experiment plan")
	cmd.Flags().String("chart", "results_chart.png", "Save the bar chart to this path; empty disables it")
	cmd.Flags().Bool("progress", false, "Report progress on stderr")

	cmd.MarkFlagsMutuallyExclusive("plan", "n")
	cmd.MarkFlagsMutuallyExclusive("plan", "s")
	cmd.MarkFlagsMutuallyExclusive("plan", "generations")

	return cmd
}

// experimentPlan merges the environment configuration with the flags that
// were set explicitly; flags win.
func experimentPlan(cmd *cobra.Command, cfg *config.Config) (experiment.Plan, error) {
	flags := cmd.Flags()
	sim := &cfg.Simulation

	if flags.Changed("plan") {
		sim.PlanPath, _ = flags.GetString("plan")
	}
	if flags.Changed("n") || flags.Changed("s") || flags.Changed("generations") {
		sim.PlanPath = ""
	}
	if flags.Changed("n") {
		sim.PopulationSize, _ = flags.GetInt("n")
	}
	if flags.Changed("s") {
		sim.Selection, _ = flags.GetFloat64("s")
	}
	if flags.Changed("generations") {
		sim.GenerationLimit, _ = flags.GetInt("generations")
	}
	if flags.Changed("trials") {
		sim.Trials, _ = flags.GetInt("trials")
	}
	if flags.Changed("seed") {
		sim.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("workers") {
		sim.Workers, _ = flags.GetInt("workers")
	}

	plan, err := cfg.ExperimentPlan()
	if err != nil {
		return plan, err
	}

	// A plan file carries its own trials, seed and workers unless overridden.
	if sim.PlanPath != "" {
		if flags.Changed("trials") {
			plan.Trials = sim.Trials
		}
		if flags.Changed("seed") {
			plan.Seed = sim.Seed
		}
		if flags.Changed("workers") {
			plan.Workers = sim.Workers
		}
	}
	return plan, plan.Validate()
}

// progressPrinter reports each tenth of a scenario on stderr.
func progressPrinter(cmd *cobra.Command) experiment.ProgressFunc {
	var mu sync.Mutex
	w := cmd.ErrOrStderr()
	return func(scenario string, done, total int) {
		step := total / 10
		if step < 1 {
			step = 1
		}
		if done%step != 0 && done != total {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%s: %d/%d trials\n", scenario, done, total)
	}
}
