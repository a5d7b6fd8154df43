package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/cnvsim/internal/report"
	"github.com/copyleftdev/cnvsim/internal/simulation"
	"github.com/copyleftdev/cnvsim/internal/simulation/rng"
	"github.com/copyleftdev/cnvsim/internal/simulation/theory"
	"github.com/copyleftdev/cnvsim/internal/simulation/wrightfisher"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a single CNV trajectory",
		Long: `Simulate one Wright-Fisher trajectory of a CNV and report how long it
ran and where it ended. Without --p0 the variant starts as a single copy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("n")
			s, _ := cmd.Flags().GetFloat64("s")
			gens, _ := cmd.Flags().GetInt("generations")
			seed, _ := cmd.Flags().GetUint64("seed")
			chartPath, _ := cmd.Flags().GetString("chart")
			jsonOut, _ := cmd.Flags().GetBool("json")

			p0 := simulation.SingleCopyFrequency(n)
			if cmd.Flags().Changed("p0") {
				p0, _ = cmd.Flags().GetFloat64("p0")
			}
			params := simulation.Parameters{
				PopulationSize:       n,
				SelectionCoefficient: s,
				GenerationLimit:      gens,
				InitialFrequency:     p0,
			}

			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			traj, err := wrightfisher.NewSimulator(logger).Simulate(params, rng.New(seed))
			if err != nil {
				return err
			}
			expected, err := theory.FixationProbability(params)
			if err != nil {
				return err
			}

			if chartPath != "" {
				if err := report.SaveTrajectoryChart(traj, params, chartPath); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"parameters":                    params,
					"trajectory":                    traj,
					"generations":                   traj.Generations(),
					"final_frequency":               traj.Final(),
					"outcome":                       traj.Outcome().String(),
					"expected_fixation_probability": expected,
					"chart":                         chartPath,
				})
			}

			fmt.Fprintf(out, "Simulation finished in %d generations.\n", traj.Generations())
			fmt.Fprintf(out, "Final Frequency: %g\n", traj.Final())
			fmt.Fprintf(out, "Outcome: %s\n", traj.Outcome())
			fmt.Fprintf(out, "Expected fixation probability: %.4f\n", expected)
			if chartPath != "" {
				fmt.Fprintf(out, "Chart saved as %s\n", chartPath)
			}
			return nil
		},
	}

	cmd.Flags().Int("n", 100, "Population size N (diploid, 2N allele copies)")
	cmd.Flags().Float64("s", 0.05, "Selection coefficient")
	cmd.Flags().Int("generations", 200, "Maximum number of generations")
	cmd.Flags().Float64("p0", 0, "Initial frequency (default 1/(2N))")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 seeds from the clock)")
	cmd.Flags().String("chart", "", "Save a trajectory chart to this path (.png, .svg, .pdf)")

	return cmd
}
