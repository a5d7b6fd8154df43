package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/cnvsim/internal/config"
	"github.com/copyleftdev/cnvsim/internal/logging"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cnvsim",
		Short: "Wright-Fisher simulation of copy number variant fixation",
		Long: `cnvsim simulates the frequency of a copy number variant in a
Wright-Fisher population with selection, and estimates how often the
variant fixes under neutral drift compared with positive selection.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newExperimentCmd(),
	)
	return rootCmd
}

// loadConfig reads SIM_* defaults from the environment and any .env file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds a text logger on stderr and its zap bridge for the
// simulator and runner.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	logger, err := logging.NewLogger(&logging.Config{
		Level:  level,
		Format: string(logging.TextFormat),
		Output: "stderr",
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logging.NewZapLogger(logger.WithField("command", cmd.Name())), nil
}
