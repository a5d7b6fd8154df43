// Package experiment runs many independent Wright-Fisher trials per
// scenario and aggregates them into empirical fixation probabilities.
package experiment

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/cnvsim/internal/errors"
	"github.com/copyleftdev/cnvsim/internal/simulation/rng"
	"github.com/copyleftdev/cnvsim/internal/simulation/wrightfisher"
)

// ProgressFunc is called after each finished trial. It is called from
// worker goroutines and must be safe for concurrent use.
type ProgressFunc func(scenario string, done, total int)

// Runner executes experiment plans.
type Runner struct {
	simulator *wrightfisher.Simulator
	logger    *zap.Logger
	progress  ProgressFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used by the runner and its simulator.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("experiment")
	r.simulator = wrightfisher.NewSimulator(r.logger)
	return r
}

// Run executes every scenario of plan in order. Within a scenario, trials
// are spread over plan.Workers goroutines; worker w owns its own random
// stream and runs trials w, w+Workers, ... so results depend only on the
// seed and the worker count.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Result, error) {
	const op = "Runner.Run"

	plan, err := plan.normalize()
	if err != nil {
		runErrors.WithLabelValues("invalid_plan").Inc()
		return nil, err
	}

	seed := plan.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	r.logger.Info("Starting experiment",
		zap.Uint64("seed", seed),
		zap.Int("trials", plan.Trials),
		zap.Int("workers", plan.Workers),
		zap.Int("scenarios", len(plan.Scenarios)),
	)

	start := time.Now()
	result := &Result{
		Seed:       seed,
		Trials:     plan.Trials,
		Workers:    plan.Workers,
		Confidence: plan.Confidence,
		Scenarios:  make([]ScenarioResult, 0, len(plan.Scenarios)),
	}

	for i, sc := range plan.Scenarios {
		sr, err := r.runScenario(ctx, sc, plan, rng.Derive(seed, i))
		if err != nil {
			reason := "error"
			if ctx.Err() != nil {
				reason = "cancelled"
			}
			runErrors.WithLabelValues(reason).Inc()
			return nil, errors.Wrapf(err, "scenario %q", sc.Name).
				WithOperation(op).WithComponent("experiment")
		}
		result.Scenarios = append(result.Scenarios, *sr)
	}

	result.Duration = time.Since(start)
	r.logger.Info("Experiment finished", zap.Duration("elapsed", result.Duration))

	return result, nil
}

func (r *Runner) runScenario(ctx context.Context, sc Scenario, plan Plan, seed uint64) (*ScenarioResult, error) {
	start := time.Now()
	trials := make([]trial, plan.Trials)
	streams := rng.Streams(seed, plan.Workers)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < plan.Workers; w++ {
		src := streams[w]
		g.Go(func() error {
			pool := wrightfisher.NewTrajectoryPool()
			for i := w; i < plan.Trials; i += plan.Workers {
				if err := gctx.Err(); err != nil {
					return err
				}

				traj, err := r.simulator.SimulateInto(pool.Get(sc.GenerationLimit+1), sc.Parameters, src)
				if err != nil {
					return err
				}
				trials[i] = trial{outcome: traj.Outcome(), generations: traj.Generations()}
				pool.Put(traj)

				n := done.Add(1)
				if r.progress != nil {
					r.progress(sc.Name, int(n), plan.Trials)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res, err := summarize(sc, trials, plan.Confidence)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	label := regime(sc.SelectionCoefficient)
	for _, tr := range trials {
		trajectoryGenerations.WithLabelValues(label).Observe(float64(tr.generations))
	}
	trialsTotal.WithLabelValues(label, "fixed").Add(float64(res.Fixed))
	trialsTotal.WithLabelValues(label, "lost").Add(float64(res.Lost))
	trialsTotal.WithLabelValues(label, "segregating").Add(float64(res.Segregating))
	scenarioDuration.WithLabelValues(label).Observe(res.Duration.Seconds())

	r.logger.Info("Scenario finished",
		zap.String("scenario", sc.Name),
		zap.Int("fixed", res.Fixed),
		zap.Int("lost", res.Lost),
		zap.Int("segregating", res.Segregating),
		zap.Float64("fixation_probability", res.FixationProbability),
		zap.Float64("expected", res.Expected),
		zap.Duration("elapsed", res.Duration),
	)

	return res, nil
}
