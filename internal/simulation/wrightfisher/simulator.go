package wrightfisher

import (
	"math/rand/v2"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/cnvsim/internal/simulation"
)

// initialCapacity bounds the up-front allocation for long generation limits.
// Most trajectories started from a single copy are absorbed early.
const initialCapacity = 256

// Simulator runs Wright-Fisher trajectories with genic selection
type Simulator struct {
	// Logger for structured logging
	logger *zap.Logger
}

// NewSimulator creates a new Simulator. A nil logger disables logging.
func NewSimulator(logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		logger: logger.Named("wright_fisher"),
	}
}

// Simulate runs one trajectory until the variant is lost, fixed, or the
// generation limit is spent. src is owned by the caller.
func (s *Simulator) Simulate(params simulation.Parameters, src rand.Source) (simulation.Trajectory, error) {
	capacity := params.GenerationLimit + 1
	if capacity > initialCapacity || capacity < 1 {
		capacity = initialCapacity
	}
	return s.SimulateInto(make(simulation.Trajectory, 0, capacity), params, src)
}

// SimulateInto is Simulate writing into dst[:0], so callers that only look
// at the outcome can reuse one buffer across trials.
func (s *Simulator) SimulateInto(dst simulation.Trajectory, params simulation.Parameters, src rand.Source) (simulation.Trajectory, error) {
	const op = "Simulator.Simulate"

	if err := params.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, simulation.NewErrorf("random source must not be nil").WithOperation(op)
	}

	frequency := params.InitialFrequency
	trajectory := append(dst[:0], frequency)

	for gen := 0; gen < params.GenerationLimit; gen++ {
		if simulation.IsAbsorbing(frequency) {
			break
		}
		frequency = Step(frequency, params.PopulationSize, params.SelectionCoefficient, src)
		trajectory = append(trajectory, frequency)
	}

	if ce := s.logger.Check(zap.DebugLevel, "Trajectory finished"); ce != nil {
		ce.Write(
			zap.Int("population_size", params.PopulationSize),
			zap.Float64("selection", params.SelectionCoefficient),
			zap.Int("generations", trajectory.Generations()),
			zap.Stringer("outcome", trajectory.Outcome()),
		)
	}

	return trajectory, nil
}

// TransmissionProbability is the chance that an allele copy drawn for the
// next generation is the variant, after weighting by relative fitness 1+s.
// With s == 0 or at 0 and 1 it returns frequency unchanged.
func TransmissionProbability(frequency, selection float64) float64 {
	if selection == 0 || simulation.IsAbsorbing(frequency) {
		// frequency + (1-frequency) need not round to exactly 1, and at
		// fixation with s = -1 the mean fitness is zero.
		return frequency
	}
	fitness := 1 + selection
	meanFitness := frequency*fitness + (1 - frequency)
	return frequency * fitness / meanFitness
}

// Step advances one generation: 2N allele copies are resampled binomially
// with the selection-weighted transmission probability. The returned
// frequency is a multiple of 1/(2N). Absorbed frequencies are returned
// unchanged without drawing. Inputs are not validated.
func Step(frequency float64, populationSize int, selection float64, src rand.Source) float64 {
	if simulation.IsAbsorbing(frequency) {
		return frequency
	}
	copies := float64(2 * populationSize)
	draw := distuv.Binomial{
		N:   copies,
		P:   TransmissionProbability(frequency, selection),
		Src: src,
	}
	return draw.Rand() / copies
}

var _ simulation.Simulator = (*Simulator)(nil)
