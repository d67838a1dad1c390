// Package engine runs the segregation model: the synchronous scan phase,
// the order-sensitive move phase, and the iterate-until-converged loop.
package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/talgya/schelling/internal/agents"
	"github.com/talgya/schelling/internal/config"
	"github.com/talgya/schelling/internal/entropy"
	"github.com/talgya/schelling/internal/world"
)

// reportEvery is the iteration interval for progress logging.
const reportEvery = 20

// Simulation owns the grid and the ordered agent roster for one run.
// Execution is strictly sequential; the only external interruption point
// is Stop, which takes effect after the current step.
type Simulation struct {
	Grid   *world.Grid
	Agents []*agents.Agent // creation order, ids ascending — order is significant
	Cfg    config.Config
	Seed   int64 // actual seed used, explicit or time-derived

	Iteration int
	Converged bool
	Stats     SimStats

	// OnSnapshot, when set, receives an independent copy of the world
	// after every step. Consumers may read it concurrently with the next
	// step.
	OnSnapshot func(Snapshot)

	stop atomic.Bool
}

// SimStats tracks aggregate observables, refreshed after every step.
type SimStats struct {
	Unsatisfied    int     `json:"unsatisfied"`
	MovedFraction  float64 `json:"moved_fraction"`
	MeanSimilarity float64 `json:"mean_similarity"`
}

// StepResult reports the outcome of one generation.
type StepResult struct {
	Moved     int
	Converged bool
}

// Summary is the terminal result of a run. Reaching the iteration cap is a
// success outcome, not an error.
type Summary struct {
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Duration   time.Duration `json:"duration"`
	Seed       int64         `json:"seed"`
}

// New validates the configuration and builds a fully initialized
// simulation: shuffled placement, agent roster, free set.
func New(cfg config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var src *entropy.Source
	if cfg.RandomSeed != nil {
		src = entropy.NewSource(*cfg.RandomSeed)
	} else {
		src = entropy.NewTimeSource()
	}

	grid, roster, err := world.Initialize(world.InitParams{
		Rows:            cfg.Rows,
		Cols:            cfg.Cols,
		EmptyCells:      cfg.EmptyCells(),
		PopulationRatio: cfg.PopulationRatio,
		Threshold:       cfg.SimilarityThreshold,
		Clustered:       cfg.Placement == config.PlacementClustered,
	}, src)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		Grid:   grid,
		Agents: roster,
		Cfg:    cfg,
		Seed:   src.Seed(),
	}
	s.updateStats(0)
	return s, nil
}

// Step runs one full synchronous generation. The scan phase reads a single
// consistent grid state; the move phase then relocates unsatisfied agents
// one at a time in creation order, so later movers see a grid already
// altered by earlier ones. That processing order is deliberate and must
// not be reordered.
func (s *Simulation) Step() (StepResult, error) {
	s.Iteration++

	var toMove []*agents.Agent
	for _, a := range s.Agents {
		if a.IsUnsatisfied(s.Grid.Neighbours(a.Row, a.Col)) {
			toMove = append(toMove, a)
		}
	}

	for _, a := range toMove {
		if err := s.Grid.Relocate(a); err != nil {
			return StepResult{}, fmt.Errorf("step %d: %w", s.Iteration, err)
		}
	}

	s.Converged = len(toMove) == 0
	s.updateStats(len(toMove))
	return StepResult{Moved: len(toMove), Converged: s.Converged}, nil
}

// Run steps the simulation until convergence, the iteration cap, or an
// external Stop. A snapshot is emitted after every step.
func (s *Simulation) Run() (Summary, error) {
	start := time.Now()

	for !s.Converged && s.Iteration < s.Cfg.MaxIterations && !s.stop.Load() {
		res, err := s.Step()
		if err != nil {
			return Summary{}, err
		}

		if s.OnSnapshot != nil {
			s.OnSnapshot(s.Snapshot())
		}

		if s.Iteration%reportEvery == 0 {
			slog.Info("progress",
				"iteration", s.Iteration,
				"moved", res.Moved,
				"moved_fraction", fmt.Sprintf("%.4f", s.Stats.MovedFraction),
				"mean_similarity", fmt.Sprintf("%.4f", s.Stats.MeanSimilarity),
			)
		}
	}

	sum := Summary{
		Iterations: s.Iteration,
		Converged:  s.Converged,
		Duration:   time.Since(start),
		Seed:       s.Seed,
	}
	slog.Info("run finished",
		"iterations", sum.Iterations,
		"converged", sum.Converged,
		"duration", sum.Duration.Round(time.Millisecond),
		"seed", sum.Seed,
	)
	return sum, nil
}

// Stop requests termination after the current step completes. Safe to call
// from another goroutine.
func (s *Simulation) Stop() {
	s.stop.Store(true)
}

func (s *Simulation) updateStats(moved int) {
	s.Stats.Unsatisfied = moved
	if len(s.Agents) > 0 {
		s.Stats.MovedFraction = float64(moved) / float64(len(s.Agents))
	}

	// Mean neighbourhood similarity over agents with at least one
	// neighbour — the segregation observable.
	total, counted := 0.0, 0
	for _, a := range s.Agents {
		ns := s.Grid.Neighbours(a.Row, a.Col)
		if len(ns) == 0 {
			continue
		}
		similar := 0
		for _, n := range ns {
			if n.Language == a.Language {
				similar++
			}
		}
		total += float64(similar) / float64(len(ns))
		counted++
	}
	if counted > 0 {
		s.Stats.MeanSimilarity = total / float64(counted)
	}
}
