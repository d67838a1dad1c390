// Package config provides the immutable run configuration: defaults, YAML
// loading, and construction-time validation.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration is returned when any configuration constraint is
// violated. Construction of a simulation must not proceed past it.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Placement modes for the initial label assignment.
const (
	PlacementUniform   = "uniform"   // shuffled-prefix labels
	PlacementClustered = "clustered" // noise-ranked labels
)

// Config holds every parameter of a simulation run. Values are fixed once
// the engine is constructed; there is no process-wide mutable state.
type Config struct {
	// Rows and Cols are the grid dimensions. Both must be positive.
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`

	// EmptyFraction is the fraction of cells left unoccupied, in (0, 1).
	// The derived empty-cell count must come out to at least one cell.
	EmptyFraction float64 `yaml:"empty_fraction"`

	// PopulationRatio is the fraction of agents assigned the R label,
	// in [0, 1].
	PopulationRatio float64 `yaml:"population_ratio"`

	// SimilarityThreshold is the per-agent satisfaction threshold,
	// in [0, 1].
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// MaxIterations caps the number of simulation steps. Must be positive.
	MaxIterations int `yaml:"max_iterations"`

	// RandomSeed controls determinism. Absent (nil) means a time-derived
	// seed: the run is nondeterministic but the seed used is reported.
	RandomSeed *int64 `yaml:"random_seed,omitempty"`

	// Placement selects the initial label assignment: "uniform" (default)
	// or "clustered".
	Placement string `yaml:"placement"`
}

// Default returns the configuration matching the published model defaults.
func Default() Config {
	return Config{
		Rows:                50,
		Cols:                50,
		EmptyFraction:       0.3,
		PopulationRatio:     0.5,
		SimilarityThreshold: 0.3,
		MaxIterations:       500,
		Placement:           PlacementUniform,
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Cells returns the total cell count.
func (c Config) Cells() int {
	return c.Rows * c.Cols
}

// EmptyCells returns the derived number of unoccupied cells, truncating as
// the published model does.
func (c Config) EmptyCells() int {
	return int(c.EmptyFraction * float64(c.Cells()))
}

// AgentCount returns the number of agents the grid will hold.
func (c Config) AgentCount() int {
	return c.Cells() - c.EmptyCells()
}

// Validate checks every constraint. It returns an error wrapping
// ErrInvalidConfiguration naming the first offending field.
func (c Config) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("%w: rows and cols must be positive, got %dx%d", ErrInvalidConfiguration, c.Rows, c.Cols)
	}
	if c.EmptyFraction <= 0 || c.EmptyFraction >= 1 {
		return fmt.Errorf("%w: empty_fraction must be in (0, 1), got %v", ErrInvalidConfiguration, c.EmptyFraction)
	}
	if c.PopulationRatio < 0 || c.PopulationRatio > 1 {
		return fmt.Errorf("%w: population_ratio must be in [0, 1], got %v", ErrInvalidConfiguration, c.PopulationRatio)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0, 1], got %v", ErrInvalidConfiguration, c.SimilarityThreshold)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be positive, got %d", ErrInvalidConfiguration, c.MaxIterations)
	}
	if c.EmptyCells() < 1 {
		return fmt.Errorf("%w: empty_fraction %v leaves no free cell on a %dx%d grid", ErrInvalidConfiguration, c.EmptyFraction, c.Rows, c.Cols)
	}
	switch c.Placement {
	case PlacementUniform, PlacementClustered:
	default:
		return fmt.Errorf("%w: placement must be %q or %q, got %q", ErrInvalidConfiguration, PlacementUniform, PlacementClustered, c.Placement)
	}
	return nil
}
