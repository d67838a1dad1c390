package world

import (
	"fmt"
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/schelling/internal/agents"
	"github.com/talgya/schelling/internal/entropy"
)

// noiseScale controls the spatial frequency of the clustered-placement
// noise field. Larger values produce bigger contiguous regions.
const noiseScale = 8.0

// InitParams carries the placement inputs derived from configuration.
type InitParams struct {
	Rows            int
	Cols            int
	EmptyCells      int     // number of cells left unoccupied, >= 1
	PopulationRatio float64 // fraction of agents assigned LangR
	Threshold       float64 // similarity threshold given to every agent
	Clustered       bool    // noise-ranked labels instead of shuffled prefix
}

// Initialize builds a populated grid and its agent roster. All cell
// coordinates are shuffled with the shared random source; the first
// rows*cols - EmptyCells shuffled positions receive agents and the rest
// form the free set. A prefix of round(nAgents * PopulationRatio) agents
// gets LangR and the remainder LangPython, so the boundary between the two
// groups is seed-dependent.
//
// In clustered mode the occupied cells are instead ranked on a seeded
// noise field and the highest-ranked cells take LangR, producing spatially
// correlated starting populations. Still deterministic for a given seed.
func Initialize(p InitParams, src *entropy.Source) (*Grid, []*agents.Agent, error) {
	cells := p.Rows * p.Cols
	if p.Rows <= 0 || p.Cols <= 0 {
		return nil, nil, fmt.Errorf("initialize: non-positive dimensions %dx%d", p.Rows, p.Cols)
	}
	if p.EmptyCells < 1 || p.EmptyCells >= cells {
		return nil, nil, fmt.Errorf("initialize: empty cell count %d out of range [1, %d)", p.EmptyCells, cells)
	}

	coords := make([]Position, 0, cells)
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			coords = append(coords, Position{r, c})
		}
	}
	src.Shuffle(len(coords), func(i, j int) {
		coords[i], coords[j] = coords[j], coords[i]
	})

	nAgents := cells - p.EmptyCells
	nR := int(math.Round(float64(nAgents) * p.PopulationRatio))

	occupied := coords[:nAgents]
	labels := assignLabels(occupied, nR, p.Clustered, src.Seed())

	g := NewGrid(p.Rows, p.Cols, src)
	roster := make([]*agents.Agent, 0, nAgents)
	for i, pos := range occupied {
		a := &agents.Agent{
			ID:        agents.AgentID(i),
			Row:       pos.Row,
			Col:       pos.Col,
			Language:  labels[i],
			Threshold: p.Threshold,
		}
		if err := g.Place(a); err != nil {
			return nil, nil, err
		}
		roster = append(roster, a)
	}
	return g, roster, nil
}

// assignLabels maps each occupied cell to a language. Uniform mode labels
// the shuffled prefix; clustered mode labels the nR cells with the highest
// noise values, ties broken by shuffle order.
func assignLabels(occupied []Position, nR int, clustered bool, seed int64) []agents.Language {
	labels := make([]agents.Language, len(occupied))
	for i := range labels {
		labels[i] = agents.LangPython
	}

	if !clustered {
		for i := 0; i < nR && i < len(labels); i++ {
			labels[i] = agents.LangR
		}
		return labels
	}

	noise := opensimplex.NewNormalized(seed)
	values := make([]float64, len(occupied))
	for i, pos := range occupied {
		values[i] = noise.Eval2(float64(pos.Col)/noiseScale, float64(pos.Row)/noiseScale)
	}

	order := make([]int, len(occupied))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})
	for i := 0; i < nR && i < len(order); i++ {
		labels[order[i]] = agents.LangR
	}
	return labels
}
