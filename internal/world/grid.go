// Package world provides the 2D occupancy grid and the free-cell set the
// segregation model runs on.
package world

import (
	"errors"
	"fmt"

	"github.com/talgya/schelling/internal/agents"
	"github.com/talgya/schelling/internal/entropy"
)

// ErrGridFull is returned by Relocate when no free cell exists. Under a
// valid configuration this cannot happen — relocation is a swap and at
// least one cell starts empty — but it is guarded rather than left as
// undefined indexing.
var ErrGridFull = errors.New("grid full: no free cell available")

// Position is a (row, col) grid coordinate.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// mooreOffsets lists the 8 neighbour offsets in fixed scan order:
// up-left, up, up-right, left, right, down-left, down, down-right.
// The order is part of the reproducibility contract.
var mooreOffsets = [8]Position{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Grid is a fixed-size occupancy structure. Every position is either
// occupied by exactly one agent or present in the free set — never both,
// never neither.
type Grid struct {
	Rows int
	Cols int

	cells [][]*agents.Agent
	free  freeSet
	rng   *entropy.Source
}

// NewGrid creates an empty grid with every cell free. The random source is
// shared with the engine and supplies relocation draws.
func NewGrid(rows, cols int, src *entropy.Source) *Grid {
	cells := make([][]*agents.Agent, rows)
	for r := range cells {
		cells[r] = make([]*agents.Agent, cols)
	}
	g := &Grid{
		Rows:  rows,
		Cols:  cols,
		cells: cells,
		rng:   src,
		free:  newFreeSet(rows * cols),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.free.add(Position{r, c})
		}
	}
	return g
}

// InBounds reports whether the position lies on the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// At returns the occupant of a cell, or nil if the cell is free or out of
// bounds.
func (g *Grid) At(row, col int) *agents.Agent {
	if !g.InBounds(row, col) {
		return nil
	}
	return g.cells[row][col]
}

// FreeCount returns the number of unoccupied cells.
func (g *Grid) FreeCount() int {
	return g.free.len()
}

// IsFree reports whether the cell is unoccupied.
func (g *Grid) IsFree(row, col int) bool {
	return g.free.contains(Position{row, col})
}

// Place puts an agent at its recorded position. The cell must be in bounds
// and free. Used during initialization and test setup; relocation goes
// through Relocate.
func (g *Grid) Place(a *agents.Agent) error {
	if !g.InBounds(a.Row, a.Col) {
		return fmt.Errorf("place agent %d: %w: (%d, %d)", a.ID, agents.ErrInvalidCoordinate, a.Row, a.Col)
	}
	pos := Position{a.Row, a.Col}
	if !g.free.contains(pos) {
		return fmt.Errorf("place agent %d: cell (%d, %d) already occupied", a.ID, a.Row, a.Col)
	}
	g.cells[a.Row][a.Col] = a
	g.free.remove(pos)
	return nil
}

// Neighbours returns the occupants of the up to 8 Moore-adjacent cells, in
// fixed scan order. Out-of-bounds and free neighbour cells are silently
// excluded.
func (g *Grid) Neighbours(row, col int) []*agents.Agent {
	var out []*agents.Agent
	for _, d := range mooreOffsets {
		r, c := row+d.Row, col+d.Col
		if !g.InBounds(r, c) {
			continue
		}
		if a := g.cells[r][c]; a != nil {
			out = append(out, a)
		}
	}
	return out
}

// RandomFreeCell draws a uniformly random free cell. One draw is consumed
// from the shared random source per call.
func (g *Grid) RandomFreeCell() (Position, error) {
	if g.free.len() == 0 {
		return Position{}, ErrGridFull
	}
	return g.free.at(g.rng.Intn(g.free.len())), nil
}

// Relocate moves the agent to a uniformly random free cell, freeing its
// old position. Exactly one random draw is consumed per call, in move-phase
// order — part of the reproducibility contract.
func (g *Grid) Relocate(a *agents.Agent) error {
	dst, err := g.RandomFreeCell()
	if err != nil {
		return fmt.Errorf("relocate agent %d: %w", a.ID, err)
	}
	old := Position{a.Row, a.Col}

	g.cells[dst.Row][dst.Col] = a
	g.cells[old.Row][old.Col] = nil
	if err := a.SetPosition(dst.Row, dst.Col); err != nil {
		return fmt.Errorf("relocate agent %d: %w", a.ID, err)
	}

	g.free.remove(dst)
	g.free.add(old)
	return nil
}

// freeSet tracks unoccupied positions with O(1) membership, insertion,
// removal, and uniform indexing. Removal swaps the victim with the last
// element, so iteration order is not stable — only the uniform draw is.
type freeSet struct {
	cells []Position
	index map[Position]int
}

func newFreeSet(capacity int) freeSet {
	return freeSet{
		cells: make([]Position, 0, capacity),
		index: make(map[Position]int, capacity),
	}
}

func (f *freeSet) len() int {
	return len(f.cells)
}

func (f *freeSet) at(i int) Position {
	return f.cells[i]
}

func (f *freeSet) contains(p Position) bool {
	_, ok := f.index[p]
	return ok
}

func (f *freeSet) add(p Position) {
	if f.contains(p) {
		return
	}
	f.index[p] = len(f.cells)
	f.cells = append(f.cells, p)
}

func (f *freeSet) remove(p Position) {
	i, ok := f.index[p]
	if !ok {
		return
	}
	last := len(f.cells) - 1
	moved := f.cells[last]
	f.cells[i] = moved
	f.index[moved] = i
	f.cells = f.cells[:last]
	delete(f.index, p)
}
