// Package agents provides the agent data model and the satisfaction
// predicate. Agents are plain records: they hold no reference back to the
// grid they live on, and the engine supplies neighbour data explicitly.
package agents

import (
	"errors"
	"fmt"
)

// AgentID is a unique identifier for an agent. IDs are assigned in
// creation order, ascending from zero.
type AgentID uint64

// Language is the coding-language population an agent belongs to.
// Exactly two values exist; there is no third population.
type Language uint8

const (
	LangPython Language = 0
	LangR      Language = 1
)

// String returns the display name of the language.
func (l Language) String() string {
	switch l {
	case LangPython:
		return "python"
	case LangR:
		return "r"
	default:
		return fmt.Sprintf("Language(%d)", uint8(l))
	}
}

// ErrInvalidCoordinate is returned when a position setter receives a
// malformed row/column pair.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Agent is one occupant of a grid cell.
type Agent struct {
	ID       AgentID  `json:"id"`
	Row      int      `json:"row"`
	Col      int      `json:"col"`
	Language Language `json:"language"`

	// Threshold is the minimum fraction of like-labelled neighbours the
	// agent requires to be satisfied, in [0, 1].
	Threshold float64 `json:"threshold"`
}

// SetPosition moves the agent's recorded position. Only the grid's
// relocation path should call this; coordinates must be non-negative.
func (a *Agent) SetPosition(row, col int) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("%w: (%d, %d)", ErrInvalidCoordinate, row, col)
	}
	a.Row, a.Col = row, col
	return nil
}

// IsUnsatisfied reports whether the agent's neighbourhood violates its
// similarity threshold. An agent with no neighbours is never unsatisfied —
// absence of neighbours is not evidence of dissimilarity.
func (a *Agent) IsUnsatisfied(neighbours []*Agent) bool {
	if len(neighbours) == 0 {
		return false
	}
	similar := 0
	for _, n := range neighbours {
		if n.Language == a.Language {
			similar++
		}
	}
	return float64(similar)/float64(len(neighbours)) < a.Threshold
}
