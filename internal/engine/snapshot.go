package engine

// AgentPosition is one agent's placement inside a snapshot.
type AgentPosition struct {
	ID       uint64 `json:"id"`
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	Language string `json:"language"`
}

// Snapshot is an immutable point-in-time copy of the world, emitted after
// every step. It shares no memory with the live simulation, so consumers
// may read it while the engine prepares the next step.
type Snapshot struct {
	Iteration     int             `json:"iteration"`
	Rows          int             `json:"rows"`
	Cols          int             `json:"cols"`
	Positions     []AgentPosition `json:"positions"`
	MovedFraction float64         `json:"moved_fraction"`
	Converged     bool            `json:"converged"`
	Stats         SimStats        `json:"stats"`
}

// Snapshot builds an independent copy of the current state. Positions are
// listed in agent creation order.
func (s *Simulation) Snapshot() Snapshot {
	positions := make([]AgentPosition, len(s.Agents))
	for i, a := range s.Agents {
		positions[i] = AgentPosition{
			ID:       uint64(a.ID),
			Row:      a.Row,
			Col:      a.Col,
			Language: a.Language.String(),
		}
	}
	return Snapshot{
		Iteration:     s.Iteration,
		Rows:          s.Grid.Rows,
		Cols:          s.Grid.Cols,
		Positions:     positions,
		MovedFraction: s.Stats.MovedFraction,
		Converged:     s.Converged,
		Stats:         s.Stats,
	}
}
