package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/talgya/schelling/internal/agents"
	"github.com/talgya/schelling/internal/config"
	"github.com/talgya/schelling/internal/entropy"
	"github.com/talgya/schelling/internal/world"
)

func seedPtr(v int64) *int64 { return &v }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Rows, cfg.Cols = 10, 10
	cfg.RandomSeed = seedPtr(42)
	return cfg
}

func checkConsistency(t *testing.T, s *Simulation) {
	t.Helper()
	if got, want := s.Grid.FreeCount()+len(s.Agents), s.Grid.Rows*s.Grid.Cols; got != want {
		t.Errorf("free + agents = %d, want %d", got, want)
	}
	for _, a := range s.Agents {
		if got := s.Grid.At(a.Row, a.Col); got != a {
			t.Errorf("agent %d at (%d, %d) not backed by grid", a.ID, a.Row, a.Col)
		}
	}
}

func TestNewValidatesConfiguration(t *testing.T) {
	// An all-occupied grid must fail at construction, never surface later
	// as a full-grid relocation failure.
	cfg := testConfig()
	cfg.EmptyFraction = 0
	_, err := New(cfg)
	if !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Errorf("New error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestNewBuildsConsistentWorld(t *testing.T) {
	sim, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sim.Iteration != 0 || sim.Converged {
		t.Errorf("fresh simulation: iteration = %d, converged = %v", sim.Iteration, sim.Converged)
	}
	if len(sim.Agents) != testConfig().AgentCount() {
		t.Errorf("agents = %d, want %d", len(sim.Agents), testConfig().AgentCount())
	}
	checkConsistency(t, sim)
}

func TestZeroThresholdConvergesImmediately(t *testing.T) {
	// 3x3 grid with exactly one free cell and threshold zero: nobody can
	// be unsatisfied, so the first scan converges with no movement.
	cfg := config.Config{
		Rows: 3, Cols: 3,
		EmptyFraction:       0.12, // derives to exactly 1 free cell
		PopulationRatio:     0.5,
		SimilarityThreshold: 0,
		MaxIterations:       10,
		RandomSeed:          seedPtr(42),
		Placement:           config.PlacementUniform,
	}
	sim, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sim.Grid.FreeCount() != 1 {
		t.Fatalf("free cells = %d, want 1", sim.Grid.FreeCount())
	}

	sum, err := sim.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Converged {
		t.Error("run should converge")
	}
	if sum.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", sum.Iterations)
	}
	if sim.Stats.MovedFraction != 0 {
		t.Errorf("moved fraction = %v, want 0", sim.Stats.MovedFraction)
	}
}

func TestSurroundedAgentRelocates(t *testing.T) {
	// One Python agent in the centre of a ring of R agents, with a single
	// free cell in the corner. The centre agent is unsatisfied on the
	// first scan and must move to the only free cell.
	src := entropy.NewSource(1)
	g := world.NewGrid(3, 3, src)

	centre := &agents.Agent{ID: 0, Row: 1, Col: 1, Language: agents.LangPython, Threshold: 0.5}
	roster := []*agents.Agent{centre}
	ring := []world.Position{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}, {Row: 1, Col: 0}, {Row: 1, Col: 2}, {Row: 2, Col: 0}, {Row: 2, Col: 1}}
	for i, pos := range ring {
		roster = append(roster, &agents.Agent{
			ID: agents.AgentID(i + 1), Row: pos.Row, Col: pos.Col,
			Language: agents.LangR, Threshold: 0,
		})
	}
	for _, a := range roster {
		if err := g.Place(a); err != nil {
			t.Fatalf("Place: %v", err)
		}
	}

	sim := &Simulation{Grid: g, Agents: roster}
	res, err := sim.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	if res.Moved != 1 {
		t.Errorf("moved = %d, want 1", res.Moved)
	}
	if res.Converged {
		t.Error("step with movement should not report convergence")
	}
	if centre.Row != 2 || centre.Col != 2 {
		t.Errorf("centre agent at (%d, %d), want the only free cell (2, 2)", centre.Row, centre.Col)
	}
	if !g.IsFree(1, 1) {
		t.Error("vacated centre cell should be free")
	}
	checkConsistency(t, sim)
}

func TestRunTerminates(t *testing.T) {
	// Maximum threshold keeps agents churning; the cap must bound the run
	// and the loop must end in exactly one of the two terminal states.
	cfg := testConfig()
	cfg.SimilarityThreshold = 1.0
	cfg.MaxIterations = 5

	sim, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sum, err := sim.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Iterations > cfg.MaxIterations {
		t.Errorf("iterations = %d exceeds cap %d", sum.Iterations, cfg.MaxIterations)
	}
	if !sum.Converged && sum.Iterations != cfg.MaxIterations {
		t.Errorf("non-converged run stopped at %d, want cap %d", sum.Iterations, cfg.MaxIterations)
	}
	checkConsistency(t, sim)
}

func TestDeterministicSnapshotSequence(t *testing.T) {
	run := func() []Snapshot {
		cfg := testConfig()
		cfg.MaxIterations = 30
		sim, err := New(cfg)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		var snaps []Snapshot
		sim.OnSnapshot = func(s Snapshot) { snaps = append(snaps, s) }
		if _, err := sim.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return snaps
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("snapshot counts diverged: %d vs %d", len(a), len(b))
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical seed and configuration produced different snapshot sequences")
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	sim, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	snap := sim.Snapshot()
	before := append([]AgentPosition(nil), snap.Positions...)

	// Mutating the snapshot must not reach the live simulation.
	origRow := sim.Agents[0].Row
	snap.Positions[0].Row = -99
	if sim.Agents[0].Row != origRow {
		t.Error("snapshot mutation leaked into live agent state")
	}

	// Stepping the simulation must not rewrite an already-taken snapshot.
	snap.Positions[0].Row = before[0].Row
	if _, err := sim.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !reflect.DeepEqual(snap.Positions, before) {
		t.Error("stepping the engine altered a previously taken snapshot")
	}
}

func TestSnapshotContents(t *testing.T) {
	sim, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snap := sim.Snapshot()

	if snap.Rows != 10 || snap.Cols != 10 {
		t.Errorf("snapshot grid = %dx%d, want 10x10", snap.Rows, snap.Cols)
	}
	if len(snap.Positions) != len(sim.Agents) {
		t.Fatalf("positions = %d, want %d", len(snap.Positions), len(sim.Agents))
	}
	for i, p := range snap.Positions {
		a := sim.Agents[i]
		if p.ID != uint64(a.ID) || p.Row != a.Row || p.Col != a.Col || p.Language != a.Language.String() {
			t.Errorf("position %d = %+v does not match agent %+v", i, p, a)
		}
	}
}

func TestStopEndsRunAfterCurrentStep(t *testing.T) {
	cfg := testConfig()
	cfg.SimilarityThreshold = 1.0

	sim, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sim.OnSnapshot = func(Snapshot) {
		if sim.Iteration == 3 {
			sim.Stop()
		}
	}

	sum, err := sim.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Converged && sum.Iterations != 3 {
		t.Errorf("iterations = %d, want stop after step 3", sum.Iterations)
	}
}
