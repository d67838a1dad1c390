// Package persistence provides a SQLite-backed run-history store: one row
// per simulation run plus its per-step movement trace. It records results
// for comparing runs; nothing restores a live simulation from it.
package persistence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/schelling/internal/config"
	"github.com/talgya/schelling/internal/engine"
)

// DB wraps a SQLite connection for run-history storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		rows INTEGER NOT NULL,
		cols INTEGER NOT NULL,
		empty_fraction REAL NOT NULL,
		population_ratio REAL NOT NULL,
		similarity_threshold REAL NOT NULL,
		max_iterations INTEGER NOT NULL,
		placement TEXT NOT NULL,
		iterations INTEGER NOT NULL DEFAULT 0,
		converged INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS run_steps (
		run_id TEXT NOT NULL,
		iteration INTEGER NOT NULL,
		moved INTEGER NOT NULL,
		moved_fraction REAL NOT NULL,
		PRIMARY KEY (run_id, iteration)
	);

	CREATE INDEX IF NOT EXISTS idx_run_steps_run ON run_steps(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunRecord is one stored run.
type RunRecord struct {
	ID                  string  `db:"id"`
	StartedAt           string  `db:"started_at"`
	Seed                int64   `db:"seed"`
	Rows                int     `db:"rows"`
	Cols                int     `db:"cols"`
	EmptyFraction       float64 `db:"empty_fraction"`
	PopulationRatio     float64 `db:"population_ratio"`
	SimilarityThreshold float64 `db:"similarity_threshold"`
	MaxIterations       int     `db:"max_iterations"`
	Placement           string  `db:"placement"`
	Iterations          int     `db:"iterations"`
	Converged           bool    `db:"converged"`
	DurationMS          int64   `db:"duration_ms"`
}

// CreateRun inserts a new run row and returns its generated id.
func (db *DB) CreateRun(cfg config.Config, seed int64) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(`INSERT INTO runs
		(id, started_at, seed, rows, cols, empty_fraction, population_ratio,
		 similarity_threshold, max_iterations, placement)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339), seed,
		cfg.Rows, cfg.Cols, cfg.EmptyFraction, cfg.PopulationRatio,
		cfg.SimilarityThreshold, cfg.MaxIterations, cfg.Placement,
	)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// RecordStep appends one iteration's movement figures to the run trace.
func (db *DB) RecordStep(runID string, iteration, moved int, movedFraction float64) error {
	_, err := db.conn.Exec(`INSERT INTO run_steps (run_id, iteration, moved, moved_fraction)
		VALUES (?, ?, ?, ?)`,
		runID, iteration, moved, movedFraction,
	)
	if err != nil {
		return fmt.Errorf("record step %d: %w", iteration, err)
	}
	return nil
}

// FinishRun stores the terminal summary on the run row.
func (db *DB) FinishRun(runID string, sum engine.Summary) error {
	converged := 0
	if sum.Converged {
		converged = 1
	}
	_, err := db.conn.Exec(`UPDATE runs SET iterations = ?, converged = ?, duration_ms = ? WHERE id = ?`,
		sum.Iterations, converged, sum.Duration.Milliseconds(), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// ListRuns returns all stored runs, most recent first.
func (db *DB) ListRuns() ([]RunRecord, error) {
	var runs []RunRecord
	if err := db.conn.Select(&runs, `SELECT * FROM runs ORDER BY started_at DESC`); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// StepTrace returns a run's per-iteration moved counts in iteration order.
func (db *DB) StepTrace(runID string) ([]StepRecord, error) {
	var steps []StepRecord
	err := db.conn.Select(&steps,
		`SELECT iteration, moved, moved_fraction FROM run_steps WHERE run_id = ? ORDER BY iteration`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("step trace: %w", err)
	}
	return steps, nil
}

// StepRecord is one iteration of a stored run trace.
type StepRecord struct {
	Iteration     int     `db:"iteration"`
	Moved         int     `db:"moved"`
	MovedFraction float64 `db:"moved_fraction"`
}
