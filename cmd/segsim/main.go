// Command segsim runs the Schelling-style coder segregation simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/schelling/internal/api"
	"github.com/talgya/schelling/internal/config"
	"github.com/talgya/schelling/internal/engine"
	"github.com/talgya/schelling/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to YAML configuration (defaults used when empty)")
	seed := flag.Int64("seed", 0, "random seed override (takes precedence over config)")
	dbPath := flag.String("db", "", "SQLite run-history path (disabled when empty)")
	apiPort := flag.Int("port", 0, "HTTP observer port (disabled when 0)")
	flag.Parse()

	// ── Configuration ─────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if isFlagSet("seed") {
		cfg.RandomSeed = seed
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.New(cfg)
	if err != nil {
		slog.Error("failed to construct simulation", "error", err)
		os.Exit(1)
	}
	slog.Info("world ready",
		"grid", fmt.Sprintf("%dx%d", cfg.Rows, cfg.Cols),
		"agents", len(sim.Agents),
		"free_cells", sim.Grid.FreeCount(),
		"threshold", cfg.SimilarityThreshold,
		"placement", cfg.Placement,
		"seed", sim.Seed,
	)

	// ── Run-history store ─────────────────────────────────────────────
	var db *persistence.DB
	var runID string
	if *dbPath != "" {
		db, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open run-history database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		runID, err = db.CreateRun(cfg, sim.Seed)
		if err != nil {
			slog.Error("failed to create run record", "error", err)
			os.Exit(1)
		}
		slog.Info("run-history store opened", "path", *dbPath, "run_id", runID)
	}

	// ── HTTP observer ─────────────────────────────────────────────────
	var srv *api.Server
	if *apiPort > 0 {
		srv = &api.Server{Port: *apiPort}
		srv.Start()
	}

	// Snapshot consumers: HTTP observer and step trace.
	sim.OnSnapshot = func(snap engine.Snapshot) {
		if srv != nil {
			srv.Publish(snap)
		}
		if db != nil {
			if err := db.RecordStep(runID, snap.Iteration, snap.Stats.Unsatisfied, snap.MovedFraction); err != nil {
				slog.Error("failed to record step", "error", err)
			}
		}
	}

	// Stop after the current step on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, stopping after current step", "signal", sig)
		sim.Stop()
	}()

	// ── Run ───────────────────────────────────────────────────────────
	sum, err := sim.Run()
	if err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	if db != nil {
		if err := db.FinishRun(runID, sum); err != nil {
			slog.Error("failed to store run summary", "error", err)
		}
	}
	if srv != nil {
		srv.Finish(sum)
	}

	outcome := "reached max iterations"
	if sum.Converged {
		outcome = "converged"
	}
	fmt.Printf("\nSimulation %s after %d iterations in %s (seed %d).\n",
		outcome, sum.Iterations, sum.Duration.Round(time.Millisecond), sum.Seed)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
