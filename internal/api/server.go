// Package api provides a read-only HTTP view of the simulation. It serves
// only published snapshot copies, so requests never touch live engine
// state and are safe while the engine prepares the next step.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/talgya/schelling/internal/engine"
)

// Server serves the latest published snapshot over HTTP.
type Server struct {
	Port int

	mu      sync.RWMutex
	latest  engine.Snapshot
	summary *engine.Summary
	hasSnap bool
}

// Publish replaces the served snapshot. Called by the engine's snapshot
// consumer after each step.
func (s *Server) Publish(snap engine.Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.hasSnap = true
	s.mu.Unlock()
}

// Finish records the terminal summary.
func (s *Server) Finish(sum engine.Summary) {
	s.mu.Lock()
	s.summary = &sum
	s.mu.Unlock()
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/grid", s.handleGrid)

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP observer starting", "addr", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSnap {
		http.Error(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{
		"iteration":      s.latest.Iteration,
		"converged":      s.latest.Converged,
		"moved_fraction": s.latest.MovedFraction,
		"stats":          s.latest.Stats,
	}
	if s.summary != nil {
		resp["summary"] = s.summary
	}
	writeJSON(w, resp)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSnap {
		http.Error(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.latest)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
