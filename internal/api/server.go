// Package api serves the simulation state over HTTP.
// GET endpoints are public (read-only observation).
// Mutating endpoints require a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/infoflow/internal/agents"
	"github.com/talgya/infoflow/internal/engine"
	"github.com/talgya/infoflow/internal/network"
	"github.com/talgya/infoflow/internal/persistence"
)

// Server serves the simulation over HTTP. The simulation itself is
// single-threaded; handlers share the engine's lock with the step loop and
// hold it while touching Sim.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for mutating endpoints. Empty = disabled.
	RunID    string // Current persisted run, if any. Guarded by the engine lock.
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	admin := newIPLimiter(1, 5)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: slogAdapter{}}))
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/metrics/history", s.handleMetricsHistory)
		r.Get("/citizens", s.handleCitizens)
		r.Get("/citizen/{id}", s.handleCitizenDetail)
		r.Get("/network", s.handleNetwork)
		r.Get("/content", s.handleContent)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRunDetail)
		r.Get("/runs/{id}/export", s.handleRunExport)

		r.Post("/run", rateLimit(admin, s.adminOnly(s.handleRun)))
		r.Post("/speed", rateLimit(admin, s.adminOnly(s.handleSpeed)))
		r.Post("/snapshot", rateLimit(admin, s.adminOnly(s.handleSnapshot)))
		r.Delete("/runs/{id}", rateLimit(admin, s.adminOnly(s.handleRunDelete)))
	})
	return r
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")
	go func() {
		if err := http.ListenAndServe(addr, s.Router()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// slogAdapter routes chi's request log lines through slog.
type slogAdapter struct{}

func (slogAdapter) Print(v ...any) {
	slog.Debug(fmt.Sprint(v...))
}

// corsMiddleware allows local dashboard origins, plus any listed in the
// CORS_ORIGINS env var.
func corsMiddleware(next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowed[origin] = true
			}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no INFOFLOW_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	speed := s.Eng.Speed()
	running := s.Eng.Running()

	s.Eng.Lock()
	defer s.Eng.Unlock()

	writeJSON(w, map[string]any{
		"step":                 s.Sim.CurrentStep(),
		"citizens":             len(s.Sim.Citizens),
		"media_sources":        len(s.Sim.Media),
		"network":              string(s.Sim.Config.NetworkKind),
		"seed":                 s.Sim.Config.Seed,
		"content_count":        s.Sim.Arena.Len(),
		"speed":                speed,
		"running":              running,
		"duplicates_prevented": s.Sim.Stats.DuplicatesPrevented,
		"successful_shares":    s.Sim.Stats.SuccessfulShares,
		"run_id":               s.RunID,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.Eng.Lock()
	defer s.Eng.Unlock()

	if len(s.Sim.History) == 0 {
		writeJSON(w, engine.StepMetrics{})
		return
	}
	writeJSON(w, s.Sim.History[len(s.Sim.History)-1])
}

func (s *Server) handleMetricsHistory(w http.ResponseWriter, r *http.Request) {
	s.Eng.Lock()
	defer s.Eng.Unlock()

	history := s.Sim.History
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n < len(history) {
			history = history[len(history)-n:]
		}
	}
	writeJSON(w, history)
}

func (s *Server) handleCitizens(w http.ResponseWriter, r *http.Request) {
	s.Eng.Lock()
	defer s.Eng.Unlock()

	type citizenSummary struct {
		ID              agents.AgentID `json:"id"`
		TruthAssessment float64        `json:"truth_assessment"`
		Confidence      float64        `json:"confidence"`
		TruthSeeking    float64        `json:"truth_seeking"`
		Influence       float64        `json:"influence"`
		Received        int            `json:"received"`
		Neighbors       int            `json:"neighbors"`
	}

	result := make([]citizenSummary, 0, len(s.Sim.Citizens))
	for _, c := range s.Sim.Citizens {
		result = append(result, citizenSummary{
			ID:              c.ID,
			TruthAssessment: c.TruthAssessment,
			Confidence:      c.Confidence,
			TruthSeeking:    c.TruthSeeking,
			Influence:       c.Influence,
			Received:        c.ReceivedCount(),
			Neighbors:       len(c.Neighbors),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleCitizenDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid citizen id", http.StatusBadRequest)
		return
	}

	s.Eng.Lock()
	defer s.Eng.Unlock()

	if id < 0 || id >= len(s.Sim.Citizens) {
		http.Error(w, "citizen not found", http.StatusNotFound)
		return
	}
	c := s.Sim.Citizens[id]

	trust := make(map[string]float64, agents.NumKinds)
	for _, kind := range agents.Kinds() {
		trust[kind.String()] = c.TrustIn(kind)
	}
	neighbors := make([]agents.AgentID, 0, len(c.Neighbors))
	for _, n := range c.Neighbors {
		neighbors = append(neighbors, n.ID)
	}

	writeJSON(w, map[string]any{
		"id":                c.ID,
		"truth_assessment":  c.TruthAssessment,
		"confidence":        c.Confidence,
		"truth_seeking":     c.TruthSeeking,
		"confirmation_bias": c.ConfirmationBias,
		"critical_thinking": c.CriticalThinking,
		"social_conformity": c.SocialConformity,
		"influence":         c.Influence,
		"trust":             trust,
		"memory":            c.Memory,
		"neighbors":         neighbors,
		"received":          c.ReceivedCount(),
	})
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	s.Eng.Lock()
	defer s.Eng.Unlock()

	resp := map[string]any{
		"nodes":     s.Sim.Graph.N,
		"edges":     s.Sim.Graph.EdgeCount(),
		"adjacency": s.Sim.Graph.Adjacency(),
	}
	if r.URL.Query().Get("layout") == "true" {
		resp["layout"] = network.Layout(s.Sim.Graph, 42, 50)
	}
	writeJSON(w, resp)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	s.Eng.Lock()
	defer s.Eng.Unlock()

	type contentView struct {
		*agents.Content
		Spread    int              `json:"spread"`
		SeedNodes []agents.AgentID `json:"seed_nodes"`
	}

	result := make([]contentView, 0, s.Sim.Arena.Len())
	for _, ct := range s.Sim.Arena.All() {
		result = append(result, contentView{
			Content:   ct,
			Spread:    len(ct.SpreadPath),
			SeedNodes: s.Sim.Arena.SeedNodes(ct.ID),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.RecentRuns(20)
	if err != nil {
		slog.Error("listing runs", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.RunInfo{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	data, err := s.DB.LoadRun(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, data)
}

func (s *Server) handleRunExport(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", id))
	if err := s.DB.ExportCSV(id, w); err != nil {
		slog.Error("csv export", "run", id, "error", err)
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Steps int `json:"steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Steps <= 0 || req.Steps > 10000 {
		http.Error(w, "steps must be 1-10000", http.StatusBadRequest)
		return
	}

	// RunSteps locks per step itself.
	s.Eng.RunSteps(req.Steps)

	s.Eng.Lock()
	step := s.Sim.CurrentStep()
	s.Eng.Unlock()

	slog.Info("manual run", "steps", req.Steps, "now_at", step)
	writeJSON(w, map[string]int{"step": step})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed   float64 `json:"speed"`
		Running *bool   `json:"running,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}

	s.Eng.SetSpeed(req.Speed)
	if req.Running != nil {
		s.Eng.SetRunning(*req.Running)
	}
	running := s.Eng.Running()

	slog.Info("speed changed", "speed", req.Speed, "running", running)
	writeJSON(w, map[string]any{"speed": req.Speed, "running": running})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	s.Eng.Lock()
	defer s.Eng.Unlock()

	if s.RunID == "" {
		id, err := s.DB.CreateRun(s.Sim.Config)
		if err != nil {
			slog.Error("creating run", "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
		s.RunID = id
	}

	step := s.Sim.CurrentStep()
	for i, row := range s.Sim.History {
		if err := s.DB.RecordStep(s.RunID, i, row); err != nil {
			slog.Error("recording step", "step", i, "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
	}
	if states, ok := s.Sim.Snapshots[step]; ok {
		if err := s.DB.SaveSnapshots(s.RunID, step, states); err != nil {
			slog.Error("saving snapshots", "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
	}
	if err := s.DB.SaveContent(s.RunID, s.Sim.Arena); err != nil {
		slog.Error("saving content", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	slog.Info("snapshot persisted", "run", s.RunID, "step", step)
	writeJSON(w, map[string]any{"run_id": s.RunID, "step": step})
}

func (s *Server) handleRunDelete(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.DB.DeleteRun(id); err != nil {
		slog.Error("deleting run", "run", id, "error", err)
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	slog.Info("run deleted", "run", id)
	writeJSON(w, map[string]string{"deleted": id})
}
