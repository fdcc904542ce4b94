// Package api provides the HTTP API for inspecting the riding simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/engine"
	"github.com/talgya/cavalry/internal/mount"
	"github.com/talgya/cavalry/internal/persistence"
	"github.com/talgya/cavalry/internal/world"
)

// Server serves the world state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	raidLimiter *RateLimiter
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	if s.raidLimiter == nil {
		s.raidLimiter = NewRateLimiter(6, time.Hour)
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/rides", s.handleRides)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/zones", s.handleZones)
	mux.HandleFunc("/api/v1/agent/", s.handleAgentRoutes)
	if s.Sim.Metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Sim.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("/api/v1/raid", s.adminOnly(RateLimitMiddleware(s.raidLimiter, s.handleRaid)))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server can
// be shut down by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no RIDESIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.Sim.Mu.Lock()
	defer s.Sim.Mu.Unlock()

	tick := s.Sim.CurrentTick()
	status := map[string]any{
		"name":           "Cavalry",
		"tick":           tick,
		"sim_time":       engine.SimTime(tick),
		"season":         world.SeasonName(s.Sim.Season),
		"running":        s.Eng != nil && s.Eng.Running(),
		"population":     s.Sim.Stats.Population,
		"present":        s.Sim.Stats.Present,
		"riders":         s.Sim.Stats.Riders,
		"waiting_mounts": s.Sim.Stats.WaitingMounts,
		"groups":         s.Sim.Stats.Groups,
		"downed":         s.Sim.Stats.Downed,
		"factions":       len(s.Sim.Factions),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed
	}
	writeJSON(w, status)
}

func (s *Server) handleRides(w http.ResponseWriter, r *http.Request) {
	s.Sim.Mu.Lock()
	defer s.Sim.Mu.Unlock()

	rides := s.Sim.RideViews()
	if state := r.URL.Query().Get("state"); state != "" {
		filtered := rides[:0]
		for _, v := range rides {
			if v.State == state {
				filtered = append(filtered, v)
			}
		}
		rides = filtered
	}
	if rides == nil {
		rides = []engine.RideView{}
	}
	writeJSON(w, rides)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	s.Sim.Mu.Lock()
	defer s.Sim.Mu.Unlock()

	var events []engine.Event
	category := r.URL.Query().Get("category")
	for _, e := range s.Sim.Events {
		if category == "" || e.Category == category {
			events = append(events, e)
		}
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	out := append([]engine.Event{}, events[start:]...)
	writeJSON(w, out)
}

type zoneView struct {
	Label string           `json:"label"`
	Color world.Color      `json:"color"`
	Pen   bool             `json:"pen"`
	Cells []world.HexCoord `json:"cells"`
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	s.Sim.Mu.Lock()
	defer s.Sim.Mu.Unlock()

	result := []zoneView{}
	for _, z := range s.Sim.WorldMap.Zones {
		result = append(result, zoneView{Label: z.Label, Color: z.Color, Pen: z.Pen, Cells: z.CellList()})
	}
	writeJSON(w, result)
}

// handleAgentRoutes dispatches GET /api/v1/agent/:id and the admin actions
// under it (POST /api/v1/agent/:id/leave-rider, POST /api/v1/agent/:id/draft).
func (s *Server) handleAgentRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 4 || parts[3] == "" {
		http.Error(w, "missing agent id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	agentID := agents.AgentID(id)

	if len(parts) >= 5 {
		switch parts[4] {
		case "leave-rider":
			s.adminOnly(s.postOnly(func(w http.ResponseWriter, r *http.Request) { s.handleLeaveRider(w, agentID) }))(w, r)
		case "draft":
			s.adminOnly(s.postOnly(func(w http.ResponseWriter, r *http.Request) { s.handleDraft(w, r, agentID) }))(w, r)
		default:
			http.NotFound(w, r)
		}
		return
	}

	s.Sim.Mu.Lock()
	defer s.Sim.Mu.Unlock()

	view, ok := s.Sim.AgentDetail(agentID)
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (s *Server) postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLeaveRider(w http.ResponseWriter, id agents.AgentID) {
	s.Sim.Mu.Lock()
	defer s.Sim.Mu.Unlock()

	if s.Sim.Agent(id) == nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	if err := s.Sim.Rides.LeaveRider(id); err != nil {
		if errors.Is(err, mount.ErrNotWaiting) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "leave rider failed", http.StatusInternalServerError)
		return
	}
	slog.Info("admin: mount released from waiting", "mount", id)
	writeJSON(w, map[string]any{"mount": id, "message": "mount stopped waiting"})
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request, id agents.AgentID) {
	var req struct {
		Drafted bool `json:"drafted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.Sim.Mu.Lock()
	defer s.Sim.Mu.Unlock()

	if err := s.Sim.SetDrafted(id, req.Drafted); err != nil {
		if errors.Is(err, engine.ErrUnknownAgent) {
			http.Error(w, "agent not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"agent": id, "drafted": req.Drafted})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Sim.Mu.Lock()
		s.Eng.Speed = req.Speed
		s.Sim.Mu.Unlock()
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	s.Sim.Mu.Lock()
	defer s.Sim.Mu.Unlock()

	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Sim.CurrentTick(),
		"message": "snapshot saved",
	})
}

// handleRaid spawns a travel group at the map edge.
func (s *Server) handleRaid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		FactionID uint64  `json:"faction_id"`
		Kind      string  `json:"kind"`
		Count     int     `json:"count"`
		Points    float64 `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 || req.Count > 50 {
		http.Error(w, "count must be 1-50", http.StatusBadRequest)
		return
	}

	s.Sim.Mu.Lock()
	defer s.Sim.Mu.Unlock()

	g, err := s.Sim.SpawnParty(engine.PartySpec{
		FactionID: req.FactionID,
		Kind:      req.Kind,
		Count:     req.Count,
		Points:    req.Points,
	}, s.Sim.CurrentTick())
	switch {
	case errors.Is(err, engine.ErrUnknownFaction), errors.Is(err, engine.ErrUnknownKind):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("admin raid failed", "error", err)
		http.Error(w, "spawn failed", http.StatusInternalServerError)
		return
	}

	slog.Info("admin: party spawned", "group", g.ID, "faction", req.FactionID, "kind", req.Kind, "count", req.Count)
	writeJSON(w, g)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
