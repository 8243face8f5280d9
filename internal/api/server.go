// Package api provides the HTTP API for observing and steering the simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/persistence"
)

const (
	maxSSEConns = 2
	maxWSConns  = 8
	maxSpeed    = 10.0
	saveTimeout = 10 * time.Second
)

// Server serves the simulation over HTTP. Handlers never touch simulation
// state directly: they read published snapshots, queue intents, and hand
// saves to the simulation goroutine through HandlePendingSave.
type Server struct {
	Sim       *engine.Simulation
	Eng       *engine.Engine
	Tuning    *config.Live
	DB        *persistence.DB // nil disables history and saves
	RunID     string
	StartedAt time.Time
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey  string // Bearer token for stream endpoints. Empty = streaming disabled.

	// Active stream connection counts (atomic).
	sseConns int32
	wsConns  int32

	saves chan chan error
	http  *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.saves == nil {
		s.saves = make(chan chan error, 1)
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	actionLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/{id}", s.handleRun)

	// Streaming endpoints (GET, require the relay key).
	mux.HandleFunc("/api/v1/stream", s.handleStream)
	mux.HandleFunc("/api/v1/ws", s.handleWebSocket)

	// Admin endpoints (POST require bearer token, GET passes through).
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("/api/v1/tuning", s.adminOnly(s.handleTuning))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/action", s.adminOnly(RateLimitMiddleware(actionLimiter, s.handleAction)))
	mux.HandleFunc("/api/v1/move", s.adminOnly(s.handleMove))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	s.http = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// HandlePendingSave performs a queued snapshot save, if any. It must be
// called from the goroutine that steps the simulation, both from OnFrame and
// from OnIdle so saves still complete while the engine is paused.
func (s *Server) HandlePendingSave() {
	select {
	case reply := <-s.saves:
		reply <- s.DB.SaveWorldState(s.RunID, s.Sim)
	default:
	}
}

// withdrawSave drops a queued save nobody picked up. Only one save can be
// queued at a time, so whatever is still in the queue belongs to the caller.
func (s *Server) withdrawSave() {
	select {
	case <-s.saves:
	default:
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
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

func bearerMatches(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no SINGULARITY_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !bearerMatches(r, s.AdminKey) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// relayOnly checks the relay key for stream endpoints. Browsers cannot set
// headers on WebSocket upgrades, so a token query parameter is accepted too.
func (s *Server) relayOnly(w http.ResponseWriter, r *http.Request) bool {
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return false
	}
	if !bearerMatches(r, s.RelayKey) && r.URL.Query().Get("token") != s.RelayKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// latest returns the last published snapshot or writes 503.
func (s *Server) latest(w http.ResponseWriter) *engine.Snapshot {
	snap := s.Sim.Latest()
	if snap == nil {
		http.Error(w, "simulation not started", http.StatusServiceUnavailable)
	}
	return snap
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.latest(w)
	if snap == nil {
		return
	}
	speed, running := 1.0, false
	if s.Eng != nil {
		speed, running = s.Eng.Speed(), s.Eng.Running()
	}

	status := map[string]any{
		"name":          "Singularity",
		"run_id":        s.RunID,
		"tick":          snap.Tick,
		"elapsed":       (time.Duration(snap.Elapsed) * time.Millisecond).Truncate(time.Second).String(),
		"started":       humanize.Time(s.StartedAt),
		"speed":         speed,
		"running":       running,
		"state":         snap.Singular.State,
		"health":        snap.Singular.Health,
		"band":          snap.Singular.Band,
		"population":    snap.Population,
		"orbiting":      snap.OrbitCount,
		"nova_ready":    snap.NovaReady,
		"nova_cooldown": snap.Meters.Cooldown.Value,
		"tuning":        s.Tuning.Get(),
	}
	writeJSON(w, status)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	var events []engine.Event
	if runID := r.URL.Query().Get("run"); runID != "" && runID != s.RunID {
		// Past runs come from the database, newest first.
		if s.DB == nil {
			http.Error(w, "database not available", http.StatusServiceUnavailable)
			return
		}
		stored, err := s.DB.RecentEvents(runID, 500)
		if err != nil {
			slog.Error("events query failed", "run", runID, "error", err)
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		slices.Reverse(stored)
		events = stored
	} else {
		events = s.Sim.RecentEvents(0)
	}

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	out := events[start:]
	if out == nil {
		out = []engine.Event{}
	}
	writeJSON(w, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.latest(w)
	if snap == nil {
		return
	}
	writeJSON(w, snap.Stats)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	runID := s.RunID
	if id := r.URL.Query().Get("run"); id != "" {
		runID = id
	}
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	rows, err := s.DB.StatsHistory(runID, limit)
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		// Return empty array instead of error, the table may not have data yet.
		writeJSON(w, []persistence.StatsRow{})
		return
	}
	if rows == nil {
		rows = []persistence.StatsRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	runs, err := s.DB.RecentRuns(limit)
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

// handleRun returns one run with its latest persisted events.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("id")
	run, err := s.DB.GetRun(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("run query failed", "run", id, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	events, err := s.DB.RecentEvents(id, 50)
	if err != nil {
		slog.Error("events query failed", "run", id, "error", err)
		events = nil
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, map[string]any{
		"run":     run,
		"current": id == s.RunID,
		"events":  events,
	})
}

// handleSnapshot returns the latest frame on GET and saves state on POST.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		snap := s.latest(w)
		if snap == nil {
			return
		}
		writeJSON(w, snap)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	reply := make(chan error, 1)
	select {
	case s.saves <- reply:
	default:
		http.Error(w, "a snapshot is already pending", http.StatusConflict)
		return
	}

	select {
	case err := <-reply:
		if err != nil {
			slog.Error("snapshot save failed", "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
	case <-time.After(saveTimeout):
		s.withdrawSave()
		http.Error(w, "snapshot timed out", http.StatusGatewayTimeout)
		return
	case <-r.Context().Done():
		s.withdrawSave()
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Sim.Latest().Tick,
		"message": "snapshot saved",
	})
}

func (s *Server) handleTuning(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		// Fields left out keep their current value.
		var req struct {
			Aggression    *float64 `json:"aggression"`
			GravityPull   *float64 `json:"gravity_pull"`
			MovementSpeed *float64 `json:"movement_speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		t := s.Tuning.Update(func(t *config.Tuning) {
			if req.Aggression != nil {
				t.Aggression = *req.Aggression
			}
			if req.GravityPull != nil {
				t.GravityPull = *req.GravityPull
			}
			if req.MovementSpeed != nil {
				t.MovementSpeed = *req.MovementSpeed
			}
		})
		slog.Info("tuning changed", "aggression", t.Aggression, "gravity_pull", t.GravityPull, "movement_speed", t.MovementSpeed)
	}

	writeJSON(w, s.Tuning.Get())
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
		if req.Speed < 0 || req.Speed > maxSpeed {
			http.Error(w, fmt.Sprintf("speed must be 0-%g", maxSpeed), http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

var actionKinds = map[string]engine.IntentKind{
	"hunt":  engine.IntentHunt,
	"burst": engine.IntentBurst,
	"nova":  engine.IntentNova,
}

// handleAction queues a hunt, burst or manual nova for the next frame. A
// manual nova during the cooldown is still queued; the simulation drops it.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	kind, ok := actionKinds[strings.ToLower(req.Action)]
	if !ok {
		http.Error(w, "unknown action (use: hunt, burst, nova)", http.StatusBadRequest)
		return
	}
	if !s.Sim.Submit(engine.Intent{Kind: kind}) {
		http.Error(w, "simulation busy", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{"action": req.Action, "queued": true}
	if kind == engine.IntentNova {
		if snap := s.Sim.Latest(); snap != nil {
			resp["nova_ready"] = snap.NovaReady
		}
	}
	writeJSON(w, resp)
}

// handleMove replaces the held movement intent.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var m engine.Movement
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if !s.Sim.Submit(engine.Intent{Kind: engine.IntentMove, Move: m}) {
		http.Error(w, "simulation busy", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, m)
}

// handleStream provides an SSE endpoint for real-time event streaming.
// Requires the relay key and limits concurrent connections.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.relayOnly(w, r) {
		return
	}

	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	// SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	subID, ch := s.Sim.Subscribe()
	defer s.Sim.Unsubscribe(subID)

	// Send recent events as catch-up (last 50).
	for _, e := range s.Sim.RecentEvents(50) {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Category, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
