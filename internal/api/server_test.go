package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/persistence"
	"github.com/talgya/singularity/internal/world"
)

const (
	testAdminKey = "admin-secret"
	testRelayKey = "relay-secret"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	live := config.NewLive(config.DefaultTuning())
	sim := engine.NewSimulation(world.Bounds{Width: 800, Height: 600}, 5, live)
	run := persistence.NewRun(5, config.Default())
	if err := db.StartRun(run); err != nil {
		t.Fatalf("start run: %v", err)
	}

	s := &Server{
		Sim:      sim,
		Eng:      engine.NewEngine(60),
		Tuning:   live,
		DB:       db,
		RunID:    run.ID,
		AdminKey: testAdminKey,
		RelayKey: testRelayKey,
	}
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	s, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/v1/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["run_id"] != s.RunID || got["state"] != "healthy" || got["population"] != float64(engine.InitialPopulation) {
		t.Errorf("status = %v", got)
	}
	if got["nova_ready"] != true {
		t.Errorf("nova_ready = %v", got["nova_ready"])
	}
}

func TestAdminAuth(t *testing.T) {
	s, h := newTestServer(t)

	if rec := do(t, h, http.MethodPost, "/api/v1/action", `{"action":"hunt"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: code = %d, want 401", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/action", `{"action":"hunt"}`, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: code = %d, want 401", rec.Code)
	}

	s.AdminKey = ""
	if rec := do(t, h, http.MethodPost, "/api/v1/action", `{"action":"hunt"}`, testAdminKey); rec.Code != http.StatusForbidden {
		t.Errorf("disabled: code = %d, want 403", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/tuning", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET tuning code = %d, want 200", rec.Code)
	}
}

func TestActionQueuesIntent(t *testing.T) {
	s, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/action", `{"action":"hunt"}`, testAdminKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body)
	}
	if s.Sim.Stats.Hunts != 0 {
		t.Fatal("hunt applied outside Step")
	}
	s.Sim.Step(16)
	if s.Sim.Stats.Hunts != 1 {
		t.Errorf("hunts = %d after step, want 1", s.Sim.Stats.Hunts)
	}

	if rec := do(t, h, http.MethodPost, "/api/v1/action", `{"action":"explode"}`, testAdminKey); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action code = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/action", `not json`, testAdminKey); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json code = %d, want 400", rec.Code)
	}
}

func TestManualNovaReportsReadiness(t *testing.T) {
	s, h := newTestServer(t)
	s.Sim.Clock.StartCooldown()
	s.Sim.Step(16)

	rec := do(t, h, http.MethodPost, "/api/v1/action", `{"action":"nova"}`, testAdminKey)
	var got map[string]any
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["nova_ready"] != false {
		t.Errorf("nova_ready = %v, want false during cooldown", got["nova_ready"])
	}

	s.Sim.Step(16)
	if s.Sim.Stats.RejectedNovas != 1 || s.Sim.Stats.Novas != 0 {
		t.Errorf("stats = %+v, want one rejected nova", s.Sim.Stats)
	}
}

func TestMoveAndTuning(t *testing.T) {
	s, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/move", `{"left":true}`, testAdminKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("move code = %d", rec.Code)
	}
	s.Sim.Step(16)
	if !s.Sim.Movement.Left || s.Sim.Movement.Right {
		t.Errorf("movement = %+v", s.Sim.Movement)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/tuning", `{"aggression":3,"gravity_pull":-1}`, testAdminKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("tuning code = %d", rec.Code)
	}
	got := s.Tuning.Get()
	if got.Aggression != 3 || got.GravityPull != config.DefaultGravityPull || got.MovementSpeed != config.DefaultMovementSpeed {
		t.Errorf("tuning = %+v", got)
	}
}

func TestSpeed(t *testing.T) {
	s, h := newTestServer(t)
	if rec := do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":50}`, testAdminKey); rec.Code != http.StatusBadRequest {
		t.Errorf("out of range code = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":0}`, testAdminKey); rec.Code != http.StatusOK {
		t.Errorf("pause code = %d", rec.Code)
	}
	if s.Eng.Speed() != 0 {
		t.Errorf("speed = %v, want paused", s.Eng.Speed())
	}
}

func TestSnapshotGetAndSave(t *testing.T) {
	s, h := newTestServer(t)
	s.Sim.Step(16)

	rec := do(t, h, http.MethodGet, "/api/v1/snapshot", "", "")
	var snap engine.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Tick != 1 || len(snap.Tendrils) != engine.InitialPopulation {
		t.Errorf("snapshot tick=%d tendrils=%d", snap.Tick, len(snap.Tendrils))
	}

	// The save runs on the simulation goroutine, emulated here.
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				s.HandlePendingSave()
				time.Sleep(time.Millisecond)
			}
		}
	}()
	rec = do(t, h, http.MethodPost, "/api/v1/snapshot", "", testAdminKey)
	close(stop)
	if rec.Code != http.StatusOK {
		t.Fatalf("save code = %d body = %s", rec.Code, rec.Body)
	}
	if n, err := s.DB.CountTendrils(); err != nil || n != engine.InitialPopulation {
		t.Errorf("saved tendrils = %d (%v)", n, err)
	}
}

func TestSnapshotSaveWhilePaused(t *testing.T) {
	s, h := newTestServer(t)
	s.Eng.SetSpeed(0)
	s.Eng.OnFrame = func(_ uint64, delta float64) {
		s.Sim.Step(delta)
		s.HandlePendingSave()
	}
	s.Eng.OnIdle = s.HandlePendingSave

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Eng.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for i := 0; i < 2; i++ {
		start := time.Now()
		rec := do(t, h, http.MethodPost, "/api/v1/snapshot", "", testAdminKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("save %d: code = %d body = %s", i, rec.Code, rec.Body)
		}
		if waited := time.Since(start); waited > time.Second {
			t.Errorf("save %d took %v while paused", i, waited)
		}
	}
	if tick := s.Sim.Latest().Tick; tick != 0 {
		t.Errorf("tick = %d, paused engine should not step", tick)
	}
	if n, err := s.DB.CountTendrils(); err != nil || n != engine.InitialPopulation {
		t.Errorf("saved tendrils = %d (%v)", n, err)
	}
}

func TestAbandonedSaveIsWithdrawn(t *testing.T) {
	s, h := newTestServer(t)

	// Nothing services saves here; the client gives up first.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshot", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if n := len(s.saves); n != 0 {
		t.Fatalf("%d saves still queued after the client left", n)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				s.HandlePendingSave()
				time.Sleep(time.Millisecond)
			}
		}
	}()
	if rec := do(t, h, http.MethodPost, "/api/v1/snapshot", "", testAdminKey); rec.Code != http.StatusOK {
		t.Errorf("next save code = %d body = %s", rec.Code, rec.Body)
	}
}

func TestEventsAndRuns(t *testing.T) {
	s, h := newTestServer(t)
	s.Sim.RequestBurst()
	s.Sim.RequestHunt()

	rec := do(t, h, http.MethodGet, "/api/v1/events?category=burst", "", "")
	var events []engine.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].Category != engine.CategoryBurst {
		t.Errorf("events = %+v", events)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/runs", "", "")
	var runs []persistence.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != s.RunID {
		t.Errorf("runs = %+v", runs)
	}

	if err := s.DB.SaveStats(s.RunID, s.Sim); err != nil {
		t.Fatalf("save stats: %v", err)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/stats/history", "", "")
	var rows []persistence.StatsRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil || len(rows) != 1 {
		t.Errorf("history = %+v (%v)", rows, err)
	}
}

func TestRunDetailAndPastEvents(t *testing.T) {
	s, h := newTestServer(t)

	past := persistence.NewRun(1, config.Default())
	if err := s.DB.StartRun(past); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := s.DB.EndRun(past.ID, 900, "dead"); err != nil {
		t.Fatalf("end run: %v", err)
	}
	stored := []engine.Event{
		{Tick: 10, Description: "spawned", Category: engine.CategorySpawn},
		{Tick: 20, Description: "burst", Category: engine.CategoryBurst},
		{Tick: 30, Description: "spawned", Category: engine.CategorySpawn},
	}
	if err := s.DB.SaveEvents(past.ID, stored); err != nil {
		t.Fatalf("save events: %v", err)
	}

	rec := do(t, h, http.MethodGet, "/api/v1/runs/"+past.ID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("run code = %d body = %s", rec.Code, rec.Body)
	}
	var detail struct {
		Run     persistence.Run `json:"run"`
		Current bool            `json:"current"`
		Events  []engine.Event  `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Run.ID != past.ID || detail.Run.FinalState != "dead" || detail.Current {
		t.Errorf("run = %+v current=%v", detail.Run, detail.Current)
	}
	if len(detail.Events) != 3 || detail.Events[0].Tick != 30 {
		t.Errorf("events = %+v, want 3 newest first", detail.Events)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/runs/no-such-run", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing run code = %d, want 404", rec.Code)
	}

	// Past-run events read oldest first, like the live log, and filter.
	rec = do(t, h, http.MethodGet, "/api/v1/events?run="+past.ID+"&category=spawn", "", "")
	var events []engine.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 2 || events[0].Tick != 10 || events[1].Tick != 30 {
		t.Errorf("past events = %+v", events)
	}
}

func TestStreamAuth(t *testing.T) {
	s, h := newTestServer(t)
	if rec := do(t, h, http.MethodGet, "/api/v1/stream", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("code = %d, want 401", rec.Code)
	}
	s.RelayKey = ""
	if rec := do(t, h, http.MethodGet, "/api/v1/ws", "", testRelayKey); rec.Code != http.StatusForbidden {
		t.Errorf("code = %d, want 403", rec.Code)
	}
}

func TestSSECatchUp(t *testing.T) {
	s, h := newTestServer(t)
	s.Sim.RequestBurst()
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/stream", nil)
	req.Header.Set("Authorization", "Bearer "+testRelayKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(line) != "event: burst" {
		t.Errorf("first line = %q", line)
	}
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	_, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?rate=30&token=" + testRelayKey
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var snap engine.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Population != engine.InitialPopulation || snap.Width != 800 {
		t.Errorf("snapshot pop=%d width=%v", snap.Population, snap.Width)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests refused")
	}
	if rl.Allow("a") {
		t.Error("third request allowed")
	}
	if !rl.Allow("b") {
		t.Error("other client limited")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Errorf("retry after = %d, want 61", got)
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("not reset after window")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Errorf("remote = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := clientIP(r); got != "1.2.3.4" {
		t.Errorf("forwarded = %q", got)
	}
}
