// Package persistence provides SQLite-based storage for runs, events,
// periodic statistics and the last saved playfield.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/singularity/internal/agents"
	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/singularity"
	"github.com/talgya/singularity/internal/world"
)

// DB wraps a SQLite connection.
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
		seed INTEGER NOT NULL,
		width REAL NOT NULL,
		height REAL NOT NULL,
		tuning_json TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL DEFAULT 0,
		last_tick INTEGER NOT NULL DEFAULT 0,
		final_state TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		meta_json TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		elapsed_ms REAL NOT NULL,
		state TEXT NOT NULL,
		population INTEGER NOT NULL,
		orbiting INTEGER NOT NULL,
		spawned INTEGER NOT NULL,
		pruned INTEGER NOT NULL,
		novas INTEGER NOT NULL,
		assimilations INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tendrils (
		id INTEGER PRIMARY KEY,
		run_id TEXT NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		vel_x REAL NOT NULL,
		vel_y REAL NOT NULL,
		boost_ticks INTEGER NOT NULL,
		immolating INTEGER NOT NULL,
		immolate_elapsed REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_stats_run ON stats(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one process lifetime of the simulation.
type Run struct {
	ID         string  `db:"id" json:"id"`
	Seed       int64   `db:"seed" json:"seed"`
	Width      float64 `db:"width" json:"width"`
	Height     float64 `db:"height" json:"height"`
	TuningJSON string  `db:"tuning_json" json:"tuning"`
	StartedAt  int64   `db:"started_at" json:"started_at"`
	EndedAt    int64   `db:"ended_at" json:"ended_at,omitempty"` // 0 while running
	LastTick   int64   `db:"last_tick" json:"last_tick"`
	FinalState string  `db:"final_state" json:"final_state,omitempty"`
}

// Started returns the run's start time.
func (r Run) Started() time.Time {
	return time.Unix(r.StartedAt, 0)
}

// NewRun describes a fresh run with a random ID.
func NewRun(seed int64, cfg config.Config) Run {
	tuning, _ := json.Marshal(cfg.Tuning)
	return Run{
		ID:         uuid.NewString(),
		Seed:       seed,
		Width:      cfg.Width,
		Height:     cfg.Height,
		TuningJSON: string(tuning),
		StartedAt:  time.Now().Unix(),
	}
}

// StartRun records a new run.
func (db *DB) StartRun(r Run) error {
	_, err := db.conn.NamedExec(`INSERT INTO runs
		(id, seed, width, height, tuning_json, started_at)
		VALUES (:id, :seed, :width, :height, :tuning_json, :started_at)`, r)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// EndRun stamps the run's end time, last frame and final singularity state.
func (db *DB) EndRun(id string, lastTick uint64, finalState string) error {
	_, err := db.conn.Exec(
		"UPDATE runs SET ended_at = ?, last_tick = ?, final_state = ? WHERE id = ?",
		time.Now().Unix(), int64(lastTick), finalState, id,
	)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	return runs, err
}

// GetRun loads one run by ID.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", id)
	return r, err
}

type eventRow struct {
	Tick        int64  `db:"tick"`
	Description string `db:"description"`
	Category    string `db:"category"`
	MetaJSON    string `db:"meta_json"`
}

// SaveEvents appends events to the database under runID.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		var meta []byte
		if len(e.Meta) > 0 {
			meta, _ = json.Marshal(e.Meta)
		}
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, description, category, meta_json) VALUES (?, ?, ?, ?, ?)",
			runID, int64(e.Tick), e.Description, e.Category, string(meta),
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		"SELECT tick, description, category, meta_json FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	if err != nil {
		return nil, err
	}

	events := make([]engine.Event, len(rows))
	for i, r := range rows {
		events[i] = engine.Event{
			Tick:        uint64(r.Tick),
			Description: r.Description,
			Category:    r.Category,
		}
		if r.MetaJSON != "" {
			if err := json.Unmarshal([]byte(r.MetaJSON), &events[i].Meta); err != nil {
				return nil, fmt.Errorf("decode meta for event at tick %d: %w", r.Tick, err)
			}
		}
	}
	return events, nil
}

// StatsRow is one periodic statistics sample.
type StatsRow struct {
	RunID         string  `db:"run_id" json:"run_id"`
	Tick          int64   `db:"tick" json:"tick"`
	ElapsedMs     float64 `db:"elapsed_ms" json:"elapsed_ms"`
	State         string  `db:"state" json:"state"`
	Population    int     `db:"population" json:"population"`
	Orbiting      int     `db:"orbiting" json:"orbiting"`
	Spawned       int     `db:"spawned" json:"spawned"`
	Pruned        int     `db:"pruned" json:"pruned"`
	Novas         int     `db:"novas" json:"novas"`
	Assimilations int     `db:"assimilations" json:"assimilations"`
	RecordedAt    int64   `db:"recorded_at" json:"recorded_at"`
}

// SaveStats records a statistics sample from the current simulation state.
func (db *DB) SaveStats(runID string, sim *engine.Simulation) error {
	row := StatsRow{
		RunID:         runID,
		Tick:          int64(sim.LastTick),
		ElapsedMs:     sim.Elapsed,
		State:         sim.Singularity.State.String(),
		Population:    sim.Stats.Population,
		Orbiting:      sim.OrbitCount,
		Spawned:       sim.Stats.Spawned,
		Pruned:        sim.Stats.Pruned,
		Novas:         sim.Stats.Novas,
		Assimilations: sim.Stats.Assimilations,
		RecordedAt:    time.Now().Unix(),
	}
	_, err := db.conn.NamedExec(`INSERT INTO stats
		(run_id, tick, elapsed_ms, state, population, orbiting, spawned, pruned,
		 novas, assimilations, recorded_at)
		VALUES (:run_id, :tick, :elapsed_ms, :state, :population, :orbiting, :spawned,
		 :pruned, :novas, :assimilations, :recorded_at)`, row)
	return err
}

// StatsHistory returns up to limit samples of a run, oldest first.
func (db *DB) StatsHistory(runID string, limit int) ([]StatsRow, error) {
	var rows []StatsRow
	err := db.conn.Select(&rows, `SELECT run_id, tick, elapsed_ms, state, population,
		orbiting, spawned, pruned, novas, assimilations, recorded_at
		FROM (SELECT * FROM stats WHERE run_id = ? ORDER BY id DESC LIMIT ?)
		ORDER BY tick ASC`, runID, limit)
	return rows, err
}

// SaveTendrils writes the live population (full replace).
func (db *DB) SaveTendrils(runID string, sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tendrils"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO tendrils
		(id, run_id, pos_x, pos_y, vel_x, vel_y, boost_ticks, immolating, immolate_elapsed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range sim.Population.All() {
		immolating := 0
		if t.Immolating {
			immolating = 1
		}
		_, err := stmt.Exec(
			int64(t.ID), runID,
			t.Position.X, t.Position.Y, t.Velocity.X, t.Velocity.Y,
			t.BoostTicks, immolating, t.ImmolateElapsed,
		)
		if err != nil {
			return fmt.Errorf("insert tendril %d: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// CountTendrils returns how many tendrils the last save stored.
func (db *DB) CountTendrils() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM tendrils")
	return n, err
}

// SaveMeta stores a key-value pair in metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState performs a full save: pending events, the population,
// the clock and singularity, and the last frame number.
func (db *DB) SaveWorldState(runID string, sim *engine.Simulation) error {
	slog.Info("saving world state", "run", runID, "tendrils", sim.Population.Len(), "tick", sim.CurrentTick())

	if err := db.SaveEvents(runID, sim.DrainPending()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveTendrils(runID, sim); err != nil {
		return fmt.Errorf("save tendrils: %w", err)
	}
	clock, err := json.Marshal(sim.Clock)
	if err != nil {
		return fmt.Errorf("encode clock: %w", err)
	}
	if err := db.SaveMeta("clock", string(clock)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	sing, err := json.Marshal(sim.Singularity)
	if err != nil {
		return fmt.Errorf("encode singularity: %w", err)
	}
	if err := db.SaveMeta("singularity", string(sing)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_tick", strconv.FormatUint(sim.CurrentTick(), 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("elapsed_ms", strconv.FormatFloat(sim.Elapsed, 'f', -1, 64)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_run", runID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved")
	return nil
}

// HasWorldState reports whether a full save exists to restore from.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta("singularity")
	return err == nil
}

type tendrilRow struct {
	ID              int64   `db:"id"`
	PosX            float64 `db:"pos_x"`
	PosY            float64 `db:"pos_y"`
	VelX            float64 `db:"vel_x"`
	VelY            float64 `db:"vel_y"`
	BoostTicks      int     `db:"boost_ticks"`
	Immolating      int     `db:"immolating"`
	ImmolateElapsed float64 `db:"immolate_elapsed"`
}

// LoadTendrils reads the saved population in ID order.
func (db *DB) LoadTendrils() ([]*agents.Tendril, error) {
	var rows []tendrilRow
	err := db.conn.Select(&rows, `SELECT id, pos_x, pos_y, vel_x, vel_y, boost_ticks,
		immolating, immolate_elapsed FROM tendrils ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query tendrils: %w", err)
	}

	out := make([]*agents.Tendril, len(rows))
	for i, r := range rows {
		t := agents.New(agents.TendrilID(r.ID), world.V(r.PosX, r.PosY))
		t.Velocity = world.V(r.VelX, r.VelY)
		t.BoostTicks = r.BoostTicks
		t.Immolating = r.Immolating != 0
		t.ImmolateElapsed = r.ImmolateElapsed
		out[i] = t
	}
	return out, nil
}

// LoadClock reads the saved event clock.
func (db *DB) LoadClock() (engine.EventClock, error) {
	var clock engine.EventClock
	raw, err := db.GetMeta("clock")
	if err != nil {
		return clock, fmt.Errorf("get clock: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &clock); err != nil {
		return clock, fmt.Errorf("decode clock: %w", err)
	}
	return clock, nil
}

// LoadSingularity reads the saved singularity.
func (db *DB) LoadSingularity() (*singularity.Singularity, error) {
	raw, err := db.GetMeta("singularity")
	if err != nil {
		return nil, fmt.Errorf("get singularity: %w", err)
	}
	var sing singularity.Singularity
	if err := json.Unmarshal([]byte(raw), &sing); err != nil {
		return nil, fmt.Errorf("decode singularity: %w", err)
	}
	return &sing, nil
}

// LoadWorldState reads everything SaveWorldState wrote.
func (db *DB) LoadWorldState() (engine.SavedState, error) {
	var st engine.SavedState
	var err error

	if st.Tendrils, err = db.LoadTendrils(); err != nil {
		return st, err
	}
	if st.Clock, err = db.LoadClock(); err != nil {
		return st, err
	}
	if st.Singularity, err = db.LoadSingularity(); err != nil {
		return st, err
	}
	if v, err := db.GetMeta("last_tick"); err == nil {
		if tick, err := strconv.ParseUint(v, 10, 64); err == nil {
			st.LastTick = tick
		}
	}
	if v, err := db.GetMeta("elapsed_ms"); err == nil {
		if ms, err := strconv.ParseFloat(v, 64); err == nil {
			st.Elapsed = ms
		}
	}
	return st, nil
}
