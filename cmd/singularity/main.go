// Command singularity runs the headless tendril simulation with its HTTP API
// and SQLite run history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/singularity/internal/api"
	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/entropy"
	"github.com/talgya/singularity/internal/persistence"
)

func main() {
	configPath := flag.String("config", "", "config file (.toml, .yaml or .yml)")
	fresh := flag.Bool("fresh", false, "ignore the saved playfield and start over")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Singularity: tendril simulation")
	slog.Info("tuning",
		"aggression", cfg.Tuning.Aggression,
		"gravity_pull", cfg.Tuning.GravityPull,
		"movement_speed", cfg.Tuning.MovementSpeed,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Seed ──────────────────────────────────────────────────────────
	seedCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	seed := entropy.ResolveSeed(seedCtx, cfg.Seed, entropy.NewClient(cfg.RandomKey))
	cancel()

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("failed to create data directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	run := persistence.NewRun(seed, cfg)
	if err := db.StartRun(run); err != nil {
		slog.Error("failed to record run", "error", err)
		os.Exit(1)
	}

	// ── Simulation ────────────────────────────────────────────────────
	tuning := config.NewLive(cfg.Tuning)
	var sim *engine.Simulation
	if !*fresh && db.HasWorldState() {
		slog.Info("found saved playfield, loading...")
		saved, err := db.LoadWorldState()
		if err != nil {
			slog.Error("failed to load playfield", "error", err)
			os.Exit(1)
		}
		if lastRun, err := db.GetMeta("last_run"); err == nil {
			slog.Info("continuing from run", "run", lastRun)
		}
		sim = engine.RestoreSimulation(cfg.Bounds(), seed, tuning, saved)
	} else {
		slog.Info("starting a fresh playfield")
		sim = engine.NewSimulation(cfg.Bounds(), seed, tuning)
	}
	eng := engine.NewEngine(cfg.FPS)

	apiServer := &api.Server{
		Sim:       sim,
		Eng:       eng,
		Tuning:    tuning,
		DB:        db,
		RunID:     run.ID,
		StartedAt: run.Started(),
		Port:      cfg.APIPort,
		AdminKey:  cfg.AdminKey,
		RelayKey:  cfg.RelayKey,
	}
	if cfg.AdminKey == "" {
		slog.Warn("SINGULARITY_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}

	// Wire frame callbacks. All of them run on the engine goroutine, which
	// owns the simulation.
	eng.OnFrame = func(_ uint64, delta float64) {
		sim.Step(delta)
		apiServer.HandlePendingSave()
	}
	eng.OnIdle = apiServer.HandlePendingSave
	eng.OnSecond = func(uint64) {
		if cfg.StatsEvery > 0 && eng.SimSeconds()%uint64(cfg.StatsEvery) == 0 {
			if err := db.SaveStats(run.ID, sim); err != nil {
				slog.Error("stats save failed", "error", err)
			}
		}
	}
	eng.OnMinute = func(uint64) {
		sim.Report()
		if err := db.SaveEvents(run.ID, sim.DrainPending()); err != nil {
			slog.Error("event flush failed", "error", err)
		}
	}

	apiServer.Start()

	fmt.Printf("\nSingularity is alive: %d tendrils on a %.0fx%.0f field (seed %d).\n",
		sim.Population.Len(), cfg.Width, cfg.Height, seed)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	// ── Shutdown ──────────────────────────────────────────────────────
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	slog.Info("final save...")
	if err := db.SaveWorldState(run.ID, sim); err != nil {
		slog.Error("final save failed", "error", err)
	}
	if err := db.EndRun(run.ID, sim.CurrentTick(), sim.Singularity.State.String()); err != nil {
		slog.Error("failed to close run", "error", err)
	}

	fmt.Println("Simulation stopped. Run saved.")
}
