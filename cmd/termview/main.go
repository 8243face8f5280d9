// Command termview runs a local simulation in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/singularity/internal/audio"
	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/entropy"
	"github.com/talgya/singularity/internal/render"
	"github.com/talgya/singularity/internal/render/term"
)

func main() {
	configPath := flag.String("config", "", "config file (.toml, .yaml or .yml)")
	logPath := flag.String("log", "termview.log", "log file (the terminal is taken by the view)")
	sound := flag.Bool("sound", false, "enable sound")
	flag.Parse()

	if err := run(*configPath, *logPath, *sound); err != nil {
		fmt.Fprintln(os.Stderr, "termview:", err)
		os.Exit(1)
	}
}

func run(configPath, logPath string, sound bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed := entropy.ResolveSeed(ctx, cfg.Seed, entropy.NewClient(cfg.RandomKey))
	tuning := config.NewLive(cfg.Tuning)
	sim := engine.NewSimulation(cfg.Bounds(), seed, tuning)
	eng := engine.NewEngine(cfg.FPS)
	eng.OnFrame = func(_ uint64, delta float64) { sim.Step(delta) }
	eng.OnMinute = func(uint64) { sim.Report() }

	var cue render.Cue
	if sound {
		player := audio.NewPlayer()
		if err := player.Initialize(); err != nil {
			slog.Warn("audio unavailable", "error", err)
		} else {
			defer player.Close()
			cue = player
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	go eng.Run(ctx)
	defer eng.Stop()

	view := term.New(screen, render.NewController(sim, eng, tuning), cue)
	// Terminals redraw at most 30 times a second.
	if err := view.Run(ctx, min(cfg.FPS, 30)); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run view: %w", err)
	}
	if snap := sim.Latest(); snap != nil {
		slog.Info("termview stopped", "tick", snap.Tick)
	}
	return nil
}
