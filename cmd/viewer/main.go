// Command viewer runs a local simulation in a desktop window.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/talgya/singularity/internal/audio"
	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/entropy"
	"github.com/talgya/singularity/internal/render"
	"github.com/talgya/singularity/internal/render/window"
)

func main() {
	configPath := flag.String("config", "", "config file (.toml, .yaml or .yml)")
	mute := flag.Bool("mute", false, "disable sound")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config", "error", err)
	}

	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "viewer",
	})
	handler.SetLevel(log.Level(cfg.SlogLevel()))
	slog.SetDefault(slog.New(handler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed := entropy.ResolveSeed(ctx, cfg.Seed, entropy.NewClient(cfg.RandomKey))
	tuning := config.NewLive(cfg.Tuning)
	sim := engine.NewSimulation(cfg.Bounds(), seed, tuning)
	eng := engine.NewEngine(cfg.FPS)
	eng.OnFrame = func(_ uint64, delta float64) { sim.Step(delta) }
	eng.OnMinute = func(uint64) { sim.Report() }

	var cue render.Cue
	if !*mute {
		player := audio.NewPlayer()
		if err := player.Initialize(); err != nil {
			// Non-fatal, the viewer runs without sound.
			slog.Warn("audio unavailable", "error", err)
		} else {
			defer player.Close()
			cue = player
		}
	}

	go eng.Run(ctx)

	ctl := render.NewController(sim, eng, tuning)
	game := window.New(ctl, seed, cue)
	if err := game.Run("Singularity"); err != nil {
		slog.Error("viewer failed", "error", err)
		cancel()
		os.Exit(1)
	}
	eng.Stop()
}
