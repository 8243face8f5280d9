// Command keeper runs the autonomous steward for a singularity server.
// It observes the simulation, triages the danger of assimilation, and
// fires hunts, bursts and novas via the admin action API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/talgya/singularity/internal/keeper"
)

func main() {
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "keeper",
		Level:           log.InfoLevel,
	})
	slog.SetDefault(slog.New(handler))

	// Configuration from environment.
	apiURL := envOrDefault("SINGULARITY_API_URL", "http://localhost:8080")
	adminKey := os.Getenv("SINGULARITY_ADMIN_KEY")
	memoryPath := envOrDefault("KEEPER_MEMORY", "keeper_memory.json")
	intervalSec := envIntOrDefault("KEEPER_INTERVAL", 5)

	if adminKey == "" {
		slog.Error("SINGULARITY_ADMIN_KEY is required")
		os.Exit(1)
	}

	interval := time.Duration(intervalSec) * time.Second

	slog.Info("singularity keeper starting",
		"api_url", apiURL,
		"interval", interval,
		"memory", memoryPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observer := keeper.NewObserver(apiURL)
	actor := keeper.NewActor(apiURL, adminKey)
	mem := keeper.LoadMemory(memoryPath)

	slog.Info("waiting for singularity API...")
	if err := waitForAPI(ctx, apiURL); err != nil {
		slog.Error("API never became ready", "error", err)
		os.Exit(1)
	}

	runCycle(ctx, observer, actor, mem)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(ctx, observer, actor, mem)
		case <-ctx.Done():
			slog.Info("received signal, shutting down")
			mem.Save()
			fmt.Println("Keeper stopped.")
			return
		}
	}
}

// runCycle executes one observe, triage, decide, act cycle.
func runCycle(ctx context.Context, observer *keeper.Observer, actor *keeper.Actor, mem *keeper.CycleMemory) {
	obs, err := observer.Observe(ctx)
	if err != nil {
		slog.Error("observation failed", "error", err)
		return
	}

	a := keeper.Triage(obs)
	d := keeper.Decide(a, mem)
	slog.Debug("cycle",
		"tick", obs.Status.Tick,
		"level", a.Level,
		"health", fmt.Sprintf("%.2f", a.Health),
		"orbiting", a.Orbiting,
		"action", d.Action,
	)

	record := keeper.CycleRecord{
		Tick:      obs.Status.Tick,
		Action:    d.Action,
		Level:     a.Level,
		Health:    a.Health,
		Orbiting:  a.Orbiting,
		Rationale: d.Rationale,
	}

	if d.Action == keeper.ActionNone {
		mem.Record(record)
		return
	}

	result, err := actor.Act(ctx, d)
	if err != nil {
		slog.Error("action failed", "action", d.Action, "error", err)
		record.Action = keeper.ActionNone
		mem.Record(record)
		return
	}
	mem.Record(record)
	mem.Save()

	slog.Info("action taken",
		"action", result.Action,
		"level", a.Level,
		"rationale", d.Rationale,
	)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds, giving up after 5 minutes.
func waitForAPI(ctx context.Context, apiURL string) error {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/api/v1/status", nil)
		if err != nil {
			return fmt.Errorf("build status request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("singularity API is ready")
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("not ready within 5 minutes")
		}
		slog.Info("singularity not ready, retrying...", "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
