package render

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/engine"
)

// Command is a decoded keyboard command, independent of the input backend.
type Command uint8

const (
	CmdNone Command = iota
	CmdHunt
	CmdBurst
	CmdNova
	CmdAggressionDown
	CmdAggressionUp
	CmdGravityDown
	CmdGravityUp
	CmdPause
	CmdQuit
)

// Tuning step per key press.
const (
	AggressionStep = 0.1
	GravityStep    = 0.1
)

// CommandForRune maps the shared key layout onto commands.
func CommandForRune(r rune) Command {
	switch r {
	case 'h', 'H':
		return CmdHunt
	case 'b', 'B':
		return CmdBurst
	case 'n', 'N':
		return CmdNova
	case '[':
		return CmdAggressionDown
	case ']':
		return CmdAggressionUp
	case '-':
		return CmdGravityDown
	case '=', '+':
		return CmdGravityUp
	case 'p', 'P':
		return CmdPause
	case 'q', 'Q':
		return CmdQuit
	}
	return CmdNone
}

// Controller turns frontend input into simulation intents, tuning edits and
// engine speed changes. It is used from the frontend's goroutine only.
type Controller struct {
	Sim    *engine.Simulation
	Engine *engine.Engine
	Tuning *config.Live

	move       engine.Movement
	pausedFrom float64 // speed to restore on unpause, 0 while running
}

// NewController creates a controller for a locally running simulation.
func NewController(sim *engine.Simulation, eng *engine.Engine, tuning *config.Live) *Controller {
	return &Controller{Sim: sim, Engine: eng, Tuning: tuning}
}

// Do applies cmd. It returns false when the frontend should quit.
func (c *Controller) Do(cmd Command) bool {
	switch cmd {
	case CmdHunt:
		c.Sim.Submit(engine.Intent{Kind: engine.IntentHunt})
	case CmdBurst:
		c.Sim.Submit(engine.Intent{Kind: engine.IntentBurst})
	case CmdNova:
		c.Sim.Submit(engine.Intent{Kind: engine.IntentNova})
	case CmdAggressionDown, CmdAggressionUp:
		step := AggressionStep
		if cmd == CmdAggressionDown {
			step = -step
		}
		t := c.Tuning.Update(func(t *config.Tuning) { t.Aggression += step })
		slog.Debug("aggression changed", "aggression", t.Aggression)
	case CmdGravityDown, CmdGravityUp:
		step := GravityStep
		if cmd == CmdGravityDown {
			step = -step
		}
		t := c.Tuning.Update(func(t *config.Tuning) { t.GravityPull += step })
		slog.Debug("gravity changed", "gravity_pull", t.GravityPull)
	case CmdPause:
		c.TogglePause()
	case CmdQuit:
		return false
	}
	return true
}

// TogglePause stops or restores the engine speed.
func (c *Controller) TogglePause() {
	if c.pausedFrom > 0 {
		c.Engine.SetSpeed(c.pausedFrom)
		c.pausedFrom = 0
		return
	}
	c.pausedFrom = c.Engine.Speed()
	if c.pausedFrom <= 0 {
		c.pausedFrom = 1
	}
	c.Engine.SetSpeed(0)
}

// Paused reports whether the controller paused the engine.
func (c *Controller) Paused() bool {
	return c.pausedFrom > 0
}

// Move sets the held movement, submitting only when it changed.
func (c *Controller) Move(m engine.Movement) {
	if m == c.move {
		return
	}
	if c.Sim.Submit(engine.Intent{Kind: engine.IntentMove, Move: m}) {
		c.move = m
	}
}

// HUD returns the overlay text lines for a snapshot.
func HUD(snap *engine.Snapshot, t config.Tuning, paused bool) []string {
	if snap == nil {
		return []string{"waiting for first frame..."}
	}
	status := snap.Singular.State
	if paused {
		status += " (paused)"
	}
	nova := "ready"
	if !snap.NovaReady {
		nova = fmt.Sprintf("%.1fs", snap.Meters.Cooldown.Value/1000)
	}
	elapsed := (time.Duration(snap.Elapsed) * time.Millisecond).Truncate(time.Second)
	return []string{
		fmt.Sprintf("tick %s  %s  %s", humanize.Comma(int64(snap.Tick)), elapsed, status),
		fmt.Sprintf("health %3.0f%% (%s)  orbiting %d  tendrils %d",
			snap.Singular.Health*100, snap.Singular.Band, snap.OrbitCount, snap.Population),
		fmt.Sprintf("nova %s  novas %d  bursts %d  assimilations %d",
			nova, snap.Stats.Novas, snap.Stats.Bursts, snap.Stats.Assimilations),
		fmt.Sprintf("aggression %.1f  gravity %.1f  move %.2f",
			t.Aggression, t.GravityPull, t.MovementSpeed),
		"move: arrows/WASD  H hunt  B burst  N nova  [ ] aggr  - = grav  P pause  Q quit",
	}
}

// Gauge is a labelled meter for the HUD bars.
type Gauge struct {
	Label    string
	Fraction float64
}

// Gauges lists the six timer meters in display order.
func Gauges(snap *engine.Snapshot) []Gauge {
	if snap == nil {
		return nil
	}
	m := snap.Meters
	return []Gauge{
		{"nova", m.Nova.Fraction()},
		{"abyss", m.Abyss.Fraction()},
		{"hunt", m.Hunt.Fraction()},
		{"cooldown", m.Cooldown.Fraction()},
		{"spawn", m.Spawn.Fraction()},
		{"death", m.DeathBurst.Fraction()},
	}
}
