// Package engine provides the frame-based simulation loop.
package engine

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// Frame schedule defaults.
const (
	DefaultFPS     = 60
	MaxFrameDelta  = 100.0 // ms, upper bound on one frame's timestep
	MsPerSimSecond = 1000.0
	SecondsPerMin  = 60

	pausePoll = 50 * time.Millisecond
)

// Engine drives the simulation forward with a fixed timestep of Interval.
// Speed shortens or stretches the wall time between frames; 0 pauses.
type Engine struct {
	Frame    uint64        // Current frame counter (monotonic, never resets)
	Interval time.Duration // Wall time between frames
	MaxDelta float64       // Upper bound on one frame's simulated ms

	// Callbacks for each layer, populated during setup.
	OnFrame  func(frame uint64, delta float64) // Every frame
	OnSecond func(frame uint64)                // Every simulated second
	OnMinute func(frame uint64)                // Every simulated minute
	OnIdle   func()                            // Every pause poll while speed is 0

	speed   atomic.Uint64 // float64 bits
	running atomic.Bool
	simMs   float64
	seconds uint64
}

// NewEngine creates an engine ticking fps times per wall-clock second.
func NewEngine(fps int) *Engine {
	if fps <= 0 {
		fps = DefaultFPS
	}
	e := &Engine{
		Interval: time.Second / time.Duration(fps),
		MaxDelta: MaxFrameDelta,
	}
	e.SetSpeed(1)
	return e
}

// Speed returns the time multiplier.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speed.Load())
}

// SetSpeed sets the time multiplier. Negative and NaN values pause.
func (e *Engine) SetSpeed(v float64) {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	e.speed.Store(math.Float64bits(v))
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run drives frames until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "frame", e.Frame, "speed", e.Speed(), "interval", e.Interval)

	frameMs := float64(e.Interval) / float64(time.Millisecond)
	for e.running.Load() {
		if ctx.Err() != nil {
			break
		}
		speed := e.Speed()
		if speed <= 0 {
			// Paused: no frames, but the engine goroutine stays available.
			if e.OnIdle != nil {
				e.OnIdle()
			}
			time.Sleep(pausePoll)
			continue
		}

		start := time.Now()

		e.Advance(frameMs)

		// Sleep for the remainder of the frame interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "frame", e.Frame)
}

// Stop halts the loop after the current frame.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Advance runs one frame of delta simulated ms and fires any layered
// callbacks whose boundary the frame crossed.
func (e *Engine) Advance(delta float64) {
	if delta < 0 || math.IsNaN(delta) {
		delta = 0
	}
	if e.MaxDelta > 0 && delta > e.MaxDelta {
		delta = e.MaxDelta
	}
	e.Frame++

	if e.OnFrame != nil {
		e.OnFrame(e.Frame, delta)
	}

	e.simMs += delta
	for e.simMs >= MsPerSimSecond {
		e.simMs -= MsPerSimSecond
		e.seconds++
		if e.OnSecond != nil {
			e.OnSecond(e.Frame)
		}
		if e.seconds%SecondsPerMin == 0 && e.OnMinute != nil {
			e.OnMinute(e.Frame)
		}
	}
}

// SimSeconds returns the number of whole simulated seconds elapsed.
func (e *Engine) SimSeconds() uint64 {
	return e.seconds
}
