package engine

import (
	"github.com/talgya/singularity/internal/singularity"
)

// Event clock thresholds, in milliseconds unless noted.
const (
	NovaInterval         = 3500.0
	HuntInterval         = 5000.0
	SpawnInterval        = 5000.0
	NovaCooldownDuration = 10000.0
	DeathBurstInterval   = 300.0

	SpawnBatch        = 10 // tendrils per spawn firing
	DeathBurstRepeats = 5  // death pulses per collapse
	AutoNovaCap       = 5  // tendrils ignited per automatic nova
	MinAbyssOrbiters  = 3  // orbiters needed to build abyss pressure
)

// EventClock is the set of independent accumulating timers. It is a plain
// value: Advance returns the next clock instead of mutating shared state.
type EventClock struct {
	Nova         float64 `json:"nova"`
	Hunt         float64 `json:"hunt"`
	Spawn        float64 `json:"spawn"`
	NovaCooldown float64 `json:"nova_cooldown"`
	Abyss        float64 `json:"abyss"`

	DeathBurstRemaining int     `json:"death_burst_remaining"`
	DeathBurst          float64 `json:"death_burst"`
}

// ClockInput is the population and singularity state the clock reads.
type ClockInput struct {
	Healthy    bool // singularity is healthy
	Collapsing bool // singularity is assimilating or dead
	Orbiting   int  // tendrils within the orbit radius
}

// Firings lists the effects crossed thresholds request this tick.
type Firings struct {
	Spawn       bool
	Hunt        bool
	Nova        bool
	Assimilate  bool
	DeathPulses int
}

// Any reports whether anything fired.
func (f Firings) Any() bool {
	return f.Spawn || f.Hunt || f.Nova || f.Assimilate || f.DeathPulses > 0
}

// Advance moves every timer forward by delta ms. A timer that reaches its
// threshold resets to zero and reports a firing. The automatic nova never
// consults NovaCooldown.
func (c EventClock) Advance(delta float64, in ClockInput) (EventClock, Firings) {
	var f Firings

	c.NovaCooldown -= delta
	if c.NovaCooldown < 0 {
		c.NovaCooldown = 0
	}

	c.Spawn += delta
	if c.Spawn >= SpawnInterval {
		c.Spawn = 0
		f.Spawn = true
	}

	c.Hunt += delta
	if c.Hunt >= HuntInterval {
		c.Hunt = 0
		f.Hunt = true
	}

	c.Nova += delta
	if c.Nova >= NovaInterval {
		c.Nova = 0
		f.Nova = true
	}

	if in.Healthy && in.Orbiting >= MinAbyssOrbiters {
		c.Abyss += delta
		if c.Abyss >= singularity.AbyssThreshold {
			c.Abyss = 0
			f.Assimilate = true
		}
	} else {
		c.Abyss = 0
	}

	if in.Collapsing && c.DeathBurstRemaining > 0 {
		c.DeathBurst += delta
		if c.DeathBurst >= DeathBurstInterval {
			c.DeathBurst = 0
			c.DeathBurstRemaining--
			f.DeathPulses++
		}
	}

	return c, f
}

// ArmDeathBurst schedules the death pulses that accompany a collapse.
func (c *EventClock) ArmDeathBurst() {
	c.DeathBurstRemaining = DeathBurstRepeats
	c.DeathBurst = 0
}

// CooldownReady reports whether a manual nova may fire.
func (c EventClock) CooldownReady() bool {
	return c.NovaCooldown <= 0
}

// StartCooldown blocks manual novas for NovaCooldownDuration.
func (c *EventClock) StartCooldown() {
	c.NovaCooldown = NovaCooldownDuration
}
