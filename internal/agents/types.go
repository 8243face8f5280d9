// Package agents provides the tendril model: steering, physics, trail and
// the immolation life-cycle. Tendrils never interact with each other; the
// only shared input they read is the singularity's position.
package agents

import (
	"github.com/talgya/singularity/internal/world"
)

// TendrilID is a unique identifier for a tendril, issued in spawn order.
type TendrilID uint64

// Tuning constants for tendril motion. Forces are per-frame accelerations in
// canvas units; durations are milliseconds.
const (
	OrbitRadius      = 50.0   // Distance under which a tendril counts as orbiting
	TrailCapacity    = 20     // Past positions kept for rendering
	HuntBoostTicks   = 30     // Frames of boosted seek after a hunt
	ImmolateDuration = 2000.0 // ms from ignition to removal

	BaseMaxSpeed = 2.0  // Velocity cap before the aggression multiplier
	SeekForce    = 0.05 // Constant pull toward the singularity outside orbit
	BoostForce   = 0.25 // Extra pull while a hunt boost is active
	OrbitForce   = 0.05 // Radial and tangential orbit force per unit of gravity pull

	AutoHuntMinSpeed = 1.0
	AutoHuntMaxSpeed = 2.0
)

// Tendril is a single pursuing agent.
type Tendril struct {
	ID TendrilID `json:"id"`

	// Motion
	Position     world.Vec2 `json:"position"`
	Velocity     world.Vec2 `json:"velocity"`
	Acceleration world.Vec2 `json:"-"` // Cleared after every integration step
	MaxSpeed     float64    `json:"max_speed"`

	Trail      Trail `json:"-"`
	BoostTicks int   `json:"boost_ticks"`

	// Life-cycle
	Immolating      bool    `json:"immolating"`
	ImmolateElapsed float64 `json:"immolate_elapsed"`
	Dead            bool    `json:"dead"`
}

// New creates an idle tendril at pos.
func New(id TendrilID, pos world.Vec2) *Tendril {
	return &Tendril{
		ID:       id,
		Position: pos,
		MaxSpeed: BaseMaxSpeed,
	}
}

// ImmolationPhase reports immolation progress in [0,1]; 0 while active.
func (t *Tendril) ImmolationPhase() float64 {
	if !t.Immolating {
		return 0
	}
	p := t.ImmolateElapsed / ImmolateDuration
	if p > 1 {
		return 1
	}
	return p
}

// InOrbit reports whether the tendril is strictly within OrbitRadius of p.
func (t *Tendril) InOrbit(p world.Vec2) bool {
	return t.Position.Dist(p) < OrbitRadius
}
