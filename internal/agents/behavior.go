// Tendril behaviour: seek, hunt boost, spiralling orbit and immolation.
// Forces accumulate into Acceleration and are consumed once per Tick;
// ApplyImpulseOverride is the only path that writes Velocity directly.
package agents

import (
	"math/rand"

	"github.com/talgya/singularity/internal/world"
)

// AccumulateForce adds f to the pending acceleration.
func (t *Tendril) AccumulateForce(f world.Vec2) {
	t.Acceleration = t.Acceleration.Add(f)
}

// ApplyImpulseOverride replaces the current velocity with v. The next
// integration step starts from v.
func (t *Tendril) ApplyImpulseOverride(v world.Vec2) {
	t.Velocity = v
}

// AutoHunt points the tendril straight at target with a random speed in
// [AutoHuntMinSpeed, AutoHuntMaxSpeed]. Used at spawn time.
func (t *Tendril) AutoHunt(target world.Vec2, rng *rand.Rand) {
	speed := AutoHuntMinSpeed + rng.Float64()*(AutoHuntMaxSpeed-AutoHuntMinSpeed)
	t.ApplyImpulseOverride(target.Sub(t.Position).Unit().Scale(speed))
}

// Hunt primes a boosted seek for the next HuntBoostTicks frames.
func (t *Tendril) Hunt() {
	t.BoostTicks = HuntBoostTicks
}

// Orbit adds a radial pull toward target plus a tangential component of the
// same strength, which turns a direct approach into a spiral. Callers only
// invoke it while the tendril is within OrbitRadius.
func (t *Tendril) Orbit(target world.Vec2, pull float64) {
	radial := target.Sub(t.Position).Unit()
	tangent := radial.Perp()
	strength := pull * OrbitForce
	t.AccumulateForce(radial.Scale(strength))
	t.AccumulateForce(tangent.Scale(strength))
}

// StartImmolation ignites the tendril. Calling it again is a no-op.
func (t *Tendril) StartImmolation() bool {
	if t.Immolating || t.Dead {
		return false
	}
	t.Immolating = true
	t.ImmolateElapsed = 0
	return true
}

// Tick advances the tendril by one frame. delta is in milliseconds and only
// drives the immolation countdown; motion is integrated per frame.
func (t *Tendril) Tick(delta, aggression float64, target world.Vec2) {
	if t.Dead {
		return
	}

	if t.Immolating {
		t.ImmolateElapsed += delta
		if t.ImmolateElapsed > ImmolateDuration {
			t.Dead = true
		}
	} else {
		toTarget := target.Sub(t.Position)
		if toTarget.Len() > OrbitRadius {
			t.AccumulateForce(toTarget.Unit().Scale(SeekForce))
		}
		if t.BoostTicks > 0 {
			t.AccumulateForce(toTarget.Unit().Scale(BoostForce))
			t.BoostTicks--
		}

		t.Velocity = t.Velocity.Add(t.Acceleration).Limit(t.MaxSpeed * aggression)
		t.Position = t.Position.Add(t.Velocity)
		t.Acceleration = world.Vec2{}
	}

	t.Trail.Push(t.Position)
}
