// Population management: spawning under the cap, proximity queries and
// once-per-tick pruning of dead tendrils.
package engine

import (
	"github.com/talgya/singularity/internal/agents"
	"github.com/talgya/singularity/internal/world"
)

// Population limits and the burst push.
const (
	InitialPopulation = 20
	PopulationCap     = 50

	PushSpeed  = 5.0 // baseline outward push
	BurstBoost = 1.3 // burst is 30% stronger than the baseline push
	BurstSpeed = PushSpeed * BurstBoost
)

// Population owns tendril lifetime. Iteration order is insertion order.
type Population struct {
	tendrils []*agents.Tendril
	spawner  *agents.Spawner
}

// NewPopulation creates an empty population fed by spawner.
func NewPopulation(spawner *agents.Spawner) *Population {
	return &Population{
		tendrils: make([]*agents.Tendril, 0, PopulationCap),
		spawner:  spawner,
	}
}

// Len returns the number of tendrils, dead or alive, not yet pruned.
func (p *Population) Len() int {
	return len(p.tendrils)
}

// All returns the live backing slice in insertion order. Callers must not
// append to or reorder it.
func (p *Population) All() []*agents.Tendril {
	return p.tendrils
}

// Room returns how many more tendrils fit under the cap.
func (p *Population) Room() int {
	if r := PopulationCap - len(p.tendrils); r > 0 {
		return r
	}
	return 0
}

// Add inserts existing tendrils, clipped to the cap. Returns how many were added.
func (p *Population) Add(ts ...*agents.Tendril) int {
	n := len(ts)
	if room := p.Room(); n > room {
		n = room
	}
	p.tendrils = append(p.tendrils, ts[:n]...)
	return n
}

// Spawn creates up to n edge-spawned tendrils auto-hunting target, never
// exceeding PopulationCap. Returns how many were created.
func (p *Population) Spawn(n int, target world.Vec2) int {
	if room := p.Room(); n > room {
		n = room
	}
	if n <= 0 || p.spawner == nil {
		return 0
	}
	return p.Add(p.spawner.SpawnHunting(n, target)...)
}

// ProximityCount returns how many tendrils are strictly closer than radius
// to point.
func (p *Population) ProximityCount(point world.Vec2, radius float64) int {
	n := 0
	for _, t := range p.tendrils {
		if t.Position.Dist(point) < radius {
			n++
		}
	}
	return n
}

// ApplyToOrbiting calls fn on every tendril within radius of point, in
// insertion order. fn reports whether it affected the tendril; iteration stops
// once limit tendrils were affected (limit <= 0 means no limit). Returns the
// number affected.
func (p *Population) ApplyToOrbiting(point world.Vec2, radius float64, limit int, fn func(*agents.Tendril) bool) int {
	affected := 0
	for _, t := range p.tendrils {
		if limit > 0 && affected >= limit {
			break
		}
		if t.Position.Dist(point) >= radius {
			continue
		}
		if fn(t) {
			affected++
		}
	}
	return affected
}

// HuntAll primes the hunt boost on every tendril.
func (p *Population) HuntAll() {
	for _, t := range p.tendrils {
		t.Hunt()
	}
}

// Ignite starts immolation on orbiting tendrils that are not already
// immolating, stopping after limit (0 = all).
func (p *Population) Ignite(point world.Vec2, limit int) int {
	return p.ApplyToOrbiting(point, agents.OrbitRadius, limit, func(t *agents.Tendril) bool {
		return t.StartImmolation()
	})
}

// Repel overrides the velocity of every orbiting tendril with an outward
// push of BurstSpeed.
func (p *Population) Repel(center world.Vec2) int {
	return p.ApplyToOrbiting(center, agents.OrbitRadius, 0, func(t *agents.Tendril) bool {
		out := t.Position.Sub(center).Unit()
		if out.IsZero() {
			out = world.V(1, 0)
		}
		t.ApplyImpulseOverride(out.Scale(BurstSpeed))
		return true
	})
}

// Prune removes dead tendrils in place, preserving order. Returns how many
// were removed.
func (p *Population) Prune() int {
	kept := p.tendrils[:0]
	for _, t := range p.tendrils {
		if !t.Dead {
			kept = append(kept, t)
		}
	}
	removed := len(p.tendrils) - len(kept)
	for i := len(kept); i < len(p.tendrils); i++ {
		p.tendrils[i] = nil
	}
	p.tendrils = kept
	return removed
}
