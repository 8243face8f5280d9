// Restoring a simulation from a saved playfield.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/singularity/internal/agents"
	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/singularity"
	"github.com/talgya/singularity/internal/world"
)

// SavedState is the part of a simulation that survives a restart. Trails,
// the explosion display and held movement are not kept.
type SavedState struct {
	Tendrils    []*agents.Tendril
	Clock       EventClock
	Singularity *singularity.Singularity // nil = fresh singularity at the centre
	LastTick    uint64
	Elapsed     float64
}

// RestoreSimulation rebuilds a simulation from saved state on bounds.
// Positions are clamped onto the playfield, tendrils past PopulationCap are
// dropped, and newly spawned tendrils get IDs above every restored one.
func RestoreSimulation(bounds world.Bounds, seed int64, tuning *config.Live, saved SavedState) *Simulation {
	sing := singularity.New(bounds.Center())
	if saved.Singularity != nil {
		restored := *saved.Singularity
		if restored.State > singularity.Dead {
			restored.State = singularity.Healthy
		}
		if restored.Radius <= 0 {
			restored.Radius = singularity.BaseRadius
		}
		restored.Position = bounds.Clamp(restored.Position, restored.Radius)
		sing = &restored
	}

	spawner := agents.NewSpawner(seed, bounds)
	var maxID agents.TendrilID
	for _, t := range saved.Tendrils {
		if t.ID > maxID {
			maxID = t.ID
		}
		t.Position = bounds.Clamp(t.Position, 0)
		t.Acceleration = world.Vec2{}
		if t.MaxSpeed <= 0 {
			t.MaxSpeed = agents.BaseMaxSpeed
		}
	}
	spawner.SetNextID(maxID + 1)

	s := newSimulation(bounds, sing, NewPopulation(spawner), tuning)
	kept := s.Population.Add(saved.Tendrils...)
	s.Clock = saved.Clock
	s.LastTick = saved.LastTick
	s.Elapsed = saved.Elapsed
	s.OrbitCount = s.Population.ProximityCount(sing.Position, agents.OrbitRadius)

	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("the playfield was restored with %d tendrils", kept),
		Category:    CategoryState,
		Meta:        map[string]any{"tendrils": kept, "dropped": len(saved.Tendrils) - kept},
	})
	slog.Info("simulation restored", "tick", s.LastTick, "tendrils", kept, "state", sing.State.String(), "next_id", maxID+1)

	s.updateStats()
	s.publish()
	return s
}
