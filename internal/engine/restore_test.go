package engine

import (
	"testing"

	"github.com/talgya/singularity/internal/agents"
	"github.com/talgya/singularity/internal/singularity"
	"github.com/talgya/singularity/internal/world"
)

func TestRestoreSimulation(t *testing.T) {
	bounds := world.Bounds{Width: 800, Height: 600}
	sing := singularity.New(world.V(900, 300)) // off the field
	sing.State = singularity.Dead
	sing.RespawnElapsed = 1500

	saved := SavedState{
		Tendrils: []*agents.Tendril{
			agents.New(4, world.V(100, 100)),
			agents.New(17, world.V(-30, 700)),
			agents.New(9, world.V(400, 300)),
		},
		Clock:       EventClock{Nova: 1200, Abyss: 0, NovaCooldown: 300},
		Singularity: sing,
		LastTick:    5000,
		Elapsed:     83000,
	}
	saved.Tendrils[1].Immolating = true
	saved.Tendrils[1].ImmolateElapsed = 500

	s := RestoreSimulation(bounds, 1, nil, saved)

	if s.Population.Len() != 3 || s.LastTick != 5000 || s.Elapsed != 83000 {
		t.Fatalf("len=%d tick=%d elapsed=%v", s.Population.Len(), s.LastTick, s.Elapsed)
	}
	if s.Clock != saved.Clock {
		t.Errorf("clock = %+v, want %+v", s.Clock, saved.Clock)
	}
	if s.Singularity.State != singularity.Dead || s.Singularity.RespawnElapsed != 1500 {
		t.Errorf("singularity = %+v", s.Singularity)
	}
	if !bounds.Contains(s.Singularity.Position) {
		t.Errorf("singularity at %v, outside the field", s.Singularity.Position)
	}
	for _, tr := range s.Population.All() {
		if !bounds.Contains(tr.Position) {
			t.Errorf("tendril %d at %v, outside the field", tr.ID, tr.Position)
		}
	}
	if !s.Population.All()[1].Immolating {
		t.Error("immolation not kept")
	}
	if snap := s.Latest(); snap == nil || snap.Tick != 5000 {
		t.Errorf("snapshot not published for the restored frame")
	}

	// New tendrils continue past the highest restored ID.
	s.Population.Spawn(2, s.Singularity.Position)
	all := s.Population.All()
	if all[3].ID != 18 || all[4].ID != 19 {
		t.Errorf("new IDs = %d, %d, want 18, 19", all[3].ID, all[4].ID)
	}
}

func TestRestoreSimulationClipsToCap(t *testing.T) {
	bounds := world.Bounds{Width: 800, Height: 600}
	var saved SavedState
	for i := 1; i <= PopulationCap+5; i++ {
		saved.Tendrils = append(saved.Tendrils, agents.New(agents.TendrilID(i), world.V(10, 10)))
	}

	s := RestoreSimulation(bounds, 1, nil, saved)
	if s.Population.Len() != PopulationCap {
		t.Errorf("len = %d, want %d", s.Population.Len(), PopulationCap)
	}
	if s.Singularity.Position != bounds.Center() || s.Singularity.State != singularity.Healthy {
		t.Errorf("missing singularity should start fresh at the centre, got %+v", s.Singularity)
	}
	events := s.RecentEvents(0)
	if len(events) != 1 || events[0].Meta["dropped"] != 5 {
		t.Errorf("restore event = %+v", events)
	}

	s.Step(16)
	if s.LastTick != 1 {
		t.Errorf("tick after step = %d", s.LastTick)
	}
}
