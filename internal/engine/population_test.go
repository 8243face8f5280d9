package engine

import (
	"testing"

	"github.com/talgya/singularity/internal/agents"
	"github.com/talgya/singularity/internal/world"
)

func newTestPopulation() *Population {
	return NewPopulation(agents.NewSpawner(7, world.Bounds{Width: 800, Height: 600}))
}

func TestSpawnClipsToCap(t *testing.T) {
	p := newTestPopulation()
	target := world.V(400, 300)

	if n := p.Spawn(48, target); n != 48 {
		t.Fatalf("spawned %d, want 48", n)
	}
	if n := p.Spawn(45, target); n != 2 {
		t.Errorf("spawned %d at 48, want 2", n)
	}
	if p.Len() != PopulationCap {
		t.Errorf("len = %d, want %d", p.Len(), PopulationCap)
	}
	if n := p.Spawn(10, target); n != 0 {
		t.Errorf("spawned %d at cap, want 0", n)
	}
}

func TestSpawnedTendrilsHuntTarget(t *testing.T) {
	p := newTestPopulation()
	target := world.V(400, 300)
	p.Spawn(10, target)

	for _, tr := range p.All() {
		speed := tr.Velocity.Len()
		if speed < agents.AutoHuntMinSpeed-1e-9 || speed > agents.AutoHuntMaxSpeed+1e-9 {
			t.Errorf("tendril %d speed %v outside auto-hunt range", tr.ID, speed)
		}
		toward := target.Sub(tr.Position)
		if toward.X*tr.Velocity.X+toward.Y*tr.Velocity.Y <= 0 {
			t.Errorf("tendril %d not heading for target", tr.ID)
		}
	}
}

func TestProximityIsStrict(t *testing.T) {
	p := newTestPopulation()
	c := world.V(100, 100)
	p.Add(
		agents.New(1, c.Add(world.V(agents.OrbitRadius, 0))),
		agents.New(2, c.Add(world.V(agents.OrbitRadius-0.001, 0))),
		agents.New(3, c),
	)
	if n := p.ProximityCount(c, agents.OrbitRadius); n != 2 {
		t.Errorf("proximity = %d, want 2", n)
	}
}

func TestApplyToOrbitingLimitAndOrder(t *testing.T) {
	p := newTestPopulation()
	c := world.V(200, 200)
	for i := 1; i <= 8; i++ {
		p.Add(agents.New(agents.TendrilID(i), c))
	}
	p.All()[1].StartImmolation() // already burning, not counted

	var seen []agents.TendrilID
	n := p.ApplyToOrbiting(c, agents.OrbitRadius, 3, func(tr *agents.Tendril) bool {
		seen = append(seen, tr.ID)
		return tr.StartImmolation()
	})
	if n != 3 {
		t.Fatalf("affected = %d, want 3", n)
	}
	want := []agents.TendrilID{1, 2, 3, 4}
	if len(seen) != len(want) {
		t.Fatalf("visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("visited %v, want %v", seen, want)
		}
	}
}

func TestIgniteUnlimited(t *testing.T) {
	p := newTestPopulation()
	c := world.V(200, 200)
	for i := 1; i <= 12; i++ {
		p.Add(agents.New(agents.TendrilID(i), c))
	}
	if n := p.Ignite(c, 0); n != 12 {
		t.Errorf("ignited %d, want 12", n)
	}
	if n := p.Ignite(c, 0); n != 0 {
		t.Errorf("re-ignited %d, want 0", n)
	}
}

func TestRepelAtCenter(t *testing.T) {
	p := newTestPopulation()
	c := world.V(200, 200)
	p.Add(agents.New(1, c))
	p.Repel(c)
	if v := p.All()[0].Velocity; v.Len() != BurstSpeed {
		t.Errorf("speed = %v, want %v", v.Len(), BurstSpeed)
	}
	if BurstSpeed <= PushSpeed {
		t.Errorf("burst %v not stronger than push %v", BurstSpeed, PushSpeed)
	}
}

func TestPrunePreservesOrder(t *testing.T) {
	p := newTestPopulation()
	for i := 1; i <= 6; i++ {
		p.Add(agents.New(agents.TendrilID(i), world.V(0, 0)))
	}
	p.All()[1].Dead = true
	p.All()[4].Dead = true

	if n := p.Prune(); n != 2 {
		t.Fatalf("pruned %d, want 2", n)
	}
	want := []agents.TendrilID{1, 3, 4, 6}
	for i, tr := range p.All() {
		if tr.ID != want[i] {
			t.Fatalf("order after prune: got id %d at %d, want %d", tr.ID, i, want[i])
		}
	}
	if p.Room() != PopulationCap-4 {
		t.Errorf("room = %d", p.Room())
	}
}
