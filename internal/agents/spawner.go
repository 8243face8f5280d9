// Tendril spawning: edge placement and the initial auto-hunt impulse.
package agents

import (
	"math/rand"

	"github.com/talgya/singularity/internal/world"
)

// Spawner creates tendrils on the playfield edges.
type Spawner struct {
	rng    *rand.Rand
	bounds world.Bounds
	nextID TendrilID
}

// NewSpawner creates a tendril spawner with the given seed.
func NewSpawner(seed int64, bounds world.Bounds) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		bounds: bounds,
		nextID: 1,
	}
}

// SetNextID sets the next tendril ID to be issued. Used after a restore.
func (s *Spawner) SetNextID(id TendrilID) {
	s.nextID = id
}

// SpawnAtEdge places a new tendril at a uniformly random point on one of the
// four edges, at rest and with an empty trail.
func (s *Spawner) SpawnAtEdge() *Tendril {
	id := s.nextID
	s.nextID++
	return New(id, s.bounds.RandomEdgePoint(s.rng))
}

// SpawnHunting creates count tendrils on the edges, each already moving
// toward target.
func (s *Spawner) SpawnHunting(count int, target world.Vec2) []*Tendril {
	if count <= 0 {
		return nil
	}
	out := make([]*Tendril, 0, count)
	for i := 0; i < count; i++ {
		t := s.SpawnAtEdge()
		t.AutoHunt(target, s.rng)
		out = append(out, t)
	}
	return out
}
