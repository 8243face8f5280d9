package agents

import "github.com/talgya/singularity/internal/world"

// Trail is a fixed-capacity ring of past positions; the oldest entry is
// overwritten once TrailCapacity is exceeded.
type Trail struct {
	buf   [TrailCapacity]world.Vec2
	start int
	n     int
}

// Push appends p, evicting the oldest point when full.
func (tr *Trail) Push(p world.Vec2) {
	if tr.n < TrailCapacity {
		tr.buf[(tr.start+tr.n)%TrailCapacity] = p
		tr.n++
		return
	}
	tr.buf[tr.start] = p
	tr.start = (tr.start + 1) % TrailCapacity
}

// Len returns the number of stored points.
func (tr *Trail) Len() int {
	return tr.n
}

// Points returns a copy of the trail ordered oldest → newest.
func (tr *Trail) Points() []world.Vec2 {
	out := make([]world.Vec2, tr.n)
	for i := 0; i < tr.n; i++ {
		out[i] = tr.buf[(tr.start+i)%TrailCapacity]
	}
	return out
}

// Last returns the newest point and false when the trail is empty.
func (tr *Trail) Last() (world.Vec2, bool) {
	if tr.n == 0 {
		return world.Vec2{}, false
	}
	return tr.buf[(tr.start+tr.n-1)%TrailCapacity], true
}
