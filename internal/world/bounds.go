package world

import "math/rand"

// Edge identifies one side of the playfield.
type Edge uint8

const (
	EdgeTop Edge = iota
	EdgeRight
	EdgeBottom
	EdgeLeft
)

// Bounds is the rectangular playfield [0,Width] × [0,Height].
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the middle of the playfield.
func (b Bounds) Center() Vec2 {
	return Vec2{b.Width / 2, b.Height / 2}
}

// Clamp keeps p inside the playfield shrunk by margin on every side.
// When the margin swallows an axis the point is pinned to that axis' middle.
func (b Bounds) Clamp(p Vec2, margin float64) Vec2 {
	return Vec2{
		X: clampAxis(p.X, margin, b.Width-margin),
		Y: clampAxis(p.Y, margin, b.Height-margin),
	}
}

func clampAxis(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Contains reports whether p lies inside the playfield (edges inclusive).
func (b Bounds) Contains(p Vec2) bool {
	return p.X >= 0 && p.X <= b.Width && p.Y >= 0 && p.Y <= b.Height
}

// EdgePoint returns a uniformly random point on the given edge.
func (b Bounds) EdgePoint(e Edge, rng *rand.Rand) Vec2 {
	switch e {
	case EdgeTop:
		return Vec2{rng.Float64() * b.Width, 0}
	case EdgeRight:
		return Vec2{b.Width, rng.Float64() * b.Height}
	case EdgeBottom:
		return Vec2{rng.Float64() * b.Width, b.Height}
	default:
		return Vec2{0, rng.Float64() * b.Height}
	}
}

// RandomEdgePoint picks one of the four edges uniformly, then a uniform
// point along it.
func (b Bounds) RandomEdgePoint(rng *rand.Rand) Vec2 {
	return b.EdgePoint(Edge(rng.Intn(4)), rng)
}
