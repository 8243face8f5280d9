package render

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Corona produces the flickering rim of the singularity from layered
// simplex noise sampled around a circle that drifts through time.
type Corona struct {
	noise   opensimplex.Noise
	Points  int     // samples around the rim
	Depth   float64 // max outward displacement as a fraction of radius
	Octaves int
}

// NewCorona creates a corona with deterministic noise for seed.
func NewCorona(seed int64, points int) *Corona {
	if points < 3 {
		points = 3
	}
	return &Corona{
		noise:   opensimplex.NewNormalized(seed),
		Points:  points,
		Depth:   0.35,
		Octaves: 3,
	}
}

// Rim returns the rim radii at elapsed ms for a body of radius r. Health in
// [0,1] makes the flicker more violent.
func (c *Corona) Rim(r, elapsed, health float64) []float64 {
	out := make([]float64, c.Points)
	t := elapsed / 1000
	depth := c.Depth * (0.5 + clamp01(health))
	for i := range out {
		theta := 2 * math.Pi * float64(i) / float64(c.Points)
		// Sampling on a circle keeps the rim seamless at theta = 2π.
		x := math.Cos(theta) + t*0.6
		y := math.Sin(theta) + t*0.4
		out[i] = r * (1 + depth*octaveNoise(c.noise, x, y, c.Octaves, 1.5, 0.5))
	}
	return out
}

// RimPoints returns the rim as absolute coordinates around (cx, cy).
func (c *Corona) RimPoints(cx, cy, r, elapsed, health float64) [][2]float64 {
	radii := c.Rim(r, elapsed, health)
	pts := make([][2]float64, len(radii))
	for i, rr := range radii {
		theta := 2 * math.Pi * float64(i) / float64(len(radii))
		pts[i] = [2]float64{cx + rr*math.Cos(theta), cy + rr*math.Sin(theta)}
	}
	return pts
}

// octaveNoise sums several octaves of noise for more natural variation.
// Returns a value in [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxAmp := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxAmp += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxAmp
}
