// Package render holds presentation helpers shared by the window and
// terminal frontends: colour ramps, explosion visuals, the corona flicker
// and the keyboard command set. It reads snapshots only.
package render

import (
	"image/color"
	"math"

	"github.com/talgya/singularity/internal/engine"
)

// Palette.
var (
	Gold       = color.RGBA{255, 215, 0, 255}
	Orange     = color.RGBA{255, 140, 0, 255}
	Magenta    = color.RGBA{255, 0, 255, 255}
	Black      = color.RGBA{0, 0, 0, 255}
	Background = color.RGBA{8, 6, 18, 255}
	TendrilHue = color.RGBA{120, 200, 255, 255}
	FlameHue   = color.RGBA{255, 90, 30, 255}
	DeathHue   = color.RGBA{200, 40, 255, 255}
	BurstHue   = color.RGBA{160, 240, 255, 255}
	HUDText    = color.RGBA{220, 220, 230, 255}
)

type stop struct {
	at float64
	c  color.RGBA
}

// healthRamp runs gold at 0 through orange and magenta to black at 1.
var healthRamp = []stop{
	{0, Gold},
	{0.5, Orange},
	{0.75, Magenta},
	{1, Black},
}

// HealthColor maps a health fraction onto the health ramp. Fractions outside
// [0,1] clamp to the ends.
func HealthColor(fraction float64) color.RGBA {
	if math.IsNaN(fraction) || fraction <= 0 {
		return healthRamp[0].c
	}
	for i := 1; i < len(healthRamp); i++ {
		hi := healthRamp[i]
		if fraction <= hi.at {
			lo := healthRamp[i-1]
			return Lerp(lo.c, hi.c, (fraction-lo.at)/(hi.at-lo.at))
		}
	}
	return healthRamp[len(healthRamp)-1].c
}

// Lerp blends a toward b by t in [0,1].
func Lerp(a, b color.RGBA, t float64) color.RGBA {
	t = clamp01(t)
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
}

// WithAlpha returns c with its alpha scaled by a in [0,1], premultiplied.
func WithAlpha(c color.RGBA, a float64) color.RGBA {
	a = clamp01(a)
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(float64(c.A) * a),
	}
}

// SingularityColor is the body colour: the health ramp while healthy, then
// faded toward the background as it assimilates.
func SingularityColor(v engine.SingularityView) color.RGBA {
	base := HealthColor(v.Health)
	if v.State != "healthy" {
		base = Magenta
	}
	return Lerp(base, Background, v.Fade)
}

// TendrilColor shades a tendril by its immolation phase.
func TendrilColor(t engine.TendrilView) color.RGBA {
	if !t.Immolating {
		return TendrilHue
	}
	return Lerp(FlameHue, Background, t.Immolation)
}

// TrailColor returns the colour of trail point i out of n, oldest faintest.
func TrailColor(t engine.TendrilView, i, n int) color.RGBA {
	if n <= 1 {
		return WithAlpha(TendrilColor(t), 0.5)
	}
	return WithAlpha(TendrilColor(t), 0.1+0.5*float64(i)/float64(n-1))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
