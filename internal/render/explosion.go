package render

import (
	"image/color"

	"github.com/talgya/singularity/internal/engine"
)

// Ring is an expanding shockwave to draw around an explosion origin.
type Ring struct {
	X, Y   float64
	Radius float64
	Width  float64
	Color  color.RGBA
}

// Max ring radii per explosion kind, in world units.
const (
	novaReach  = 140.0
	burstReach = 220.0
	deathReach = 90.0
)

// ExplosionRing converts the snapshot's explosion into a ring. ok is false
// when nothing is on screen.
func ExplosionRing(e engine.Explosion) (r Ring, ok bool) {
	var reach, total float64
	var c color.RGBA
	switch e.Kind {
	case engine.ExplosionNova:
		reach, total, c = novaReach, engine.NovaDisplay, FlameHue
	case engine.ExplosionBurst:
		reach, total, c = burstReach, engine.BurstDisplay, BurstHue
	case engine.ExplosionDeath:
		reach, total, c = deathReach, engine.DeathDisplay, DeathHue
	default:
		return Ring{}, false
	}

	// progress runs 0 at ignition to 1 as the display expires.
	progress := clamp01(1 - e.Remaining/total)
	return Ring{
		X:      e.Origin.X,
		Y:      e.Origin.Y,
		Radius: reach * easeOut(progress),
		Width:  1 + 5*(1-progress),
		Color:  WithAlpha(c, 1-progress),
	}, true
}

func easeOut(t float64) float64 {
	return 1 - (1-t)*(1-t)
}

// Cue receives explosion kinds as they first appear on screen.
type Cue interface {
	Play(kind engine.ExplosionKind)
}

// ExplosionWatch spots explosions the first frame a frontend sees them.
type ExplosionWatch struct {
	kind engine.ExplosionKind
	rem  float64
}

// Fresh reports whether e is newly raised since the last call. A re-raise of
// the same kind is detected by its display time going back up.
func (w *ExplosionWatch) Fresh(e engine.Explosion) bool {
	fresh := e.Active() && (e.Kind != w.kind || e.Remaining > w.rem)
	w.kind, w.rem = e.Kind, e.Remaining
	return fresh
}
