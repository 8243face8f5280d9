// Package singularity implements the focal entity the tendrils chase: a
// pulsing body that cycles healthy → assimilating → dead → healthy.
// Phase durations are wall-clock milliseconds.
package singularity

import (
	"math"

	"github.com/talgya/singularity/internal/world"
)

// State is the singularity's life-cycle phase.
type State uint8

const (
	Healthy      State = iota // Pulsing, movable, accumulates abyss pressure
	Assimilating              // Fading out after the abyss threshold
	Dead                      // Waiting to respawn
)

var stateNames = [...]string{"healthy", "assimilating", "dead"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Band classifies the health fraction for the health signal.
type Band uint8

const (
	BandNominal  Band = iota // fraction < 0.5
	BandCritical             // 0.5 ≤ fraction < 1
	BandTerminal             // fraction ≥ 1, assimilation begins
)

var bandNames = [...]string{"nominal", "critical", "terminal"}

func (b Band) String() string {
	if int(b) < len(bandNames) {
		return bandNames[b]
	}
	return "unknown"
}

// Timing and shape constants.
const (
	BaseRadius     = 20.0
	PulseAmplitude = 4.0
	PulsePeriod    = 2000.0 // ms per full radius oscillation

	AbyssThreshold   = 13000.0 // ms of sustained orbit pressure
	AssimilationFade = 2000.0  // ms spent assimilating before death
	RespawnDuration  = 7000.0  // ms spent dead before respawning
)

// Transition reports what, if anything, Advance changed.
type Transition uint8

const (
	NoTransition Transition = iota
	BeganAssimilating
	Died
	Respawned
)

// Singularity is the focal entity.
type Singularity struct {
	Position world.Vec2 `json:"position"`
	Radius   float64    `json:"radius"`
	State    State      `json:"state"`

	AssimilationElapsed float64 `json:"assimilation_elapsed"`
	RespawnElapsed      float64 `json:"respawn_elapsed"`

	pulse float64 // oscillation phase in ms
}

// New creates a healthy singularity at pos.
func New(pos world.Vec2) *Singularity {
	return &Singularity{
		Position: pos,
		Radius:   BaseRadius,
		State:    Healthy,
	}
}

// HealthFraction maps the abyss accumulator onto [0, ∞); 1 means the
// threshold has been reached.
func HealthFraction(abyss float64) float64 {
	if abyss <= 0 {
		return 0
	}
	return abyss / AbyssThreshold
}

// BandOf classifies a health fraction.
func BandOf(fraction float64) Band {
	switch {
	case fraction >= 1:
		return BandTerminal
	case fraction >= 0.5:
		return BandCritical
	default:
		return BandNominal
	}
}

// Move shifts the singularity by delta and keeps it inside bounds shrunk by
// its current radius.
func (s *Singularity) Move(delta world.Vec2, bounds world.Bounds) {
	s.Position = bounds.Clamp(s.Position.Add(delta), s.Radius)
}

// BeginAssimilation enters the assimilating phase from healthy. It returns
// false, changing nothing, from any other state.
func (s *Singularity) BeginAssimilation() bool {
	if s.State != Healthy {
		return false
	}
	s.State = Assimilating
	s.AssimilationElapsed = 0
	return true
}

// Advance moves the pulse and the life-cycle forward by delta ms. abyss is
// the current abyss accumulator. On Respawned the caller must zero it.
func (s *Singularity) Advance(delta, abyss float64) Transition {
	s.pulse = math.Mod(s.pulse+delta, PulsePeriod)
	s.Radius = BaseRadius + PulseAmplitude*math.Sin(2*math.Pi*s.pulse/PulsePeriod)

	switch s.State {
	case Healthy:
		if BandOf(HealthFraction(abyss)) == BandTerminal && s.BeginAssimilation() {
			return BeganAssimilating
		}
	case Assimilating:
		s.AssimilationElapsed += delta
		if s.AssimilationElapsed >= AssimilationFade {
			s.State = Dead
			s.RespawnElapsed = 0
			return Died
		}
	case Dead:
		s.RespawnElapsed += delta
		if s.RespawnElapsed >= RespawnDuration {
			s.State = Healthy
			s.AssimilationElapsed = 0
			return Respawned
		}
	}
	return NoTransition
}

// Fade reports the cosmetic fade in [0,1]: 0 while healthy, rising through
// assimilation, 1 while dead.
func (s *Singularity) Fade() float64 {
	switch s.State {
	case Assimilating:
		return math.Min(s.AssimilationElapsed/AssimilationFade, 1)
	case Dead:
		return 1
	default:
		return 0
	}
}
