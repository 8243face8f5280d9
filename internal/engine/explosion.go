package engine

import (
	"fmt"

	"github.com/talgya/singularity/internal/world"
)

// ExplosionKind tags the transient explosion descriptor shown by frontends.
type ExplosionKind uint8

const (
	ExplosionNone ExplosionKind = iota
	ExplosionNova
	ExplosionBurst
	ExplosionDeath
)

var explosionNames = [...]string{"none", "nova", "burst", "death"}

func (k ExplosionKind) String() string {
	if int(k) < len(explosionNames) {
		return explosionNames[k]
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k ExplosionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ExplosionKind) UnmarshalText(b []byte) error {
	for i, name := range explosionNames {
		if name == string(b) {
			*k = ExplosionKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown explosion kind %q", b)
}

// Display durations per kind (ms).
const (
	NovaDisplay  = 600.0
	BurstDisplay = 400.0
	DeathDisplay = 250.0
)

// Explosion is the most recently raised explosion and how long it stays on
// screen. A newer explosion replaces an older one.
type Explosion struct {
	Kind      ExplosionKind `json:"kind"`
	Remaining float64       `json:"remaining"`
	Origin    world.Vec2    `json:"origin"`
}

// NewExplosion raises an explosion of kind at origin with its full duration.
func NewExplosion(kind ExplosionKind, origin world.Vec2) Explosion {
	var d float64
	switch kind {
	case ExplosionNova:
		d = NovaDisplay
	case ExplosionBurst:
		d = BurstDisplay
	case ExplosionDeath:
		d = DeathDisplay
	default:
		return Explosion{}
	}
	return Explosion{Kind: kind, Remaining: d, Origin: origin}
}

// Decay counts the display time down, clearing the explosion at zero.
func (e Explosion) Decay(delta float64) Explosion {
	if e.Kind == ExplosionNone {
		return e
	}
	e.Remaining -= delta
	if e.Remaining <= 0 {
		return Explosion{}
	}
	return e
}

// Active reports whether an explosion is on screen.
func (e Explosion) Active() bool {
	return e.Kind != ExplosionNone
}
