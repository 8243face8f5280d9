// Player actions and the intent inbox other goroutines use to request them.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/singularity/internal/world"
)

// IntentKind enumerates decoded external intents.
type IntentKind uint8

const (
	IntentHunt IntentKind = iota
	IntentBurst
	IntentNova
	IntentMove
)

// Movement is the held direction state for the singularity.
type Movement struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Vector combines the four directions additively (screen axes, Y down).
func (m Movement) Vector() world.Vec2 {
	var v world.Vec2
	if m.Up {
		v.Y--
	}
	if m.Down {
		v.Y++
	}
	if m.Left {
		v.X--
	}
	if m.Right {
		v.X++
	}
	return v
}

// Intent is a request queued from outside the simulation goroutine.
type Intent struct {
	Kind IntentKind
	Move Movement // IntentMove only
}

// Submit queues an intent for the next Step. It never blocks; false means
// the inbox was full and the intent was dropped.
func (s *Simulation) Submit(in Intent) bool {
	select {
	case s.inbox <- in:
		return true
	default:
		slog.Warn("intent inbox full, dropping", "kind", in.Kind)
		return false
	}
}

func (s *Simulation) drainInbox() {
	for {
		select {
		case in := <-s.inbox:
			s.applyIntent(in)
		default:
			return
		}
	}
}

func (s *Simulation) applyIntent(in Intent) {
	switch in.Kind {
	case IntentHunt:
		s.RequestHunt()
	case IntentBurst:
		s.RequestBurst()
	case IntentNova:
		s.RequestManualNova()
	case IntentMove:
		s.SetMovement(in.Move)
	}
}

// SetMovement replaces the held movement intent.
func (s *Simulation) SetMovement(m Movement) {
	s.Movement = m
}

// RequestHunt boosts every tendril, unconditionally.
func (s *Simulation) RequestHunt() {
	s.Population.HuntAll()
	s.Stats.Hunts++
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("hunt called on %d tendrils", s.Population.Len()),
		Category:    CategoryHunt,
		Meta:        map[string]any{"manual": true},
	})
}

// RequestBurst throws every orbiting tendril outward.
func (s *Simulation) RequestBurst() {
	center := s.Singularity.Position
	n := s.Population.Repel(center)
	s.Explosion = NewExplosion(ExplosionBurst, center)
	s.Stats.Bursts++
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("burst repelled %d tendrils", n),
		Category:    CategoryBurst,
		Meta:        map[string]any{"repelled": n},
	})
}

// RequestManualNova ignites every orbiting tendril, with no cap, and starts
// the cooldown. While the cooldown runs it does nothing and returns false.
func (s *Simulation) RequestManualNova() bool {
	if !s.Clock.CooldownReady() {
		s.Stats.RejectedNovas++
		slog.Debug("manual nova rejected", "cooldown_ms", s.Clock.NovaCooldown)
		return false
	}
	center := s.Singularity.Position
	n := s.Population.Ignite(center, 0)
	s.Clock.StartCooldown()
	s.Explosion = NewExplosion(ExplosionNova, center)
	s.Stats.Novas++
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("manual nova ignited %d tendrils", n),
		Category:    CategoryNova,
		Meta:        map[string]any{"ignited": n, "manual": true},
	})
	return true
}

// autoNova is the timer-driven nova: at most AutoNovaCap tendrils, cooldown
// neither checked nor set.
func (s *Simulation) autoNova() int {
	center := s.Singularity.Position
	n := s.Population.Ignite(center, AutoNovaCap)
	s.Explosion = NewExplosion(ExplosionNova, center)
	s.Stats.Novas++
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf("nova ignited %d tendrils", n),
		Category:    CategoryNova,
		Meta:        map[string]any{"ignited": n, "manual": false},
	})
	return n
}
