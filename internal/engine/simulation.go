// Simulation ties the singularity, the tendril population and the event
// clock together and advances them once per frame.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/singularity/internal/agents"
	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/singularity"
	"github.com/talgya/singularity/internal/world"
)

const inboxSize = 256

// Simulation holds the complete playfield state. Step must only be called
// from one goroutine; everything else reads snapshots or submits intents.
type Simulation struct {
	Bounds      world.Bounds
	Singularity *singularity.Singularity
	Population  *Population
	Clock       EventClock
	Explosion   Explosion
	Movement    Movement
	OrbitCount  int
	LastTick    uint64  // Most recent frame processed
	Elapsed     float64 // Simulated ms since start

	Tuning *config.Live

	// Statistics, cumulative since start.
	Stats SimStats

	inbox chan Intent
	log   *eventLog
	snap  atomic.Pointer[Snapshot]
}

// SimStats tracks aggregate statistics.
type SimStats struct {
	Population    int `json:"population"`
	PeakPop       int `json:"peak_population"`
	OrbitCount    int `json:"orbit_count"`
	Spawned       int `json:"spawned"`
	Pruned        int `json:"pruned"`
	Novas         int `json:"novas"`
	RejectedNovas int `json:"rejected_novas"`
	Bursts        int `json:"bursts"`
	Hunts         int `json:"hunts"`
	Assimilations int `json:"assimilations"`
	Respawns      int `json:"respawns"`
	DeathPulses   int `json:"death_pulses"`
}

// NewSimulation creates a playfield with a healthy singularity at the centre
// and the initial population hunting it. A nil tuning uses the defaults.
func NewSimulation(bounds world.Bounds, seed int64, tuning *config.Live) *Simulation {
	center := bounds.Center()
	s := newSimulation(bounds, singularity.New(center), NewPopulation(agents.NewSpawner(seed, bounds)), tuning)
	s.Stats.Spawned = s.Population.Spawn(InitialPopulation, center)
	s.updateStats()
	s.publish()
	return s
}

func newSimulation(bounds world.Bounds, sing *singularity.Singularity, pop *Population, tuning *config.Live) *Simulation {
	if tuning == nil {
		tuning = config.NewLive(config.DefaultTuning())
	}
	return &Simulation{
		Bounds:      bounds,
		Singularity: sing,
		Population:  pop,
		Tuning:      tuning,
		inbox:       make(chan Intent, inboxSize),
		log:         newEventLog(),
	}
}

// CurrentTick returns the most recently processed frame number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// Step advances the simulation by one frame of delta milliseconds.
// Negative or NaN deltas are treated as zero.
func (s *Simulation) Step(delta float64) {
	if delta < 0 || math.IsNaN(delta) {
		delta = 0
	}
	tuning := s.Tuning.Get()
	s.LastTick++
	s.Elapsed += delta

	// Intents and movement.
	s.drainInbox()
	s.Singularity.Move(s.Movement.Vector().Scale(tuning.MovementSpeed), s.Bounds)
	target := s.Singularity.Position

	// Timers.
	healthy := s.Singularity.State == singularity.Healthy
	clock, fire := s.Clock.Advance(delta, ClockInput{
		Healthy:    healthy,
		Collapsing: !healthy,
		Orbiting:   s.Population.ProximityCount(target, agents.OrbitRadius),
	})
	s.Clock = clock
	s.Explosion = s.Explosion.Decay(delta)
	if fire.Any() {
		s.fire(fire, target)
	}

	// Singularity life-cycle.
	switch s.Singularity.Advance(delta, s.Clock.Abyss) {
	case singularity.BeganAssimilating:
		s.onAssimilation("health")
	case singularity.Died:
		s.EmitEvent(Event{Tick: s.LastTick, Description: "the singularity collapsed", Category: CategoryState})
		slog.Info("singularity died", "tick", s.LastTick)
	case singularity.Respawned:
		s.Clock.Abyss = 0
		s.Stats.Respawns++
		s.EmitEvent(Event{Tick: s.LastTick, Description: "the singularity reformed", Category: CategoryState})
		slog.Info("singularity respawned", "tick", s.LastTick)
	}

	// Tendrils.
	for _, t := range s.Population.All() {
		if !t.Immolating && t.InOrbit(target) {
			t.Orbit(target, tuning.GravityPull)
		}
		t.Tick(delta, tuning.Aggression, target)
	}

	s.OrbitCount = s.Population.ProximityCount(target, agents.OrbitRadius)

	if n := s.Population.Prune(); n > 0 {
		s.Stats.Pruned += n
		s.EmitEvent(Event{
			Tick:        s.LastTick,
			Description: fmt.Sprintf("%d tendrils burned out", n),
			Category:    CategoryPrune,
			Meta:        map[string]any{"count": n},
		})
	}

	s.updateStats()
	s.publish()
}

// fire applies the effects of crossed clock thresholds.
func (s *Simulation) fire(f Firings, target world.Vec2) {
	if f.Spawn {
		n := s.Population.Spawn(SpawnBatch, target)
		s.Stats.Spawned += n
		if n > 0 {
			s.EmitEvent(Event{
				Tick:        s.LastTick,
				Description: fmt.Sprintf("%d tendrils emerged from the edges", n),
				Category:    CategorySpawn,
				Meta:        map[string]any{"count": n},
			})
		}
		slog.Debug("spawn fired", "tick", s.LastTick, "spawned", n, "population", s.Population.Len())
	}
	if f.Hunt {
		s.Population.HuntAll()
		s.Stats.Hunts++
		s.EmitEvent(Event{
			Tick:        s.LastTick,
			Description: "the tendrils surge",
			Category:    CategoryHunt,
			Meta:        map[string]any{"manual": false},
		})
		slog.Debug("hunt fired", "tick", s.LastTick)
	}
	if f.Nova {
		n := s.autoNova()
		slog.Debug("nova fired", "tick", s.LastTick, "ignited", n)
	}
	if f.Assimilate {
		if s.Singularity.BeginAssimilation() {
			s.onAssimilation("abyss")
		}
	}
	for i := 0; i < f.DeathPulses; i++ {
		s.Explosion = NewExplosion(ExplosionDeath, s.Singularity.Position)
		s.Stats.DeathPulses++
		s.EmitEvent(Event{
			Tick:        s.LastTick,
			Description: "death pulse",
			Category:    CategoryDeath,
			Meta:        map[string]any{"remaining": s.Clock.DeathBurstRemaining},
		})
	}
}

// onAssimilation runs once per collapse, whichever path began it.
func (s *Simulation) onAssimilation(cause string) {
	s.Clock.Abyss = 0
	s.Clock.ArmDeathBurst()
	s.Stats.Assimilations++
	s.EmitEvent(Event{
		Tick:        s.LastTick,
		Description: "the singularity is being assimilated",
		Category:    CategoryState,
		Meta:        map[string]any{"cause": cause},
	})
	slog.Info("singularity assimilating", "tick", s.LastTick, "cause", cause, "orbiting", s.OrbitCount)
}

func (s *Simulation) updateStats() {
	s.Stats.Population = s.Population.Len()
	s.Stats.OrbitCount = s.OrbitCount
	if s.Stats.Population > s.Stats.PeakPop {
		s.Stats.PeakPop = s.Stats.Population
	}
}

// Report logs a periodic summary.
func (s *Simulation) Report() {
	elapsed := time.Duration(s.Elapsed * float64(time.Millisecond)).Truncate(time.Second)
	slog.Info("frame report",
		"tick", humanize.Comma(int64(s.LastTick)),
		"elapsed", elapsed.String(),
		"state", s.Singularity.State.String(),
		"population", s.Stats.Population,
		"peak", s.Stats.PeakPop,
		"orbiting", s.OrbitCount,
		"abyss", fmt.Sprintf("%.0f%%", 100*singularity.HealthFraction(s.Clock.Abyss)),
		"novas", humanize.Comma(int64(s.Stats.Novas)),
		"burned", humanize.Comma(int64(s.Stats.Pruned)),
		"assimilations", s.Stats.Assimilations,
	)
}
