package engine

import (
	"github.com/talgya/singularity/internal/agents"
	"github.com/talgya/singularity/internal/singularity"
	"github.com/talgya/singularity/internal/world"
)

// Meter is a bounded progress value for a HUD gauge.
type Meter struct {
	Value float64 `json:"value"`
	Max   float64 `json:"max"`
}

// Fraction returns Value/Max clamped to [0,1].
func (m Meter) Fraction() float64 {
	if m.Max <= 0 || m.Value <= 0 {
		return 0
	}
	if m.Value >= m.Max {
		return 1
	}
	return m.Value / m.Max
}

// Meters are the six timer gauges.
type Meters struct {
	Nova       Meter `json:"nova"`
	Abyss      Meter `json:"abyss"`
	Hunt       Meter `json:"hunt"`
	Cooldown   Meter `json:"cooldown"`
	Spawn      Meter `json:"spawn"`
	DeathBurst Meter `json:"death_burst"`
}

// SingularityView is the read-only singularity state.
type SingularityView struct {
	Position world.Vec2 `json:"position"`
	Radius   float64    `json:"radius"`
	State    string     `json:"state"`
	Health   float64    `json:"health"` // abyss fraction, 1 = terminal
	Band     string     `json:"band"`
	Fade     float64    `json:"fade"`
}

// TendrilView is the read-only state of one tendril.
type TendrilView struct {
	ID         agents.TendrilID `json:"id"`
	Position   world.Vec2       `json:"position"`
	Trail      []world.Vec2     `json:"trail"`
	Immolating bool             `json:"immolating"`
	Immolation float64          `json:"immolation"` // 0..1
}

// Snapshot is an immutable copy of everything a frontend needs for one frame.
type Snapshot struct {
	Tick       uint64          `json:"tick"`
	Elapsed    float64         `json:"elapsed_ms"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Singular   SingularityView `json:"singularity"`
	Tendrils   []TendrilView   `json:"tendrils"`
	Meters     Meters          `json:"meters"`
	Explosion  Explosion       `json:"explosion"`
	OrbitCount int             `json:"orbit_count"`
	Population int             `json:"population"`
	NovaReady  bool            `json:"nova_ready"`
	DeathBurst int             `json:"death_burst_remaining"`
	Stats      SimStats        `json:"stats"`
}

// Latest returns the most recently published snapshot. Safe from any goroutine.
func (s *Simulation) Latest() *Snapshot {
	return s.snap.Load()
}

func (s *Simulation) publish() {
	health := singularity.HealthFraction(s.Clock.Abyss)
	snap := &Snapshot{
		Tick:    s.LastTick,
		Elapsed: s.Elapsed,
		Width:   s.Bounds.Width,
		Height:  s.Bounds.Height,
		Singular: SingularityView{
			Position: s.Singularity.Position,
			Radius:   s.Singularity.Radius,
			State:    s.Singularity.State.String(),
			Health:   health,
			Band:     singularity.BandOf(health).String(),
			Fade:     s.Singularity.Fade(),
		},
		Meters: Meters{
			Nova:       Meter{s.Clock.Nova, NovaInterval},
			Abyss:      Meter{s.Clock.Abyss, singularity.AbyssThreshold},
			Hunt:       Meter{s.Clock.Hunt, HuntInterval},
			Cooldown:   Meter{s.Clock.NovaCooldown, NovaCooldownDuration},
			Spawn:      Meter{s.Clock.Spawn, SpawnInterval},
			DeathBurst: Meter{s.Clock.DeathBurst, DeathBurstInterval},
		},
		Explosion:  s.Explosion,
		OrbitCount: s.OrbitCount,
		Population: s.Population.Len(),
		NovaReady:  s.Clock.CooldownReady(),
		DeathBurst: s.Clock.DeathBurstRemaining,
		Stats:      s.Stats,
	}

	all := s.Population.All()
	snap.Tendrils = make([]TendrilView, len(all))
	for i, t := range all {
		snap.Tendrils[i] = TendrilView{
			ID:         t.ID,
			Position:   t.Position,
			Trail:      t.Trail.Points(),
			Immolating: t.Immolating,
			Immolation: t.ImmolationPhase(),
		}
	}
	s.snap.Store(snap)
}
