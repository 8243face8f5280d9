package keeper

import "github.com/talgya/singularity/internal/engine"

// Danger levels, ordered.
const (
	LevelDormant  = "DORMANT" // singularity not healthy, nothing to protect
	LevelCalm     = "CALM"
	LevelWatch    = "WATCH"
	LevelCritical = "CRITICAL"
)

// Thresholds on the abyss health fraction.
const (
	watchHealth    = 0.5
	criticalHealth = 0.75
)

// Assessment holds derived signals computed from an Observation.
type Assessment struct {
	Level        string
	Health       float64
	Orbiting     int
	NovaReady    bool
	Crowding     bool    // enough orbiters to build abyss pressure
	PopTrend     int     // population change across the history window
	Collapses    int     // assimilations across the history window
	CooldownLeft float64 // ms
}

// Triage computes an Assessment from the observation.
func Triage(obs *Observation) *Assessment {
	s := obs.Status
	a := &Assessment{
		Health:       s.Health,
		Orbiting:     s.Orbiting,
		NovaReady:    s.NovaReady,
		Crowding:     s.Orbiting >= engine.MinAbyssOrbiters,
		CooldownLeft: s.NovaCooldown,
	}

	// History is oldest first.
	if n := len(obs.History); n >= 2 {
		oldest, newest := obs.History[0], obs.History[n-1]
		a.PopTrend = newest.Population - oldest.Population
		if newest.Assimilations >= oldest.Assimilations {
			a.Collapses = newest.Assimilations - oldest.Assimilations
		}
	}

	switch {
	case s.State != "healthy":
		a.Level = LevelDormant
	case s.Health >= criticalHealth && a.Crowding:
		a.Level = LevelCritical
	case s.Health >= watchHealth || a.Crowding:
		a.Level = LevelWatch
	default:
		a.Level = LevelCalm
	}
	return a
}
