package keeper

import (
	"fmt"
)

// Actions the keeper may take.
const (
	ActionNone  = "none"
	ActionHunt  = "hunt"
	ActionBurst = "burst"
	ActionNova  = "nova"
)

// burstSpacing is how many cycles must pass between two bursts while the
// level is only WATCH.
const burstSpacing = 2

// repeatedCollapses is the collapse count across the history window at
// which WATCH bursts are no longer spaced out.
const repeatedCollapses = 2

// Decision is the keeper's chosen action for one cycle.
type Decision struct {
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// Decide picks at most one action from the assessment and recent cycles.
func Decide(a *Assessment, mem *CycleMemory) *Decision {
	switch a.Level {
	case LevelDormant:
		return &Decision{Action: ActionNone, Rationale: "singularity is not healthy; waiting for it to reform"}

	case LevelCritical:
		if a.NovaReady {
			return &Decision{
				Action:    ActionNova,
				Rationale: fmt.Sprintf("abyss at %.0f%% with %d orbiting; igniting them", a.Health*100, a.Orbiting),
			}
		}
		return &Decision{
			Action:    ActionBurst,
			Rationale: fmt.Sprintf("abyss at %.0f%%, nova cooling down (%.0fms); repelling", a.Health*100, a.CooldownLeft),
		}

	case LevelWatch:
		if !a.Crowding {
			return &Decision{Action: ActionNone, Rationale: "pressure high but orbit is thin; it will drain on its own"}
		}
		if a.Collapses >= repeatedCollapses {
			return &Decision{
				Action:    ActionBurst,
				Rationale: fmt.Sprintf("%d collapses recently and %d tendrils crowding; repelling early", a.Collapses, a.Orbiting),
			}
		}
		if mem.CyclesSince(ActionBurst) < burstSpacing {
			return &Decision{Action: ActionNone, Rationale: "burst used recently; letting the orbit settle"}
		}
		return &Decision{
			Action:    ActionBurst,
			Rationale: fmt.Sprintf("%d tendrils crowding the singularity", a.Orbiting),
		}

	default:
		// A shrinking, calm population gets a hunt to keep the field lively.
		if a.PopTrend < 0 && a.Orbiting == 0 && mem.CyclesSince(ActionHunt) >= burstSpacing {
			return &Decision{Action: ActionHunt, Rationale: "field is thinning out; calling the tendrils in"}
		}
		return &Decision{Action: ActionNone, Rationale: "calm"}
	}
}
