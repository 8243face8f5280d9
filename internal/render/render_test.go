package render

import (
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/world"
)

func TestHealthColorStops(t *testing.T) {
	tests := []struct {
		f    float64
		want color.RGBA
	}{
		{-1, Gold},
		{0, Gold},
		{0.5, Orange},
		{0.75, Magenta},
		{1, Black},
		{3, Black},
		{math.NaN(), Gold},
	}
	for _, tt := range tests {
		if got := HealthColor(tt.f); got != tt.want {
			t.Errorf("HealthColor(%v) = %v, want %v", tt.f, got, tt.want)
		}
	}
}

func TestHealthColorMidpoint(t *testing.T) {
	got := HealthColor(0.25)
	want := Lerp(Gold, Orange, 0.5)
	if got != want {
		t.Errorf("HealthColor(0.25) = %v, want %v", got, want)
	}
	if got.G >= Gold.G || got.G <= Orange.G {
		t.Errorf("green %d not between orange and gold", got.G)
	}
}

func TestSingularityColorFades(t *testing.T) {
	healthy := SingularityColor(engine.SingularityView{State: "healthy", Health: 0})
	if healthy != Gold {
		t.Errorf("healthy = %v, want gold", healthy)
	}
	dead := SingularityColor(engine.SingularityView{State: "dead", Fade: 1})
	if dead != Background {
		t.Errorf("dead = %v, want background", dead)
	}
}

func TestExplosionRing(t *testing.T) {
	if _, ok := ExplosionRing(engine.Explosion{}); ok {
		t.Fatal("no explosion should give no ring")
	}

	fresh, ok := ExplosionRing(engine.NewExplosion(engine.ExplosionNova, world.V(10, 20)))
	if !ok {
		t.Fatal("nova should give a ring")
	}
	if fresh.Radius != 0 || fresh.X != 10 || fresh.Y != 20 {
		t.Errorf("fresh ring = %+v", fresh)
	}

	late := engine.NewExplosion(engine.ExplosionNova, world.V(10, 20)).Decay(engine.NovaDisplay / 2)
	mid, _ := ExplosionRing(late)
	if mid.Radius <= fresh.Radius || mid.Radius >= novaReach {
		t.Errorf("mid radius = %v", mid.Radius)
	}
	if mid.Color.A >= fresh.Color.A {
		t.Errorf("ring should fade: %d >= %d", mid.Color.A, fresh.Color.A)
	}
}

func TestCoronaDeterministicAndBounded(t *testing.T) {
	a := NewCorona(7, 32)
	b := NewCorona(7, 32)
	ra := a.Rim(20, 1500, 0.5)
	rb := b.Rim(20, 1500, 0.5)
	if len(ra) != 32 {
		t.Fatalf("len = %d", len(ra))
	}
	for i := range ra {
		if ra[i] != rb[i] {
			t.Fatalf("rim differs at %d: %v vs %v", i, ra[i], rb[i])
		}
		maxR := 20 * (1 + a.Depth*1.0)
		if ra[i] < 20 || ra[i] > maxR+1e-9 {
			t.Errorf("rim[%d] = %v outside [20, %v]", i, ra[i], maxR)
		}
	}
	if pts := a.RimPoints(100, 100, 20, 0, 0); len(pts) != 32 {
		t.Errorf("points = %d", len(pts))
	}
}

func TestCommandForRune(t *testing.T) {
	tests := map[rune]Command{
		'h': CmdHunt, 'B': CmdBurst, 'n': CmdNova,
		'[': CmdAggressionDown, ']': CmdAggressionUp,
		'-': CmdGravityDown, '=': CmdGravityUp,
		'p': CmdPause, 'Q': CmdQuit, 'x': CmdNone,
	}
	for r, want := range tests {
		if got := CommandForRune(r); got != want {
			t.Errorf("CommandForRune(%q) = %d, want %d", r, got, want)
		}
	}
}

func TestControllerTuningAndPause(t *testing.T) {
	tuning := config.NewLive(config.DefaultTuning())
	sim := engine.NewSimulation(world.Bounds{Width: 800, Height: 600}, 1, tuning)
	eng := engine.NewEngine(60)
	c := NewController(sim, eng, tuning)

	c.Do(CmdAggressionUp)
	if got := tuning.Get().Aggression; math.Abs(got-(config.DefaultAggression+AggressionStep)) > 1e-9 {
		t.Errorf("aggression = %v", got)
	}
	c.Do(CmdGravityDown)
	if got := tuning.Get().GravityPull; math.Abs(got-(config.DefaultGravityPull-GravityStep)) > 1e-9 {
		t.Errorf("gravity = %v", got)
	}

	eng.SetSpeed(2)
	c.Do(CmdPause)
	if eng.Speed() != 0 || !c.Paused() {
		t.Fatalf("speed = %v after pause", eng.Speed())
	}
	c.Do(CmdPause)
	if eng.Speed() != 2 || c.Paused() {
		t.Errorf("speed = %v after unpause, want 2", eng.Speed())
	}

	if c.Do(CmdQuit) {
		t.Error("quit should return false")
	}
}

func TestControllerQueuesIntents(t *testing.T) {
	tuning := config.NewLive(config.DefaultTuning())
	sim := engine.NewSimulation(world.Bounds{Width: 800, Height: 600}, 1, tuning)
	c := NewController(sim, engine.NewEngine(60), tuning)

	c.Do(CmdHunt)
	c.Do(CmdBurst)
	c.Move(engine.Movement{Right: true})
	sim.Step(16)

	if sim.Stats.Hunts != 1 || sim.Stats.Bursts != 1 {
		t.Errorf("hunts = %d bursts = %d", sim.Stats.Hunts, sim.Stats.Bursts)
	}
	if !sim.Movement.Right {
		t.Error("movement not applied")
	}
}

func TestHUD(t *testing.T) {
	if lines := HUD(nil, config.DefaultTuning(), false); len(lines) != 1 {
		t.Fatalf("nil snapshot lines = %v", lines)
	}
	sim := engine.NewSimulation(world.Bounds{Width: 800, Height: 600}, 1, nil)
	sim.Step(16)
	lines := HUD(sim.Latest(), config.DefaultTuning(), true)
	if !strings.Contains(lines[0], "paused") {
		t.Errorf("status line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "nova ready") {
		t.Errorf("nova line = %q", lines[2])
	}
	if g := Gauges(sim.Latest()); len(g) != 6 {
		t.Errorf("gauges = %d", len(g))
	}
}
