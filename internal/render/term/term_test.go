package term

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/singularity/internal/config"
	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/render"
	"github.com/talgya/singularity/internal/world"
)

func newTestView(t *testing.T) (*View, tcell.SimulationScreen, *engine.Simulation) {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 30)

	tuning := config.NewLive(config.DefaultTuning())
	sim := engine.NewSimulation(world.Bounds{Width: 800, Height: 600}, 1, tuning)
	ctl := render.NewController(sim, engine.NewEngine(60), tuning)
	return New(screen, ctl, nil), screen, sim
}

func TestProjectorCell(t *testing.T) {
	p := Projector{Cols: 80, Rows: 24, Width: 800, Height: 600}
	tests := []struct {
		x, y     float64
		col, row int
	}{
		{0, 0, 0, hudRows},
		{400, 300, 40, 12 + hudRows},
		{799.9, 599.9, 79, 23 + hudRows},
		{-50, 9000, 0, 23 + hudRows},
	}
	for _, tt := range tests {
		col, row := p.Cell(tt.x, tt.y)
		if col != tt.col || row != tt.row {
			t.Errorf("Cell(%v, %v) = (%d, %d), want (%d, %d)", tt.x, tt.y, col, row, tt.col, tt.row)
		}
	}
}

func TestHeldMovementExpires(t *testing.T) {
	v, _, _ := newTestView(t)
	now := time.Unix(0, 0)
	v.now = func() time.Time { return now }

	v.HandleEvent(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone))
	if m := v.movement(); !m.Right || !m.Up || m.Left || m.Down {
		t.Fatalf("movement = %+v", m)
	}

	now = now.Add(holdWindow + time.Millisecond)
	if m := v.movement(); m != (engine.Movement{}) {
		t.Errorf("movement after window = %+v, want none", m)
	}
}

func TestHandleEventCommands(t *testing.T) {
	v, _, sim := newTestView(t)

	if !v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'b', tcell.ModNone)) {
		t.Fatal("burst should not quit")
	}
	sim.Step(16)
	if sim.Stats.Bursts != 1 {
		t.Errorf("bursts = %d, want 1", sim.Stats.Bursts)
	}

	if v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("q should quit")
	}
	if v.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("esc should quit")
	}
}

func TestDrawSingularity(t *testing.T) {
	v, screen, sim := newTestView(t)
	sim.Step(16)
	v.Draw()

	snap := sim.Latest()
	cols, rows := screen.Size()
	p := Projector{Cols: cols, Rows: rows - hudRows, Width: snap.Width, Height: snap.Height}
	c, r := p.Cell(snap.Singular.Position.X, snap.Singular.Position.Y)

	mainc, _, _, _ := screen.GetContent(c, r)
	if mainc != '█' {
		t.Errorf("cell at singularity = %q, want block", mainc)
	}
	if first, _, _, _ := screen.GetContent(0, 0); first != 't' {
		t.Errorf("HUD first rune = %q, want 't'", first)
	}
}
