// Package term is the tcell terminal frontend. Terminals report key presses
// but not releases, so held movement is approximated by letting each press
// keep its direction alive for a short window.
package term

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/render"
)

// holdWindow is how long one key press keeps a direction held. Key repeat
// refreshes it before it lapses.
const holdWindow = 150 * time.Millisecond

// hudRows is the number of rows reserved above the playfield.
const hudRows = 6

// View draws snapshots to a tcell screen and feeds key presses to a
// controller.
type View struct {
	screen tcell.Screen
	ctl    *render.Controller
	cue    render.Cue
	now    func() time.Time

	held  [4]time.Time // expiry per direction: up, down, left, right
	watch render.ExplosionWatch
}

// New wraps an initialised screen. cue may be nil.
func New(screen tcell.Screen, ctl *render.Controller, cue render.Cue) *View {
	return &View{screen: screen, ctl: ctl, cue: cue, now: time.Now}
}

// Run polls input and redraws at fps until ctx is cancelled or the player
// quits. The caller owns screen.Fini.
func (v *View) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = engine.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				// Screen finalised.
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-eventChan:
			if !v.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			v.ctl.Move(v.movement())
			v.Draw()
		}
	}
}

// HandleEvent applies one terminal event. It returns false on quit.
func (v *View) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			v.hold(0)
		case tcell.KeyDown:
			v.hold(1)
		case tcell.KeyLeft:
			v.hold(2)
		case tcell.KeyRight:
			v.hold(3)
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'w', 'W':
				v.hold(0)
			case 's', 'S':
				v.hold(1)
			case 'a', 'A':
				v.hold(2)
			case 'd', 'D':
				v.hold(3)
			default:
				return v.ctl.Do(render.CommandForRune(ev.Rune()))
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *View) hold(dir int) {
	v.held[dir] = v.now().Add(holdWindow)
}

func (v *View) movement() engine.Movement {
	now := v.now()
	return engine.Movement{
		Up:    now.Before(v.held[0]),
		Down:  now.Before(v.held[1]),
		Left:  now.Before(v.held[2]),
		Right: now.Before(v.held[3]),
	}
}

// Projector maps world coordinates onto terminal cells below the HUD.
type Projector struct {
	Cols, Rows    int // playfield cells
	Width, Height float64
}

// Cell returns the cell for world point (x, y), clamped onto the grid.
func (p Projector) Cell(x, y float64) (col, row int) {
	if p.Width <= 0 || p.Height <= 0 || p.Cols <= 0 || p.Rows <= 0 {
		return 0, hudRows
	}
	col = int(math.Floor(x / p.Width * float64(p.Cols)))
	row = int(math.Floor(y / p.Height * float64(p.Rows)))
	col = min(max(col, 0), p.Cols-1)
	row = min(max(row, 0), p.Rows-1)
	return col, row + hudRows
}

// CellsX converts a world distance into a column count.
func (p Projector) CellsX(d float64) float64 {
	if p.Width <= 0 {
		return 0
	}
	return d / p.Width * float64(p.Cols)
}

// CellsY converts a world distance into a row count.
func (p Projector) CellsY(d float64) float64 {
	if p.Height <= 0 {
		return 0
	}
	return d / p.Height * float64(p.Rows)
}

// Draw renders the latest snapshot.
func (v *View) Draw() {
	v.screen.Clear()
	snap := v.ctl.Sim.Latest()
	cols, rows := v.screen.Size()
	hud := tcell.StyleDefault.Foreground(rgb(render.HUDText))

	for i, line := range render.HUD(snap, v.ctl.Tuning.Get(), v.ctl.Paused()) {
		if i >= hudRows-1 {
			break
		}
		v.text(0, i, line, hud)
	}
	if snap == nil {
		v.screen.Show()
		return
	}
	v.gauges(0, hudRows-1, snap, hud)

	p := Projector{Cols: cols, Rows: rows - hudRows, Width: snap.Width, Height: snap.Height}

	for _, t := range snap.Tendrils {
		n := len(t.Trail)
		for i, pt := range t.Trail {
			c, r := p.Cell(pt.X, pt.Y)
			v.screen.SetContent(c, r, '·', nil, tcell.StyleDefault.Foreground(rgb(render.TrailColor(t, i, n))))
		}
		c, r := p.Cell(t.Position.X, t.Position.Y)
		ch := '•'
		if t.Immolating {
			ch = '*'
		}
		v.screen.SetContent(c, r, ch, nil, tcell.StyleDefault.Foreground(rgb(render.TendrilColor(t))))
	}

	v.drawSingularity(p, snap.Singular)

	if ring, ok := render.ExplosionRing(snap.Explosion); ok {
		v.ring(p, ring)
	}
	v.cueExplosion(snap.Explosion)
	v.screen.Show()
}

func (v *View) drawSingularity(p Projector, s engine.SingularityView) {
	if s.State == "dead" {
		return
	}
	style := tcell.StyleDefault.Foreground(rgb(render.SingularityColor(s)))
	cx, cy := p.Cell(s.Position.X, s.Position.Y)
	rx := max(int(math.Round(p.CellsX(s.Radius))), 0)
	ry := max(int(math.Round(p.CellsY(s.Radius))), 0)
	for dy := -ry; dy <= ry; dy++ {
		for dx := -rx; dx <= rx; dx++ {
			if rx > 0 && ry > 0 {
				nx, ny := float64(dx)/float64(rx), float64(dy)/float64(ry)
				if nx*nx+ny*ny > 1 {
					continue
				}
			}
			v.screen.SetContent(cx+dx, cy+dy, '█', nil, style)
		}
	}
}

func (v *View) ring(p Projector, ring render.Ring) {
	style := tcell.StyleDefault.Foreground(rgb(ring.Color))
	steps := 48
	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		c, r := p.Cell(ring.X+ring.Radius*math.Cos(theta), ring.Y+ring.Radius*math.Sin(theta))
		v.screen.SetContent(c, r, 'o', nil, style)
	}
}

func (v *View) gauges(x, y int, snap *engine.Snapshot, style tcell.Style) {
	const barW = 8
	for _, g := range render.Gauges(snap) {
		filled := int(math.Round(g.Fraction * barW))
		bar := fmt.Sprintf("%s[", g.Label)
		for i := 0; i < barW; i++ {
			if i < filled {
				bar += "="
			} else {
				bar += " "
			}
		}
		bar += "] "
		v.text(x, y, bar, style)
		x += len(bar)
	}
}

func (v *View) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (v *View) cueExplosion(e engine.Explosion) {
	if v.watch.Fresh(e) && v.cue != nil {
		v.cue.Play(e.Kind)
	}
}

func rgb(c interface{ RGBA() (r, g, b, a uint32) }) tcell.Color {
	r, g, b, _ := c.RGBA()
	return tcell.NewRGBColor(int32(r>>8), int32(g>>8), int32(b>>8))
}
