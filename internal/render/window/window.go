// Package window is the Ebiten desktop frontend. It draws the latest
// snapshot and turns keyboard state into simulation intents; the
// simulation itself runs on the engine goroutine.
package window

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/talgya/singularity/internal/engine"
	"github.com/talgya/singularity/internal/render"
)

// ErrQuit is returned from Update when the player quits.
var ErrQuit = errors.New("quit")

// Game implements ebiten.Game over a running simulation.
type Game struct {
	ctl    *render.Controller
	corona *render.Corona
	cue    render.Cue
	width  int
	height int
	watch  render.ExplosionWatch
}

// New creates the window frontend. cue may be nil.
func New(ctl *render.Controller, seed int64, cue render.Cue) *Game {
	b := ctl.Sim.Bounds
	return &Game{
		ctl:    ctl,
		corona: render.NewCorona(seed, 48),
		cue:    cue,
		width:  int(b.Width),
		height: int(b.Height),
	}
}

// Run opens the window and blocks until it is closed or the player quits.
func (g *Game) Run(title string) error {
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle(title)
	ebiten.SetTPS(engine.DefaultFPS)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ErrQuit) {
		return fmt.Errorf("run window: %w", err)
	}
	return nil
}

var keyCommands = map[ebiten.Key]render.Command{
	ebiten.KeyH:            render.CmdHunt,
	ebiten.KeyB:            render.CmdBurst,
	ebiten.KeyN:            render.CmdNova,
	ebiten.KeyBracketLeft:  render.CmdAggressionDown,
	ebiten.KeyBracketRight: render.CmdAggressionUp,
	ebiten.KeyMinus:        render.CmdGravityDown,
	ebiten.KeyEqual:        render.CmdGravityUp,
	ebiten.KeyP:            render.CmdPause,
	ebiten.KeyQ:            render.CmdQuit,
	ebiten.KeyEscape:       render.CmdQuit,
}

// Update polls input. It runs at the ebiten TPS, independent of the engine.
func (g *Game) Update() error {
	for key, cmd := range keyCommands {
		if inpututil.IsKeyJustPressed(key) && !g.ctl.Do(cmd) {
			return ErrQuit
		}
	}

	g.ctl.Move(engine.Movement{
		Up:    ebiten.IsKeyPressed(ebiten.KeyArrowUp) || ebiten.IsKeyPressed(ebiten.KeyW),
		Down:  ebiten.IsKeyPressed(ebiten.KeyArrowDown) || ebiten.IsKeyPressed(ebiten.KeyS),
		Left:  ebiten.IsKeyPressed(ebiten.KeyArrowLeft) || ebiten.IsKeyPressed(ebiten.KeyA),
		Right: ebiten.IsKeyPressed(ebiten.KeyArrowRight) || ebiten.IsKeyPressed(ebiten.KeyD),
	})

	if snap := g.ctl.Sim.Latest(); snap != nil {
		g.cueExplosion(snap.Explosion)
	}
	return nil
}

func (g *Game) cueExplosion(e engine.Explosion) {
	if g.watch.Fresh(e) && g.cue != nil {
		g.cue.Play(e.Kind)
	}
}

// Draw renders the latest snapshot.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(render.Background)

	snap := g.ctl.Sim.Latest()
	if snap == nil {
		text.Draw(screen, "waiting for first frame...", basicfont.Face7x13, 6, 18, render.HUDText)
		return
	}

	drawTendrils(screen, snap.Tendrils)
	g.drawSingularity(screen, snap)
	if ring, ok := render.ExplosionRing(snap.Explosion); ok {
		vector.StrokeCircle(screen, float32(ring.X), float32(ring.Y), float32(ring.Radius), float32(ring.Width), ring.Color, true)
	}
	drawHUD(screen, snap, g.ctl)
}

func drawTendrils(screen *ebiten.Image, tendrils []engine.TendrilView) {
	for _, t := range tendrils {
		n := len(t.Trail)
		for i := 1; i < n; i++ {
			a, b := t.Trail[i-1], t.Trail[i]
			vector.StrokeLine(screen, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), 1.5, render.TrailColor(t, i, n), true)
		}
		r := float32(3)
		if t.Immolating {
			r += float32(4 * t.Immolation)
		}
		vector.DrawFilledCircle(screen, float32(t.Position.X), float32(t.Position.Y), r, render.TendrilColor(t), true)
	}
}

func (g *Game) drawSingularity(screen *ebiten.Image, snap *engine.Snapshot) {
	s := snap.Singular
	if s.State == "dead" {
		return
	}
	c := render.SingularityColor(s)

	pts := g.corona.RimPoints(s.Position.X, s.Position.Y, s.Radius, snap.Elapsed, s.Health)
	var path vector.Path
	for i, p := range pts {
		if i == 0 {
			path.MoveTo(float32(p[0]), float32(p[1]))
		} else {
			path.LineTo(float32(p[0]), float32(p[1]))
		}
	}
	path.Close()
	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	for i := range vs {
		vs[i].SrcX, vs[i].SrcY = 1, 1
		vs[i].ColorR = float32(c.R) / 255
		vs[i].ColorG = float32(c.G) / 255
		vs[i].ColorB = float32(c.B) / 255
		vs[i].ColorA = 0.45
	}
	screen.DrawTriangles(vs, is, whitePixel, &ebiten.DrawTrianglesOptions{AntiAlias: true})

	vector.DrawFilledCircle(screen, float32(s.Position.X), float32(s.Position.Y), float32(s.Radius), c, true)
}

func drawHUD(screen *ebiten.Image, snap *engine.Snapshot, ctl *render.Controller) {
	for i, line := range render.HUD(snap, ctl.Tuning.Get(), ctl.Paused()) {
		text.Draw(screen, line, basicfont.Face7x13, 8, 16+i*15, render.HUDText)
	}

	// Meter bars along the bottom edge.
	const barW, barH, gap = 90, 6, 10
	y := float32(screen.Bounds().Dy() - 24)
	for i, gauge := range render.Gauges(snap) {
		x := float32(8 + i*(barW+gap))
		text.Draw(screen, gauge.Label, basicfont.Face7x13, int(x), int(y)-4, render.HUDText)
		vector.StrokeRect(screen, x, y, barW, barH, 1, render.HUDText, false)
		fill := render.HealthColor(gauge.Fraction)
		if gauge.Label != "abyss" {
			fill = render.TendrilHue
		}
		vector.DrawFilledRect(screen, x, y, float32(barW*gauge.Fraction), barH, fill, false)
	}
}

// Layout pins the logical screen to the playfield size.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}

// whitePixel is the source texture for flat-coloured triangles.
var whitePixel = func() *ebiten.Image {
	img := ebiten.NewImage(3, 3)
	img.Fill(color.White)
	return img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
}()
