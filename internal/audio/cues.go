// Package audio plays short synthesized cues for explosions. It is optional:
// every method is a no-op until Initialize succeeds.
package audio

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/talgya/singularity/internal/engine"
)

const (
	sampleRate = beep.SampleRate(48000)
)

// Cue lengths.
const (
	novaLength  = 600 * time.Millisecond
	burstLength = 350 * time.Millisecond
	deathLength = 250 * time.Millisecond
)

// Player mixes explosion cues onto the speaker.
type Player struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	Volume      float64 // 0..1 master gain
}

// NewPlayer creates an uninitialized player.
func NewPlayer() *Player {
	return &Player{
		mixer:  &beep.Mixer{},
		Volume: 0.8,
	}
}

// Initialize opens the speaker. Safe to call twice.
func (p *Player) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*100)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

// Close silences the mixer and closes the speaker.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	p.initialized = false
}

// Play starts the cue for an explosion kind.
func (p *Player) Play(kind engine.ExplosionKind) {
	s := Cue(kind, p.Volume)
	if s == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
}

// Cue returns a finite streamer for kind, or nil for ExplosionNone.
func Cue(kind engine.ExplosionKind, gain float64) beep.Streamer {
	switch kind {
	case engine.ExplosionNova:
		return beep.Take(sampleRate.N(novaLength), NewNovaGenerator(sampleRate, gain))
	case engine.ExplosionBurst:
		return beep.Take(sampleRate.N(burstLength), NewBurstGenerator(sampleRate, gain))
	case engine.ExplosionDeath:
		return beep.Take(sampleRate.N(deathLength), NewDeathGenerator(sampleRate, gain))
	}
	return nil
}

// NovaGenerator is a rising roar: a pitch sweep over filtered noise.
type NovaGenerator struct {
	sr    beep.SampleRate
	gain  float64
	pos   int
	rng   *rand.Rand
	prev  float64
	phase float64
}

// NewNovaGenerator creates a nova cue generator.
func NewNovaGenerator(sr beep.SampleRate, gain float64) *NovaGenerator {
	return &NovaGenerator{sr: sr, gain: gain, rng: rand.New(rand.NewSource(1))}
}

func (g *NovaGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		// Sweep 90Hz -> 420Hz over the cue.
		freq := 90 + 330*math.Min(t/novaLength.Seconds(), 1)
		g.phase += 2 * math.Pi * freq / float64(g.sr)

		// One-pole low-pass keeps the noise a rumble.
		noise := g.rng.Float64()*2 - 1
		g.prev += 0.08 * (noise - g.prev)

		envelope := math.Min(t/0.03, 1) * math.Exp(-t*3)
		sample := g.gain * envelope * (0.35*math.Sin(g.phase) + 0.5*g.prev)

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *NovaGenerator) Err() error {
	return nil
}

// BurstGenerator is a hollow whoosh falling in pitch.
type BurstGenerator struct {
	sr    beep.SampleRate
	gain  float64
	pos   int
	phase float64
}

// NewBurstGenerator creates a burst cue generator.
func NewBurstGenerator(sr beep.SampleRate, gain float64) *BurstGenerator {
	return &BurstGenerator{sr: sr, gain: gain}
}

func (g *BurstGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		freq := 520 * math.Exp(-t*6)
		g.phase += 2 * math.Pi * freq / float64(g.sr)

		envelope := math.Exp(-t * 10)
		sample := g.gain * 0.3 * envelope * (math.Sin(g.phase) + 0.3*math.Sin(2*g.phase))

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *BurstGenerator) Err() error {
	return nil
}

// DeathGenerator is a low thud for each death pulse.
type DeathGenerator struct {
	sr   beep.SampleRate
	gain float64
	pos  int
}

// NewDeathGenerator creates a death pulse cue generator.
func NewDeathGenerator(sr beep.SampleRate, gain float64) *DeathGenerator {
	return &DeathGenerator{sr: sr, gain: gain}
}

func (g *DeathGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		envelope := 1.0 - math.Min(t/deathLength.Seconds(), 1)
		freq := 55 * (1 + 2*envelope)
		sample := g.gain * 0.45 * envelope * math.Sin(2*math.Pi*freq*t)

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *DeathGenerator) Err() error {
	return nil
}
