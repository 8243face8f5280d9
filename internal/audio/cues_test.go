package audio

import (
	"math"
	"testing"

	"github.com/talgya/singularity/internal/engine"
)

func drain(t *testing.T, kind engine.ExplosionKind) (total int, peak float64) {
	t.Helper()
	s := Cue(kind, 1)
	if s == nil {
		t.Fatalf("no cue for %v", kind)
	}
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			if smp[0] != smp[1] {
				t.Fatalf("channels differ: %v", smp)
			}
			if math.IsNaN(smp[0]) {
				t.Fatal("NaN sample")
			}
			peak = math.Max(peak, math.Abs(smp[0]))
		}
		total += n
		if !ok {
			return total, peak
		}
	}
}

func TestCueLengths(t *testing.T) {
	tests := []struct {
		kind engine.ExplosionKind
		want int
	}{
		{engine.ExplosionNova, sampleRate.N(novaLength)},
		{engine.ExplosionBurst, sampleRate.N(burstLength)},
		{engine.ExplosionDeath, sampleRate.N(deathLength)},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			total, peak := drain(t, tt.kind)
			if total != tt.want {
				t.Errorf("samples = %d, want %d", total, tt.want)
			}
			if peak == 0 || peak > 1 {
				t.Errorf("peak = %v, want (0, 1]", peak)
			}
		})
	}
}

func TestCueNone(t *testing.T) {
	if Cue(engine.ExplosionNone, 1) != nil {
		t.Error("ExplosionNone should have no cue")
	}
}

// TestPlayerWithoutInit verifies cues are dropped silently without a speaker.
func TestPlayerWithoutInit(t *testing.T) {
	p := NewPlayer()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("player panicked without initialization: %v", r)
		}
	}()

	p.Play(engine.ExplosionNova)
	p.Play(engine.ExplosionNone)
	p.Close()
}
