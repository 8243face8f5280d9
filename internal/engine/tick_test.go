package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEngineLayers(t *testing.T) {
	e := NewEngine(60)
	var frames, seconds, minutes int
	var total float64
	e.OnFrame = func(_ uint64, delta float64) {
		frames++
		total += delta
	}
	e.OnSecond = func(uint64) { seconds++ }
	e.OnMinute = func(uint64) { minutes++ }

	for i := 0; i < 4; i++ {
		e.Advance(250)
	}
	if frames != 4 || seconds != 1 || minutes != 0 {
		t.Fatalf("frames=%d seconds=%d minutes=%d", frames, seconds, minutes)
	}

	for i := 0; i < 59*10; i++ {
		e.Advance(100)
	}
	if seconds != 60 || minutes != 1 {
		t.Errorf("seconds=%d minutes=%d, want 60 and 1", seconds, minutes)
	}
	if total != 60000 {
		t.Errorf("total delta = %v", total)
	}
}

func TestEngineClampsDelta(t *testing.T) {
	e := NewEngine(60)
	var got []float64
	e.OnFrame = func(_ uint64, delta float64) { got = append(got, delta) }

	e.Advance(5000)
	e.Advance(-3)
	if got[0] != MaxFrameDelta || got[1] != 0 {
		t.Errorf("deltas = %v, want [%v 0]", got, MaxFrameDelta)
	}
}

func TestEngineSpeed(t *testing.T) {
	e := NewEngine(0)
	if e.Interval != time.Second/DefaultFPS {
		t.Errorf("interval = %v", e.Interval)
	}
	if e.Speed() != 1 {
		t.Errorf("default speed = %v", e.Speed())
	}
	e.SetSpeed(-2)
	if e.Speed() != 0 {
		t.Errorf("negative speed = %v, want paused", e.Speed())
	}
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	e := NewEngine(1000)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if e.Running() {
		t.Error("still running")
	}
	if e.Frame == 0 {
		t.Error("no frames advanced")
	}
}

func TestEngineIdlesWhilePaused(t *testing.T) {
	e := NewEngine(1000)
	e.SetSpeed(0)
	var frames, idles atomic.Int32
	e.OnFrame = func(uint64, float64) { frames.Add(1) }
	e.OnIdle = func() { idles.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * pausePoll)
	cancel()
	<-done

	if frames.Load() != 0 || e.Frame != 0 {
		t.Errorf("frames = %d while paused", frames.Load())
	}
	if idles.Load() < 2 {
		t.Errorf("idle polls = %d, want several", idles.Load())
	}
}
