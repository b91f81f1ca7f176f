package prism

import (
	"time"
)

// FrameTimer tracks per-frame delta time and a smoothed frames-per-second
// estimate.
type FrameTimer struct {
	last time.Time
	dt   time.Duration

	frames  int
	elapsed time.Duration
	fps     float64
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{last: time.Now()}
}

// Tick marks a frame boundary and returns the delta in seconds.
func (t *FrameTimer) Tick() float32 {
	now := time.Now()
	t.dt = now.Sub(t.last)
	t.last = now

	t.frames++
	t.elapsed += t.dt
	if t.elapsed >= time.Second {
		t.fps = float64(t.frames) / t.elapsed.Seconds()
		t.frames = 0
		t.elapsed = 0
	}
	return float32(t.dt.Seconds())
}

func (t *FrameTimer) Dt() time.Duration { return t.dt }
func (t *FrameTimer) FPS() float64      { return t.fps }
