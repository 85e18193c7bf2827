// Package timer measures frame deltas and total running time with pause support.
package timer

import "time"

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Snapshot is the timing handed to per-frame updates.
type Snapshot struct {
	Total float32 // seconds since Reset, excluding paused time
	Delta float32 // seconds since the previous Tick
}

// Timer tracks total and per-frame elapsed time.
type Timer struct {
	now Clock

	base     time.Time
	prev     time.Time
	stopTime time.Time
	paused   time.Duration
	delta    time.Duration
	stopped  bool
}

// New creates a timer driven by the wall clock.
func New() *Timer {
	return NewWithClock(time.Now)
}

// NewWithClock creates a timer driven by clock.
func NewWithClock(clock Clock) *Timer {
	t := &Timer{now: clock}
	t.Reset()
	return t
}

// Reset restarts timing from now.
func (t *Timer) Reset() {
	now := t.now()
	t.base = now
	t.prev = now
	t.stopTime = time.Time{}
	t.paused = 0
	t.delta = 0
	t.stopped = false
}

// Start resumes a stopped timer. Time spent stopped is excluded from TotalTime.
func (t *Timer) Start() {
	if !t.stopped {
		return
	}
	now := t.now()
	t.paused += now.Sub(t.stopTime)
	t.prev = now
	t.stopTime = time.Time{}
	t.stopped = false
}

// Stop pauses the timer.
func (t *Timer) Stop() {
	if t.stopped {
		return
	}
	t.stopTime = t.now()
	t.stopped = true
}

// Stopped reports whether the timer is paused.
func (t *Timer) Stopped() bool { return t.stopped }

// Tick measures the time since the previous Tick. Stopped timers report 0.
func (t *Timer) Tick() {
	if t.stopped {
		t.delta = 0
		return
	}
	now := t.now()
	t.delta = now.Sub(t.prev)
	t.prev = now
	// The clock can step backwards (suspend, clock adjustments).
	if t.delta < 0 {
		t.delta = 0
	}
}

// DeltaTime returns the last Tick's duration in seconds.
func (t *Timer) DeltaTime() float32 { return float32(t.delta.Seconds()) }

// TotalTime returns seconds since Reset, excluding paused time.
func (t *Timer) TotalTime() float32 {
	end := t.prev
	if t.stopped {
		end = t.stopTime
	}
	return float32((end.Sub(t.base) - t.paused).Seconds())
}

// Snapshot returns the current total and delta.
func (t *Timer) Snapshot() Snapshot {
	return Snapshot{Total: t.TotalTime(), Delta: t.DeltaTime()}
}

// FrameStats averages frame rate over one-second windows.
type FrameStats struct {
	frames    int
	windowEnd float32
	FPS       float32
	MSPF      float32
}

// Frame counts one frame at total time. It returns true when a one-second
// window closed and FPS/MSPF were refreshed.
func (s *FrameStats) Frame(total float32) bool {
	s.frames++
	if s.windowEnd == 0 {
		s.windowEnd = total + 1
	}
	if total < s.windowEnd {
		return false
	}
	s.FPS = float32(s.frames)
	s.MSPF = 1000 / s.FPS
	s.frames = 0
	s.windowEnd = total + 1
	return true
}
