package logic

import "time"

// FrameRate counts frame arrivals and turns them into frames per second
// each time it is sampled.
type FrameRate struct {
	frames int
	total  uint64
	since  time.Time
	fps    float64
}

// NewFrameRate creates a FrameRate whose first sample window starts at start.
func NewFrameRate(start time.Time) *FrameRate {
	return &FrameRate{since: start}
}

// Frame records the arrival of one frame.
func (r *FrameRate) Frame() {
	r.frames++
	r.total++
}

// Sample computes the rate over the window since the previous sample and
// starts a new window. A non-positive window keeps the previous rate.
func (r *FrameRate) Sample(now time.Time) float64 {
	elapsed := now.Sub(r.since)
	if elapsed <= 0 {
		return r.fps
	}
	r.fps = float64(r.frames) / elapsed.Seconds()
	r.frames = 0
	r.since = now
	return r.fps
}

// FPS returns the most recently sampled rate.
func (r *FrameRate) FPS() float64 {
	return r.fps
}

// Total returns the number of frames seen since start.
func (r *FrameRate) Total() uint64 {
	return r.total
}

// Heartbeat gates periodic status events.
type Heartbeat struct {
	interval time.Duration
	last     time.Time
}

// NewHeartbeat creates a heartbeat whose first beat is due one interval
// after start. An interval <= 0 disables it.
func NewHeartbeat(interval time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{interval: interval, last: start}
}

// Due reports whether the interval has elapsed since the last beat (or
// start). When it returns true the next beat is scheduled from now.
func (h *Heartbeat) Due(now time.Time) bool {
	if h.interval <= 0 {
		return false
	}
	if now.Sub(h.last) < h.interval {
		return false
	}
	h.last = now
	return true
}
