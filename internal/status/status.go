// Package status provides a thread-safe status tracker for the detection dashboard.
// The run loop writes to it; HTTP handlers, the live feed and metrics read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/detection-dashboard/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	FrameIntervalMs int64
	HeartbeatMs     int64
	RefreshMs       int64
	Source          string
	Broker          string
	DetectorTopic   string // only meaningful for the mqtt source
	HTTPAddr        string
	SwitchPin       int // gpio.NoPin when there is no hardware switch
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
// Log is shared between snapshots and must not be modified.
type Snapshot struct {
	Summary       logic.Summary
	Log           []logic.Detection // newest first
	FPS           float64
	Frames        uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
// Detection starts out enabled.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Summary:   logic.Summary{Enabled: true},
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the aggregated totals and the recent detection log.
// The tracker keeps log as-is; callers hand over a fresh copy.
func (t *Tracker) Update(summary logic.Summary, log []logic.Detection) {
	t.mu.Lock()
	t.snap.Summary = summary
	t.snap.Log = log
	t.mu.Unlock()
}

// SetFrameRate sets the sampled frame rate and total frame count.
func (t *Tracker) SetFrameRate(fps float64, frames uint64) {
	t.mu.Lock()
	t.snap.FPS = fps
	t.snap.Frames = frames
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
