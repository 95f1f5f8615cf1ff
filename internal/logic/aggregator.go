package logic

import (
	"math"
	"slices"
)

// Aggregator keeps running detection totals and a bounded, newest-first log
// of recent detections.
//
// An Aggregator is owned by a single goroutine; it holds no lock.
type Aggregator struct {
	totalObjects  int
	events        int
	confidenceSum float64
	log           *history
	enabled       bool
}

// NewAggregator returns an empty aggregator with detection enabled.
func NewAggregator() *Aggregator {
	return &Aggregator{
		log:     newHistory(MaxLogEntries),
		enabled: true,
	}
}

// Record adds a detection to the totals and the front of the log, evicting
// the oldest log entry once MaxLogEntries is exceeded.
//
// Confidence is clamped to [MinConfidence, MaxConfidence]. Detections with
// fewer than one or more than MaxObjects objects are ignored, as is any
// detection while disabled or one that would overflow the object total.
// Record reports whether d was recorded.
func (a *Aggregator) Record(d Detection) bool {
	if !a.enabled || d.Objects < 1 || d.Objects > MaxObjects {
		return false
	}
	if d.Objects > math.MaxInt-a.totalObjects || a.events == math.MaxInt {
		return false
	}
	d.Confidence = clampConfidence(d.Confidence)
	d.Labels = slices.Clone(d.Labels)

	a.totalObjects += d.Objects
	a.confidenceSum += d.Confidence
	a.events++
	a.log.push(d)
	return true
}

// SetEnabled starts or stops detection. Totals and log are left untouched.
func (a *Aggregator) SetEnabled(enabled bool) {
	a.enabled = enabled
}

// Enabled reports whether detections are currently being recorded.
func (a *Aggregator) Enabled() bool {
	return a.enabled
}

// Summary returns the current totals.
func (a *Aggregator) Summary() Summary {
	return Summary{
		TotalObjects:  a.totalObjects,
		Events:        a.events,
		ConfidenceSum: a.confidenceSum,
		Enabled:       a.enabled,
	}
}

// Log returns a copy of the recent detections, most recent first.
func (a *Aggregator) Log() []Detection {
	return a.log.newestFirst()
}

// Latest returns the most recently recorded detection as stored, with its
// confidence already clamped.
func (a *Aggregator) Latest() (Detection, bool) {
	return a.log.newest()
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c):
		return MinConfidence
	case c < MinConfidence:
		return MinConfidence
	case c > MaxConfidence:
		return MaxConfidence
	}
	return c
}
