// Package logic contains the pure detection statistics logic.
// This package has NO external dependencies (no MQTT, GPIO, HTTP, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// MaxLogEntries is the capacity of the recent detection log.
const MaxLogEntries = 50

// NoData is shown in place of an average before anything has been detected.
const NoData = "no data"

// MaxObjects is the largest object count accepted for a single detection.
const MaxObjects = 10000

// Confidence bounds, in percent.
const (
	MinConfidence = 0.0
	MaxConfidence = 100.0
)

// Detection is one reported observation: how many objects were seen in a
// frame and the detector's confidence for that frame.
// Treat it as immutable once recorded.
type Detection struct {
	Timestamp  time.Time
	Objects    int
	Confidence float64  // percent, 0..100
	Labels     []string // optional class names, e.g. "person"
}

// Summary is a point-in-time view of the aggregated totals.
type Summary struct {
	TotalObjects  int
	Events        int
	ConfidenceSum float64
	Enabled       bool
}

// AverageConfidence returns the confidence sum divided by the number of
// detected objects. ok is false when nothing has been detected yet.
func (s Summary) AverageConfidence() (avg float64, ok bool) {
	if s.TotalObjects == 0 {
		return 0, false
	}
	return s.ConfidenceSum / float64(s.TotalObjects), true
}

// EventConfidence returns the mean confidence per recorded detection event.
// ok is false when no event has been recorded yet.
func (s Summary) EventConfidence() (avg float64, ok bool) {
	if s.Events == 0 {
		return 0, false
	}
	return s.ConfidenceSum / float64(s.Events), true
}

// AverageText formats AverageConfidence to one decimal place, e.g. "34.0%",
// or returns NoData.
func (s Summary) AverageText() string {
	avg, ok := s.AverageConfidence()
	if !ok {
		return NoData
	}
	return fmt.Sprintf("%.1f%%", avg)
}
