// Package source provides per-frame detection sources.
// The random source simulates a detector; the MQTT-backed source in
// internal/mqtt receives detections from a real inference node.
package source

import (
	"time"

	"github.com/sweeney/detection-dashboard/internal/logic"
)

// Source yields detections, at most one per frame.
type Source interface {
	// Next returns the detection for the frame arriving at now.
	// ok is false when the source has nothing for this frame.
	Next(now time.Time) (d logic.Detection, ok bool, err error)

	// Close releases the source.
	Close() error
}

// Simulated detector output ranges.
const (
	MaxSimulatedObjects    = 5
	MinSimulatedConfidence = 70.0
	SimulatedSpread        = 30.0
)
