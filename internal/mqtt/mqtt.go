// Package mqtt publishes detections and status events to an MQTT broker and
// receives detections from an external inference node, with abstraction for
// testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/detection-dashboard/internal/logic"
)

// TopicDetections is the MQTT topic every recorded detection is published to.
const TopicDetections = "vision/dashboard/detections"

// TopicSystem is the MQTT topic for system lifecycle and status events.
const TopicSystem = "vision/dashboard/system"

// System event names.
const (
	EventStartup          = "STARTUP"
	EventShutdown         = "SHUTDOWN"
	EventHeartbeat        = "HEARTBEAT"
	EventDetectionStarted = "DETECTION_STARTED"
	EventDetectionStopped = "DETECTION_STOPPED"
	EventOffline          = "OFFLINE"
)

// ErrEmptyDetection is returned for a detection payload with no objects.
var ErrEmptyDetection = errors.New("detection has no objects")

// ErrTooManyObjects is returned for an object count above logic.MaxObjects.
var ErrTooManyObjects = errors.New("detection object count out of range")

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishDetection sends a recorded detection to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishDetection(d logic.Detection) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., EventStartup, EventHeartbeat
	Reason     string // e.g., "SIGTERM", "http", "switch"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message payload for a detection, in both directions.
type Payload struct {
	Detection DetectionPayload `json:"detection"`
}

// DetectionPayload contains the detection details.
type DetectionPayload struct {
	Timestamp  string   `json:"timestamp,omitempty"`
	Objects    int      `json:"objects"`
	Confidence float64  `json:"confidence"`
	Labels     []string `json:"labels,omitempty"`
}

// FormatPayload creates the JSON payload for a detection.
func FormatPayload(d logic.Detection) ([]byte, error) {
	payload := Payload{
		Detection: DetectionPayload{
			Timestamp:  d.Timestamp.UTC().Format(time.RFC3339Nano),
			Objects:    d.Objects,
			Confidence: d.Confidence,
			Labels:     d.Labels,
		},
	}
	return json.Marshal(payload)
}

// ParsePayload decodes a detection published by an inference node.
// A missing timestamp is replaced with received.
func ParsePayload(data []byte, received time.Time) (logic.Detection, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return logic.Detection{}, fmt.Errorf("decode detection: %w", err)
	}
	if p.Detection.Objects < 1 {
		return logic.Detection{}, ErrEmptyDetection
	}
	if p.Detection.Objects > logic.MaxObjects {
		return logic.Detection{}, fmt.Errorf("%w: %d", ErrTooManyObjects, p.Detection.Objects)
	}

	ts := received
	if p.Detection.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, p.Detection.Timestamp)
		if err != nil {
			return logic.Detection{}, fmt.Errorf("decode detection timestamp: %w", err)
		}
		ts = parsed
	}

	return logic.Detection{
		Timestamp:  ts,
		Objects:    p.Detection.Objects,
		Confidence: p.Detection.Confidence,
		Labels:     p.Detection.Labels,
	}, nil
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (last will) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
