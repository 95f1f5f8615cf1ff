package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event             string          `json:"event,omitempty"`
	Reason            string          `json:"reason,omitempty"`
	Detecting         bool            `json:"is_detecting"`
	TotalObjects      int             `json:"total_objects"`
	Events            int             `json:"events"`
	ConfidenceSum     float64         `json:"confidence_sum"`
	AvgConfidence     *float64        `json:"avg_confidence"`
	AvgConfidenceText string          `json:"avg_confidence_text"`
	EventConfidence   *float64        `json:"event_confidence"`
	FPS               float64         `json:"fps"`
	Frames            uint64          `json:"frames"`
	History           []DetectionJSON `json:"detection_history,omitempty"`
	UptimeSeconds     int64           `json:"uptime_seconds"`
	StartTime         string          `json:"start_time"`
	Timestamp         string          `json:"timestamp"`
	MQTT              MQTTStatus      `json:"mqtt"`
	Config            ConfigJSON      `json:"config"`
}

// DetectionJSON is the JSON representation of one logged detection.
type DetectionJSON struct {
	Timestamp  string   `json:"timestamp"`
	Objects    int      `json:"objects"`
	Confidence float64  `json:"confidence"`
	Labels     []string `json:"labels,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	FrameIntervalMs int64  `json:"frame_interval_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	RefreshMs       int64  `json:"refresh_ms"`
	Source          string `json:"source"`
	Broker          string `json:"broker"`
	DetectorTopic   string `json:"detector_topic,omitempty"`
	HTTPAddr        string `json:"http_addr"`
	SwitchPin       int    `json:"switch_pin"`
}

// round1 rounds to one decimal place, as shown on the dashboard.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	r := round1(v)
	return &r
}

func buildInner(snap Snapshot) StatusInner {
	sum := snap.Summary
	return StatusInner{
		Detecting:         sum.Enabled,
		TotalObjects:      sum.TotalObjects,
		Events:            sum.Events,
		ConfidenceSum:     round1(sum.ConfidenceSum),
		AvgConfidence:     optional(sum.AverageConfidence()),
		AvgConfidenceText: sum.AverageText(),
		EventConfidence:   optional(sum.EventConfidence()),
		FPS:               round1(snap.FPS),
		Frames:            snap.Frames,
		UptimeSeconds:     int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:         snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:         snap.Now.UTC().Format(time.RFC3339),
		MQTT:              MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			FrameIntervalMs: snap.Config.FrameIntervalMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			RefreshMs:       snap.Config.RefreshMs,
			Source:          snap.Config.Source,
			Broker:          snap.Config.Broker,
			DetectorTopic:   snap.Config.DetectorTopic,
			HTTPAddr:        snap.Config.HTTPAddr,
			SwitchPin:       snap.Config.SwitchPin,
		},
	}
}

func buildHistory(snap Snapshot, inner *StatusInner) {
	if len(snap.Log) == 0 {
		return
	}
	inner.History = make([]DetectionJSON, len(snap.Log))
	for i, d := range snap.Log {
		inner.History[i] = DetectionJSON{
			Timestamp:  d.Timestamp.UTC().Format(time.RFC3339Nano),
			Objects:    d.Objects,
			Confidence: round1(d.Confidence),
			Labels:     d.Labels,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoints and live feed,
// including the recent detection history (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildHistory(snap, &inner)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// The detection history is left out to keep the message small.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
