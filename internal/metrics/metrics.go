// Package metrics exposes detection statistics to Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sweeney/detection-dashboard/internal/status"
)

// SnapshotSource provides the state the gauges are read from.
type SnapshotSource interface {
	Snapshot() status.Snapshot
}

// Metrics holds the error counters incremented by the run loop and the
// registry serving them alongside the tracker gauges.
type Metrics struct {
	SourceErrors  atomic.Uint64
	PublishErrors atomic.Uint64
	SwitchErrors  atomic.Uint64

	tracker  SnapshotSource
	registry *prometheus.Registry
}

// New creates a Metrics instance whose gauges read from tracker on scrape.
func New(tracker SnapshotSource) *Metrics {
	m := &Metrics{
		tracker:  tracker,
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) gauge(name, help string, value func(status.Snapshot) float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 { return value(m.tracker.Snapshot()) },
	))
}

// snapshotCounter registers a monotonic value read from the tracker.
func (m *Metrics) snapshotCounter(name, help string, value func(status.Snapshot) float64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return value(m.tracker.Snapshot()) },
	))
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (m *Metrics) registerPrometheusMetrics() {
	m.snapshotCounter("detection_objects_total", "Objects detected since startup",
		func(s status.Snapshot) float64 { return float64(s.Summary.TotalObjects) })
	m.snapshotCounter("detection_events_total", "Detection events recorded since startup",
		func(s status.Snapshot) float64 { return float64(s.Summary.Events) })
	m.gauge("detection_confidence_sum", "Sum of recorded detection confidences (percent)",
		func(s status.Snapshot) float64 { return s.Summary.ConfidenceSum })
	m.gauge("detection_confidence_per_object", "Confidence sum divided by objects detected (0 with no data)",
		func(s status.Snapshot) float64 {
			avg, _ := s.Summary.AverageConfidence()
			return avg
		})
	m.gauge("detection_enabled", "1 while detection is running",
		func(s status.Snapshot) float64 { return boolGauge(s.Summary.Enabled) })
	m.gauge("detection_log_entries", "Entries in the recent detection log",
		func(s status.Snapshot) float64 { return float64(len(s.Log)) })
	m.gauge("detection_fps", "Frames per second over the last sample window",
		func(s status.Snapshot) float64 { return s.FPS })
	m.snapshotCounter("detection_frames_total", "Frames seen since startup",
		func(s status.Snapshot) float64 { return float64(s.Frames) })
	m.gauge("detection_mqtt_connected", "1 while the MQTT broker connection is up",
		func(s status.Snapshot) float64 { return boolGauge(s.MQTTConnected) })
	m.gauge("detection_uptime_seconds", "Seconds since the daemon started",
		func(s status.Snapshot) float64 { return s.Uptime().Seconds() })

	m.counter("detection_source_errors_total", "Detection source read errors", &m.SourceErrors)
	m.counter("detection_publish_errors_total", "MQTT publish errors", &m.PublishErrors)
	m.counter("detection_switch_errors_total", "Hardware switch read errors", &m.SwitchErrors)
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
