// Command detection-dashboard aggregates object detections, serves a live
// dashboard and publishes detections and status events to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/sweeney/detection-dashboard/internal/config"
	"github.com/sweeney/detection-dashboard/internal/gpio"
	"github.com/sweeney/detection-dashboard/internal/logic"
	"github.com/sweeney/detection-dashboard/internal/metrics"
	"github.com/sweeney/detection-dashboard/internal/mqtt"
	"github.com/sweeney/detection-dashboard/internal/source"
	"github.com/sweeney/detection-dashboard/internal/status"
	"github.com/sweeney/detection-dashboard/internal/web"
)

const (
	connectTimeout = 10 * time.Second
	fpsInterval    = time.Second
)

func main() {
	logger, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init log: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Errorf("%v", err)
		logger.Close()
		os.Exit(2)
	}

	if err := run(logger, cfg); err != nil {
		logger.Errorf("fatal: %v", err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func run(log logs.Log, cfg config.Config) error {
	// Initialize MQTT
	var publisher mqtt.Publisher = nopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	var client *mqtt.RealClient
	if cfg.Broker != "" {
		client = mqtt.NewRealClient(log, cfg.Broker, cfg.ClientID)
		if err := client.Connect(connectTimeout); err != nil {
			log.Warnf("mqtt: %v; retrying in the background", err)
		}
		defer client.Close()
		publisher = client
		mqttStatus = client
	}

	src, err := openSource(log, cfg, client)
	if err != nil {
		return err
	}
	defer src.Close()

	// Optional hardware start/stop switch
	var sw gpio.Reader
	if cfg.SwitchPin != gpio.NoPin {
		r, err := gpio.NewRealReader(cfg.SwitchPin)
		if err != nil {
			return fmt.Errorf("init gpio switch: %w", err)
		}
		defer r.Close()
		sw = r
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		FrameIntervalMs: cfg.FrameInterval.Milliseconds(),
		HeartbeatMs:     cfg.Heartbeat.Milliseconds(),
		RefreshMs:       cfg.Refresh.Milliseconds(),
		Source:          cfg.Source,
		Broker:          cfg.Broker,
		DetectorTopic:   detectorTopic(cfg),
		HTTPAddr:        cfg.HTTPAddr,
		SwitchPin:       cfg.SwitchPin,
	})
	m := metrics.New(tracker)

	d := &daemon{
		log:        log,
		source:     src,
		sw:         sw,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		metrics:    m,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}
	d.publishSystem(mqtt.EventStartup, "", true)

	control := make(chan bool)

	// Start HTTP dashboard
	if cfg.HTTPAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srv := web.New(log, cfg.HTTPAddr, tracker, controller(control), m, cfg.Refresh)
		go srv.RunLive(ctx)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http dashboard listening on %s", cfg.HTTPAddr)
	}

	log.Infof("started: source=%s frame=%v broker=%q heartbeat=%v switch=%d",
		cfg.Source, cfg.FrameInterval, cfg.Broker, cfg.Heartbeat, cfg.SwitchPin)

	frames := time.NewTicker(cfg.FrameInterval)
	defer frames.Stop()
	fps := time.NewTicker(fpsInterval)
	defer fps.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(frames.C, fps.C, control, sigCh)
}

func openSource(log logs.Log, cfg config.Config, client *mqtt.RealClient) (source.Source, error) {
	switch cfg.Source {
	case config.SourceMQTT:
		if client == nil {
			return nil, fmt.Errorf("mqtt source needs a broker: %w", config.ErrInvalid)
		}
		sub, err := client.SubscribeDetections(cfg.DetectorTopic, mqtt.DefaultQueueDepth)
		if err != nil {
			return nil, fmt.Errorf("subscribe detections: %w", err)
		}
		log.Infof("reading detections from %s", cfg.DetectorTopic)
		return sub, nil
	default:
		return source.NewRandomSource(cfg.Seed), nil
	}
}

func detectorTopic(cfg config.Config) string {
	if cfg.Source != config.SourceMQTT {
		return ""
	}
	return cfg.DetectorTopic
}

// controller hands start/stop requests from the web server to the run loop.
type controller chan<- bool

func (c controller) RequestDetection(ctx context.Context, enabled bool) error {
	select {
	case c <- enabled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// nopPublisher is used when no broker is configured.
type nopPublisher struct{}

func (nopPublisher) PublishDetection(logic.Detection) error { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error   { return nil }
func (nopPublisher) Close() error                           { return nil }

// discarder is a source that queues detections between frames.
type discarder interface {
	Discard() int
}

// daemon owns the aggregator. Only runLoop's goroutine touches it.
type daemon struct {
	log        logs.Log
	source     source.Source
	sw         gpio.Reader // nil without a hardware switch
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // nil without a broker
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	heartbeat  time.Duration
	now        func() time.Time

	agg        *logic.Aggregator
	switchSeen bool
	switchOn   bool
}

// runLoop pulls one detection per frame tick while detection is enabled,
// samples the frame rate on each fps tick, applies start/stop requests from
// control, and returns after publishing SHUTDOWN when a signal arrives.
func (d *daemon) runLoop(frame, fps <-chan time.Time, control <-chan bool, sig <-chan os.Signal) error {
	startTime := d.now()
	d.agg = logic.NewAggregator()
	rate := logic.NewFrameRate(startTime)
	hb := logic.NewHeartbeat(d.heartbeat, startTime)

	for {
		select {
		case s := <-sig:
			d.log.Infof("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.publishSystem(mqtt.EventShutdown, signalName, true)
			return nil

		case enabled := <-control:
			d.setEnabled(enabled, "http")

		case <-frame:
			t := d.now()
			rate.Frame()
			d.pollSwitch()
			if d.agg.Enabled() {
				d.nextDetection(t)
			}

		case <-fps:
			t := d.now()
			d.tracker.SetFrameRate(rate.Sample(t), rate.Total())
			d.refreshMQTT()

			if hb.Due(t) {
				sum := d.agg.Summary()
				d.log.Infof("heartbeat: frames=%d fps=%.1f objects=%d avg=%s",
					rate.Total(), rate.FPS(), sum.TotalObjects, sum.AverageText())
				d.publishSystem(mqtt.EventHeartbeat, "", false)
			}
		}
	}
}

func (d *daemon) nextDetection(t time.Time) {
	det, ok, err := d.source.Next(t)
	if err != nil {
		d.log.Warnf("source error: %v", err)
		d.metrics.SourceErrors.Add(1)
		return
	}
	if !ok || !d.agg.Record(det) {
		return
	}

	recorded, _ := d.agg.Latest()
	if err := d.publisher.PublishDetection(recorded); err != nil {
		d.log.Warnf("publish error: %v", err)
		d.metrics.PublishErrors.Add(1)
		// Don't crash on publish failure
	}
	d.tracker.Update(d.agg.Summary(), d.agg.Log())
}

// pollSwitch applies the hardware switch on its first reading and whenever
// it changes position. In between, HTTP requests may override it.
func (d *daemon) pollSwitch() {
	if d.sw == nil {
		return
	}
	on, err := d.sw.Read()
	if err != nil {
		d.log.Warnf("gpio read error: %v", err)
		d.metrics.SwitchErrors.Add(1)
		return
	}
	if d.switchSeen && on == d.switchOn {
		return
	}
	d.switchSeen = true
	d.switchOn = on
	d.setEnabled(on, "switch")
}

func (d *daemon) setEnabled(enabled bool, reason string) {
	if d.agg.Enabled() == enabled {
		return
	}
	d.agg.SetEnabled(enabled)
	d.tracker.Update(d.agg.Summary(), d.agg.Log())
	// Queued detections are stale once stopped, and those that arrived
	// while stopped are stale on restart.
	if q, ok := d.source.(discarder); ok {
		if n := q.Discard(); n > 0 {
			d.log.Infof("discarded %d queued detections", n)
		}
	}

	event := mqtt.EventDetectionStopped
	if enabled {
		event = mqtt.EventDetectionStarted
	}
	d.log.Infof("event: %s (%s)", event, reason)
	d.publishSystem(event, reason, true)
}

func (d *daemon) refreshMQTT() {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

// publishSystem publishes a lifecycle event carrying the full status snapshot.
func (d *daemon) publishSystem(event, reason string, retained bool) {
	d.refreshMQTT()
	snap := d.tracker.Snapshot()
	se := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(se); err != nil {
		d.log.Warnf("failed to publish %s event: %v", event, err)
		d.metrics.PublishErrors.Add(1)
		return
	}
	d.log.Infof("published %s event", event)
}
