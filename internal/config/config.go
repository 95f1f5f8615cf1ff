// Package config loads daemon settings from command line flags, each of which
// defaults from a DETECT_* environment variable. An optional env file is read
// first; variables already set in the environment win.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Detection sources.
const (
	SourceRandom = "random"
	SourceMQTT   = "mqtt"
)

// DefaultDetectorTopic is where an inference node publishes its detections.
const DefaultDetectorTopic = "vision/detector/events"

// DefaultEnvFile is read when DETECT_ENV_FILE is not set.
const DefaultEnvFile = "/etc/detection-dashboard.env"

// Config holds the daemon settings.
type Config struct {
	FrameInterval time.Duration
	Source        string
	Seed          int64
	Broker        string
	ClientID      string
	DetectorTopic string
	Heartbeat     time.Duration
	HTTPAddr      string
	Refresh       time.Duration
	SwitchPin     int
}

// Load reads the env file, then parses args (without the program name).
func Load(args []string) (Config, error) {
	envFile := os.Getenv("DETECT_ENV_FILE")
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}
	return Parse(args)
}

// loadEnvFile loads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// Parse parses args against flags whose defaults come from the environment.
func Parse(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("detection-dashboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.DurationVar(&cfg.FrameInterval, "frame-interval", envDuration("DETECT_FRAME_INTERVAL", 33*time.Millisecond), "Interval between frames")
	fs.StringVar(&cfg.Source, "source", envString("DETECT_SOURCE", SourceRandom), `Detection source ("random" or "mqtt")`)
	fs.Int64Var(&cfg.Seed, "seed", envInt64("DETECT_SEED", 0), "Seed for the random source (0 = from clock)")
	fs.StringVar(&cfg.Broker, "broker", envString("DETECT_BROKER", "tcp://127.0.0.1:1883"), "MQTT broker address (empty to disable)")
	fs.StringVar(&cfg.ClientID, "client-id", envString("DETECT_CLIENT_ID", "detection-dashboard"), "MQTT client ID")
	fs.StringVar(&cfg.DetectorTopic, "detector-topic", envString("DETECT_DETECTOR_TOPIC", DefaultDetectorTopic), "MQTT topic the detector publishes to")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", envDuration("DETECT_HEARTBEAT", time.Minute), "Heartbeat interval (0 to disable)")
	fs.StringVar(&cfg.HTTPAddr, "http", envString("DETECT_HTTP", ":8080"), "HTTP dashboard address (empty to disable)")
	fs.DurationVar(&cfg.Refresh, "refresh", envDuration("DETECT_REFRESH", time.Second), "Live dashboard refresh interval")
	fs.IntVar(&cfg.SwitchPin, "pin-switch", envInt("DETECT_PIN_SWITCH", -1), "BCM pin of the start/stop switch (-1 to disable)")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if c.FrameInterval <= 0 {
		return fmt.Errorf("%w: frame interval must be positive, got %v", ErrInvalid, c.FrameInterval)
	}
	if c.Refresh <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive, got %v", ErrInvalid, c.Refresh)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative, got %v", ErrInvalid, c.Heartbeat)
	}
	switch c.Source {
	case SourceRandom:
	case SourceMQTT:
		if c.Broker == "" {
			return fmt.Errorf("%w: the mqtt source needs a broker", ErrInvalid)
		}
		if c.DetectorTopic == "" {
			return fmt.Errorf("%w: the mqtt source needs a detector topic", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalid, c.Source)
	}
	if c.SwitchPin < -1 {
		return fmt.Errorf("%w: switch pin %d", ErrInvalid, c.SwitchPin)
	}
	return nil
}

// Unparseable environment values fall back to the default; the flag
// itself still rejects bad command line values.

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}
