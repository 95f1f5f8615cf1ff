package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	require.Equal(t, 33*time.Millisecond, cfg.FrameInterval)
	require.Equal(t, SourceRandom, cfg.Source)
	require.Equal(t, "tcp://127.0.0.1:1883", cfg.Broker)
	require.Equal(t, DefaultDetectorTopic, cfg.DetectorTopic)
	require.Equal(t, "vision/detector/events", DefaultDetectorTopic)
	require.Equal(t, time.Minute, cfg.Heartbeat)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, time.Second, cfg.Refresh)
	require.Equal(t, -1, cfg.SwitchPin)
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse([]string{
		"--frame-interval", "100ms",
		"--source", "mqtt",
		"--broker", "tcp://10.0.0.5:1883",
		"--heartbeat", "0",
		"--http", "",
		"--pin-switch", "17",
		"--seed", "42",
	})
	require.NoError(t, err)

	require.Equal(t, 100*time.Millisecond, cfg.FrameInterval)
	require.Equal(t, SourceMQTT, cfg.Source)
	require.Equal(t, "tcp://10.0.0.5:1883", cfg.Broker)
	require.Equal(t, time.Duration(0), cfg.Heartbeat)
	require.Equal(t, "", cfg.HTTPAddr)
	require.Equal(t, 17, cfg.SwitchPin)
	require.Equal(t, int64(42), cfg.Seed)
}

func TestParseEnvDefaults(t *testing.T) {
	t.Setenv("DETECT_FRAME_INTERVAL", "50ms")
	t.Setenv("DETECT_SOURCE", "mqtt")
	t.Setenv("DETECT_PIN_SWITCH", "22")
	t.Setenv("DETECT_REFRESH", "not-a-duration")

	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, 50*time.Millisecond, cfg.FrameInterval)
	require.Equal(t, SourceMQTT, cfg.Source)
	require.Equal(t, 22, cfg.SwitchPin)
	require.Equal(t, time.Second, cfg.Refresh, "bad env value falls back to default")

	// Flags override the environment
	cfg, err = Parse([]string{"--source", "random"})
	require.NoError(t, err)
	require.Equal(t, SourceRandom, cfg.Source)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero frame interval", []string{"--frame-interval", "0s"}},
		{"zero refresh", []string{"--refresh", "0s"}},
		{"negative heartbeat", []string{"--heartbeat", "-1s"}},
		{"unknown source", []string{"--source", "camera"}},
		{"mqtt without broker", []string{"--source", "mqtt", "--broker", ""}},
		{"mqtt without topic", []string{"--source", "mqtt", "--detector-topic", ""}},
		{"bad pin", []string{"--pin-switch", "-5"}},
		{"unknown flag", []string{"--poll", "1s"}},
		{"bad duration", []string{"--heartbeat", "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.env")
	require.NoError(t, os.WriteFile(path, []byte("DETECT_SEED=1234\nDETECT_CLIENT_ID=bench-camera\n"), 0o644))

	t.Setenv("DETECT_ENV_FILE", path)
	t.Setenv("DETECT_CLIENT_ID", "from-environment")
	// godotenv sets variables directly; make sure they don't leak into other tests.
	os.Unsetenv("DETECT_SEED")
	t.Cleanup(func() { os.Unsetenv("DETECT_SEED") })

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, int64(1234), cfg.Seed)
	require.Equal(t, "from-environment", cfg.ClientID, "existing environment wins over the env file")
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Setenv("DETECT_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load([]string{"--source", "random"})
	require.NoError(t, err)
	require.Equal(t, SourceRandom, cfg.Source)
}
