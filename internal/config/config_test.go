package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gcs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, Validate(cfg))
	assert.Equal(t, "http://192.168.4.1:81/stream", cfg.Device.StreamURL())
}

func TestLoad_OverridesOnTopOfDefaults(t *testing.T) {
	path := writeConfig(t, `
device:
  host: 10.0.0.7
acquisition:
  managed_decoder: false
  retry_backoff: 1500ms
  manual_max_failures: 4
safe_mode:
  interval: 1s
telemetry:
  broker: tcp://localhost:1883
  encoding: msgpack
  stats_interval: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.7", cfg.Device.Host)
	assert.Equal(t, 81, cfg.Device.StreamPort, "untouched keys keep defaults")
	assert.False(t, cfg.Acquisition.ManagedDecoder)
	assert.Equal(t, 1500*time.Millisecond, cfg.Acquisition.RetryBackoff.D())
	assert.Equal(t, 4, cfg.Acquisition.ManualMaxFailures)
	assert.Equal(t, 60*time.Second, cfg.Acquisition.ReadTimeout.D())
	assert.Equal(t, time.Second, cfg.SafeMode.Interval.D())
	assert.True(t, cfg.Telemetry.Enabled())
	assert.Equal(t, "msgpack", cfg.Telemetry.Encoding)
	assert.Equal(t, 10*time.Second, cfg.Telemetry.StatsInterval.D(), "bare integers are seconds")
	assert.Equal(t, "gcs", cfg.Telemetry.TopicPrefix)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(writeConfig(t, "safe_mode:\n  interval: soon\n"))
		assert.ErrorContains(t, err, `invalid duration "soon"`)
	})

	t.Run("validation collects every problem", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
acquisition:
  chunk_size: 0
relay:
  jpeg_quality: 101
telemetry:
  broker: tcp://localhost:1883
  encoding: xml
`))
		require.Error(t, err)
		assert.ErrorContains(t, err, "invalid configuration")
		assert.ErrorContains(t, err, "acquisition.chunk_size")
		assert.ErrorContains(t, err, "relay.jpeg_quality")
		assert.ErrorContains(t, err, "telemetry.encoding")
	})
}

func TestValidate_TelemetryDisabledSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.Encoding = "xml"
	assert.NoError(t, Validate(cfg))
}

func TestDeviceConfig_StreamURL(t *testing.T) {
	tests := []struct {
		dev  DeviceConfig
		want string
	}{
		{DeviceConfig{Host: "192.168.4.1", StreamPort: 81, StreamPath: "/stream"}, "http://192.168.4.1:81/stream"},
		{DeviceConfig{Host: "cam.local", StreamPort: 80, StreamPath: "stream"}, "http://cam.local/stream"},
		{DeviceConfig{Host: "cam.local", StreamPath: "/live"}, "http://cam.local/live"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.dev.StreamURL())
	}
}
