package config

import (
	"errors"
	"fmt"
)

// Validate checks if the configuration is valid and reports every problem
// at once.
func Validate(cfg *Config) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	// Device
	check(cfg.Device.Host != "", "device.host is required")
	check(cfg.Device.StreamPort >= 0 && cfg.Device.StreamPort <= 65535,
		"device.stream_port must be 0..65535, got %d", cfg.Device.StreamPort)

	// Acquisition
	a := cfg.Acquisition
	check(a.FirstFrameTimeout > 0, "acquisition.first_frame_timeout must be > 0")
	check(a.ConnectTimeout > 0, "acquisition.connect_timeout must be > 0")
	check(a.ReadTimeout > 0, "acquisition.read_timeout must be > 0")
	check(a.ChunkSize > 0, "acquisition.chunk_size must be > 0, got %d", a.ChunkSize)
	check(a.RetryBackoff >= 0, "acquisition.retry_backoff must be >= 0")
	check(a.ManualMaxFailures >= 0, "acquisition.manual_max_failures must be >= 0, got %d", a.ManualMaxFailures)
	check(a.SinkCapacity > 0, "acquisition.sink_capacity must be > 0, got %d", a.SinkCapacity)
	check(a.StopTimeout > 0, "acquisition.stop_timeout must be > 0")

	// Safe mode
	check(cfg.SafeMode.Interval > 0, "safe_mode.interval must be > 0")
	check(cfg.SafeMode.RequestTimeout > 0, "safe_mode.request_timeout must be > 0")

	// Relay
	check(cfg.Relay.Listen != "", "relay.listen is required")
	check(cfg.Relay.Tick > 0, "relay.tick must be > 0")
	check(cfg.Relay.JPEGQuality >= 1 && cfg.Relay.JPEGQuality <= 100,
		"relay.jpeg_quality must be 1..100, got %d", cfg.Relay.JPEGQuality)

	// Telemetry (only when enabled)
	if t := cfg.Telemetry; t.Enabled() {
		check(t.TopicPrefix != "", "telemetry.topic_prefix is required")
		check(t.Encoding == "json" || t.Encoding == "msgpack",
			"telemetry.encoding must be 'json' or 'msgpack', got %q", t.Encoding)
		check(t.QoS <= 2, "telemetry.qos must be 0..2, got %d", t.QoS)
		check(t.StatsInterval > 0, "telemetry.stats_interval must be > 0")
	}

	return errors.Join(errs...)
}
