package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ground-station configuration
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	SafeMode    SafeModeConfig    `yaml:"safe_mode"`
	Relay       RelayConfig       `yaml:"relay"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// DeviceConfig locates the camera
type DeviceConfig struct {
	Host       string `yaml:"host"`        // camera address (default: 192.168.4.1)
	StreamPort int    `yaml:"stream_port"` // MJPEG port (default: 81)
	StreamPath string `yaml:"stream_path"` // MJPEG path (default: /stream)
}

// AcquisitionConfig contains streaming settings
type AcquisitionConfig struct {
	ManagedDecoder    bool     `yaml:"managed_decoder"`     // try GStreamer first (default: true)
	FirstFrameTimeout Duration `yaml:"first_frame_timeout"` // managed decoder wait (default: 5s)
	ConnectTimeout    Duration `yaml:"connect_timeout"`     // manual TCP connect (default: 5s)
	ReadTimeout       Duration `yaml:"read_timeout"`        // manual max silence (default: 60s)
	ChunkSize         int      `yaml:"chunk_size"`          // manual read size (default: 2048)
	RetryBackoff      Duration `yaml:"retry_backoff"`       // wait between manual attempts (default: 3s)
	ManualMaxFailures int      `yaml:"manual_max_failures"` // 0 = retry forever
	SinkCapacity      int      `yaml:"sink_capacity"`       // frames buffered for the consumer (default: 5)
	StopTimeout       Duration `yaml:"stop_timeout"`        // producer join bound (default: 1s)
}

// SafeModeConfig contains snapshot polling settings
type SafeModeConfig struct {
	Interval       Duration `yaml:"interval"`        // default: 400ms
	RequestTimeout Duration `yaml:"request_timeout"` // per snapshot (default: 10s)
}

// RelayConfig contains the consumer/re-broadcast settings
type RelayConfig struct {
	Listen      string   `yaml:"listen"`       // HTTP address (default: :8080)
	Tick        Duration `yaml:"tick"`         // consumer period (default: 25ms)
	JPEGQuality int      `yaml:"jpeg_quality"` // re-encode quality 1..100 (default: 80)
}

// TelemetryConfig contains MQTT broker settings
type TelemetryConfig struct {
	Broker        string   `yaml:"broker"`         // empty disables telemetry
	ClientID      string   `yaml:"client_id"`      // default: gcs-<random>
	TopicPrefix   string   `yaml:"topic_prefix"`   // default: gcs
	Encoding      string   `yaml:"encoding"`       // json | msgpack (default: json)
	QoS           byte     `yaml:"qos"`            // 0..2 (default: 0)
	StatsInterval Duration `yaml:"stats_interval"` // default: 5s
}

// Enabled reports whether a broker is configured.
func (t TelemetryConfig) Enabled() bool { return t.Broker != "" }

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Host:       "192.168.4.1",
			StreamPort: 81,
			StreamPath: "/stream",
		},
		Acquisition: AcquisitionConfig{
			ManagedDecoder:    true,
			FirstFrameTimeout: Duration(5 * time.Second),
			ConnectTimeout:    Duration(5 * time.Second),
			ReadTimeout:       Duration(60 * time.Second),
			ChunkSize:         2048,
			RetryBackoff:      Duration(3 * time.Second),
			SinkCapacity:      5,
			StopTimeout:       Duration(time.Second),
		},
		SafeMode: SafeModeConfig{
			Interval:       Duration(400 * time.Millisecond),
			RequestTimeout: Duration(10 * time.Second),
		},
		Relay: RelayConfig{
			Listen:      ":8080",
			Tick:        Duration(25 * time.Millisecond),
			JPEGQuality: 80,
		},
		Telemetry: TelemetryConfig{
			TopicPrefix:   "gcs",
			Encoding:      "json",
			StatsInterval: Duration(5 * time.Second),
		},
	}
}

// Load reads and parses a YAML configuration file on top of Default().
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// StreamURL returns http://<host>[:<port>]<path> for the configured device.
func (d DeviceConfig) StreamURL() string {
	host := d.Host
	if d.StreamPort != 0 && d.StreamPort != 80 {
		host = net.JoinHostPort(d.Host, strconv.Itoa(d.StreamPort))
	}
	path := d.StreamPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + host + path
}

// Duration is a time.Duration written as a Go duration string ("400ms", "3s").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts duration strings, or plain integers as seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
