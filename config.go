package gcs

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"k8s.io/utils/clock"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/capture"
)

// AcquisitionConfig contains configuration for a streaming acquisition session
type AcquisitionConfig struct {
	// DeviceHost is used to build fallback candidates (default: the stream URL's host)
	DeviceHost string
	// AltPort is the camera's stream port (default: 81)
	AltPort int

	// Decoder is the managed decoder. nil skips straight to the manual strategy.
	Decoder Decoder

	// FirstFrameTimeout bounds the managed decoder's wait for data (default: 5s)
	FirstFrameTimeout time.Duration
	// PollInterval is the managed decoder's idle poll period (default: 20ms)
	PollInterval time.Duration

	// ConnectTimeout bounds the manual strategy's TCP connect (default: 5s)
	ConnectTimeout time.Duration
	// ReadTimeout is the manual strategy's max silence between reads (default: 60s)
	ReadTimeout time.Duration
	// ChunkSize is the manual strategy's read size (default: 2048)
	ChunkSize int
	// RetryBackoff is the wait between manual attempts (default: 3s)
	RetryBackoff time.Duration
	// ManualMaxFailures rotates to the next candidate after this many
	// consecutive failed manual attempts (default: 0 = never)
	ManualMaxFailures int

	// HTTPClient overrides the manual strategy's client
	HTTPClient *http.Client
	// Clock drives every timed loop (default: real clock)
	Clock clock.WithDelayedExecution
	// OnStateChange is called synchronously on every supervisor transition
	OnStateChange func(StateChange)
}

// DefaultAcquisitionConfig returns the production defaults
func DefaultAcquisitionConfig() AcquisitionConfig {
	managed := capture.DefaultManagedConfig()
	manual := capture.DefaultManualConfig()
	return AcquisitionConfig{
		AltPort:           DefaultAltPort,
		FirstFrameTimeout: managed.FirstFrameTimeout,
		PollInterval:      managed.PollInterval,
		ConnectTimeout:    manual.ConnectTimeout,
		ReadTimeout:       manual.ReadTimeout,
		ChunkSize:         manual.ChunkSize,
		RetryBackoff:      manual.Retry.Delay,
		ManualMaxFailures: manual.Retry.MaxFailures,
	}
}

// withDefaults fills zero values from DefaultAcquisitionConfig.
func (c AcquisitionConfig) withDefaults() AcquisitionConfig {
	d := DefaultAcquisitionConfig()
	if c.AltPort == 0 {
		c.AltPort = d.AltPort
	}
	if c.FirstFrameTimeout == 0 {
		c.FirstFrameTimeout = d.FirstFrameTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	return c
}

// Validate checks the configuration (after defaults are applied)
func (c AcquisitionConfig) Validate() error {
	var errs []error
	if c.AltPort < 0 || c.AltPort > 65535 {
		errs = append(errs, fmt.Errorf("alt port %d out of range", c.AltPort))
	}
	if c.FirstFrameTimeout < 0 {
		errs = append(errs, fmt.Errorf("first frame timeout must be positive, got %v", c.FirstFrameTimeout))
	}
	if c.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %v", c.PollInterval))
	}
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if c.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("retry backoff must be positive, got %v", c.RetryBackoff))
	}
	if c.ManualMaxFailures < 0 {
		errs = append(errs, fmt.Errorf("manual max failures must be >= 0, got %d", c.ManualMaxFailures))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("gcs: invalid acquisition config: %w", err)
	}
	return nil
}

func (c AcquisitionConfig) managedConfig() capture.ManagedConfig {
	return capture.ManagedConfig{
		FirstFrameTimeout: c.FirstFrameTimeout,
		PollInterval:      c.PollInterval,
	}
}

func (c AcquisitionConfig) manualConfig() capture.ManualConfig {
	return capture.ManualConfig{
		ConnectTimeout: c.ConnectTimeout,
		ReadTimeout:    c.ReadTimeout,
		ChunkSize:      c.ChunkSize,
		Retry: capture.RetryConfig{
			Delay:       c.RetryBackoff,
			MaxFailures: c.ManualMaxFailures,
		},
		Client: c.HTTPClient,
	}
}

// SafeModeConfig contains configuration for a safe-mode (snapshot polling) session
type SafeModeConfig struct {
	// Interval between snapshot requests (default: 400ms, ~2.5 req/s)
	Interval time.Duration
	// Snapshotter fetches one JPEG (required; device.Client satisfies it)
	Snapshotter capture.Snapshotter
	// Clock drives the poll loop (default: real clock)
	Clock clock.WithDelayedExecution
	// OnStateChange is called when the poller starts and stops
	OnStateChange func(StateChange)
}

// DefaultSafeModeConfig returns the production defaults
func DefaultSafeModeConfig() SafeModeConfig {
	return SafeModeConfig{Interval: capture.DefaultPollInterval}
}

func (c SafeModeConfig) withDefaults() SafeModeConfig {
	if c.Interval == 0 {
		c.Interval = capture.DefaultPollInterval
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	return c
}

// Validate checks the configuration
func (c SafeModeConfig) Validate() error {
	if c.Snapshotter == nil {
		return errors.New("gcs: invalid safe mode config: snapshotter is required")
	}
	if c.Interval < 0 {
		return fmt.Errorf("gcs: invalid safe mode config: interval must be positive, got %v", c.Interval)
	}
	return nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
