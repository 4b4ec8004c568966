package relay

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mattn/go-mjpeg"
	"k8s.io/utils/clock"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
	imgcodec "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/mjpeg"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/warmup"
)

// Config contains relay settings
type Config struct {
	Tick            time.Duration // consumer period (default: 25ms)
	JPEGQuality     int           // re-encode quality (default: 80)
	ReadinessWindow time.Duration // max frame age for /readiness (default: 5s)
	Clock           clock.WithTicker
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Tick:            25 * time.Millisecond,
		JPEGQuality:     80,
		ReadinessWindow: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = d.JPEGQuality
	}
	if c.ReadinessWindow <= 0 {
		c.ReadinessWindow = d.ReadinessWindow
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	return c
}

// Relay is the consumer: it drains the current producer's sink on a fixed
// tick and re-broadcasts every frame as MJPEG.
type Relay struct {
	src    gcs.FrameSource
	cfg    Config
	log    *slog.Logger
	stream *mjpeg.Stream

	latest       atomic.Pointer[[]byte]
	meter        warmup.Meter
	frames       atomic.Uint64
	encodeErrors atomic.Uint64
	lastFrameAt  atomic.Int64 // unix nanos
	started      time.Time
}

// New creates a relay over src. Call Run to start consuming.
func New(src gcs.FrameSource, cfg Config, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Relay{
		src:     src,
		cfg:     cfg,
		log:     logger.With("component", "relay"),
		stream:  mjpeg.NewStream(),
		started: cfg.Clock.Now(),
	}
}

// Run consumes frames until ctx is cancelled. It never blocks on the
// producer: an empty sink just means nothing to do this tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := r.cfg.Clock.NewTicker(r.cfg.Tick)
	defer ticker.Stop()

	r.log.Info("relay: consumer started", "tick", r.cfg.Tick)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay: consumer stopped", "frames", r.frames.Load())
			return nil
		case <-ticker.C():
			r.Tick()
		}
	}
}

// Tick performs one consumer iteration. It reports whether a frame was
// consumed.
func (r *Relay) Tick() bool {
	f, ok := r.src.TryFrame()
	if !ok {
		return false
	}

	jpg, err := imgcodec.Encode(imgcodec.Image{Width: f.Width, Height: f.Height, Data: f.Data}, r.cfg.JPEGQuality)
	if err != nil {
		r.encodeErrors.Add(1)
		r.log.Debug("relay: dropping frame, encode failed", "error", err)
		return false
	}

	r.latest.Store(&jpg)
	r.stream.Update(jpg)

	now := r.cfg.Clock.Now()
	r.frames.Add(1)
	r.lastFrameAt.Store(now.UnixNano())
	r.meter.Mark(now)
	return true
}

// Close ends every open /mjpeg response.
func (r *Relay) Close() {
	r.stream.Close()
}

// ConsumerStats describes the consumer side
type ConsumerStats struct {
	Frames       uint64    `json:"frames"`
	EncodeErrors uint64    `json:"encode_errors"`
	FPS          float64   `json:"fps"`
	LastFrameAt  time.Time `json:"last_frame_at,omitempty"`
	Uptime       string    `json:"uptime"`
}

// Stats returns consumer statistics
func (r *Relay) Stats() ConsumerStats {
	now := r.cfg.Clock.Now()
	return ConsumerStats{
		Frames:       r.frames.Load(),
		EncodeErrors: r.encodeErrors.Load(),
		FPS:          r.meter.Rate(now),
		LastFrameAt:  r.lastFrame(),
		Uptime:       now.Sub(r.started).Round(time.Second).String(),
	}
}

func (r *Relay) lastFrame() time.Time {
	ns := r.lastFrameAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// ready reports whether a frame went out within the readiness window.
func (r *Relay) ready() bool {
	last := r.lastFrame()
	return !last.IsZero() && r.cfg.Clock.Since(last) <= r.cfg.ReadinessWindow
}
