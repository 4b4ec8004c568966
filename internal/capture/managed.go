package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/mjpeg"
)

// Decoder opens a stream URL with an off-the-shelf demux/decode pipeline.
type Decoder interface {
	Open(ctx context.Context, url string) (DecodedStream, error)
}

// DecodedStream is an opened managed-decoder session.
type DecodedStream interface {
	// Read returns the next decoded frame if one is ready. It never blocks:
	// ok=false with a nil error means "nothing yet". A non-nil error means
	// the stream has ended and no more frames will arrive.
	Read() (img mjpeg.Image, ok bool, err error)

	// Close releases the underlying connection. Called exactly once.
	Close() error
}

// ErrorCategory lets a DecodedStream error be counted by kind.
type ErrorCategory interface {
	Category() string // "network", "codec", "auth" or "unknown"
}

// ManagedConfig tunes the managed-decoder strategy
type ManagedConfig struct {
	FirstFrameTimeout time.Duration // Give up if no frame arrives (default: 5s)
	PollInterval      time.Duration // Sleep between empty reads (default: 20ms)
}

// DefaultManagedConfig returns the defaults for the managed strategy
func DefaultManagedConfig() ManagedConfig {
	return ManagedConfig{
		FirstFrameTimeout: 5 * time.Second,
		PollInterval:      20 * time.Millisecond,
	}
}

// RunManaged consumes frames from a managed decoder until cancelled or failed.
//
// Behavior:
//   - Open failure → OutcomeFailed
//   - No frame within FirstFrameTimeout → OutcomeFailed
//   - Stream error after frames flowed → OutcomeFailed (caller falls back)
//   - Cancellation observed within one poll iteration → OutcomeStopped
//
// The stream is closed exactly once on every path.
func RunManaged(ctx context.Context, url string, dec Decoder, cfg ManagedConfig, env Env) Outcome {
	env = env.withDefaults()
	log := env.Log.With("strategy", "managed", "url", url)

	if ctx.Err() != nil {
		return OutcomeStopped
	}

	atomic.AddUint64(&env.Counters.Attempts, 1)
	log.Info("capture: opening stream with managed decoder")

	stream, err := dec.Open(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeStopped
		}
		env.countError(err)
		log.Warn("capture: managed decoder could not open stream", "error", err)
		return OutcomeFailed
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			log.Debug("capture: error closing managed decoder", "error", cerr)
		}
	}()

	started := env.Clock.Now()
	gotFirst := false

	for {
		if ctx.Err() != nil {
			log.Debug("capture: managed decoder stopped")
			return OutcomeStopped
		}

		img, ok, err := stream.Read()
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeStopped
			}
			env.countError(err)
			if !gotFirst {
				log.Warn("capture: managed decoder ended before first frame", "error", err)
			} else {
				log.Warn("capture: managed decoder stream ended", "error", err)
			}
			return OutcomeFailed
		}

		if ok {
			if !gotFirst {
				gotFirst = true
				log.Info("capture: managed decoder stream started",
					"width", img.Width,
					"height", img.Height,
					"first_frame_after", env.Clock.Since(started),
				)
			}
			env.publish(img, "managed")
			continue
		}

		if !gotFirst && env.Clock.Since(started) >= cfg.FirstFrameTimeout {
			log.Warn("capture: no frame from managed decoder, switching to manual",
				"timeout", cfg.FirstFrameTimeout,
			)
			return OutcomeFailed
		}

		env.Clock.Sleep(cfg.PollInterval)
	}
}

func (e Env) countError(err error) {
	var cat ErrorCategory
	if !errors.As(err, &cat) {
		atomic.AddUint64(&e.Counters.ErrorsUnknown, 1)
		return
	}
	switch cat.Category() {
	case "network":
		atomic.AddUint64(&e.Counters.ErrorsNetwork, 1)
	case "codec":
		atomic.AddUint64(&e.Counters.ErrorsCodec, 1)
	case "auth":
		atomic.AddUint64(&e.Counters.ErrorsAuth, 1)
	default:
		atomic.AddUint64(&e.Counters.ErrorsUnknown, 1)
	}
}
