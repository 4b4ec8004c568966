package capture

import (
	"context"
	"sync/atomic"
	"time"
)

// Snapshotter fetches one still JPEG from the camera.
type Snapshotter interface {
	Capture(ctx context.Context) ([]byte, error)
}

// SnapshotFunc adapts a plain function to Snapshotter.
type SnapshotFunc func(ctx context.Context) ([]byte, error)

// Capture calls f(ctx).
func (f SnapshotFunc) Capture(ctx context.Context) ([]byte, error) { return f(ctx) }

// DefaultPollInterval is the safe-mode snapshot period.
const DefaultPollInterval = 400 * time.Millisecond

// RunPoller repeatedly fetches single snapshots until cancelled (safe mode).
//
// Fetch and decode failures are logged and the loop continues; safe mode
// never gives up on its own.
func RunPoller(ctx context.Context, snap Snapshotter, interval time.Duration, env Env) Outcome {
	env = env.withDefaults()
	log := env.Log.With("strategy", "safe-mode")

	if interval <= 0 {
		interval = DefaultPollInterval
	}

	log.Info("capture: safe mode on, polling snapshots", "interval", interval)

	for {
		if ctx.Err() != nil {
			log.Info("capture: safe mode off")
			return OutcomeStopped
		}

		atomic.AddUint64(&env.Counters.Attempts, 1)
		data, err := snap.Capture(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			log.Error("capture: snapshot failed", "error", err)
		default:
			atomic.AddUint64(&env.Counters.BytesRead, uint64(len(data)))
			env.decodeAndPublish(data, "safe-mode")
		}

		Wait(ctx, env.Clock, interval)
	}
}
