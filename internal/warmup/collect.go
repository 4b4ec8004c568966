package warmup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

// PollFunc is a non-blocking dequeue. It returns the arrival time of a
// frame, or ok=false when nothing is queued.
type PollFunc func() (at time.Time, ok bool)

// Collect polls for frames every tick for the given duration and returns
// cadence statistics.
//
// This function:
//  1. Polls without blocking (the producer is never waited on)
//  2. Records the arrival time of every frame it dequeues
//  3. Calculates FPS and jitter statistics over the window
//
// Returns an error if fewer than 2 frames arrived or ctx was cancelled.
// An unstable stream is not an error; check Stats.IsStable.
func Collect(ctx context.Context, poll PollFunc, duration, tick time.Duration, clk clock.WithTicker) (*Stats, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if tick <= 0 {
		tick = 25 * time.Millisecond
	}

	slog.Info("warmup: measuring stream cadence", "duration", duration)

	start := clk.Now()
	frameTimes := make([]time.Time, 0, 64)

	ticker := clk.NewTicker(tick)
	defer ticker.Stop()
	deadline := clk.NewTimer(duration)
	defer deadline.Stop()

	drain := func() {
		for {
			at, ok := poll()
			if !ok {
				return
			}
			frameTimes = append(frameTimes, at)
		}
	}

loop:
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("warmup: %w", ctx.Err())
		case <-deadline.C():
			drain()
			break loop
		case <-ticker.C():
			drain()
		}
	}

	elapsed := clk.Since(start)
	if len(frameTimes) < 2 {
		return nil, fmt.Errorf("warmup: not enough frames received (got %d, need at least 2)", len(frameTimes))
	}

	stats := CalculateFPSStats(frameTimes, elapsed)
	slog.Info("warmup: measurement complete",
		"frames", stats.FramesReceived,
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		"jitter_mean", fmt.Sprintf("%.3fs", stats.JitterMean),
		"stable", stats.IsStable,
	)
	return stats, nil
}
