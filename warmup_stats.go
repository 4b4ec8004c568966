package gcs

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/warmup"
)

// CalculateFPSStats calculates FPS statistics from frame timestamps
//
// This is a public wrapper around internal/warmup.CalculateFPSStats.
//
// Stability threshold:
//   - FPS: stddev < 15% of mean FPS
//   - Jitter: mean jitter < 20% of expected interval
//
// Example: 10 FPS mean → stable if stddev < 1.5 AND jitter < 0.02s
func CalculateFPSStats(frameTimes []time.Time, totalDuration time.Duration) *WarmupStats {
	return toWarmupStats(warmup.CalculateFPSStats(frameTimes, totalDuration))
}

// MeasureCadence consumes frames from src for duration and reports their
// cadence. It polls every tick without blocking; the frames are discarded.
//
// Returns an error if fewer than 2 frames arrived or ctx was cancelled.
func MeasureCadence(ctx context.Context, src FrameSource, duration, tick time.Duration) (*WarmupStats, error) {
	poll := func() (time.Time, bool) {
		f, ok := src.TryFrame()
		return f.Timestamp, ok
	}

	stats, err := warmup.Collect(ctx, poll, duration, tick, clock.RealClock{})
	if err != nil {
		return nil, err
	}
	return toWarmupStats(stats), nil
}

func toWarmupStats(s *warmup.Stats) *WarmupStats {
	return &WarmupStats{
		FramesReceived: s.FramesReceived,
		Duration:       s.Duration,
		FPSMean:        s.FPSMean,
		FPSStdDev:      s.FPSStdDev,
		FPSMin:         s.FPSMin,
		FPSMax:         s.FPSMax,
		IsStable:       s.IsStable,
		JitterMean:     s.JitterMean,
		JitterStdDev:   s.JitterStdDev,
		JitterMax:      s.JitterMax,
	}
}
