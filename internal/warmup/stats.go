package warmup

import (
	"fmt"
	"math"
	"time"
)

const (
	// fpsStabilityThreshold is the maximum allowed FPS standard deviation as a fraction of mean FPS.
	// Example: 10 FPS mean → stable if stddev < 1.5 FPS
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum allowed mean jitter as a fraction of expected interval.
	// Example: 10 FPS (100ms interval) → stable if jitter < 20ms
	jitterStabilityThreshold = 0.20
)

// Stats summarizes frame cadence over an observation window.
type Stats struct {
	FramesReceived int           // Frames observed in the window
	Duration       time.Duration // Observation window
	FPSMean        float64       // Frames / window
	FPSStdDev      float64       // Std deviation of instantaneous FPS around FPSMean
	FPSMin         float64       // Minimum instantaneous FPS
	FPSMax         float64       // Maximum instantaneous FPS
	IsStable       bool          // stddev < 15% of mean AND jitter < 20% of interval
	JitterMean     float64       // Mean |interval - expected| (seconds)
	JitterStdDev   float64       // Std deviation of jitter (seconds)
	JitterMax      float64       // Worst jitter (seconds)
}

// String renders a one-line summary for CLI output.
func (s *Stats) String() string {
	return fmt.Sprintf("%d frames in %s: %.2f fps (σ %.2f, range %.1f-%.1f), jitter %.3fs, stable=%v",
		s.FramesReceived, s.Duration.Round(time.Millisecond),
		s.FPSMean, s.FPSStdDev, s.FPSMin, s.FPSMax, s.JitterMean, s.IsStable)
}

// CalculateFPSStats calculates FPS statistics from frame arrival times
//
// This function:
//  1. Calculates mean FPS (frames / window)
//  2. Calculates instantaneous FPS for each frame interval
//  3. Finds min/max instantaneous FPS
//  4. Calculates standard deviation of instantaneous FPS
//  5. Calculates jitter statistics (deviation from the expected interval)
//  6. Determines stability (stddev < 15% of mean AND jitter < 20%)
//
// Intervals of zero length (duplicate timestamps) are ignored for the
// instantaneous figures.
func CalculateFPSStats(frameTimes []time.Time, window time.Duration) *Stats {
	n := len(frameTimes)
	stats := &Stats{FramesReceived: n, Duration: window}

	if n == 0 || window <= 0 {
		return stats
	}
	stats.FPSMean = float64(n) / window.Seconds()

	intervals := make([]float64, 0, n-1)
	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		iv := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		intervals = append(intervals, iv)
		if iv > 0 {
			instantaneous = append(instantaneous, 1.0/iv)
		}
	}

	if len(instantaneous) == 0 {
		return stats
	}

	stats.FPSMin, stats.FPSMax = minMax(instantaneous)
	stats.FPSStdDev = stdDevAround(instantaneous, stats.FPSMean)

	expected := 1.0 / stats.FPSMean
	jitters := make([]float64, len(intervals))
	for i, iv := range intervals {
		jitters[i] = math.Abs(iv - expected)
	}
	stats.JitterMean = mean(jitters)
	_, stats.JitterMax = minMax(jitters)
	stats.JitterStdDev = stdDevAround(jitters, stats.JitterMean)

	fpsStable := stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold
	jitterStable := stats.JitterMean < expected*jitterStabilityThreshold
	stats.IsStable = fpsStable && jitterStable

	return stats
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func minMax(xs []float64) (lo, hi float64) {
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func stdDevAround(xs []float64, center float64) float64 {
	var sumSquares float64
	for _, x := range xs {
		d := x - center
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(xs)))
}
