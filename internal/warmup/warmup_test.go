package warmup

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"
)

// frameTimesWithJitter generates n arrivals at fps with uniform jitter of
// ±jitterFrac of the interval.
func frameTimesWithJitter(n int, fps, jitterFrac float64, seed int64) []time.Time {
	rng := rand.New(rand.NewSource(seed))
	interval := time.Duration(float64(time.Second) / fps)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]time.Time, n)
	for i := range out {
		j := (rng.Float64()*2 - 1) * jitterFrac * float64(interval)
		out[i] = base.Add(time.Duration(i)*interval + time.Duration(j))
	}
	return out
}

func TestCalculateFPSStats_Stability(t *testing.T) {
	t.Run("steady stream is stable", func(t *testing.T) {
		times := frameTimesWithJitter(50, 10, 0.02, 1)
		stats := CalculateFPSStats(times, 5*time.Second)

		assert.InDelta(t, 10.0, stats.FPSMean, 0.01)
		assert.True(t, stats.IsStable, "stats: %s", stats)
		assert.LessOrEqual(t, stats.FPSMin, stats.FPSMax)
		t.Logf("✅ %s", stats)
	})

	t.Run("bursty stream is unstable", func(t *testing.T) {
		times := frameTimesWithJitter(50, 10, 0.45, 2)
		stats := CalculateFPSStats(times, 5*time.Second)

		assert.False(t, stats.IsStable, "stats: %s", stats)
	})
}

func TestCalculateFPSStats_EdgeCases(t *testing.T) {
	t.Run("no frames", func(t *testing.T) {
		stats := CalculateFPSStats(nil, time.Second)
		assert.Equal(t, 0, stats.FramesReceived)
		assert.Zero(t, stats.FPSMean)
		assert.False(t, stats.IsStable)
	})

	t.Run("duplicate timestamps", func(t *testing.T) {
		now := time.Now()
		stats := CalculateFPSStats([]time.Time{now, now, now}, time.Second)
		assert.Equal(t, 3, stats.FramesReceived)
		assert.InDelta(t, 3.0, stats.FPSMean, 1e-9)
		assert.Zero(t, stats.FPSMax)
		assert.False(t, stats.IsStable)
	})

	t.Run("zero window", func(t *testing.T) {
		stats := CalculateFPSStats([]time.Time{time.Now()}, 0)
		assert.Zero(t, stats.FPSMean)
	})
}

func TestCollect(t *testing.T) {
	base := time.Now()
	var queued []time.Time
	for i := 0; i < 5; i++ {
		queued = append(queued, base.Add(time.Duration(i)*20*time.Millisecond))
	}
	poll := func() (time.Time, bool) {
		if len(queued) == 0 {
			return time.Time{}, false
		}
		at := queued[0]
		queued = queued[1:]
		return at, true
	}

	stats, err := Collect(context.Background(), poll, 100*time.Millisecond, 10*time.Millisecond, clock.RealClock{})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.FramesReceived)
	assert.Greater(t, stats.FPSMean, 0.0)
}

func TestCollect_NotEnoughFrames(t *testing.T) {
	poll := func() (time.Time, bool) { return time.Time{}, false }

	_, err := Collect(context.Background(), poll, 30*time.Millisecond, 5*time.Millisecond, nil)
	assert.ErrorContains(t, err, "not enough frames")
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	poll := func() (time.Time, bool) { return time.Time{}, false }

	_, err := Collect(ctx, poll, time.Second, 5*time.Millisecond, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeter(t *testing.T) {
	var m Meter
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Zero(t, m.Rate(base))

	for i := 0; i < 11; i++ {
		m.Mark(base.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	assert.InDelta(t, 10.0, m.Rate(base.Add(time.Second)), 1e-9)

	// Silence lowers the rate.
	assert.InDelta(t, 5.0, m.Rate(base.Add(2*time.Second)), 1e-9)

	// Window is bounded: only the last 64 arrivals count.
	for i := 0; i < 200; i++ {
		m.Mark(base.Add(10*time.Second + time.Duration(i)*50*time.Millisecond))
	}
	last := base.Add(10*time.Second + 199*50*time.Millisecond)
	assert.InDelta(t, 20.0, m.Rate(last), 1e-9)

	m.Reset()
	assert.Zero(t, m.Rate(last))
}
