package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPoller_PollsAtInterval(t *testing.T) {
	jpg := testJPEG(t, 4, 4)
	var calls atomic.Int32
	snap := SnapshotFunc(func(ctx context.Context) ([]byte, error) {
		n := calls.Add(1)
		if n == 2 {
			return nil, errors.New("timeout")
		}
		return jpg, nil
	})

	clk := newFakeClock()
	sink := newChanSink(10)
	env := testEnv(sink, clk)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Outcome, 1)
	go func() { done <- RunPoller(ctx, snap, DefaultPollInterval, env) }()

	for i := 1; i <= 3; i++ {
		require.Eventually(t, clk.HasWaiters, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(i), calls.Load())
		clk.Step(DefaultPollInterval)
	}
	require.Eventually(t, clk.HasWaiters, 2*time.Second, 5*time.Millisecond)
	cancel()

	assert.Equal(t, OutcomeStopped, <-done)
	// 4 fetches, one failed.
	assert.Equal(t, 3, len(sink.ch))
	f := <-sink.ch
	assert.Equal(t, "safe-mode", f.Source)
	assert.Equal(t, 4, f.Width)
}

func TestRunPoller_CorruptSnapshotKeepsGoing(t *testing.T) {
	var calls atomic.Int32
	snap := SnapshotFunc(func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("not a jpeg"), nil
	})

	clk := newFakeClock()
	env := testEnv(newChanSink(1), clk)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Outcome, 1)
	go func() { done <- RunPoller(ctx, snap, 0, env) }()

	require.Eventually(t, clk.HasWaiters, 2*time.Second, 5*time.Millisecond)
	clk.Step(DefaultPollInterval)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	assert.Equal(t, OutcomeStopped, <-done)
	assert.Equal(t, uint64(2), atomic.LoadUint64(&env.Counters.DecodeErrors))
}
