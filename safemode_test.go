package gcs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/capture"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/device"
)

func TestSafeMode_PollsCaptureEndpoint(t *testing.T) {
	jpg := testJPEG(t, 12, 10)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capture" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpg)
	}))
	defer srv.Close()

	client, err := device.NewClient(srv.URL)
	require.NoError(t, err)

	rec := &stateRecorder{}
	sink := NewFrameSink(DefaultSinkCapacity)
	session, err := StartSafeMode(context.Background(), sink, quietLogger(), SafeModeConfig{
		Interval:      10 * time.Millisecond,
		Snapshotter:   client,
		OnStateChange: rec.record,
	})
	require.NoError(t, err)
	assert.Equal(t, KindSafeMode, session.Kind())

	require.Eventually(t, func() bool { return sink.Len() >= 2 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, StatePolling, session.State())

	require.NoError(t, session.Stop(time.Second))
	assert.Equal(t, []State{StatePolling, StateCancelled}, rec.states())

	f, ok := sink.TryPop()
	require.True(t, ok)
	assert.Equal(t, 12, f.Width)
	assert.Equal(t, 10, f.Height)
	assert.Equal(t, "safe-mode", f.Source)

	t.Logf("✅ %d snapshot requests", hits.Load())
}

func TestSafeMode_FailedPollsDoNotStopLoop(t *testing.T) {
	jpg := testJPEG(t, 4, 4)

	var calls atomic.Int32
	snap := capture.SnapshotFunc(func(ctx context.Context) ([]byte, error) {
		if calls.Add(1)%2 == 1 {
			return nil, errors.New("camera busy")
		}
		return jpg, nil
	})

	sink := NewFrameSink(DefaultSinkCapacity)
	session, err := StartSafeMode(context.Background(), sink, quietLogger(), SafeModeConfig{
		Interval:    5 * time.Millisecond,
		Snapshotter: snap,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.Pushed() >= 2 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, session.Stop(time.Second))

	stats := session.Stats()
	assert.False(t, stats.Running)
	assert.GreaterOrEqual(t, stats.Attempts, uint64(4))
}

func TestSafeMode_RequiresSnapshotter(t *testing.T) {
	_, err := StartSafeMode(context.Background(), NewFrameSink(1), nil, DefaultSafeModeConfig())
	assert.ErrorContains(t, err, "snapshotter is required")
}
