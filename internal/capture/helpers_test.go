package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

// chanSink is a bounded non-blocking sink backed by a channel.
type chanSink struct {
	ch chan Frame
}

func newChanSink(capacity int) *chanSink {
	return &chanSink{ch: make(chan Frame, capacity)}
}

func (s *chanSink) Push(f Frame) bool {
	select {
	case s.ch <- f:
		return true
	default:
		return false
	}
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func multipart(frames ...[]byte) []byte {
	var buf bytes.Buffer
	for _, f := range frames {
		fmt.Fprintf(&buf, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(f))
		buf.Write(f)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEnv(sink Sink, clk *testingclock.FakeClock) Env {
	return Env{
		Sink:     sink,
		Log:      quietLogger(),
		Clock:    clk,
		Counters: &Counters{},
	}
}

func newFakeClock() *testingclock.FakeClock {
	return testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}
