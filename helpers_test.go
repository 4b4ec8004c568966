package gcs

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func writePart(w io.Writer, jpg []byte) {
	fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpg))
	_, _ = w.Write(jpg)
	_, _ = io.WriteString(w, "\r\n")
}

// streamingHandler writes a frame every interval until the client goes away.
func streamingHandler(jpg []byte, interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace;boundary=frame")
		flusher := w.(http.Flusher)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			writePart(w, jpg)
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stateRecorder collects supervisor transitions.
type stateRecorder struct {
	mu      sync.Mutex
	changes []StateChange
}

func (r *stateRecorder) record(c StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *stateRecorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.To
	}
	return out
}

// manualCandidates lists the candidates the manual strategy ran against.
func (r *stateRecorder) manualCandidates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.changes {
		if c.To == StateRunningManual {
			out = append(out, c.Candidate)
		}
	}
	return out
}

// silentDecoder opens streams that never produce a frame.
type silentDecoder struct {
	opens  atomic.Int32
	closes atomic.Int32
}

func (d *silentDecoder) Open(ctx context.Context, url string) (DecodedStream, error) {
	d.opens.Add(1)
	return &silentStream{d: d}, nil
}

type silentStream struct{ d *silentDecoder }

func (s *silentStream) Read() (Image, bool, error) { return Image{}, false, nil }

func (s *silentStream) Close() error {
	s.d.closes.Add(1)
	return nil
}

// flowingDecoder opens streams that always have a 2x2 frame ready.
type flowingDecoder struct{}

func (flowingDecoder) Open(ctx context.Context, url string) (DecodedStream, error) {
	return flowingStream{}, nil
}

type flowingStream struct{}

func (flowingStream) Read() (Image, bool, error) {
	return Image{Width: 2, Height: 2, Data: make([]byte, 2*2*3)}, true, nil
}

func (flowingStream) Close() error { return nil }

// slowCloseDecoder yields frames like flowingDecoder, but its streams take
// delay to close. closing is closed when teardown begins.
type slowCloseDecoder struct {
	delay   time.Duration
	closing chan struct{}
	once    sync.Once
}

func newSlowCloseDecoder(delay time.Duration) *slowCloseDecoder {
	return &slowCloseDecoder{delay: delay, closing: make(chan struct{})}
}

func (d *slowCloseDecoder) Open(ctx context.Context, url string) (DecodedStream, error) {
	return &slowCloseStream{d: d}, nil
}

type slowCloseStream struct{ d *slowCloseDecoder }

func (s *slowCloseStream) Read() (Image, bool, error) { return flowingStream{}.Read() }

func (s *slowCloseStream) Close() error {
	s.d.once.Do(func() { close(s.d.closing) })
	time.Sleep(s.d.delay)
	return nil
}
