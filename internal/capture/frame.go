package capture

import (
	"log/slog"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/mjpeg"
)

// Frame is a minimal frame struct for internal use (avoids import cycle)
// The public Frame type is defined in the root package
type Frame struct {
	Width     int
	Height    int
	Data      []byte // RGB24, row-major
	Timestamp time.Time
	Source    string // producing strategy, e.g. "managed", "manual", "safe-mode"
}

// Sink receives frames from a producer.
//
// Push must never block. It returns false when the frame was dropped
// because the sink is full.
type Sink interface {
	Push(Frame) bool
}

// Outcome is what a strategy reports when it returns.
type Outcome int

const (
	// OutcomeStopped means cancellation was observed (cooperative stop).
	OutcomeStopped Outcome = iota
	// OutcomeFailed means the strategy gave up; try the next one.
	OutcomeFailed
)

// String returns a human-readable string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeStopped:
		return "stopped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Counters holds atomic counters shared by all strategies of one session.
type Counters struct {
	Frames       uint64 // frames accepted by the sink
	Dropped      uint64 // frames dropped (sink full)
	DecodeErrors uint64 // corrupt JPEGs discarded
	Attempts     uint64 // connection attempts (any strategy)
	Retries      uint64 // reconnects after an attempt ended
	BytesRead    uint64 // raw bytes read from HTTP bodies

	// Managed decoder error categories
	ErrorsNetwork uint64
	ErrorsCodec   uint64
	ErrorsAuth    uint64
	ErrorsUnknown uint64

	lastFrameAt atomic.Int64 // unix nanos
}

// LastFrameAt returns the time the last frame was accepted by the sink.
func (c *Counters) LastFrameAt() time.Time {
	ns := c.lastFrameAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Env bundles the collaborators every strategy needs.
type Env struct {
	Sink     Sink
	Log      *slog.Logger
	Clock    clock.WithDelayedExecution
	Counters *Counters
}

// withDefaults fills nil collaborators so strategies can be run bare in tests.
func (e Env) withDefaults() Env {
	if e.Log == nil {
		e.Log = slog.Default()
	}
	if e.Clock == nil {
		e.Clock = clock.RealClock{}
	}
	if e.Counters == nil {
		e.Counters = &Counters{}
	}
	return e
}

// publish hands a decoded image to the sink without blocking.
func (e Env) publish(img mjpeg.Image, source string) {
	frame := Frame{
		Width:     img.Width,
		Height:    img.Height,
		Data:      img.Data,
		Timestamp: e.Clock.Now(),
		Source:    source,
	}

	if !e.Sink.Push(frame) {
		atomic.AddUint64(&e.Counters.Dropped, 1)
		e.Log.Debug("capture: dropping frame, sink full", "source", source)
		return
	}

	atomic.AddUint64(&e.Counters.Frames, 1)
	e.Counters.lastFrameAt.Store(frame.Timestamp.UnixNano())
}

// decodeAndPublish decodes one extracted JPEG; corrupt images are counted and
// discarded.
func (e Env) decodeAndPublish(jpg []byte, source string) bool {
	img, err := mjpeg.Decode(jpg)
	if err != nil {
		atomic.AddUint64(&e.Counters.DecodeErrors, 1)
		e.Log.Debug("capture: discarding corrupt frame", "source", source, "size_bytes", len(jpg), "error", err)
		return false
	}
	e.publish(img, source)
	return true
}
