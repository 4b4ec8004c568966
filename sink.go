package gcs

import "sync/atomic"

// DefaultSinkCapacity is the FrameSink size used by sessions.
const DefaultSinkCapacity = 5

// FrameSink is the bounded hand-off queue between one producer and one
// consumer. Both ends are non-blocking: a push into a full sink drops the
// new frame, a pop from an empty sink returns immediately.
type FrameSink struct {
	ch      chan Frame
	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// NewFrameSink creates a sink holding at most capacity frames.
// capacity <= 0 selects DefaultSinkCapacity.
func NewFrameSink(capacity int) *FrameSink {
	if capacity <= 0 {
		capacity = DefaultSinkCapacity
	}
	return &FrameSink{ch: make(chan Frame, capacity)}
}

// TryPush enqueues f if there is room. It never blocks; false means the
// frame was dropped and the queued frames are untouched.
func (s *FrameSink) TryPush(f Frame) bool {
	select {
	case s.ch <- f:
		s.pushed.Add(1)
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// TryPop dequeues the oldest frame. It never blocks; ok=false means empty.
func (s *FrameSink) TryPop() (Frame, bool) {
	select {
	case f := <-s.ch:
		return f, true
	default:
		return Frame{}, false
	}
}

// Len returns the number of queued frames.
func (s *FrameSink) Len() int { return len(s.ch) }

// Cap returns the sink capacity.
func (s *FrameSink) Cap() int { return cap(s.ch) }

// Pushed returns the number of frames accepted since creation.
func (s *FrameSink) Pushed() uint64 { return s.pushed.Load() }

// Dropped returns the number of frames rejected because the sink was full.
func (s *FrameSink) Dropped() uint64 { return s.dropped.Load() }
