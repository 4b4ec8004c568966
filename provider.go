package gcs

import "time"

// Producer defines the contract of a running frame producer
//
// Implementations must guarantee:
//   - the producer runs on its own goroutine, started before the constructor returns
//   - Stop() is idempotent and releases any held connection before Done() closes
//   - Stats() is thread-safe (can be called from any goroutine)
//   - frames only ever go to the producer's own Sink()
type Producer interface {
	// ID returns the session's unique identifier (uuid).
	ID() string

	// Kind reports whether this is an acquisition or a safe-mode producer.
	Kind() ProducerKind

	// Sink returns the FrameSink this producer feeds.
	//
	// The consumer dequeues with TryPop, which never blocks. A producer that
	// is faster than the consumer drops its newest frames; it never waits.
	Sink() *FrameSink

	// State returns the current state.
	//
	// Acquisition producers move through SelectingCandidate,
	// RunningManagedDecoder and RunningManual until Cancelled. Safe-mode
	// producers stay in Polling until Cancelled.
	State() State

	// Stats returns current statistics.
	Stats() Stats

	// Done is closed once the producer goroutine has exited.
	Done() <-chan struct{}

	// Stop sets the cancellation signal and waits up to timeout for the
	// producer to exit.
	//
	// Cancellation is observed within one polling iteration: one managed
	// decoder poll, one chunk read (bounded by the read timeout), or one
	// snapshot request.
	//
	// Returns ErrStopTimeout if the producer is still running after timeout.
	Stop(timeout time.Duration) error
}

// FrameSource is the consumer-side view of whatever producer is current.
//
// Controller implements it; the relay and the probe command depend only on
// this interface.
type FrameSource interface {
	// TryFrame dequeues one frame without blocking.
	TryFrame() (Frame, bool)

	// Stats returns the current producer's statistics, ok=false when idle.
	Stats() (Stats, bool)
}

var (
	_ Producer    = (*Session)(nil)
	_ FrameSource = (*Controller)(nil)
)
