package gcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/capture"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/warmup"
)

// ErrStopTimeout is returned by Stop when the producer did not exit in time.
var ErrStopTimeout = errors.New("gcs: producer did not stop in time")

// Session is one running producer: its cancellation signal, its goroutine
// and its counters. A Session is never restarted; start a new one.
type Session struct {
	id   string
	kind ProducerKind
	sink *FrameSink
	log  *slog.Logger
	clk  clock.WithDelayedExecution

	cancel context.CancelFunc
	done   chan struct{}

	counters  *capture.Counters
	meter     warmup.Meter
	started   time.Time
	state     atomic.Int32
	candidate atomic.Pointer[string]

	onStateChange func(StateChange)
	stateMu       sync.Mutex // serializes transitions so observers see them in order
}

func newSession(kind ProducerKind, initial State, sink *FrameSink, log *slog.Logger, clk clock.WithDelayedExecution, onStateChange func(StateChange)) *Session {
	id := uuid.New().String()
	s := &Session{
		id:            id,
		kind:          kind,
		sink:          sink,
		clk:           clk,
		log:           loggerOrDefault(log).With("session", id[:8]),
		done:          make(chan struct{}),
		counters:      &capture.Counters{},
		started:       clk.Now(),
		onStateChange: onStateChange,
	}
	s.state.Store(int32(initial))
	empty := ""
	s.candidate.Store(&empty)
	return s
}

// start launches run on its own goroutine under a fresh cancellable context.
func (s *Session) start(parent context.Context, run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	go func() {
		defer close(s.done)
		defer cancel()
		run(ctx)
	}()
}

// env bundles what strategies need, with frame arrivals feeding the FPS meter.
func (s *Session) env() capture.Env {
	return capture.Env{
		Sink:     &meteredSink{sink: s.sink, meter: &s.meter},
		Log:      s.log,
		Clock:    s.clk,
		Counters: s.counters,
	}
}

// setState records a transition, logs it and notifies the observer.
func (s *Session) setState(to State, candidate string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	from := State(s.state.Swap(int32(to)))
	s.candidate.Store(&candidate)

	s.log.Info("gcs: state transition",
		"from", from.String(),
		"to", to.String(),
		"candidate", candidate,
	)

	if s.onStateChange != nil {
		s.onStateChange(StateChange{
			SessionID: s.id,
			From:      from,
			To:        to,
			Candidate: candidate,
			At:        s.clk.Now(),
		})
	}
}

// ID returns the session's unique identifier
func (s *Session) ID() string { return s.id }

// Kind returns which producer this session runs
func (s *Session) Kind() ProducerKind { return s.kind }

// Sink returns the session's FrameSink
func (s *Session) Sink() *FrameSink { return s.sink }

// State returns the current supervisor state
func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed once the producer goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel sets the cancellation signal without waiting.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Stop cancels the producer and waits up to timeout for it to exit.
//
// Idempotent. Returns ErrStopTimeout if the producer is still running when
// timeout elapses; it keeps winding down in the background and will release
// its connection when it observes the cancellation.
func (s *Session) Stop(timeout time.Duration) error {
	s.Cancel()

	select {
	case <-s.done:
		s.log.Info("gcs: session stopped",
			"kind", string(s.kind),
			"frames", atomic.LoadUint64(&s.counters.Frames),
			"uptime", s.clk.Since(s.started),
		)
		return nil
	case <-time.After(timeout):
		s.log.Warn("gcs: stop timeout exceeded, producer still winding down", "timeout", timeout)
		return fmt.Errorf("%w (%s after %v)", ErrStopTimeout, s.kind, timeout)
	}
}

// Stats returns current session statistics
//
// Thread-safe - uses atomic operations for counters.
func (s *Session) Stats() Stats {
	c := s.counters
	frames := atomic.LoadUint64(&c.Frames)
	dropped := atomic.LoadUint64(&c.Dropped)

	var dropRate float64
	if total := frames + dropped; total > 0 {
		dropRate = float64(dropped) / float64(total) * 100.0
	}

	now := s.clk.Now()
	latencyMS := int64(-1)
	if last := c.LastFrameAt(); !last.IsZero() {
		latencyMS = now.Sub(last).Milliseconds()
	}

	running := true
	select {
	case <-s.done:
		running = false
	default:
	}

	return Stats{
		SessionID:     s.id,
		Kind:          s.kind,
		State:         s.State().String(),
		Candidate:     *s.candidate.Load(),
		FrameCount:    frames,
		FramesDropped: dropped,
		DropRate:      dropRate,
		DecodeErrors:  atomic.LoadUint64(&c.DecodeErrors),
		Attempts:      atomic.LoadUint64(&c.Attempts),
		Reconnects:    atomic.LoadUint64(&c.Retries),
		BytesRead:     atomic.LoadUint64(&c.BytesRead),
		FPS:           s.meter.Rate(now),
		LatencyMS:     latencyMS,
		Uptime:        now.Sub(s.started),
		Running:       running,
		ErrorsNetwork: atomic.LoadUint64(&c.ErrorsNetwork),
		ErrorsCodec:   atomic.LoadUint64(&c.ErrorsCodec),
		ErrorsAuth:    atomic.LoadUint64(&c.ErrorsAuth),
		ErrorsUnknown: atomic.LoadUint64(&c.ErrorsUnknown),
	}
}

// meteredSink feeds accepted frames into the FrameSink and the FPS meter.
type meteredSink struct {
	sink  *FrameSink
	meter *warmup.Meter
}

func (m *meteredSink) Push(f capture.Frame) bool {
	if !m.sink.TryPush(Frame(f)) {
		return false
	}
	m.meter.Mark(f.Timestamp)
	return true
}
