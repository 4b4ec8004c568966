package gcs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultStopTimeout bounds how long a restart waits for the previous producer.
const DefaultStopTimeout = time.Second

// ControllerConfig contains configuration for a Controller
type ControllerConfig struct {
	Acquisition AcquisitionConfig
	SafeMode    SafeModeConfig
	// SinkCapacity is the size of each session's FrameSink (default: 5)
	SinkCapacity int
	// StopTimeout bounds the join of a stopping producer (default: 1s)
	StopTimeout time.Duration
	// OnSessionStart is called after a new session has started
	OnSessionStart func(*Session)
}

// Controller owns at most one running producer at a time.
//
// Every start first stops (and joins) the current session, then creates a
// fresh FrameSink and a fresh cancellation signal, so two producers never
// share a sink.
type Controller struct {
	ctx context.Context
	log *slog.Logger
	cfg ControllerConfig

	// restartMu serializes starts and stops. The consumer never takes it.
	restartMu sync.Mutex
	current   atomic.Pointer[Session]
}

// NewController creates a Controller. Sessions derive from ctx; cancelling
// it stops whichever producer is running.
func NewController(ctx context.Context, logger *slog.Logger, cfg ControllerConfig) *Controller {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.SinkCapacity <= 0 {
		cfg.SinkCapacity = DefaultSinkCapacity
	}
	return &Controller{
		ctx: ctx,
		log: loggerOrDefault(logger),
		cfg: cfg,
	}
}

// StartStream stops any running producer and starts acquisition of url.
func (c *Controller) StartStream(url string) (*Session, error) {
	return c.restart(func(sink *FrameSink) (*Session, error) {
		return StartAcquisition(c.ctx, url, sink, c.log, c.cfg.Acquisition)
	})
}

// StartSafeMode stops any running producer and starts snapshot polling.
func (c *Controller) StartSafeMode() (*Session, error) {
	return c.restart(func(sink *FrameSink) (*Session, error) {
		return StartSafeMode(c.ctx, sink, c.log, c.cfg.SafeMode)
	})
}

func (c *Controller) restart(start func(*FrameSink) (*Session, error)) (*Session, error) {
	c.restartMu.Lock()
	defer c.restartMu.Unlock()

	if err := c.stopCurrent(); err != nil {
		// The old producer still owns only its own sink; carry on.
		c.log.Warn("gcs: previous producer did not stop cleanly", "error", err)
	}

	session, err := start(NewFrameSink(c.cfg.SinkCapacity))
	if err != nil {
		return nil, err
	}
	c.current.Store(session)

	if c.cfg.OnSessionStart != nil {
		c.cfg.OnSessionStart(session)
	}
	return session, nil
}

// Stop stops the running producer, if any. Idempotent.
func (c *Controller) Stop() error {
	c.restartMu.Lock()
	defer c.restartMu.Unlock()
	return c.stopCurrent()
}

// stopCurrent detaches the running session before joining it, so the
// consumer sees an idle controller instead of waiting on the join.
func (c *Controller) stopCurrent() error {
	s := c.current.Swap(nil)
	if s == nil {
		return nil
	}
	return s.Stop(c.cfg.StopTimeout)
}

// Current returns the running session, or nil. It never blocks.
func (c *Controller) Current() *Session {
	return c.current.Load()
}

// TryFrame is the consumer's non-blocking dequeue from the current session's
// sink. ok=false when no session is running or the sink is empty.
func (c *Controller) TryFrame() (Frame, bool) {
	s := c.Current()
	if s == nil {
		return Frame{}, false
	}
	return s.sink.TryPop()
}

// Stats returns the current session's statistics. ok=false when idle.
func (c *Controller) Stats() (Stats, bool) {
	s := c.Current()
	if s == nil {
		return Stats{}, false
	}
	return s.Stats(), true
}
