package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"
)

// ErrRetriesExhausted is returned by RunWithRetry when MaxFailures
// consecutive attempts failed.
var ErrRetriesExhausted = errors.New("capture: retries exhausted")

// RetryConfig contains configuration for fixed-delay reconnection
type RetryConfig struct {
	Delay       time.Duration // Wait between attempts (default: 3 seconds)
	MaxFailures int           // Consecutive failures before giving up (0 = retry forever)
}

// DefaultRetryConfig returns default reconnection configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Delay:       3 * time.Second,
		MaxFailures: 0,
	}
}

// RetryState tracks the current state of reconnection attempts
type RetryState struct {
	ConsecutiveFailures int
	Retries             *uint64 // Atomic counter for total retries

	progressed bool // set by ResetRetryState during the current attempt
}

// AttemptFunc performs one connection attempt and returns when it ends.
// Any return while the context is still live counts as a failed attempt.
type AttemptFunc func(ctx context.Context, state *RetryState) error

// RunWithRetry executes an attempt function until the context is cancelled
//
// After every attempt that returns while ctx is live, it waits cfg.Delay
// (or until ctx is cancelled) and tries again. An attempt that made progress
// should call ResetRetryState: the streak of consecutive failures counted
// toward cfg.MaxFailures restarts, and the next attempt begins immediately.
//
// Returns ctx.Err() on cancellation, or an error wrapping ErrRetriesExhausted
// once MaxFailures consecutive attempts have failed.
func RunWithRetry(
	ctx context.Context,
	attempt AttemptFunc,
	cfg RetryConfig,
	state *RetryState,
	clk clock.Clock,
	log *slog.Logger,
) error {
	if state.Retries == nil {
		state.Retries = new(uint64)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		state.progressed = false
		err := attempt(ctx, state)
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Debug("capture: context cancelled, stopping retries")
			return ctxErr
		}

		if !state.progressed {
			state.ConsecutiveFailures++
		}
		if cfg.MaxFailures > 0 && state.ConsecutiveFailures >= cfg.MaxFailures {
			return fmt.Errorf("%w (%d consecutive failures): %v", ErrRetriesExhausted, state.ConsecutiveFailures, err)
		}

		atomic.AddUint64(state.Retries, 1)
		if state.progressed {
			log.Warn("capture: stream ended after delivering frames, reconnecting", "error", err)
			continue
		}
		log.Error("capture: attempt failed, retrying",
			"error", err,
			"consecutive_failures", state.ConsecutiveFailures,
			"delay", cfg.Delay,
		)

		if !Wait(ctx, clk, cfg.Delay) {
			log.Debug("capture: context cancelled during backoff")
			return ctx.Err()
		}
	}
}

// ResetRetryState resets the consecutive failure count after an attempt
// made progress.
func ResetRetryState(state *RetryState) {
	state.ConsecutiveFailures = 0
	state.progressed = true
}

// Wait blocks for d on clk, returning false if ctx is cancelled first.
func Wait(ctx context.Context, clk clock.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-clk.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
