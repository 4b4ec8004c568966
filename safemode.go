package gcs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/capture"
)

// StartSafeMode starts the snapshot-polling producer and returns at once.
//
// Every cfg.Interval it fetches one still image through cfg.Snapshotter,
// decodes it and pushes it to sink. Failed polls are logged and the loop
// continues until ctx is cancelled or the Session is stopped.
//
// Safe mode must not share a sink with a running acquisition; Controller
// enforces that by stopping one before starting the other.
func StartSafeMode(ctx context.Context, sink *FrameSink, logger *slog.Logger, cfg SafeModeConfig) (*Session, error) {
	if sink == nil {
		return nil, fmt.Errorf("gcs: sink is required")
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	session := newSession(KindSafeMode, StatePolling, sink, logger, cfg.Clock, cfg.OnStateChange)
	session.start(ctx, func(ctx context.Context) {
		session.setState(StatePolling, "")
		capture.RunPoller(ctx, cfg.Snapshotter, cfg.Interval, session.env())
		session.setState(StateCancelled, "")
	})
	return session, nil
}
