package gcs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/capture"
)

// StartAcquisition starts a streaming producer for url and returns at once.
//
// The producer runs on its own goroutine until ctx is cancelled or the
// returned Session is stopped. It never gives up on its own: candidates are
// rotated forever, with a managed-decoder attempt falling back to the manual
// chunked-HTTP strategy on the same candidate.
//
// A nil logger means slog.Default(). Returns an error only for an invalid
// URL or configuration.
func StartAcquisition(ctx context.Context, url string, sink *FrameSink, logger *slog.Logger, cfg AcquisitionConfig) (*Session, error) {
	if sink == nil {
		return nil, fmt.Errorf("gcs: sink is required")
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	candidates, err := BuildCandidates(url, cfg.DeviceHost, cfg.AltPort)
	if err != nil {
		return nil, err
	}

	session := newSession(KindAcquisition, StateSelectingCandidate, sink, logger, cfg.Clock, cfg.OnStateChange)
	sup := &supervisor{
		cfg:      cfg,
		session:  session,
		rotation: NewRotation(candidates),
	}

	session.log.Info("gcs: acquisition starting",
		"url", url,
		"candidates", candidates,
		"managed_decoder", cfg.Decoder != nil,
	)

	session.start(ctx, sup.run)
	return session, nil
}

// supervisor is the acquisition state machine
//
//	SelectingCandidate → RunningManagedDecoder → RunningManual → (rotate)
//	                 ↘ (no decoder) ↗                 ↓ cancel
//	                                               Cancelled
type supervisor struct {
	cfg      AcquisitionConfig
	session  *Session
	rotation *Rotation
}

// run drives the state machine until ctx is cancelled.
//
// Cancellation is checked at the loop head and after every strategy returns;
// strategies themselves check it after every blocking call.
func (s *supervisor) run(ctx context.Context) {
	env := s.session.env()
	log := s.session.log

	s.session.setState(StateSelectingCandidate, "")

	for {
		if ctx.Err() != nil {
			s.session.setState(StateCancelled, "")
			return
		}

		candidate := s.rotation.Next()
		log.Info("gcs: trying candidate",
			"candidate", candidate,
			"round", s.rotation.Rounds(),
		)

		if s.cfg.Decoder != nil {
			s.session.setState(StateRunningManagedDecoder, candidate)
			outcome := capture.RunManaged(ctx, candidate, s.cfg.Decoder, s.cfg.managedConfig(), env)
			if outcome == capture.OutcomeStopped || ctx.Err() != nil {
				s.session.setState(StateCancelled, "")
				return
			}
			log.Warn("gcs: managed decoder failed, falling back to manual", "candidate", candidate)
		}

		s.session.setState(StateRunningManual, candidate)
		outcome := capture.RunManual(ctx, candidate, s.cfg.manualConfig(), env)
		if outcome == capture.OutcomeStopped || ctx.Err() != nil {
			s.session.setState(StateCancelled, "")
			return
		}

		log.Warn("gcs: manual strategy gave up, rotating candidate",
			"candidate", candidate,
			"max_failures", s.cfg.ManualMaxFailures,
		)
		s.session.setState(StateSelectingCandidate, "")
	}
}
