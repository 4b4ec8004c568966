// Package gcs provides resilient video acquisition from an ESP32 camera over HTTP.
//
// It keeps a continuous stream of decoded frames flowing from an unreliable
// network peer to a consumer that must never block: stalls, disconnects and
// protocol downgrades are recovered from without operator intervention.
//
// # Quick Start
//
// A Controller owns the one active producer and the sink it feeds:
//
//	ctl := gcs.NewController(ctx, slog.Default(), gcs.ControllerConfig{
//	    Acquisition: gcs.DefaultAcquisitionConfig(),
//	})
//	defer ctl.Stop()
//
//	if _, err := ctl.StartStream("http://192.168.4.1:81/stream"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Consumer tick (never blocks)
//	ticker := time.NewTicker(25 * time.Millisecond)
//	for range ticker.C {
//	    frame, ok := ctl.TryFrame()
//	    if !ok {
//	        continue
//	    }
//	    render(frame) // frame.Data is RGB24, frame.Width x frame.Height
//	}
//
// # Acquisition
//
// StartAcquisition runs a state machine over candidate URLs:
//
//   - SelectingCandidate: pick the next untried candidate (the caller's URL,
//     the URL without port 81, http://host:81/stream, http://host/stream),
//     resetting the rotation once all have been tried
//   - RunningManagedDecoder: open the stream with the managed decoder
//     (GStreamer). No frame within 5 seconds, or any later read failure,
//     falls back to manual on the same candidate
//   - RunningManual: read the multipart body in 2048-byte chunks and cut
//     JPEGs out by their 0xFFD8/0xFFD9 markers. Every failure is logged and
//     retried after 3 seconds
//   - Cancelled: terminal, reached only through cancellation
//
// Without a Decoder (AcquisitionConfig.Decoder == nil) the supervisor goes
// straight to RunningManual.
//
// # Safe Mode
//
// StartSafeMode polls the still-capture endpoint (default every 400ms) for
// links too weak to carry the stream. A failed poll is logged and the loop
// carries on.
//
// # Backpressure
//
// FrameSink holds at most 5 frames. A producer pushing into a full sink drops
// the new frame; a consumer popping an empty sink gets ok=false. Frames
// carry no sequence number: under backpressure later frames simply replace
// the ones that were dropped.
//
// # Cancellation
//
// Each Session owns its own context. Stop cancels it and joins the producer
// goroutine (Controller waits up to 1s). A new session always gets a fresh
// context and a fresh sink, so a producer still winding down can never
// write into its successor's sink.
//
// # Errors
//
// Producers never return errors to the consumer. Connect, read and decode
// failures are handled where they happen and reported through the
// *slog.Logger; the only visible symptom of a dead link is an empty sink.
// Stats exposes counters (frames, drops, decode errors, attempts,
// reconnects, managed-decoder error categories) for the operator.
package gcs
