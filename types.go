package gcs

import (
	"time"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/capture"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/mjpeg"
)

// Frame is one decoded image handed from a producer to the consumer
type Frame struct {
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data is RGB24, row-major, Width*Height*3 bytes
	Data []byte
	// Timestamp is when the frame was decoded
	Timestamp time.Time
	// Source names the producing strategy ("managed", "manual", "safe-mode")
	Source string
}

// Image is a decoded RGB24 raster as returned by a Decoder.
type Image = mjpeg.Image

// Decoder is the managed-decoder capability: something that can open a
// stream URL and hand back decoded frames (GStreamer in production).
type Decoder = capture.Decoder

// DecodedStream is an open Decoder session.
type DecodedStream = capture.DecodedStream

// State is the acquisition supervisor's state
type State int

const (
	// StateSelectingCandidate picks the next candidate URL to try
	StateSelectingCandidate State = iota
	// StateRunningManagedDecoder runs the managed-decoder strategy
	StateRunningManagedDecoder
	// StateRunningManual runs the manual chunked-HTTP strategy
	StateRunningManual
	// StateCancelled is terminal
	StateCancelled
	// StatePolling is the safe-mode producer's only running state
	StatePolling
)

// String returns a human-readable string representation of the state
func (s State) String() string {
	switch s {
	case StateSelectingCandidate:
		return "selecting-candidate"
	case StateRunningManagedDecoder:
		return "running-managed-decoder"
	case StateRunningManual:
		return "running-manual"
	case StateCancelled:
		return "cancelled"
	case StatePolling:
		return "polling"
	default:
		return "unknown"
	}
}

// StateChange is reported to AcquisitionConfig.OnStateChange and
// SafeModeConfig.OnStateChange.
type StateChange struct {
	SessionID string
	From      State
	To        State
	Candidate string // empty outside the running states
	At        time.Time
}

// ProducerKind tells which producer a Session runs
type ProducerKind string

const (
	KindAcquisition ProducerKind = "acquisition"
	KindSafeMode    ProducerKind = "safe-mode"
)

// Stats contains current session statistics
type Stats struct {
	// SessionID identifies the producer session (uuid)
	SessionID string `json:"session_id" msgpack:"session_id"`
	// Kind is "acquisition" or "safe-mode"
	Kind ProducerKind `json:"kind" msgpack:"kind"`
	// State is the current supervisor state
	State string `json:"state" msgpack:"state"`
	// Candidate is the URL currently being tried
	Candidate string `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
	// FrameCount is the number of frames accepted by the sink
	FrameCount uint64 `json:"frame_count" msgpack:"frame_count"`
	// FramesDropped is the number of frames dropped (sink full)
	FramesDropped uint64 `json:"frames_dropped" msgpack:"frames_dropped"`
	// DropRate is the percentage of frames dropped (0-100)
	DropRate float64 `json:"drop_rate" msgpack:"drop_rate"`
	// DecodeErrors is the number of corrupt JPEGs discarded
	DecodeErrors uint64 `json:"decode_errors" msgpack:"decode_errors"`
	// Attempts is the number of connection attempts across strategies
	Attempts uint64 `json:"attempts" msgpack:"attempts"`
	// Reconnects is the number of manual-strategy reconnects
	Reconnects uint64 `json:"reconnects" msgpack:"reconnects"`
	// BytesRead is the total bytes read from HTTP bodies
	BytesRead uint64 `json:"bytes_read" msgpack:"bytes_read"`
	// FPS is the recent producer frame rate
	FPS float64 `json:"fps" msgpack:"fps"`
	// LatencyMS is the time since the last frame in milliseconds (-1 before the first)
	LatencyMS int64 `json:"latency_ms" msgpack:"latency_ms"`
	// Uptime is the time since the session started
	Uptime time.Duration `json:"uptime_ns" msgpack:"uptime_ns"`
	// Running is false once the producer has exited
	Running bool `json:"running" msgpack:"running"`

	// Managed decoder error telemetry
	ErrorsNetwork uint64 `json:"errors_network" msgpack:"errors_network"`
	ErrorsCodec   uint64 `json:"errors_codec" msgpack:"errors_codec"`
	ErrorsAuth    uint64 `json:"errors_auth" msgpack:"errors_auth"`
	ErrorsUnknown uint64 `json:"errors_unknown" msgpack:"errors_unknown"`
}

// WarmupStats contains frame-cadence statistics for a measurement window
type WarmupStats struct {
	// FramesReceived is the number of frames observed
	FramesReceived int
	// Duration is the measurement window
	Duration time.Duration
	// FPSMean is the mean FPS across all frames
	FPSMean float64
	// FPSStdDev is the standard deviation of FPS
	FPSStdDev float64
	// FPSMin is the minimum instantaneous FPS
	FPSMin float64
	// FPSMax is the maximum instantaneous FPS
	FPSMax float64
	// IsStable is true if FPS stddev < 15% of mean and jitter < 20% of interval
	IsStable bool
	// JitterMean is the mean deviation from the expected interval (seconds)
	JitterMean float64
	// JitterStdDev is the standard deviation of jitter (seconds)
	JitterStdDev float64
	// JitterMax is the worst jitter observed (seconds)
	JitterMax float64
}
