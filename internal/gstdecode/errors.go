package gstdecode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrEndOfStream is returned by Stream.Read after the pipeline posted EOS.
var ErrEndOfStream = errors.New("gstdecode: end of stream")

// ErrorCategory represents the classification of GStreamer errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryNetwork indicates network-related failures (connection, timeout, DNS)
	ErrCategoryNetwork ErrorCategory = iota
	// ErrCategoryCodec indicates codec/stream failures (decode errors, format issues)
	ErrCategoryCodec
	// ErrCategoryAuth indicates authentication/authorization failures
	ErrCategoryAuth
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryNetwork:
		return "network"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// PipelineError is a classified error posted on the pipeline bus.
type PipelineError struct {
	Kind    ErrorCategory
	Message string
	Debug   string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("gstdecode: pipeline error [%s]: %s", e.Kind, e.Message)
}

// Category reports the error kind as a string ("network", "codec", ...).
func (e *PipelineError) Category() string {
	return e.Kind.String()
}

// newPipelineError classifies a bus error.
func newPipelineError(gerr *gst.GError) *PipelineError {
	if gerr == nil {
		return &PipelineError{Kind: ErrCategoryUnknown, Message: "unknown error"}
	}
	return &PipelineError{
		Kind:    Classify(gerr.Error(), gerr.DebugString()),
		Message: gerr.Error(),
		Debug:   gerr.DebugString(),
	}
}

// Classify categorizes a GStreamer error from its message and debug string.
//
// Classification is keyword based since go-gst's GError does not expose the
// error domain. Auth is checked first (most specific), then codec, then network.
func Classify(message, debug string) ErrorCategory {
	combined := strings.ToLower(message + " " + debug)

	switch {
	case containsAny(combined, authKeywords):
		return ErrCategoryAuth
	case containsAny(combined, codecKeywords):
		return ErrCategoryCodec
	case containsAny(combined, networkKeywords):
		return ErrCategoryNetwork
	default:
		return ErrCategoryUnknown
	}
}

var authKeywords = []string{
	"unauthorized",
	"401",
	"403",
	"forbidden",
	"authentication",
	"credentials",
}

var codecKeywords = []string{
	"codec",
	"decode",
	"format",
	"negotiation",
	"caps",
	"jpeg",
	"multipart",
	"not negotiated",
	"no decoder",
	"missing plugin",
}

var networkKeywords = []string{
	"connection",
	"timeout",
	"timed out",
	"unreachable",
	"network",
	"resolve",
	"socket",
	"not found",
	"could not connect",
	"failed to connect",
	"http",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
