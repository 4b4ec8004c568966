package gstdecode

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/capture"
	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/mjpeg"
)

// Decoder opens MJPEG-over-HTTP streams through a GStreamer pipeline.
// It satisfies capture.Decoder.
type Decoder struct {
	HTTPTimeout time.Duration // souphttpsrc timeout (default: 5s)
	Buffer      int           // decoded frames held between reads (default: 4)
}

// NewDecoder returns a Decoder, or nil when GStreamer or one of the
// required plugins is missing.
func NewDecoder() *Decoder {
	if !Available() {
		slog.Warn("gstdecode: GStreamer plugins unavailable, managed decoder disabled")
		return nil
	}
	return &Decoder{HTTPTimeout: 5 * time.Second, Buffer: 4}
}

// Open builds and starts a pipeline for url.
func (d *Decoder) Open(ctx context.Context, url string) (capture.DecodedStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buffer := d.Buffer
	if buffer <= 0 {
		buffer = 4
	}

	elements, err := CreatePipeline(PipelineConfig{
		URL:         url,
		HTTPTimeout: d.HTTPTimeout,
		MaxBuffers:  2,
	})
	if err != nil {
		return nil, fmt.Errorf("gstdecode: %w", err)
	}

	frames := make(chan mjpeg.Image, buffer)
	s := &Stream{
		url:      url,
		elements: elements,
		frames:   frames,
		bus:      elements.Pipeline.GetPipelineBus(),
	}

	cbctx := &CallbackContext{
		FrameChan:     frames,
		BytesRead:     &s.bytesRead,
		FramesDropped: &s.framesDropped,
	}
	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return OnNewSample(sink, cbctx)
		},
	})

	decoder := elements.Decoder
	if _, err := elements.Demux.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		OnPadAdded(srcPad, decoder)
	}); err != nil {
		_ = DestroyPipeline(elements)
		return nil, fmt.Errorf("gstdecode: connect pad-added: %w", err)
	}

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		_ = DestroyPipeline(elements)
		return nil, fmt.Errorf("gstdecode: failed to start pipeline: %w", err)
	}

	slog.Debug("gstdecode: pipeline started", "url", url)
	return s, nil
}

// Stream is a running pipeline. Frames arrive asynchronously from the
// appsink callback; Read drains them without blocking.
type Stream struct {
	url      string
	elements *PipelineElements
	frames   chan mjpeg.Image
	bus      *gst.Bus

	bytesRead     uint64
	framesDropped uint64

	closeOnce sync.Once
	closeErr  error
}

// Read returns the next decoded frame if one is ready.
//
// Pending bus messages are checked only when no frame is queued, so frames
// decoded before an error are still delivered.
func (s *Stream) Read() (mjpeg.Image, bool, error) {
	select {
	case img := <-s.frames:
		return img, true, nil
	default:
	}

	for {
		msg := s.bus.Pop()
		if msg == nil {
			return mjpeg.Image{}, false, nil
		}

		switch msg.Type() {
		case gst.MessageEOS:
			return mjpeg.Image{}, false, ErrEndOfStream

		case gst.MessageError:
			perr := newPipelineError(msg.ParseError())
			slog.Error("gstdecode: pipeline error",
				"error", perr.Message,
				"debug", perr.Debug,
				"category", perr.Kind.String(),
				"url", s.url,
			)
			return mjpeg.Image{}, false, perr

		case gst.MessageStateChanged:
			if msg.Source() == s.elements.Pipeline.GetName() {
				old, new := msg.ParseStateChanged()
				slog.Debug("gstdecode: pipeline state changed", "from", old, "to", new)
			}
		}
	}
}

// Close stops the pipeline. Subsequent calls return the first result.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = DestroyPipeline(s.elements)
		slog.Debug("gstdecode: pipeline destroyed",
			"url", s.url,
			"bytes_decoded", atomic.LoadUint64(&s.bytesRead),
			"frames_dropped", atomic.LoadUint64(&s.framesDropped),
		)
	})
	return s.closeErr
}
