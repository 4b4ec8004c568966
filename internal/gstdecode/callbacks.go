package gstdecode

import (
	"log/slog"
	"sync/atomic"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera/internal/mjpeg"
)

// CallbackContext holds state needed by GStreamer callbacks
type CallbackContext struct {
	FrameChan     chan<- mjpeg.Image
	BytesRead     *uint64 // Atomic counter for decoded bytes
	FramesDropped *uint64 // Atomic counter for dropped frames (channel full)
}

// OnNewSample is called by GStreamer when a new frame is available
//
// This callback:
//  1. Pulls the sample from the appsink
//  2. Reads width/height from the negotiated caps
//  3. Copies data (GStreamer will reuse the buffer)
//  4. Sends the image to the channel (non-blocking, drops if full)
//
// Always returns gst.FlowOK: a single bad sample must not stop the pipeline.
func OnNewSample(sink *app.Sink, ctx *CallbackContext) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("gstdecode: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	width, height, ok := sampleSize(sample)
	if !ok {
		slog.Warn("gstdecode: sample without video caps, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstdecode: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("gstdecode: empty buffer received")
		return gst.FlowOK
	}

	img := mjpeg.Image{Width: width, Height: height, Data: packRGB(data, width, height)}
	buffer.Unmap()

	atomic.AddUint64(ctx.BytesRead, uint64(len(data)))

	select {
	case ctx.FrameChan <- img:
	default:
		atomic.AddUint64(ctx.FramesDropped, 1)
		slog.Debug("gstdecode: dropping frame, channel full")
	}

	return gst.FlowOK
}

// OnPadAdded is called by GStreamer when multipartdemux creates a new dynamic pad
//
// Links the demuxer's output pad to jpegdec's input pad. Only the first pad
// is linked; later parts of other types are ignored.
func OnPadAdded(srcPad *gst.Pad, sinkElement *gst.Element) {
	slog.Debug("gstdecode: pad-added signal received", "pad", srcPad.GetName())

	sinkPad := sinkElement.GetStaticPad("sink")
	if sinkPad == nil {
		slog.Error("gstdecode: failed to get sink pad from jpegdec")
		return
	}
	if sinkPad.IsLinked() {
		return
	}

	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		slog.Error("gstdecode: failed to link pads",
			"src_pad", srcPad.GetName(),
			"sink_pad", sinkPad.GetName(),
			"ret", ret,
		)
		return
	}

	slog.Debug("gstdecode: pads linked successfully", "src_pad", srcPad.GetName())
}

func sampleSize(sample *gst.Sample) (width, height int, ok bool) {
	caps := sample.GetCaps()
	if caps == nil || caps.GetSize() == 0 {
		return 0, 0, false
	}
	structure := caps.GetStructureAt(0)

	if val, err := structure.GetValue("width"); err == nil {
		width, _ = val.(int)
	}
	if val, err := structure.GetValue("height"); err == nil {
		height, _ = val.(int)
	}
	return width, height, width > 0 && height > 0
}

// packRGB copies a possibly row-padded RGB buffer into a tight w*h*3 slice.
// GStreamer aligns video rows to 4 bytes.
func packRGB(data []byte, width, height int) []byte {
	row := width * 3
	out := make([]byte, row*height)
	if len(data) == len(out) {
		copy(out, data)
		return out
	}

	stride := (row + 3) &^ 3
	for y := 0; y < height; y++ {
		start := y * stride
		if start+row > len(data) {
			break
		}
		copy(out[y*row:], data[start:start+row])
	}
	return out
}
