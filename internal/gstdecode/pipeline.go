package gstdecode

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// requiredElements are the plugins the MJPEG pipeline is built from.
var requiredElements = []string{
	"souphttpsrc",
	"multipartdemux",
	"jpegdec",
	"videoconvert",
	"capsfilter",
	"appsink",
}

// PipelineConfig contains configuration for GStreamer pipeline creation
type PipelineConfig struct {
	URL         string
	HTTPTimeout time.Duration // souphttpsrc network timeout (whole seconds)
	MaxBuffers  int           // appsink queue depth before it drops
}

// PipelineElements holds references to GStreamer pipeline elements
type PipelineElements struct {
	Pipeline *gst.Pipeline
	AppSink  *app.Sink
	Source   *gst.Element
	Demux    *gst.Element
	Decoder  *gst.Element
}

// Available reports whether GStreamer and every plugin the pipeline needs
// are installed.
func Available() bool {
	gst.Init(nil)
	for _, name := range requiredElements {
		if gst.Find(name) == nil {
			return false
		}
	}
	return true
}

// CreatePipeline creates and configures a GStreamer pipeline for an MJPEG-over-HTTP stream
//
// Pipeline structure:
//
//	souphttpsrc → multipartdemux → jpegdec → videoconvert → capsfilter(RGB) → appsink
//
// multipartdemux exposes its source pad dynamically, so it is linked to
// jpegdec from the pad-added callback (see OnPadAdded).
//
// The pipeline is configured but NOT started (state remains NULL).
// Caller must call pipeline.SetState(gst.StatePlaying) to start.
func CreatePipeline(cfg PipelineConfig) (*PipelineElements, error) {
	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	source, err := gst.NewElement("souphttpsrc")
	if err != nil {
		return nil, fmt.Errorf("failed to create souphttpsrc: %w", err)
	}
	source.SetProperty("location", cfg.URL)
	source.SetProperty("is-live", true)
	source.SetProperty("do-timestamp", true)
	if cfg.HTTPTimeout > 0 {
		source.SetProperty("timeout", uint(cfg.HTTPTimeout/time.Second))
	}

	demux, err := gst.NewElement("multipartdemux")
	if err != nil {
		return nil, fmt.Errorf("failed to create multipartdemux: %w", err)
	}

	decoder, err := gst.NewElement("jpegdec")
	if err != nil {
		return nil, fmt.Errorf("failed to create jpegdec: %w", err)
	}

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0) // 0 = auto-detect cores
	converter.SetProperty("dither", 0)

	// Lock output to packed RGB so buffers map 1:1 onto mjpeg.Image
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString("video/x-raw,format=RGB"))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	maxBuffers := cfg.MaxBuffers
	if maxBuffers <= 0 {
		maxBuffers = 2
	}
	appsink.SetProperty("sync", false) // No sync with clock (real-time)
	appsink.SetProperty("max-buffers", uint(maxBuffers))
	appsink.SetProperty("drop", true)

	if err := pipeline.AddMany(source, demux, decoder, converter, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("failed to add pipeline elements: %w", err)
	}

	if err := source.Link(demux); err != nil {
		return nil, fmt.Errorf("failed to link souphttpsrc to multipartdemux: %w", err)
	}

	// demux → jpegdec is linked in pad-added
	if err := gst.ElementLinkMany(decoder, converter, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("failed to link decode elements: %w", err)
	}

	slog.Debug("gstdecode: pipeline created", "url", cfg.URL, "max_buffers", maxBuffers)

	return &PipelineElements{
		Pipeline: pipeline,
		AppSink:  appsink,
		Source:   source,
		Demux:    demux,
		Decoder:  decoder,
	}, nil
}

// DestroyPipeline cleans up GStreamer pipeline resources
//
// Sets pipeline state to NULL and releases all resources.
// Safe to call even if pipeline is already destroyed.
func DestroyPipeline(elements *PipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}

	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}

	return nil
}
