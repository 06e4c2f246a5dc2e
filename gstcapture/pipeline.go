package gstcapture

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// pipelineElements holds references to the pipeline pieces the session needs
// for callbacks and cleanup.
type pipelineElements struct {
	pipeline   *gst.Pipeline
	appSink    *app.Sink
	capsFilter *gst.Element
	src        *gst.Element
}

// buildPipeline creates and links the capture pipeline:
//
//	src → videoconvert → videoscale → videorate → capsfilter → appsink
//
// src is v4l2src for a configured device, else a live videotestsrc. The
// capsfilter locks RGB output at the configured size and rate; the appsink
// keeps only the latest buffer so a slow consumer drops frames upstream
// instead of queueing them.
//
// The pipeline is configured but not started (state remains NULL).
func buildPipeline(cfg Config) (*pipelineElements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	var src *gst.Element
	if cfg.Device != "" {
		src, err = gst.NewElement("v4l2src")
		if err != nil {
			return nil, fmt.Errorf("failed to create v4l2src: %w", err)
		}
		src.SetProperty("device", cfg.Device)
	} else {
		src, err = gst.NewElement("videotestsrc")
		if err != nil {
			return nil, fmt.Errorf("failed to create videotestsrc: %w", err)
		}
		// Live mode paces the test source at the caps framerate
		src.SetProperty("is-live", true)
	}

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0) // 0 = auto-detect cores

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("failed to create videorate: %w", err)
	}
	videorate.SetProperty("drop-only", true)     // Only drop frames, never duplicate
	videorate.SetProperty("skip-to-first", true) // Skip to first frame on start

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(buildCaps(cfg)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)    // No sync with clock (real-time)
	appsink.SetProperty("max-buffers", 1) // Keep only latest frame
	appsink.SetProperty("drop", true)     // Drop old frames
	appsink.SetProperty("qos", true)      // Push drop decisions upstream

	pipeline.AddMany(
		src,
		converter,
		scaler,
		videorate,
		capsfilter,
		appsink.Element,
	)

	if err := gst.ElementLinkMany(
		src,
		converter,
		scaler,
		videorate,
		capsfilter,
		appsink.Element,
	); err != nil {
		return nil, fmt.Errorf("failed to link pipeline elements: %w", err)
	}

	return &pipelineElements{
		pipeline:   pipeline,
		appSink:    appsink,
		capsFilter: capsfilter,
		src:        src,
	}, nil
}

// destroyPipeline stops the pipeline and releases its resources. Safe to
// call on a nil or already destroyed pipeline.
func destroyPipeline(elements *pipelineElements) error {
	if elements == nil || elements.pipeline == nil {
		return nil
	}
	if err := elements.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}

// buildCaps builds the output caps string: RGB at the configured geometry.
func buildCaps(cfg Config) string {
	return fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1",
		cfg.Size.Width, cfg.Size.Height, cfg.FPS,
	)
}

// checkGStreamerAvailable verifies the GStreamer runtime at construction
// time by creating then discarding a trivial element.
func checkGStreamerAvailable() error {
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)

	return nil
}
