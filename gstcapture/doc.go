// Package gstcapture provides a GStreamer-backed capture session for V4L2
// cameras.
//
// It implements capture.Session: configs submitted through a
// capture.RequestProcessor are served with live frames from the device
// pipeline, and capture events are delivered through the configs' callbacks.
//
// # Quick Start
//
//	session, err := gstcapture.NewSession(gstcapture.Config{
//	    Device: "/dev/video0",
//	    Size:   camera.Size720p,
//	    FPS:    30,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Stop()
//
//	if err := session.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	viewfinder := capture.NewSurface("viewfinder", 5)
//	processor, err := capture.NewRequestProcessor(session, []*capture.OutputBinding{
//	    capture.NewOutputBinding(1, viewfinder),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer processor.Close()
//
//	processor.SetRepeating(capture.NewRequest(capture.TemplatePreview, nil, 1), callbacks)
//	for frame := range viewfinder.Frames() {
//	    processFrame(frame)
//	}
//
// Leaving Config.Device empty selects a live videotestsrc, so the full
// capture path runs on machines without a camera.
//
// # Pipeline
//
// One fixed shape, built on Start:
//
//	v4l2src → videoconvert → videoscale → videorate → capsfilter → appsink
//
// The capsfilter locks raw RGB at the configured size and rate. The appsink
// runs with max-buffers=1 and drop=true: when the consumer falls behind,
// stale frames are discarded upstream instead of queueing. Latency over
// completeness.
//
// # Frame Format
//
// Frames are interleaved raw RGB, Width × Height × 3 bytes, delivered to the
// surfaces of the capture config that consumed them.
//
// # Failure Semantics
//
// Capture sessions are terminal. A fatal pipeline error or end of stream
// fails the in-flight capture (OnCaptureFailed), marks the session failed,
// and stops frame production; the session is not restarted. Errors are
// categorized (device, format, unknown) in Stats for telemetry.
//
// # Dependencies
//
// GStreamer 1.x must be installed on the system:
//
//	# Ubuntu/Debian
//	sudo apt-get install gstreamer1.0-tools gstreamer1.0-plugins-base \
//	    gstreamer1.0-plugins-good
//
// Verify with:
//
//	gst-inspect-1.0 v4l2src
//
// # Thread Safety
//
// All public methods are safe for concurrent use. Capture events are
// delivered on a dedicated dispatch goroutine, never on the caller's stack.
package gstcapture
