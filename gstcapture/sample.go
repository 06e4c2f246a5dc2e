package gstcapture

import (
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// onNewSample runs when the appsink holds a new frame. It pulls the sample,
// copies the pixel data out of the GStreamer buffer, and hands it to the
// dispatch engine.
//
// A single bad sample is skipped rather than terminating the stream; the bus
// monitor handles fatal pipeline errors.
func (s *Session) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("gstcapture: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstcapture: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("gstcapture: empty buffer received")
		return gst.FlowOK
	}

	// Copy out of the mapped region; GStreamer reuses the buffer
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	s.bytesRead.Add(uint64(len(frameData)))
	s.engine.Deliver(frameData, s.cfg.Size.Width, s.cfg.Size.Height)

	return gst.FlowOK
}
