package capture

import "time"

// Frame is a single captured frame delivered to a Surface.
type Frame struct {
	// Seq is the surface-independent monotonic sequence number
	Seq uint64
	// FrameNumber is the session-assigned frame number shared with results
	FrameNumber int64
	// Timestamp is when the frame was produced
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains the raw frame bytes (RGB from the GStreamer backend)
	Data []byte
	// Source identifies the producing session (e.g. "sim-0", "/dev/video0")
	Source string
	// TraceID is a unique identifier for distributed tracing
	TraceID string
}
