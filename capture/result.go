package capture

// CaptureResult is the metadata produced for one captured frame. Partial
// results (delivered via OnCaptureProgressed) may carry incomplete metadata;
// the final result (OnCaptureCompleted) is complete.
type CaptureResult struct {
	// FrameNumber is the session-assigned monotonic frame number
	FrameNumber int64
	// TimestampNS is the capture timestamp in nanoseconds
	TimestampNS int64
	// Tags is the metadata bundle the originating config carried
	Tags TagBundle
	// TraceID correlates the result with the frame payload
	TraceID string
}

// FailureReason categorizes a capture failure.
type FailureReason int

const (
	// FailureReasonError is a failure inside the capture backend
	FailureReasonError FailureReason = iota
	// FailureReasonFlushed marks a capture discarded by an abort
	FailureReasonFlushed
)

// String returns a human-readable name for the failure reason.
func (r FailureReason) String() string {
	switch r {
	case FailureReasonError:
		return "error"
	case FailureReasonFlushed:
		return "flushed"
	default:
		return "unknown"
	}
}

// CaptureFailure describes a capture that produced no usable result.
type CaptureFailure struct {
	// Reason categorizes the failure
	Reason FailureReason
	// FrameNumber is the frame number the failed capture consumed
	FrameNumber int64
	// ImageCaptured is true when the image was captured despite the
	// metadata failure
	ImageCaptured bool
}
