package capture

// Callback receives the demultiplexed capture events for requests submitted
// through a RequestProcessor. Every per-frame method carries the originating
// Request, never a platform type.
//
// Methods are invoked on the session's callback dispatch goroutine and must
// not block; blocking stalls event delivery for the whole session.
type Callback interface {
	// OnCaptureStarted fires when the capture of a frame begins.
	OnCaptureStarted(req *Request, frameNumber int64, timestampNS int64)

	// OnCaptureProgressed fires for partial results ahead of completion.
	OnCaptureProgressed(req *Request, partial *CaptureResult)

	// OnCaptureCompleted fires when the frame's final result is available.
	OnCaptureCompleted(req *Request, result *CaptureResult)

	// OnCaptureFailed fires when a capture produces no usable result.
	OnCaptureFailed(req *Request, failure *CaptureFailure)

	// OnCaptureBufferLost fires when a frame payload could not be delivered
	// to one of the request's targets. outputID is the abstract output the
	// loss occurred on, or InvalidOutputID if it could not be resolved.
	OnCaptureBufferLost(req *Request, frameNumber int64, outputID int)

	// OnCaptureSequenceCompleted fires once per submitted burst or repeating
	// sequence when it finishes normally.
	OnCaptureSequenceCompleted(sequenceID int, frameNumber int64)

	// OnCaptureSequenceAborted fires once per submitted burst or repeating
	// sequence when it is aborted.
	OnCaptureSequenceAborted(sequenceID int)
}

// SessionCallback is the platform-facing event interface attached to capture
// configs. Session backends invoke it; the RequestProcessor's internal
// wrapper implements it to translate events back to a Callback.
//
// Delivery contract for backends: per-frame events go only to the callbacks
// of the originating config; sequence-level events go to every callback of
// every config in the sequence.
type SessionCallback interface {
	OnCaptureStarted(frameNumber int64, timestampNS int64)
	OnCaptureProgressed(partial *CaptureResult)
	OnCaptureCompleted(result *CaptureResult)
	OnCaptureFailed(failure *CaptureFailure)
	OnCaptureBufferLost(frameNumber int64, surface *Surface)
	OnCaptureSequenceCompleted(sequenceID int, frameNumber int64)
	OnCaptureSequenceAborted(sequenceID int)
}

// CallbackAdapter is a no-op Callback. Embed it to implement only the events
// you care about.
type CallbackAdapter struct{}

func (CallbackAdapter) OnCaptureStarted(*Request, int64, int64) {}

func (CallbackAdapter) OnCaptureProgressed(*Request, *CaptureResult) {}

func (CallbackAdapter) OnCaptureCompleted(*Request, *CaptureResult) {}

func (CallbackAdapter) OnCaptureFailed(*Request, *CaptureFailure) {}

func (CallbackAdapter) OnCaptureBufferLost(*Request, int64, int) {}

func (CallbackAdapter) OnCaptureSequenceCompleted(int, int64) {}

func (CallbackAdapter) OnCaptureSequenceAborted(int) {}
