package capture

// Session abstracts an open vendor capture session: something that can run
// capture configurations as one-shot bursts or as a repeating stream and
// report per-frame events through the configs' callbacks.
//
// Contract guarantees an implementation must honor:
//
//  1. SubmitBurst runs the given configs as one atomic unit and returns a
//     positive session-unique sequence ID for the whole burst.
//  2. SubmitRepeating replaces any active repeating config; the replaced
//     sequence completes (OnCaptureSequenceCompleted). It returns a new
//     sequence ID.
//  3. Per-frame events (started/progressed/completed/failed/buffer-lost) are
//     delivered only to the callbacks of the originating config.
//  4. Sequence-level events (completed/aborted) are delivered to EVERY
//     callback of EVERY config in the sequence. Deduplication is the
//     submitter's concern.
//  5. AbortCaptures discards pending bursts and the active repeating config;
//     each discarded sequence is reported via OnCaptureSequenceAborted.
//  6. StopRepeating ends the active repeating sequence, reported via
//     OnCaptureSequenceCompleted. No-op when nothing repeats.
//  7. Callbacks are invoked on the session's dispatch goroutine, in event
//     order, never on the submitter's stack.
//
// Methods return an error when the session can no longer accept work (closed
// or failed); callers on the capture hot path translate that to a sentinel.
type Session interface {
	// SubmitBurst submits the configs as a single burst.
	SubmitBurst(configs []*CaptureConfig) (int, error)

	// SubmitRepeating installs config as the repeating capture.
	SubmitRepeating(config *CaptureConfig) (int, error)

	// AbortCaptures discards pending and repeating work.
	AbortCaptures() error

	// StopRepeating ends the repeating capture.
	StopRepeating() error
}
