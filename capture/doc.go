// Package capture provides the request-processing core of a camera capture
// pipeline: it converts abstract capture requests into platform capture
// configurations, submits them to an open capture session, and routes the
// session's asynchronous per-frame events back to caller-supplied callbacks.
//
// # Overview
//
// Callers describe WHAT to capture with a Request (template, parameters,
// target output IDs) and WHERE results land with OutputBindings that resolve
// to Surfaces. A RequestProcessor owns the translation and the callback
// demultiplexing; the vendor stack is abstracted behind the Session
// interface (see the gstcapture and simcapture packages for backends).
//
//	primary := capture.NewSurface("primary", 5)
//	proc, err := capture.NewRequestProcessor(session, []*capture.OutputBinding{
//	    capture.NewOutputBinding(1, primary),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer proc.Close()
//
//	req := capture.NewRequest(capture.TemplatePreview, nil, 1)
//	seq := proc.SetRepeating(req, myCallback)
//	if seq == capture.InvalidSequenceID {
//	    // session closed or request invalid
//	}
//
//	for frame := range primary.Frames() {
//	    process(frame)
//	}
//
// # Failure Semantics
//
// Ordinary misuse on the capture path (closed processor, empty or unknown
// target set, surface resolution failure) degrades to the InvalidSequenceID
// sentinel instead of an error. Capture pipelines race against session
// teardown routinely; a sentinel keeps the hot path branch-free for callers
// that already handle "no sequence started". Wiring-time mistakes are
// different: constructors fail fast with errors.
//
// # Thread Safety
//
// All RequestProcessor methods are safe for concurrent use. One mutex guards
// the session reference, output bindings, closed flag, and merged session
// config. Surface resolution runs outside that mutex: a provider that blocks
// on first use delays only its own submission, never AbortCaptures,
// StopRepeating, or Close, and a provider may call back into the processor.
// A submission whose resolution loses the race against Close returns
// InvalidSequenceID without reaching the session. Callbacks are delivered on
// the session's dispatch goroutine, never on the submitter's stack. Close is
// idempotent and terminal: in-flight callbacks from previously submitted
// requests are still forwarded, but new submissions return InvalidSequenceID.
package capture
