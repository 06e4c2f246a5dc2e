// Package dispatch implements the session-side capture engine shared by the
// capture backends.
//
// The engine owns the burst queue, the repeating slot, and the frame-number
// and sequence-ID counters. Backends feed it raw frames with Deliver; the
// engine routes each frame to the next pending burst config, or to the
// repeating config, or drops it when nothing is active.
//
// Callbacks never run under the engine lock and never on the caller's stack.
// Events are queued and invoked in order on a dedicated dispatch goroutine,
// so a callback may safely call back into the engine.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/camera-session/capture"
)

// ErrClosed is returned when operations are attempted on a closed engine.
var ErrClosed = errors.New("dispatch: engine closed")

// closeDrainTimeout bounds how long Close waits for queued events to flush.
const closeDrainTimeout = 3 * time.Second

// sequence is one submitted burst or the repeating slot.
type sequence struct {
	id        int
	configs   []*capture.CaptureConfig
	next      int   // index of the config the next frame serves
	lastFrame int64 // highest frame number delivered to this sequence
}

// Engine routes backend frames to capture configs and emits their events.
type Engine struct {
	source string

	mu        sync.Mutex
	bursts    []*sequence // FIFO, head is in flight
	repeating *sequence
	nextSeq   int
	frameNum  int64
	closed    bool

	queue eventQueue
	wg    sync.WaitGroup

	// Statistics (atomic for thread-safety)
	framesIn        atomic.Uint64
	framesDelivered atomic.Uint64
	framesIdle      atomic.Uint64
	buffersLost     atomic.Uint64
	failures        atomic.Uint64
	burstsSubmitted atomic.Uint64
	burstsCompleted atomic.Uint64
	burstsAborted   atomic.Uint64
}

// Stats is a point-in-time snapshot of the engine's counters.
type Stats struct {
	// FramesIn is the number of Deliver calls
	FramesIn uint64
	// FramesDelivered is the number of frames routed to a config
	FramesDelivered uint64
	// FramesIdle is the number of frames dropped with nothing active
	FramesIdle uint64
	// BuffersLost is the number of surface pushes that were dropped
	BuffersLost uint64
	// Failures is the number of Fail calls consumed by a config
	Failures uint64
	// BurstsSubmitted counts SubmitBurst calls accepted
	BurstsSubmitted uint64
	// BurstsCompleted counts bursts whose every config was served
	BurstsCompleted uint64
	// BurstsAborted counts bursts discarded by AbortCaptures or Close
	BurstsAborted uint64
	// PendingBursts is the number of queued bursts not yet exhausted
	PendingBursts int
	// RepeatingActive reports whether a repeating config is installed
	RepeatingActive bool
}

// New creates an engine and starts its dispatch goroutine. source labels the
// frames the engine stamps (e.g. "sim-0", "/dev/video0").
func New(source string) *Engine {
	e := &Engine{source: source}
	e.queue.cond = sync.NewCond(&e.queue.mu)
	e.wg.Add(1)
	go e.dispatch()
	return e
}

// SubmitBurst queues the configs as one sequence and returns its ID.
func (e *Engine) SubmitBurst(configs []*capture.CaptureConfig) (int, error) {
	if len(configs) == 0 {
		return 0, fmt.Errorf("dispatch: empty burst")
	}
	for _, cfg := range configs {
		if cfg == nil {
			return 0, fmt.Errorf("dispatch: nil config in burst")
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, ErrClosed
	}

	e.nextSeq++
	e.bursts = append(e.bursts, &sequence{id: e.nextSeq, configs: configs})
	e.burstsSubmitted.Add(1)

	return e.nextSeq, nil
}

// SubmitRepeating installs config as the repeating capture, replacing any
// previous one. The replaced sequence completes with its last frame number.
func (e *Engine) SubmitRepeating(config *capture.CaptureConfig) (int, error) {
	if config == nil {
		return 0, fmt.Errorf("dispatch: nil repeating config")
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0, ErrClosed
	}

	var fns []func()
	if prev := e.repeating; prev != nil {
		fns = append(fns, sequenceCompleted(prev.configs, prev.id, prev.lastFrame))
	}

	e.nextSeq++
	id := e.nextSeq
	e.repeating = &sequence{id: id, configs: []*capture.CaptureConfig{config}}
	e.mu.Unlock()

	e.queue.push(fns...)
	return id, nil
}

// StopRepeating ends the repeating capture, completing its sequence. No-op
// when nothing repeats.
func (e *Engine) StopRepeating() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}

	var fns []func()
	if prev := e.repeating; prev != nil {
		fns = append(fns, sequenceCompleted(prev.configs, prev.id, prev.lastFrame))
		e.repeating = nil
	}
	e.mu.Unlock()

	e.queue.push(fns...)
	return nil
}

// AbortCaptures discards all queued bursts and the repeating config. Every
// discarded sequence is reported aborted to all of its callbacks.
func (e *Engine) AbortCaptures() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	fns := e.abortAllLocked()
	e.mu.Unlock()

	e.queue.push(fns...)
	return nil
}

// Deliver routes one backend frame. The engine takes ownership of data.
//
// The frame serves the head burst config first, else the repeating config,
// else it is dropped and counted idle. Serving a frame emits, in order:
// started, buffer-lost for each surface that refused the payload, a partial
// result, and the completed result carrying the config's tags. Exhausting a
// burst additionally completes its sequence.
func (e *Engine) Deliver(data []byte, width, height int) {
	e.framesIn.Add(1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.framesIdle.Add(1)
		return
	}

	cfg, seq, finished := e.takeLocked()
	if cfg == nil {
		e.mu.Unlock()
		e.framesIdle.Add(1)
		slog.Debug("dispatch: frame dropped, no active config", "source", e.source)
		return
	}

	e.frameNum++
	frame := capture.Frame{
		Seq:         e.framesDelivered.Add(1),
		FrameNumber: e.frameNum,
		Timestamp:   time.Now(),
		Width:       width,
		Height:      height,
		Data:        data,
		Source:      e.source,
		TraceID:     uuid.NewString(),
	}
	seq.lastFrame = e.frameNum

	fns := []func(){e.frameEvents(cfg, frame)}
	if finished {
		e.burstsCompleted.Add(1)
		fns = append(fns, sequenceCompleted(seq.configs, seq.id, seq.lastFrame))
	}
	e.mu.Unlock()

	e.queue.push(fns...)
}

// Fail consumes the in-flight config with a capture failure instead of a
// frame. A burst whose last config fails still completes its sequence.
func (e *Engine) Fail(reason capture.FailureReason) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	cfg, seq, finished := e.takeLocked()
	if cfg == nil {
		e.mu.Unlock()
		return
	}

	e.frameNum++
	seq.lastFrame = e.frameNum
	failure := &capture.CaptureFailure{
		Reason:      reason,
		FrameNumber: e.frameNum,
	}

	fns := []func(){failureEvents(cfg, failure)}
	if finished {
		e.burstsCompleted.Add(1)
		fns = append(fns, sequenceCompleted(seq.configs, seq.id, seq.lastFrame))
	}
	e.mu.Unlock()

	e.failures.Add(1)
	e.queue.push(fns...)
}

// Close aborts all outstanding sequences and stops the dispatch goroutine
// once the queued events have flushed. Terminal and idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	fns := e.abortAllLocked()
	e.mu.Unlock()

	e.queue.push(fns...)
	e.queue.close()

	// Wait for the dispatcher to drain with timeout
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(closeDrainTimeout):
		slog.Warn("dispatch: close timeout exceeded, events may still be draining",
			"source", e.source,
		)
	}

	return nil
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	pending := len(e.bursts)
	repeating := e.repeating != nil
	e.mu.Unlock()

	return Stats{
		FramesIn:        e.framesIn.Load(),
		FramesDelivered: e.framesDelivered.Load(),
		FramesIdle:      e.framesIdle.Load(),
		BuffersLost:     e.buffersLost.Load(),
		Failures:        e.failures.Load(),
		BurstsSubmitted: e.burstsSubmitted.Load(),
		BurstsCompleted: e.burstsCompleted.Load(),
		BurstsAborted:   e.burstsAborted.Load(),
		PendingBursts:   pending,
		RepeatingActive: repeating,
	}
}

// takeLocked picks the config the next frame or failure serves and advances
// the burst cursor. finished is true when the pick exhausted the head burst,
// which is popped. Callers hold e.mu.
func (e *Engine) takeLocked() (cfg *capture.CaptureConfig, seq *sequence, finished bool) {
	if len(e.bursts) > 0 {
		seq = e.bursts[0]
		cfg = seq.configs[seq.next]
		seq.next++
		if seq.next == len(seq.configs) {
			e.bursts = e.bursts[1:]
			finished = true
		}
		return cfg, seq, finished
	}
	if e.repeating != nil {
		return e.repeating.configs[0], e.repeating, false
	}
	return nil, nil, false
}

// abortAllLocked discards every queued burst and the repeating config and
// returns the aborted-sequence notifications. Callers hold e.mu.
func (e *Engine) abortAllLocked() []func() {
	var fns []func()
	for _, seq := range e.bursts {
		fns = append(fns, sequenceAborted(seq.configs, seq.id))
		e.burstsAborted.Add(1)
	}
	e.bursts = nil

	if prev := e.repeating; prev != nil {
		fns = append(fns, sequenceAborted(prev.configs, prev.id))
		e.repeating = nil
	}
	return fns
}

// frameEvents builds the per-frame notification for one served config:
// started, buffer-lost for refused surfaces, partial, completed.
func (e *Engine) frameEvents(cfg *capture.CaptureConfig, frame capture.Frame) func() {
	return func() {
		ts := frame.Timestamp.UnixNano()

		for _, cb := range cfg.Callbacks {
			cb.OnCaptureStarted(frame.FrameNumber, ts)
		}

		for _, surface := range cfg.Surfaces {
			if surface.Push(frame) {
				continue
			}
			e.buffersLost.Add(1)
			for _, cb := range cfg.Callbacks {
				cb.OnCaptureBufferLost(frame.FrameNumber, surface)
			}
		}

		partial := &capture.CaptureResult{
			FrameNumber: frame.FrameNumber,
			TimestampNS: ts,
			TraceID:     frame.TraceID,
		}
		for _, cb := range cfg.Callbacks {
			cb.OnCaptureProgressed(partial)
		}

		result := &capture.CaptureResult{
			FrameNumber: frame.FrameNumber,
			TimestampNS: ts,
			Tags:        cfg.Tags.Clone(),
			TraceID:     frame.TraceID,
		}
		for _, cb := range cfg.Callbacks {
			cb.OnCaptureCompleted(result)
		}
	}
}

// failureEvents builds the notification for one failed config.
func failureEvents(cfg *capture.CaptureConfig, failure *capture.CaptureFailure) func() {
	return func() {
		for _, cb := range cfg.Callbacks {
			cb.OnCaptureFailed(failure)
		}
	}
}

// sequenceCompleted builds the completion fan-out: every callback of every
// config in the sequence.
func sequenceCompleted(configs []*capture.CaptureConfig, id int, lastFrame int64) func() {
	return func() {
		for _, cfg := range configs {
			for _, cb := range cfg.Callbacks {
				cb.OnCaptureSequenceCompleted(id, lastFrame)
			}
		}
	}
}

// sequenceAborted builds the abort fan-out: every callback of every config
// in the sequence.
func sequenceAborted(configs []*capture.CaptureConfig, id int) func() {
	return func() {
		for _, cfg := range configs {
			for _, cb := range cfg.Callbacks {
				cb.OnCaptureSequenceAborted(id)
			}
		}
	}
}

// dispatch drains the event queue until it is closed and empty.
func (e *Engine) dispatch() {
	defer e.wg.Done()
	for {
		fns, ok := e.queue.next()
		if !ok {
			return
		}
		for _, fn := range fns {
			fn()
		}
	}
}

// eventQueue is an unbounded FIFO of notifications. push never blocks, so a
// callback running on the dispatch goroutine can safely re-enter the engine.
type eventQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
}

// push appends notifications. Dropped silently after close.
func (q *eventQueue) push(fns ...func()) {
	if len(fns) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending = append(q.pending, fns...)
	q.cond.Signal()
}

// next blocks until notifications are available or the queue is closed and
// drained. ok is false only when nothing remains to run.
func (q *eventQueue) next() ([]func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.pending) == 0 {
		return nil, false
	}
	fns := q.pending
	q.pending = nil
	return fns, true
}

// close marks the queue closed. Pending notifications still drain.
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Signal()
}
