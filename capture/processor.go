package capture

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vishalkuo/bimap"
)

const (
	// InvalidSequenceID is returned by submit operations when the processor
	// is closed or the request is invalid. No sequence was started.
	InvalidSequenceID = -1

	// InvalidOutputID is reported by OnCaptureBufferLost when the lost
	// surface cannot be mapped back to an output identifier.
	InvalidOutputID = -1
)

// RequestProcessor converts abstract capture requests into platform capture
// configurations, submits them to a Session, and demultiplexes the session's
// events back to caller callbacks.
//
// All methods are safe for concurrent use; see the package documentation for
// the locking and failure model.
type RequestProcessor struct {
	mu sync.Mutex

	// State below is guarded by mu and released together on Close so that
	// the closed flag and the reference set stay consistent.
	session       Session
	bindings      map[int]*OutputBinding
	surfaceIDs    *bimap.BiMap[int, uint64]
	sessionConfig *SessionConfig
	closed        bool
}

// NewRequestProcessor wires a processor to an open session and its output
// bindings. It fails fast on a nil session, a nil binding, duplicate output
// IDs, or two bindings sharing one resolved surface; capture-time misuse is
// reported via sentinels instead.
func NewRequestProcessor(session Session, bindings []*OutputBinding) (*RequestProcessor, error) {
	if session == nil {
		return nil, fmt.Errorf("capture: session is required")
	}

	byID := make(map[int]*OutputBinding, len(bindings))
	bySurface := make(map[uint64]int, len(bindings))
	for _, binding := range bindings {
		if binding == nil {
			return nil, fmt.Errorf("capture: nil output binding")
		}
		if _, dup := byID[binding.OutputID()]; dup {
			return nil, fmt.Errorf("capture: duplicate output id %d", binding.OutputID())
		}
		byID[binding.OutputID()] = binding

		// Deferred bindings are unresolved here; they get the same check
		// when their surfaces are recorded at submit time.
		if surface := binding.peek(); surface != nil {
			if other, dup := bySurface[surface.ID()]; dup {
				return nil, fmt.Errorf("capture: outputs %d and %d share one surface", other, binding.OutputID())
			}
			bySurface[surface.ID()] = binding.OutputID()
		}
	}

	return &RequestProcessor{
		session:    session,
		bindings:   byID,
		surfaceIDs: bimap.NewBiMap[int, uint64](),
	}, nil
}

// Submit submits a single request. See SubmitBurst.
func (p *RequestProcessor) Submit(req *Request, callback Callback) int {
	return p.SubmitBurst([]*Request{req}, callback)
}

// SubmitBurst validates and submits the requests as one burst and returns
// the session-assigned sequence ID, or InvalidSequenceID when the processor
// is closed, any request is invalid, or the session rejects the burst.
// Sequence-level callbacks are delivered exactly once per burst.
func (p *RequestProcessor) SubmitBurst(requests []*Request, callback Callback) int {
	if len(requests) == 0 || callback == nil {
		return InvalidSequenceID
	}

	bindings, ok := p.targetBindings(requests)
	if !ok {
		return InvalidSequenceID
	}
	surfaces, ok := resolveBindings(bindings)
	if !ok {
		return InvalidSequenceID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Close may have won the race while a provider was resolving.
	if p.closed {
		return InvalidSequenceID
	}

	configs := make([]*CaptureConfig, 0, len(requests))
	for i, req := range requests {
		if !p.recordSurfacesLocked(bindings[i], surfaces[i]) {
			return InvalidSequenceID
		}
		// Only the first wrapper of the burst forwards sequence-level
		// callbacks; the session notifies every config's callbacks.
		configs = append(configs, &CaptureConfig{
			Template:   req.Template(),
			Parameters: req.Parameters(),
			Surfaces:   surfaces[i],
			Callbacks:  []SessionCallback{newCallbackWrapper(req, callback, i == 0, p)},
		})
	}

	seq, err := p.session.SubmitBurst(configs)
	if err != nil {
		slog.Error("capture: burst submit rejected", "requests", len(requests), "error", err)
		return InvalidSequenceID
	}
	return seq
}

// SetRepeating validates and installs the request as the repeating capture,
// merging in the callbacks and tags of the current session config. Returns
// the new sequence ID or InvalidSequenceID.
func (p *RequestProcessor) SetRepeating(req *Request, callback Callback) int {
	if callback == nil {
		return InvalidSequenceID
	}

	bindings, ok := p.targetBindings([]*Request{req})
	if !ok {
		return InvalidSequenceID
	}
	surfaces, ok := resolveBindings(bindings)
	if !ok {
		return InvalidSequenceID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return InvalidSequenceID
	}
	if !p.recordSurfacesLocked(bindings[0], surfaces[0]) {
		return InvalidSequenceID
	}

	config := &CaptureConfig{
		Template:   req.Template(),
		Parameters: req.Parameters(),
		Surfaces:   surfaces[0],
		Callbacks:  []SessionCallback{newCallbackWrapper(req, callback, true, p)},
	}
	if p.sessionConfig != nil {
		config.Callbacks = append(config.Callbacks, p.sessionConfig.RepeatingCallbacks...)
		config.Tags = p.sessionConfig.RepeatingTags.Clone()
	}

	seq, err := p.session.SubmitRepeating(config)
	if err != nil {
		slog.Error("capture: repeating submit rejected", "template", req.Template(), "error", err)
		return InvalidSequenceID
	}
	return seq
}

// UpdateSessionConfig atomically replaces the side-channel callbacks and tags
// merged into future SetRepeating calls. Already-running repeating captures
// are unaffected.
func (p *RequestProcessor) UpdateSessionConfig(config *SessionConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionConfig = config
}

// AbortCaptures forwards to the session when open; no-op when closed.
func (p *RequestProcessor) AbortCaptures() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if err := p.session.AbortCaptures(); err != nil {
		slog.Warn("capture: abort captures failed", "error", err)
	}
}

// StopRepeating forwards to the session when open; no-op when closed.
func (p *RequestProcessor) StopRepeating() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if err := p.session.StopRepeating(); err != nil {
		slog.Warn("capture: stop repeating failed", "error", err)
	}
}

// Close makes the processor permanently inert and releases its session and
// binding references. Idempotent. In-flight callbacks from earlier requests
// are still forwarded; buffer-lost lookups degrade to InvalidOutputID.
func (p *RequestProcessor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.session = nil
	p.bindings = nil
	p.surfaceIDs = nil
	p.sessionConfig = nil
	slog.Debug("capture: request processor closed")
}

// targetBindings validates every request's target set and returns the
// bindings to resolve, one slice per request in request order. Reports
// failure when the processor is closed, a request is nil, a target set is
// empty, or a target does not map to a bound output.
func (p *RequestProcessor) targetBindings(requests []*Request) ([][]*OutputBinding, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false
	}

	perRequest := make([][]*OutputBinding, 0, len(requests))
	for _, req := range requests {
		if req == nil {
			slog.Warn("capture: nil request rejected")
			return nil, false
		}
		targets := req.TargetOutputIDs()
		if len(targets) == 0 {
			slog.Warn("capture: request without target outputs rejected", "template", req.Template())
			return nil, false
		}
		bindings := make([]*OutputBinding, 0, len(targets))
		for _, id := range targets {
			binding, ok := p.bindings[id]
			if !ok {
				slog.Warn("capture: request targets unknown output", "output_id", id)
				return nil, false
			}
			bindings = append(bindings, binding)
		}
		perRequest = append(perRequest, bindings)
	}
	return perRequest, true
}

// resolveBindings materializes every binding's surface. It runs without the
// processor lock: a provider may block on first use or call back into the
// processor, and neither may stall AbortCaptures, StopRepeating, or Close.
func resolveBindings(perRequest [][]*OutputBinding) ([][]*Surface, bool) {
	surfaces := make([][]*Surface, len(perRequest))
	for i, bindings := range perRequest {
		surfaces[i] = make([]*Surface, 0, len(bindings))
		for _, binding := range bindings {
			surface, err := binding.Resolve()
			if err != nil {
				slog.Warn("capture: output surface resolution failed",
					"output_id", binding.OutputID(), "error", err)
				return nil, false
			}
			surfaces[i] = append(surfaces[i], surface)
		}
	}
	return surfaces, true
}

// recordSurfacesLocked registers output-to-surface pairings for the
// buffer-lost reverse lookup, rejecting a surface already recorded for a
// different output so the pairing stays one-to-one. Caller holds p.mu.
func (p *RequestProcessor) recordSurfacesLocked(bindings []*OutputBinding, surfaces []*Surface) bool {
	for i, binding := range bindings {
		surface := surfaces[i]
		if other, ok := p.surfaceIDs.GetInverse(surface.ID()); ok && other != binding.OutputID() {
			slog.Warn("capture: surface already bound to another output",
				"output_id", binding.OutputID(), "other_output_id", other)
			return false
		}
		p.surfaceIDs.Insert(binding.OutputID(), surface.ID())
	}
	return true
}

// findOutputID maps a surface back to its abstract output identifier.
// Returns InvalidOutputID when unknown or after Close.
func (p *RequestProcessor) findOutputID(surface *Surface) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.surfaceIDs == nil || surface == nil {
		return InvalidOutputID
	}
	id, ok := p.surfaceIDs.GetInverse(surface.ID())
	if !ok {
		return InvalidOutputID
	}
	return id
}

// callbackWrapper adapts session events for one submitted request back to the
// caller's Callback, attaching the originating Request. Exactly one wrapper
// per burst carries invokeSequenceCallback so sequence-level events reach the
// caller once even though the session fans them out to every config.
type callbackWrapper struct {
	request                *Request
	callback               Callback
	invokeSequenceCallback bool
	processor              *RequestProcessor
}

func newCallbackWrapper(req *Request, callback Callback, invokeSequenceCallback bool, p *RequestProcessor) *callbackWrapper {
	return &callbackWrapper{
		request:                req,
		callback:               callback,
		invokeSequenceCallback: invokeSequenceCallback,
		processor:              p,
	}
}

func (w *callbackWrapper) OnCaptureStarted(frameNumber int64, timestampNS int64) {
	w.callback.OnCaptureStarted(w.request, frameNumber, timestampNS)
}

func (w *callbackWrapper) OnCaptureProgressed(partial *CaptureResult) {
	w.callback.OnCaptureProgressed(w.request, partial)
}

func (w *callbackWrapper) OnCaptureCompleted(result *CaptureResult) {
	w.callback.OnCaptureCompleted(w.request, result)
}

func (w *callbackWrapper) OnCaptureFailed(failure *CaptureFailure) {
	w.callback.OnCaptureFailed(w.request, failure)
}

func (w *callbackWrapper) OnCaptureBufferLost(frameNumber int64, surface *Surface) {
	w.callback.OnCaptureBufferLost(w.request, frameNumber, w.processor.findOutputID(surface))
}

func (w *callbackWrapper) OnCaptureSequenceCompleted(sequenceID int, frameNumber int64) {
	if w.invokeSequenceCallback {
		w.callback.OnCaptureSequenceCompleted(sequenceID, frameNumber)
	}
}

func (w *callbackWrapper) OnCaptureSequenceAborted(sequenceID int) {
	if w.invokeSequenceCallback {
		w.callback.OnCaptureSequenceAborted(sequenceID)
	}
}
