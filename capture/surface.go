package capture

import (
	"sync"
	"sync/atomic"
)

// DefaultSurfaceBuffer is the frame channel capacity used when NewSurface is
// given a non-positive buffer size.
const DefaultSurfaceBuffer = 5

// surfaceSeq assigns process-unique surface IDs.
var surfaceSeq atomic.Uint64

// Surface is an externally owned output target for frame payloads. Delivery
// is non-blocking: when the consumer falls behind and the buffer is full the
// frame is dropped and counted, never queued.
//
// "Drop frames, never queue. Latency > Completeness."
//
// Every surface has a process-unique stable ID used to map it back to the
// abstract output identifier it is bound to.
type Surface struct {
	id   uint64
	name string

	mu     sync.RWMutex
	frames chan Frame
	closed bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// SurfaceStats is a point-in-time snapshot of a surface's delivery counters.
type SurfaceStats struct {
	// Delivered is the number of frames handed to the consumer channel
	Delivered uint64
	// Dropped is the number of frames discarded because the buffer was full
	// or the surface was closed
	Dropped uint64
}

// DropRate returns the fraction of frames dropped (0.0 to 1.0).
// Returns 0.0 if no frames have been delivered or dropped.
func (s SurfaceStats) DropRate() float64 {
	total := s.Delivered + s.Dropped
	if total == 0 {
		return 0.0
	}
	return float64(s.Dropped) / float64(total)
}

// NewSurface creates a surface with the given consumer buffer size.
// A non-positive buffer falls back to DefaultSurfaceBuffer.
func NewSurface(name string, buffer int) *Surface {
	if buffer <= 0 {
		buffer = DefaultSurfaceBuffer
	}
	return &Surface{
		id:     surfaceSeq.Add(1),
		name:   name,
		frames: make(chan Frame, buffer),
	}
}

// ID returns the process-unique stable identifier of the surface.
func (s *Surface) ID() uint64 {
	return s.id
}

// Name returns the surface name given at construction.
func (s *Surface) Name() string {
	return s.name
}

// Frames returns the consumer side of the surface. The channel is closed by
// Close.
func (s *Surface) Frames() <-chan Frame {
	return s.frames
}

// Push offers a frame to the surface without blocking. It returns false and
// counts a drop when the buffer is full or the surface is closed. Session
// backends are the intended callers.
func (s *Surface) Push(frame Frame) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return false
	}

	select {
	case s.frames <- frame:
		s.delivered.Add(1)
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Close closes the surface and its frame channel. Idempotent. Frames pushed
// after Close are dropped and counted.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.frames)
}

// Closed reports whether the surface has been closed.
func (s *Surface) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Stats returns a snapshot of the surface's delivery counters.
func (s *Surface) Stats() SurfaceStats {
	return SurfaceStats{
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
	}
}
