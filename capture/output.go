package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// SurfaceProvider resolves an output surface on demand. Resolution may block
// (e.g. waiting for an external consumer to come up) and may fail. The
// processor never invokes a provider while holding its lock, so a provider
// may call back into the processor.
type SurfaceProvider func() (*Surface, error)

// OutputBinding associates an abstract output identifier with an externally
// owned surface. The surface is resolved lazily and at most once; the result,
// success or failure, is memoized for the binding's lifetime.
type OutputBinding struct {
	outputID int
	provider SurfaceProvider

	once     sync.Once
	resolved atomic.Bool
	surface  *Surface
	err      error
}

// NewOutputBinding binds outputID to an already-available surface. The
// binding is resolved immediately; a nil surface is memoized as a failure.
func NewOutputBinding(outputID int, surface *Surface) *OutputBinding {
	b := &OutputBinding{outputID: outputID}
	b.once.Do(func() {
		defer b.resolved.Store(true)
		if surface == nil {
			b.err = fmt.Errorf("capture: output %d bound to nil surface", outputID)
			return
		}
		b.surface = surface
	})
	return b
}

// NewDeferredOutputBinding binds outputID to a surface that will be resolved
// by provider on first use.
func NewDeferredOutputBinding(outputID int, provider SurfaceProvider) *OutputBinding {
	return &OutputBinding{
		outputID: outputID,
		provider: provider,
	}
}

// OutputID returns the abstract output identifier.
func (b *OutputBinding) OutputID() int {
	return b.outputID
}

// Resolve returns the bound surface, invoking the provider on first call.
// The outcome is memoized: a failed resolution stays failed.
func (b *OutputBinding) Resolve() (*Surface, error) {
	b.once.Do(func() {
		defer b.resolved.Store(true)
		if b.provider == nil {
			b.err = fmt.Errorf("capture: output %d has no surface provider", b.outputID)
			return
		}
		b.surface, b.err = b.provider()
		if b.err == nil && b.surface == nil {
			b.err = fmt.Errorf("capture: output %d provider returned nil surface", b.outputID)
		}
	})
	return b.surface, b.err
}

// peek returns the bound surface when resolution has already completed
// successfully. It never triggers the provider.
func (b *OutputBinding) peek() *Surface {
	if !b.resolved.Load() {
		return nil
	}
	return b.surface
}
