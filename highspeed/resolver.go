package highspeed

import (
	"slices"
	"sync"

	"github.com/e7canasta/camera-session/camera"
)

// Resolver answers constrained-high-speed negotiation questions for one
// device. It holds no mutable state beyond lazily derived caches of the
// immutable capability metadata, so all methods are safe for concurrent use.
type Resolver struct {
	chars camera.Characteristics

	supportedOnce sync.Once
	supported     bool

	sizesOnce sync.Once
	sizes     []camera.Size
}

// New creates a resolver over the given capability metadata.
func New(chars camera.Characteristics) *Resolver {
	return &Resolver{chars: chars}
}

// Supported reports whether the device advertises the constrained
// high-speed capture capability.
func (r *Resolver) Supported() bool {
	r.supportedOnce.Do(func() {
		for _, c := range r.chars.Capabilities() {
			if c == camera.CapabilityConstrainedHighSpeedVideo {
				r.supported = true
				break
			}
		}
	})
	return r.supported
}

// MaxSize returns the supported high-speed size with the greatest pixel
// area. ok is false when the device reports no high-speed sizes.
func (r *Resolver) MaxSize() (size camera.Size, ok bool) {
	sizes := r.supportedSizes()
	if len(sizes) == 0 {
		return camera.Size{}, false
	}
	max := sizes[0]
	for _, s := range sizes[1:] {
		if s.Area() > max.Area() {
			max = s
		}
	}
	return max, true
}

// FilterCommonSupportedSizes reduces each use case's candidate list to the
// sizes common to every use case AND supported by the hardware. The
// intersection is ordered by the first input list; each returned list keeps
// its own original relative order, duplicates included.
func (r *Resolver) FilterCommonSupportedSizes(sizeLists [][]camera.Size) [][]camera.Size {
	all := make([][]camera.Size, 0, len(sizeLists)+1)
	all = append(all, sizeLists...)
	all = append(all, r.supportedSizes())
	common := commonElements(all)

	filtered := make([][]camera.Size, len(sizeLists))
	for i, list := range sizeLists {
		keep := make([]camera.Size, 0, len(list))
		for _, size := range list {
			if slices.Contains(common, size) {
				keep = append(keep, size)
			}
		}
		filtered[i] = keep
	}
	return filtered
}

// MaxFrameRate returns the highest frame rate the device supports at the
// given format and size, or 0 when the format is not the privileged opaque
// format or no ranges exist for the size. A zero return is an expected
// negative probe result, not a fault.
func (r *Resolver) MaxFrameRate(format camera.Format, size camera.Size) int {
	if format != camera.FormatPrivate {
		return 0
	}
	maxFPS := 0
	for _, rg := range r.chars.HighSpeedFrameRateRangesFor(size) {
		if rg.Upper > maxFPS {
			maxFPS = rg.Upper
		}
	}
	return maxFPS
}

// SizeArrangements returns one candidate surface-size tuple per size common
// to all use cases, the size repeated once per use case: high-speed hardware
// requires identical output sizes, so every use case is assigned the same
// size in each arrangement. Tuple order follows the first input list.
func (r *Resolver) SizeArrangements(sizeLists [][]camera.Size) [][]camera.Size {
	if len(sizeLists) == 0 {
		return nil
	}

	common := commonElements(sizeLists)
	arrangements := make([][]camera.Size, 0, len(common))
	for _, size := range common {
		arrangement := make([]camera.Size, len(sizeLists))
		for i := range arrangement {
			arrangement[i] = size
		}
		arrangements = append(arrangements, arrangement)
	}
	return arrangements
}

// FrameRateRangesFor returns the frame-rate ranges legal for the given
// surface sizes, or nil when the set cannot form a high-speed session:
// zero or more than two surfaces, differing sizes, or a size the device does
// not support. With exactly two surfaces only fixed ranges qualify, so the
// result may be a valid empty slice.
func (r *Resolver) FrameRateRangesFor(sizes []camera.Size) []camera.FPSRange {
	if len(sizes) == 0 || len(sizes) > 2 {
		return nil
	}
	for _, s := range sizes[1:] {
		if s != sizes[0] {
			return nil
		}
	}

	ranges := r.chars.HighSpeedFrameRateRangesFor(sizes[0])
	if ranges == nil {
		return nil
	}

	if len(sizes) == 1 {
		out := make([]camera.FPSRange, len(ranges))
		copy(out, ranges)
		return out
	}

	fixed := make([]camera.FPSRange, 0, len(ranges))
	for _, rg := range ranges {
		if rg.Fixed() {
			fixed = append(fixed, rg)
		}
	}
	return fixed
}

// supportedSizes caches the device's high-speed size list.
func (r *Resolver) supportedSizes() []camera.Size {
	r.sizesOnce.Do(func() {
		r.sizes = r.chars.HighSpeedSizes()
	})
	return r.sizes
}
