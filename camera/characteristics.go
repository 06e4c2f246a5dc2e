package camera

import "sort"

// Characteristics exposes the capability metadata session negotiation reads.
//
// Contract guarantees:
//   - All methods are safe for concurrent use.
//   - Returned slices must not be modified by callers.
//   - The underlying metadata is immutable for the lifetime of the device;
//     repeated calls return consistent results.
type Characteristics interface {
	// Capabilities returns the advertised device capabilities.
	Capabilities() []Capability

	// HighSpeedSizes returns the output sizes supported by constrained
	// high-speed sessions. Empty when high-speed capture is unavailable.
	HighSpeedSizes() []Size

	// HighSpeedFrameRateRangesFor returns the frame-rate ranges supported at
	// the given high-speed size. Nil when the size is not a high-speed size.
	HighSpeedFrameRateRangesFor(size Size) []FPSRange
}

// StaticCharacteristics is a map-backed Characteristics implementation used
// for simulated devices, device profiles, and tests.
type StaticCharacteristics struct {
	capabilities []Capability
	sizes        []Size
	ranges       map[Size][]FPSRange
	zoomMin      float64
	zoomMax      float64
}

// NewStaticCharacteristics builds characteristics from a capability list and
// a high-speed size to frame-rate-range table. Sizes are reported in
// ascending pixel-area order so repeated queries are deterministic.
func NewStaticCharacteristics(capabilities []Capability, highSpeed map[Size][]FPSRange) *StaticCharacteristics {
	sc := &StaticCharacteristics{
		capabilities: append([]Capability(nil), capabilities...),
		ranges:       make(map[Size][]FPSRange, len(highSpeed)),
		zoomMin:      1.0,
		zoomMax:      1.0,
	}
	for size, ranges := range highSpeed {
		sc.sizes = append(sc.sizes, size)
		sc.ranges[size] = append([]FPSRange(nil), ranges...)
	}
	sort.Slice(sc.sizes, func(i, j int) bool {
		if sc.sizes[i].Area() != sc.sizes[j].Area() {
			return sc.sizes[i].Area() < sc.sizes[j].Area()
		}
		return sc.sizes[i].Width < sc.sizes[j].Width
	})
	return sc
}

// SetZoomRatioRange sets the device zoom ratio range. Intended for wiring
// time, before the characteristics are shared.
func (sc *StaticCharacteristics) SetZoomRatioRange(min, max float64) {
	sc.zoomMin = min
	sc.zoomMax = max
}

// Capabilities returns the advertised device capabilities.
func (sc *StaticCharacteristics) Capabilities() []Capability {
	return sc.capabilities
}

// HighSpeedSizes returns the supported high-speed sizes in ascending
// pixel-area order.
func (sc *StaticCharacteristics) HighSpeedSizes() []Size {
	return sc.sizes
}

// HighSpeedFrameRateRangesFor returns the frame-rate ranges for size, or nil
// when size is not a high-speed size.
func (sc *StaticCharacteristics) HighSpeedFrameRateRangesFor(size Size) []FPSRange {
	return sc.ranges[size]
}

// ZoomRatioRange returns the device zoom ratio range. Defaults to [1.0, 1.0]
// (no zoom) when unset.
func (sc *StaticCharacteristics) ZoomRatioRange() (min, max float64) {
	return sc.zoomMin, sc.zoomMax
}
