package camera

import (
	"fmt"
	"sync"
)

// ZoomState tracks the zoom setting of a camera in both of its public
// representations: the zoom ratio (1.0 = no zoom) and the linear zoom value
// in [0, 1]. Setting either representation recomputes the other, keeping the
// pair consistent.
//
// Linear zoom maps onto the reciprocal of the crop width rather than onto the
// ratio itself, so equal linear increments produce visually even zoom steps.
type ZoomState struct {
	mu sync.Mutex

	zoomRatio  float64
	linearZoom float64

	minZoomRatio float64
	maxZoomRatio float64
}

// NewZoomState creates a ZoomState for a device whose zoom ratio spans
// [minRatio, maxRatio]. The state starts at minRatio (linear zoom 0).
func NewZoomState(minRatio, maxRatio float64) *ZoomState {
	return &ZoomState{
		zoomRatio:    minRatio,
		linearZoom:   0,
		minZoomRatio: minRatio,
		maxZoomRatio: maxRatio,
	}
}

// SetZoomRatio sets the zoom ratio and recomputes the linear zoom.
// Ratios outside the device range are rejected and the state is unchanged.
func (z *ZoomState) SetZoomRatio(ratio float64) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if ratio > z.maxZoomRatio || ratio < z.minZoomRatio {
		return fmt.Errorf("camera: zoom ratio %.2f out of range [%.2f, %.2f]",
			ratio, z.minZoomRatio, z.maxZoomRatio)
	}
	z.zoomRatio = ratio
	z.linearZoom = z.percentageByRatio(ratio)
	return nil
}

// SetLinearZoom sets the linear zoom in [0, 1] and recomputes the zoom ratio.
// Values outside [0, 1] are rejected and the state is unchanged.
func (z *ZoomState) SetLinearZoom(linear float64) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if linear > 1.0 || linear < 0 {
		return fmt.Errorf("camera: linear zoom %.2f out of range [0, 1]", linear)
	}
	z.linearZoom = linear
	z.zoomRatio = z.ratioByPercentage(linear)
	return nil
}

// ZoomRatio returns the current zoom ratio.
func (z *ZoomState) ZoomRatio() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.zoomRatio
}

// LinearZoom returns the current linear zoom in [0, 1].
func (z *ZoomState) LinearZoom() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.linearZoom
}

// MinZoomRatio returns the minimum supported zoom ratio.
func (z *ZoomState) MinZoomRatio() float64 {
	return z.minZoomRatio
}

// MaxZoomRatio returns the maximum supported zoom ratio.
func (z *ZoomState) MaxZoomRatio() float64 {
	return z.maxZoomRatio
}

// percentageByRatio converts a zoom ratio to linear zoom. Caller holds z.mu.
func (z *ZoomState) percentageByRatio(ratio float64) float64 {
	if z.maxZoomRatio == z.minZoomRatio {
		return 0
	}
	if ratio == z.maxZoomRatio {
		return 1
	}
	if ratio == z.minZoomRatio {
		return 0
	}
	cropWidth := 1.0 / ratio
	cropWidthInMaxZoom := 1.0 / z.maxZoomRatio
	cropWidthInMinZoom := 1.0 / z.minZoomRatio
	return (cropWidth - cropWidthInMinZoom) / (cropWidthInMaxZoom - cropWidthInMinZoom)
}

// ratioByPercentage converts a linear zoom to a zoom ratio. Caller holds z.mu.
func (z *ZoomState) ratioByPercentage(percentage float64) float64 {
	if percentage == 1.0 {
		return z.maxZoomRatio
	}
	if percentage == 0 {
		return z.minZoomRatio
	}
	cropWidthInMaxZoom := 1.0 / z.maxZoomRatio
	cropWidthInMinZoom := 1.0 / z.minZoomRatio
	cropWidth := cropWidthInMinZoom + (cropWidthInMaxZoom-cropWidthInMinZoom)*percentage
	ratio := 1.0 / cropWidth

	// Floating point drift can land just outside the range; clamp.
	if ratio < z.minZoomRatio {
		ratio = z.minZoomRatio
	}
	if ratio > z.maxZoomRatio {
		ratio = z.maxZoomRatio
	}
	return ratio
}
