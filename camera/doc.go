// Package camera provides the shared vocabulary for capture pipelines:
// sizes, frame-rate ranges, image formats, device capabilities, and the
// capability metadata interface consumed by session negotiation.
//
// # Overview
//
// The types in this package are plain values with no lifecycle. Capability
// metadata enters the system through the Characteristics interface, usually
// backed by a StaticCharacteristics built from a device profile:
//
//	chars := camera.NewStaticCharacteristics(
//	    []camera.Capability{camera.CapabilityConstrainedHighSpeedVideo},
//	    map[camera.Size][]camera.FPSRange{
//	        {Width: 1280, Height: 720}: {{Lower: 30, Upper: 120}, {Lower: 120, Upper: 120}},
//	    },
//	)
//
// # Zoom
//
// ZoomState keeps the zoom-ratio and linear-zoom representations of the same
// setting consistent. Linear zoom maps [0, 1] onto the reciprocal of the crop
// width so that equal increments produce visually even zoom steps:
//
//	zs := camera.NewZoomState(1.0, 8.0)
//	_ = zs.SetLinearZoom(0.5)
//	ratio := zs.ZoomRatio()
//
// All ZoomState methods are safe for concurrent use.
package camera
