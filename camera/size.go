package camera

import "fmt"

// Size represents an output dimension in pixels.
type Size struct {
	// Width in pixels
	Width int
	// Height in pixels
	Height int
}

// Common capture sizes.
var (
	// SizeVGA is 640x480
	SizeVGA = Size{Width: 640, Height: 480}
	// Size720p is 1280x720 (HD)
	Size720p = Size{Width: 1280, Height: 720}
	// Size1080p is 1920x1080 (Full HD)
	Size1080p = Size{Width: 1920, Height: 1080}
)

// Area returns the pixel area of the size.
func (s Size) Area() int64 {
	return int64(s.Width) * int64(s.Height)
}

// String returns the "WxH" form, e.g. "1280x720".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ParseSize parses a "WxH" string (e.g. "1280x720") into a Size.
func ParseSize(s string) (Size, error) {
	var size Size
	n, err := fmt.Sscanf(s, "%dx%d", &size.Width, &size.Height)
	if err != nil || n != 2 {
		return Size{}, fmt.Errorf("camera: invalid size %q (want WxH)", s)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return Size{}, fmt.Errorf("camera: invalid size %q (dimensions must be positive)", s)
	}
	return size, nil
}

// FPSRange represents an inclusive frame-rate range in frames per second.
type FPSRange struct {
	// Lower is the minimum frame rate
	Lower int
	// Upper is the maximum frame rate
	Upper int
}

// Fixed reports whether the range pins a single frame rate (lower == upper).
func (r FPSRange) Fixed() bool {
	return r.Lower == r.Upper
}

// String returns the "[lo,hi]" form, e.g. "[120,120]".
func (r FPSRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Lower, r.Upper)
}
