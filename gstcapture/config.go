package gstcapture

import (
	"fmt"

	"github.com/e7canasta/camera-session/camera"
)

// Config describes a GStreamer-backed capture session.
type Config struct {
	// Device is the V4L2 device node (e.g. "/dev/video0"). Empty selects a
	// live videotestsrc, useful on machines without a camera.
	Device string

	// Source labels frames produced by the session. Defaults to Device, or
	// "videotest" when no device is configured.
	Source string

	// Size is the output frame size. Frames are scaled to it.
	Size camera.Size

	// FPS is the output frame rate (1-240). The pipeline drops down to it,
	// never duplicates up.
	FPS int
}

// withDefaults validates the config and fills derived defaults.
func (c Config) withDefaults() (Config, error) {
	if c.Size.Width <= 0 || c.Size.Height <= 0 {
		return c, fmt.Errorf("gstcapture: invalid size %dx%d", c.Size.Width, c.Size.Height)
	}
	if c.FPS < 1 || c.FPS > 240 {
		return c, fmt.Errorf("gstcapture: invalid FPS %d (must be 1-240)", c.FPS)
	}
	if c.Source == "" {
		if c.Device != "" {
			c.Source = c.Device
		} else {
			c.Source = "videotest"
		}
	}
	return c, nil
}
