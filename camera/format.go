package camera

// Format identifies an image buffer format.
type Format int

const (
	// FormatUnknown is an unrecognized or unset format
	FormatUnknown Format = iota
	// FormatPrivate is the opaque implementation-defined format. It is the
	// only format high-speed sessions accept.
	FormatPrivate
	// FormatYUV420 is planar YUV 4:2:0
	FormatYUV420
	// FormatJPEG is compressed JPEG
	FormatJPEG
	// FormatRAW16 is 16-bit raw sensor data
	FormatRAW16
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatPrivate:
		return "private"
	case FormatYUV420:
		return "yuv420"
	case FormatJPEG:
		return "jpeg"
	case FormatRAW16:
		return "raw16"
	default:
		return "unknown"
	}
}

// Capability identifies an advertised device capability.
type Capability int

const (
	// CapabilityBackwardCompatible marks a device usable through the baseline
	// capture path
	CapabilityBackwardCompatible Capability = iota
	// CapabilityConstrainedHighSpeedVideo marks support for constrained
	// high-speed capture sessions
	CapabilityConstrainedHighSpeedVideo
	// CapabilityRAW marks support for raw sensor output
	CapabilityRAW
	// CapabilityManualSensor marks support for manual sensor controls
	CapabilityManualSensor
)

// String returns a human-readable name for the capability.
func (c Capability) String() string {
	switch c {
	case CapabilityBackwardCompatible:
		return "backward-compatible"
	case CapabilityConstrainedHighSpeedVideo:
		return "constrained-high-speed-video"
	case CapabilityRAW:
		return "raw"
	case CapabilityManualSensor:
		return "manual-sensor"
	default:
		return "unknown"
	}
}

// ParseCapability parses a capability name as produced by String().
func ParseCapability(s string) (Capability, bool) {
	switch s {
	case "backward-compatible":
		return CapabilityBackwardCompatible, true
	case "constrained-high-speed-video":
		return CapabilityConstrainedHighSpeedVideo, true
	case "raw":
		return CapabilityRAW, true
	case "manual-sensor":
		return CapabilityManualSensor, true
	default:
		return 0, false
	}
}
