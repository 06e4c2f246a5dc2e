package gstcapture

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies pipeline errors for telemetry.
type ErrorCategory int

const (
	// ErrCategoryDevice indicates capture device failures (missing node,
	// busy device, permissions, ioctl errors)
	ErrCategoryDevice ErrorCategory = iota
	// ErrCategoryFormat indicates format negotiation failures (caps,
	// unsupported size or rate, missing converter plugin)
	ErrCategoryFormat
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable name for the error category.
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryFormat:
		return "format"
	default:
		return "unknown"
	}
}

// classifyGError categorizes a pipeline error for telemetry.
//
// go-gst's GError does not expose the error domain, so classification relies
// on message heuristics. Device errors are checked first: a device that
// disappears mid-capture also breaks negotiation, and the device cause is the
// actionable one.
func classifyGError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return classifyError(gerr.Error(), gerr.DebugString())
}

// classifyError categorizes an error from its message and debug strings.
func classifyError(errMsg, debugStr string) ErrorCategory {
	combined := strings.ToLower(errMsg + " " + debugStr)

	if containsAny(combined, deviceKeywords) {
		return ErrCategoryDevice
	}
	if containsAny(combined, formatKeywords) {
		return ErrCategoryFormat
	}
	return ErrCategoryUnknown
}

var deviceKeywords = []string{
	"device",
	"/dev/video",
	"v4l2",
	"ioctl",
	"busy",
	"permission",
	"no such file",
	"cannot open",
	"could not open",
	"disconnected",
	"removed",
}

var formatKeywords = []string{
	"format",
	"caps",
	"negotiat", // negotiate / negotiation / not negotiated
	"resolution",
	"framerate",
	"colorspace",
	"convert",
	"missing plugin",
	"no decoder",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
