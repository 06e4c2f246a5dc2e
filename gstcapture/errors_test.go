package gstcapture

import "testing"

func TestClassifyError(t *testing.T) {
	testCases := []struct {
		name     string
		errMsg   string
		debugStr string
		want     ErrorCategory
	}{
		{
			name:   "missing device node",
			errMsg: "Cannot open device /dev/video0",
			want:   ErrCategoryDevice,
		},
		{
			name:     "device busy",
			errMsg:   "Could not read from resource",
			debugStr: "v4l2src: device is busy",
			want:     ErrCategoryDevice,
		},
		{
			name:   "device unplugged",
			errMsg: "Device '/dev/video2' has been removed",
			want:   ErrCategoryDevice,
		},
		{
			name:   "caps negotiation",
			errMsg: "Internal data stream error",
			// streaming stopped, reason not-negotiated
			debugStr: "reason not-negotiated (-4)",
			want:     ErrCategoryFormat,
		},
		{
			name:   "unsupported framerate",
			errMsg: "failed to set framerate on capture",
			want:   ErrCategoryFormat,
		},
		{
			name:   "unclassified",
			errMsg: "something exploded",
			want:   ErrCategoryUnknown,
		},
		{
			name: "empty strings",
			want: ErrCategoryUnknown,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyError(tc.errMsg, tc.debugStr); got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestErrorCategoryString(t *testing.T) {
	testCases := []struct {
		category ErrorCategory
		want     string
	}{
		{ErrCategoryDevice, "device"},
		{ErrCategoryFormat, "format"},
		{ErrCategoryUnknown, "unknown"},
		{ErrorCategory(42), "unknown"},
	}

	for _, tc := range testCases {
		if got := tc.category.String(); got != tc.want {
			t.Errorf("Expected %q, got %q", tc.want, got)
		}
	}
}
