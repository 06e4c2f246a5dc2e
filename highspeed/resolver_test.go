package highspeed

import (
	"reflect"
	"sync"
	"testing"

	"github.com/e7canasta/camera-session/camera"
)

// testCharacteristics models a device with three high-speed sizes. VGA only
// carries a variable range, so a two-surface session at VGA has no legal
// fixed rate.
func testCharacteristics() *camera.StaticCharacteristics {
	return camera.NewStaticCharacteristics(
		[]camera.Capability{
			camera.CapabilityBackwardCompatible,
			camera.CapabilityConstrainedHighSpeedVideo,
		},
		map[camera.Size][]camera.FPSRange{
			camera.SizeVGA: {
				{Lower: 30, Upper: 60},
			},
			camera.Size720p: {
				{Lower: 30, Upper: 120},
				{Lower: 120, Upper: 120},
				{Lower: 240, Upper: 240},
			},
			camera.Size1080p: {
				{Lower: 30, Upper: 240},
				{Lower: 240, Upper: 240},
			},
		},
	)
}

func TestSupported(t *testing.T) {
	withCap := New(testCharacteristics())
	if !withCap.Supported() {
		t.Error("Expected high-speed support to be reported")
	}

	withoutCap := New(camera.NewStaticCharacteristics(
		[]camera.Capability{camera.CapabilityBackwardCompatible},
		nil,
	))
	if withoutCap.Supported() {
		t.Error("Expected high-speed support to be absent")
	}
}

func TestMaxSize(t *testing.T) {
	r := New(testCharacteristics())

	size, ok := r.MaxSize()
	if !ok {
		t.Fatal("MaxSize failed: no size reported")
	}
	if size != camera.Size1080p {
		t.Errorf("Expected %v, got %v", camera.Size1080p, size)
	}

	empty := New(camera.NewStaticCharacteristics(nil, nil))
	if _, ok := empty.MaxSize(); ok {
		t.Error("Expected no max size for a device without high-speed sizes")
	}
}

func TestFilterCommonSupportedSizes(t *testing.T) {
	r := New(testCharacteristics())
	uhd := camera.Size{Width: 3840, Height: 2160}

	// Both use cases offer UHD, but the hardware does not, so it must be
	// dropped alongside the sizes the use cases do not share.
	got := r.FilterCommonSupportedSizes([][]camera.Size{
		{camera.SizeVGA, camera.Size720p, camera.Size1080p, uhd},
		{uhd, camera.Size1080p, camera.Size720p},
	})
	want := [][]camera.Size{
		{camera.Size720p, camera.Size1080p},
		{camera.Size1080p, camera.Size720p},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestFilterCommonSupportedSizesKeepsDuplicates(t *testing.T) {
	r := New(testCharacteristics())

	got := r.FilterCommonSupportedSizes([][]camera.Size{
		{camera.Size720p, camera.SizeVGA, camera.Size720p},
		{camera.Size720p},
	})
	want := [][]camera.Size{
		{camera.Size720p, camera.Size720p},
		{camera.Size720p},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestMaxFrameRate(t *testing.T) {
	r := New(testCharacteristics())

	testCases := []struct {
		name   string
		format camera.Format
		size   camera.Size
		want   int
	}{
		{"private format known size", camera.FormatPrivate, camera.Size720p, 240},
		{"private format unknown size", camera.FormatPrivate, camera.Size{Width: 320, Height: 240}, 0},
		{"yuv format", camera.FormatYUV420, camera.Size720p, 0},
		{"jpeg format", camera.FormatJPEG, camera.Size1080p, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.MaxFrameRate(tc.format, tc.size); got != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestSizeArrangements(t *testing.T) {
	r := New(testCharacteristics())

	got := r.SizeArrangements([][]camera.Size{
		{camera.SizeVGA, camera.Size720p},
		{camera.Size720p},
	})
	want := [][]camera.Size{
		{camera.Size720p, camera.Size720p},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got := r.SizeArrangements(nil); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}
}

// TestSizeArrangementsIgnoresHardwareList verifies arrangements come from the
// use-case intersection alone. Callers filter against the hardware first via
// FilterCommonSupportedSizes.
func TestSizeArrangementsIgnoresHardwareList(t *testing.T) {
	r := New(testCharacteristics())
	uhd := camera.Size{Width: 3840, Height: 2160}

	got := r.SizeArrangements([][]camera.Size{
		{uhd, camera.Size720p},
		{camera.Size720p, uhd},
	})
	want := [][]camera.Size{
		{uhd, uhd},
		{camera.Size720p, camera.Size720p},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestFrameRateRangesFor(t *testing.T) {
	r := New(testCharacteristics())

	testCases := []struct {
		name  string
		sizes []camera.Size
		want  []camera.FPSRange
	}{
		{"no surfaces", nil, nil},
		{"three surfaces", []camera.Size{camera.Size720p, camera.Size720p, camera.Size720p}, nil},
		{"differing sizes", []camera.Size{camera.Size720p, camera.Size1080p}, nil},
		{"unknown size", []camera.Size{{Width: 320, Height: 240}}, nil},
		{
			"single surface gets all ranges",
			[]camera.Size{camera.Size720p},
			[]camera.FPSRange{{Lower: 30, Upper: 120}, {Lower: 120, Upper: 120}, {Lower: 240, Upper: 240}},
		},
		{
			"two surfaces get fixed ranges only",
			[]camera.Size{camera.Size720p, camera.Size720p},
			[]camera.FPSRange{{Lower: 120, Upper: 120}, {Lower: 240, Upper: 240}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.FrameRateRangesFor(tc.sizes)
			if tc.want == nil {
				if got != nil {
					t.Errorf("Expected nil, got %v", got)
				}
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

// TestFrameRateRangesForTwoSurfacesNoFixed verifies an empty non-nil result
// when the size is legal but only variable ranges exist: the combination is
// valid, it just has no usable rate.
func TestFrameRateRangesForTwoSurfacesNoFixed(t *testing.T) {
	r := New(testCharacteristics())

	got := r.FrameRateRangesFor([]camera.Size{camera.SizeVGA, camera.SizeVGA})
	if got == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("Expected no fixed ranges, got %v", got)
	}
}

func TestResolverConcurrentReads(t *testing.T) {
	r := New(testCharacteristics())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Supported()
				_, _ = r.MaxSize()
				_ = r.MaxFrameRate(camera.FormatPrivate, camera.Size720p)
				_ = r.FilterCommonSupportedSizes([][]camera.Size{{camera.Size720p}})
				_ = r.FrameRateRangesFor([]camera.Size{camera.Size720p, camera.Size720p})
			}
		}()
	}
	wg.Wait()
}
