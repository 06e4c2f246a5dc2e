package capture

import "testing"

// TestRequestImmutability verifies the request copies its inputs and outputs
func TestRequestImmutability(t *testing.T) {
	params := Parameters{"iso": 800}
	targets := []int{1, 2}
	req := NewRequest(TemplateStillCapture, params, targets...)

	// Mutating the originals must not affect the request.
	params["iso"] = 100
	targets[0] = 99

	if got := req.Parameters()["iso"]; got != 800 {
		t.Errorf("Expected iso 800, got %v", got)
	}
	ids := req.TargetOutputIDs()
	if ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Expected targets [1 2], got %v", ids)
	}

	// Mutating accessor results must not affect the request either.
	req.Parameters()["iso"] = 200
	req.TargetOutputIDs()[0] = 42
	if got := req.Parameters()["iso"]; got != 800 {
		t.Errorf("Expected iso 800 after accessor mutation, got %v", got)
	}
	if got := req.TargetOutputIDs()[0]; got != 1 {
		t.Errorf("Expected target 1 after accessor mutation, got %d", got)
	}
}

// TestRequestNilParameters verifies nil parameters stay nil
func TestRequestNilParameters(t *testing.T) {
	req := NewRequest(TemplatePreview, nil, 1)
	if req.Parameters() != nil {
		t.Error("Expected nil parameters to stay nil")
	}
	if req.Template() != TemplatePreview {
		t.Errorf("Expected preview template, got %v", req.Template())
	}
}

// TestTagBundleClone verifies clone independence
func TestTagBundleClone(t *testing.T) {
	tags := TagBundle{"owner": "controller-a"}
	clone := tags.Clone()
	clone["owner"] = "controller-b"

	if tags["owner"] != "controller-a" {
		t.Errorf("Expected original untouched, got %v", tags["owner"])
	}

	var empty TagBundle
	if empty.Clone() != nil {
		t.Error("Expected nil clone of nil bundle")
	}
}

// TestTemplateNames verifies template String values
func TestTemplateNames(t *testing.T) {
	testCases := []struct {
		template Template
		want     string
	}{
		{TemplatePreview, "preview"},
		{TemplateStillCapture, "still-capture"},
		{TemplateRecord, "record"},
		{TemplateVideoSnapshot, "video-snapshot"},
		{TemplateZeroShutterLag, "zero-shutter-lag"},
		{TemplateManual, "manual"},
		{Template(99), "unknown"},
	}
	for _, tc := range testCases {
		if got := tc.template.String(); got != tc.want {
			t.Errorf("Expected %q, got %q", tc.want, got)
		}
	}
}
