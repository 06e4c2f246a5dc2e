// Package config loads and validates the capture probe configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/e7canasta/camera-session/camera"
)

// Config represents the complete capture probe configuration.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Capture   CaptureConfig   `yaml:"capture"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Profile   ProfileConfig   `yaml:"profile"`
}

// CameraConfig selects the capture device and negotiated stream shape.
type CameraConfig struct {
	Device     string `yaml:"device"`     // V4L2 node, e.g. /dev/video0; empty uses the test source
	Source     string `yaml:"source"`     // logical stream label used in frames and logs
	Resolution string `yaml:"resolution"` // "WxH", e.g. "1280x720"
	FPS        int    `yaml:"fps"`        // target frame rate
	Simulate   bool   `yaml:"simulate"`   // force the simulated session even when GStreamer works
}

// CaptureConfig tunes the probe's capture workload.
type CaptureConfig struct {
	SurfaceBuffer  int `yaml:"surface_buffer"`  // frames a surface holds before refusing (default: 4)
	MeasureSeconds int `yaml:"measure_seconds"` // repeating measurement window (default: 5)
	BurstFrames    int `yaml:"burst_frames"`    // still burst length (default: 3)
}

// TelemetryConfig contains MQTT reporting settings.
type TelemetryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Broker    string `yaml:"broker"` // host:port
	ClientID  string `yaml:"client_id"`
	BaseTopic string `yaml:"base_topic"`
}

// ProfileConfig describes the device capability profile used for
// high-speed negotiation.
type ProfileConfig struct {
	Capabilities []string           `yaml:"capabilities"` // capability names, e.g. constrained-high-speed-video
	HighSpeed    map[string][][]int `yaml:"high_speed"`   // "WxH" -> [[lo,hi], ...]
	ZoomRange    []float64          `yaml:"zoom_range"`   // [min, max] zoom ratio
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration that runs against the test source with
// telemetry disabled and a typical high-speed capable profile.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Source:     "videotest",
			Resolution: "640x480",
			FPS:        30,
		},
		Capture: CaptureConfig{
			SurfaceBuffer:  4,
			MeasureSeconds: 5,
			BurstFrames:    3,
		},
		Profile: ProfileConfig{
			Capabilities: []string{
				"backward-compatible",
				"constrained-high-speed-video",
			},
			HighSpeed: map[string][][]int{
				"1280x720":  {{30, 120}, {120, 120}, {240, 240}},
				"1920x1080": {{30, 240}, {240, 240}},
			},
			ZoomRange: []float64{1.0, 4.0},
		},
	}
}

// Size parses the camera resolution into a camera.Size.
func (c CameraConfig) Size() (camera.Size, error) {
	return camera.ParseSize(c.Resolution)
}

// Characteristics converts the profile into device characteristics for
// session negotiation.
func (cfg *Config) Characteristics() (*camera.StaticCharacteristics, error) {
	caps := make([]camera.Capability, 0, len(cfg.Profile.Capabilities))
	for _, name := range cfg.Profile.Capabilities {
		capability, ok := camera.ParseCapability(name)
		if !ok {
			return nil, fmt.Errorf("config: unknown capability %q", name)
		}
		caps = append(caps, capability)
	}

	highSpeed := make(map[camera.Size][]camera.FPSRange, len(cfg.Profile.HighSpeed))
	for sizeStr, pairs := range cfg.Profile.HighSpeed {
		size, err := camera.ParseSize(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("config: high_speed: %w", err)
		}
		ranges := make([]camera.FPSRange, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) != 2 {
				return nil, fmt.Errorf("config: high_speed %q: range must be [lo,hi], got %v", sizeStr, pair)
			}
			ranges = append(ranges, camera.FPSRange{Lower: pair[0], Upper: pair[1]})
		}
		highSpeed[size] = ranges
	}

	sc := camera.NewStaticCharacteristics(caps, highSpeed)
	if len(cfg.Profile.ZoomRange) == 2 {
		sc.SetZoomRatioRange(cfg.Profile.ZoomRange[0], cfg.Profile.ZoomRange[1])
	}
	return sc, nil
}
