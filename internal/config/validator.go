package config

import (
	"fmt"

	"github.com/e7canasta/camera-session/camera"
)

// Validate checks the configuration and fills in defaults.
func Validate(cfg *Config) error {
	// Camera
	if cfg.Camera.Resolution == "" {
		return fmt.Errorf("camera.resolution is required")
	}
	if _, err := camera.ParseSize(cfg.Camera.Resolution); err != nil {
		return fmt.Errorf("camera.resolution: %w", err)
	}
	if cfg.Camera.FPS < 1 || cfg.Camera.FPS > 240 {
		return fmt.Errorf("camera.fps must be in [1,240], got %d", cfg.Camera.FPS)
	}

	// Capture defaults
	if cfg.Capture.SurfaceBuffer <= 0 {
		cfg.Capture.SurfaceBuffer = 4
	}
	if cfg.Capture.MeasureSeconds <= 0 {
		cfg.Capture.MeasureSeconds = 5
	}
	if cfg.Capture.BurstFrames <= 0 {
		cfg.Capture.BurstFrames = 3
	}

	// Telemetry
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Broker == "" {
			return fmt.Errorf("telemetry.broker is required when telemetry is enabled")
		}
		if cfg.Telemetry.ClientID == "" {
			cfg.Telemetry.ClientID = "capture-probe"
		}
		if cfg.Telemetry.BaseTopic == "" {
			cfg.Telemetry.BaseTopic = fmt.Sprintf("camera-session/%s", cfg.Telemetry.ClientID)
		}
	}

	// Profile
	if err := validateProfile(cfg.Profile); err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	return nil
}

func validateProfile(profile ProfileConfig) error {
	for _, name := range profile.Capabilities {
		if _, ok := camera.ParseCapability(name); !ok {
			return fmt.Errorf("unknown capability %q", name)
		}
	}

	for sizeStr, pairs := range profile.HighSpeed {
		if _, err := camera.ParseSize(sizeStr); err != nil {
			return fmt.Errorf("high_speed: %w", err)
		}
		if len(pairs) == 0 {
			return fmt.Errorf("high_speed %q: at least one frame-rate range is required", sizeStr)
		}
		for i, pair := range pairs {
			if len(pair) != 2 {
				return fmt.Errorf("high_speed %q: range %d must be [lo,hi], got %v", sizeStr, i, pair)
			}
			lo, hi := pair[0], pair[1]
			if lo < 1 || hi < lo {
				return fmt.Errorf("high_speed %q: range %d must satisfy 1 <= lo <= hi, got [%d,%d]", sizeStr, i, lo, hi)
			}
		}
	}

	switch len(profile.ZoomRange) {
	case 0:
		// No zoom configured
	case 2:
		min, max := profile.ZoomRange[0], profile.ZoomRange[1]
		if min <= 0 || max < min {
			return fmt.Errorf("zoom_range must satisfy 0 < min <= max, got [%v,%v]", min, max)
		}
	default:
		return fmt.Errorf("zoom_range must be [min, max], got %v", profile.ZoomRange)
	}

	return nil
}
