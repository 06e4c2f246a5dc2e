package capture

// CaptureConfig is the platform capture configuration a RequestProcessor
// builds from one Request. Session backends consume it.
type CaptureConfig struct {
	// Template selects the vendor base settings for the capture
	Template Template
	// Parameters are the controls applied on top of the template
	Parameters Parameters
	// Surfaces are the resolved output targets for frame payloads
	Surfaces []*Surface
	// Callbacks receive this config's per-frame and sequence events
	Callbacks []SessionCallback
	// Tags is opaque metadata echoed back in capture results
	Tags TagBundle
}

// SessionConfig is the side-channel configuration an upper-layer controller
// installs via RequestProcessor.UpdateSessionConfig. Its callbacks and tags
// are merged into every subsequently issued repeating config, letting the
// controller observe every repeating frame without owning the raw session.
type SessionConfig struct {
	// RepeatingCallbacks are appended to the callbacks of future repeating
	// configs
	RepeatingCallbacks []SessionCallback
	// RepeatingTags are merged into the tags of future repeating configs
	RepeatingTags TagBundle
}
