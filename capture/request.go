package capture

// Template selects the vendor base settings a capture request starts from.
type Template int

const (
	// TemplatePreview tunes for continuous viewfinder output
	TemplatePreview Template = iota + 1
	// TemplateStillCapture tunes for maximum-quality single captures
	TemplateStillCapture
	// TemplateRecord tunes for steady-rate video recording
	TemplateRecord
	// TemplateVideoSnapshot tunes for stills taken while recording
	TemplateVideoSnapshot
	// TemplateZeroShutterLag tunes for zero-shutter-lag still capture
	TemplateZeroShutterLag
	// TemplateManual disables vendor auto-control for fully manual capture
	TemplateManual
)

// String returns a human-readable name for the template.
func (t Template) String() string {
	switch t {
	case TemplatePreview:
		return "preview"
	case TemplateStillCapture:
		return "still-capture"
	case TemplateRecord:
		return "record"
	case TemplateVideoSnapshot:
		return "video-snapshot"
	case TemplateZeroShutterLag:
		return "zero-shutter-lag"
	case TemplateManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParameterKey identifies an implementation-defined capture control.
type ParameterKey string

// Parameters maps capture controls to their requested values. Values are
// interpreted by the session backend.
type Parameters map[ParameterKey]any

// Clone returns an independent copy of the parameters. Nil stays nil.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return nil
	}
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// TagBundle carries opaque caller metadata attached to capture configs and
// echoed back in capture results, keyed by string.
type TagBundle map[string]any

// Clone returns an independent copy of the bundle. Nil stays nil.
func (t TagBundle) Clone() TagBundle {
	if t == nil {
		return nil
	}
	out := make(TagBundle, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Request describes one abstract capture: a template, implementation-defined
// parameters, and the output IDs the capture should target. A Request is
// immutable once constructed; the same Request value is handed back on every
// callback it originates.
type Request struct {
	template   Template
	parameters Parameters
	targets    []int
}

// NewRequest builds an immutable capture request. The parameters map and
// target list are copied.
func NewRequest(template Template, parameters Parameters, targetOutputIDs ...int) *Request {
	return &Request{
		template:   template,
		parameters: parameters.Clone(),
		targets:    append([]int(nil), targetOutputIDs...),
	}
}

// Template returns the request's template.
func (r *Request) Template() Template {
	return r.template
}

// Parameters returns a copy of the request's parameters.
func (r *Request) Parameters() Parameters {
	return r.parameters.Clone()
}

// TargetOutputIDs returns a copy of the ordered target output IDs.
func (r *Request) TargetOutputIDs() []int {
	return append([]int(nil), r.targets...)
}
