package gstcapture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/camera-session/capture"
	"github.com/e7canasta/camera-session/internal/dispatch"
)

// playingWaitTimeout bounds the startup wait for the PLAYING state.
const playingWaitTimeout = 5 * time.Second

// stopWaitTimeout bounds the shutdown wait for background goroutines.
const stopWaitTimeout = 3 * time.Second

// Session is a GStreamer-backed capture session. It satisfies
// capture.Session.
//
// Lifecycle is terminal: Start may be called once and Stop closes the
// session for good. A fatal pipeline error also ends the session; callers
// open a new one rather than restarting.
type Session struct {
	cfg      Config
	engine   *dispatch.Engine
	elements *pipelineElements

	mu      sync.Mutex
	running bool
	started time.Time
	cancel  context.CancelFunc

	wg sync.WaitGroup

	// Shutdown protection (atomic flag to make Stop idempotent)
	stopped atomic.Bool
	failed  atomic.Bool

	// Statistics (atomic for thread-safety)
	bytesRead atomic.Uint64

	// Error telemetry (atomic for thread-safety)
	errorsDevice  atomic.Uint64
	errorsFormat  atomic.Uint64
	errorsUnknown atomic.Uint64
}

// Stats is a point-in-time snapshot of a GStreamer session.
type Stats struct {
	// FramesProduced is the number of frames the pipeline delivered
	FramesProduced uint64
	// FramesDelivered is the number of frames routed to a capture config
	FramesDelivered uint64
	// FramesIdle is the number of frames dropped with no config active
	FramesIdle uint64
	// BuffersLost is the number of surface deliveries that were dropped
	BuffersLost uint64
	// Failures is the number of captures consumed by pipeline failures
	Failures uint64
	// BurstsSubmitted counts accepted bursts
	BurstsSubmitted uint64
	// BurstsCompleted counts bursts served to completion
	BurstsCompleted uint64
	// BurstsAborted counts bursts discarded by abort or close
	BurstsAborted uint64
	// PendingBursts is the number of queued bursts
	PendingBursts int
	// RepeatingActive reports whether a repeating config is installed
	RepeatingActive bool
	// BytesRead is the total payload bytes copied out of the pipeline
	BytesRead uint64
	// ErrorsDevice counts device-category pipeline errors
	ErrorsDevice uint64
	// ErrorsFormat counts format-category pipeline errors
	ErrorsFormat uint64
	// ErrorsUnknown counts unclassified pipeline errors
	ErrorsUnknown uint64
	// FPSTarget is the configured output rate
	FPSTarget int
	// FPSReal is the measured production rate since Start
	FPSReal float64
	// Resolution is "WxH"
	Resolution string
	// Source is the frame label
	Source string
	// IsRunning reports whether the pipeline is active
	IsRunning bool
	// Failed reports a terminal pipeline failure
	Failed bool
}

// NewSession creates a GStreamer capture session with fail-fast validation.
//
// Validates at construction time:
//   - Size and FPS must be in range
//   - The GStreamer runtime must be available
//
// The pipeline itself is built on Start.
func NewSession(cfg Config) (*Session, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	if err := checkGStreamerAvailable(); err != nil {
		return nil, fmt.Errorf("gstcapture: GStreamer not available: %w", err)
	}

	slog.Info("gstcapture: session created",
		"device", cfg.Device,
		"source", cfg.Source,
		"resolution", cfg.Size.String(),
		"fps", cfg.FPS,
	)

	return &Session{
		cfg:    cfg,
		engine: dispatch.New(cfg.Source),
	}, nil
}

// Start builds the pipeline, moves it to PLAYING, and launches the bus
// monitor. Errors when already running or stopped. Returns once the pipeline
// has been asked to play; frames arrive asynchronously.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped.Load() {
		return fmt.Errorf("gstcapture: session closed")
	}
	if s.running {
		return fmt.Errorf("gstcapture: session already running")
	}

	elements, err := buildPipeline(s.cfg)
	if err != nil {
		return fmt.Errorf("gstcapture: failed to create pipeline: %w", err)
	}
	s.elements = elements

	s.elements.appSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	if err := s.elements.pipeline.SetState(gst.StatePlaying); err != nil {
		destroyPipeline(s.elements)
		s.elements = nil
		return fmt.Errorf("gstcapture: failed to start pipeline: %w", err)
	}

	// Wait briefly for the pipeline to report PLAYING; frames may lag this
	bus := s.elements.pipeline.GetPipelineBus()
	if msg := bus.TimedPop(playingWaitTimeout); msg != nil && msg.Type() == gst.MessageStateChanged {
		if _, next := msg.ParseStateChanged(); next == gst.StatePlaying {
			slog.Info("gstcapture: pipeline reached PLAYING state")
		}
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.started = time.Now()

	s.wg.Add(1)
	go s.monitorBus(monitorCtx)

	slog.Info("gstcapture: session started",
		"source", s.cfg.Source,
		"resolution", s.cfg.Size.String(),
		"fps", s.cfg.FPS,
	)

	return nil
}

// Stop shuts the session down: stops the bus monitor, destroys the pipeline,
// and closes the dispatch engine, aborting outstanding capture sequences.
// Idempotent and terminal.
func (s *Session) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	slog.Info("gstcapture: session stopping", "source", s.cfg.Source)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	// Wait for the monitor with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Debug("gstcapture: goroutines stopped cleanly")
	case <-time.After(stopWaitTimeout):
		slog.Warn("gstcapture: stop timeout exceeded, some goroutines may still be running")
	}

	s.mu.Lock()
	if s.elements != nil {
		if err := destroyPipeline(s.elements); err != nil {
			slog.Error("gstcapture: failed to destroy pipeline", "error", err)
		}
		s.elements = nil
	}
	s.running = false
	var uptime time.Duration
	if !s.started.IsZero() {
		uptime = time.Since(s.started)
	}
	s.mu.Unlock()

	if err := s.engine.Close(); err != nil {
		slog.Error("gstcapture: engine close failed", "error", err)
	}

	slog.Info("gstcapture: session stopped",
		"source", s.cfg.Source,
		"bytes_read", s.bytesRead.Load(),
		"uptime", uptime,
	)

	return nil
}

// SubmitBurst submits the configs as a single burst.
func (s *Session) SubmitBurst(configs []*capture.CaptureConfig) (int, error) {
	return s.engine.SubmitBurst(configs)
}

// SubmitRepeating installs config as the repeating capture.
func (s *Session) SubmitRepeating(config *capture.CaptureConfig) (int, error) {
	return s.engine.SubmitRepeating(config)
}

// AbortCaptures discards pending and repeating work.
func (s *Session) AbortCaptures() error {
	return s.engine.AbortCaptures()
}

// StopRepeating ends the repeating capture.
func (s *Session) StopRepeating() error {
	return s.engine.StopRepeating()
}

// Stats returns current session statistics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	running := s.running
	started := s.started
	s.mu.Unlock()

	es := s.engine.Stats()

	var fpsReal float64
	if running && es.FramesIn > 0 && !started.IsZero() {
		elapsed := time.Since(started).Seconds()
		if elapsed > 0 {
			fpsReal = float64(es.FramesIn) / elapsed
		}
	}

	return Stats{
		FramesProduced:  es.FramesIn,
		FramesDelivered: es.FramesDelivered,
		FramesIdle:      es.FramesIdle,
		BuffersLost:     es.BuffersLost,
		Failures:        es.Failures,
		BurstsSubmitted: es.BurstsSubmitted,
		BurstsCompleted: es.BurstsCompleted,
		BurstsAborted:   es.BurstsAborted,
		PendingBursts:   es.PendingBursts,
		RepeatingActive: es.RepeatingActive,
		BytesRead:       s.bytesRead.Load(),
		ErrorsDevice:    s.errorsDevice.Load(),
		ErrorsFormat:    s.errorsFormat.Load(),
		ErrorsUnknown:   s.errorsUnknown.Load(),
		FPSTarget:       s.cfg.FPS,
		FPSReal:         fpsReal,
		Resolution:      s.cfg.Size.String(),
		Source:          s.cfg.Source,
		IsRunning:       running,
		Failed:          s.failed.Load(),
	}
}
