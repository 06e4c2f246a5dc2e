// Package simcapture provides a software-synthesized capture session for
// development and tests. It generates pattern frames at a target rate and
// feeds them through the same dispatch path the hardware-backed session
// uses, so request processing behaves identically with no device present.
package simcapture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/camera-session/capture"
	"github.com/e7canasta/camera-session/internal/dispatch"
)

// Config describes a simulated capture source.
type Config struct {
	// Width of generated frames in pixels
	Width int
	// Height of generated frames in pixels
	Height int
	// FPS is the target generation rate (1-240)
	FPS int
	// Source labels generated frames. Defaults to "sim-0".
	Source string
}

// DefaultConfig returns a VGA 30fps simulated source.
func DefaultConfig() Config {
	return Config{
		Width:  640,
		Height: 480,
		FPS:    30,
		Source: "sim-0",
	}
}

// Stats is a point-in-time snapshot of a simulated session.
type Stats struct {
	// FramesGenerated is the number of frames produced by the generator
	FramesGenerated uint64
	// FramesDelivered is the number of frames routed to a capture config
	FramesDelivered uint64
	// FramesIdle is the number of frames dropped with no config active
	FramesIdle uint64
	// BuffersLost is the number of surface deliveries that were dropped
	BuffersLost uint64
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
	// FPSTarget is the configured generation rate
	FPSTarget int
	// FPSReal is the measured generation rate since Start
	FPSReal float64
	// Resolution is "WxH"
	Resolution string
	// Source is the configured frame label
	Source string
	// IsRunning reports whether the generator is active
	IsRunning bool
}

// Session is a simulated capture session. It satisfies capture.Session.
//
// Lifecycle is terminal: Start may be called once, Stop closes the session
// for good. This mirrors real capture sessions, which are reopened rather
// than restarted.
type Session struct {
	cfg    Config
	engine *dispatch.Engine

	mu      sync.Mutex
	running bool
	started time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup

	// Shutdown protection (atomic flag to make Stop idempotent)
	stopped atomic.Bool

	framesGenerated atomic.Uint64
}

// New creates a simulated session with fail-fast validation.
func New(cfg Config) (*Session, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("simcapture: invalid resolution %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS < 1 || cfg.FPS > 240 {
		return nil, fmt.Errorf("simcapture: invalid FPS %d (must be 1-240)", cfg.FPS)
	}
	if cfg.Source == "" {
		cfg.Source = "sim-0"
	}

	return &Session{
		cfg:    cfg,
		engine: dispatch.New(cfg.Source),
		stopCh: make(chan struct{}),
	}, nil
}

// Start begins generating frames. Errors when already running or stopped.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped.Load() {
		return fmt.Errorf("simcapture: session closed")
	}
	if s.running {
		return fmt.Errorf("simcapture: session already running")
	}
	s.running = true
	s.started = time.Now()

	slog.Info("simcapture: session starting",
		"width", s.cfg.Width,
		"height", s.cfg.Height,
		"fps", s.cfg.FPS,
		"source", s.cfg.Source,
	)

	s.wg.Add(1)
	go s.generate(ctx)

	return nil
}

// Stop ends frame generation and closes the session, aborting outstanding
// capture sequences. Idempotent and terminal.
func (s *Session) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	slog.Info("simcapture: session stopping", "source", s.cfg.Source)

	close(s.stopCh)
	s.wg.Wait()

	if err := s.engine.Close(); err != nil {
		slog.Error("simcapture: engine close failed", "error", err)
	}

	s.mu.Lock()
	s.running = false
	var uptime time.Duration
	if !s.started.IsZero() {
		uptime = time.Since(s.started)
	}
	s.mu.Unlock()

	slog.Info("simcapture: session stopped",
		"frames_generated", s.framesGenerated.Load(),
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

	generated := s.framesGenerated.Load()

	var fpsReal float64
	if running && generated > 0 {
		elapsed := time.Since(started).Seconds()
		if elapsed > 0 {
			fpsReal = float64(generated) / elapsed
		}
	}

	es := s.engine.Stats()
	return Stats{
		FramesGenerated: generated,
		FramesDelivered: es.FramesDelivered,
		FramesIdle:      es.FramesIdle,
		BuffersLost:     es.BuffersLost,
		BurstsSubmitted: es.BurstsSubmitted,
		BurstsCompleted: es.BurstsCompleted,
		BurstsAborted:   es.BurstsAborted,
		PendingBursts:   es.PendingBursts,
		RepeatingActive: es.RepeatingActive,
		FPSTarget:       s.cfg.FPS,
		FPSReal:         fpsReal,
		Resolution:      fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		Source:          s.cfg.Source,
		IsRunning:       running,
	}
}

// generate produces frames at the target rate until stopped.
func (s *Session) generate(ctx context.Context) {
	defer s.wg.Done()

	frameDuration := time.Second / time.Duration(s.cfg.FPS)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	slog.Debug("simcapture: frame generator started", "frame_duration", frameDuration)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.engine.Deliver(s.renderFrame(), s.cfg.Width, s.cfg.Height)
			s.framesGenerated.Add(1)
		}
	}
}

// renderFrame draws a rolling grayscale gradient (RGB, 3 bytes per pixel).
// The pattern shifts by one shade per frame so consecutive frames differ.
func (s *Session) renderFrame() []byte {
	shift := byte(s.framesGenerated.Load())
	data := make([]byte, s.cfg.Width*s.cfg.Height*3)

	for row := 0; row < s.cfg.Height; row++ {
		shade := byte(row) + shift
		base := row * s.cfg.Width * 3
		for col := 0; col < s.cfg.Width; col++ {
			offset := base + col*3
			data[offset] = shade
			data[offset+1] = shade
			data[offset+2] = shade
		}
	}
	return data
}
