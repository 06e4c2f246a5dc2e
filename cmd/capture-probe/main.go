package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/e7canasta/camera-session/camera"
	"github.com/e7canasta/camera-session/capture"
	"github.com/e7canasta/camera-session/gstcapture"
	"github.com/e7canasta/camera-session/highspeed"
	"github.com/e7canasta/camera-session/internal/config"
	"github.com/e7canasta/camera-session/internal/fpsmeter"
	"github.com/e7canasta/camera-session/simcapture"
	"github.com/e7canasta/camera-session/telemetry"
)

// Version information
const version = "v0.1.0"

// Abstract output identifiers for the probe's two streams.
const (
	outputPreview = 0
	outputStill   = 1
)

// captureBackend is what the probe needs from either capture session.
type captureBackend interface {
	capture.Session
	Start(ctx context.Context) error
	Stop() error
}

// sessionStats is the backend-independent stats view the probe reports.
type sessionStats struct {
	FramesProduced  uint64  `json:"frames_produced"`
	FramesDelivered uint64  `json:"frames_delivered"`
	FramesIdle      uint64  `json:"frames_idle"`
	BuffersLost     uint64  `json:"buffers_lost"`
	Failures        uint64  `json:"failures"`
	BurstsSubmitted uint64  `json:"bursts_submitted"`
	BurstsCompleted uint64  `json:"bursts_completed"`
	BurstsAborted   uint64  `json:"bursts_aborted"`
	PendingBursts   int     `json:"pending_bursts"`
	RepeatingActive bool    `json:"repeating_active"`
	BytesRead       uint64  `json:"bytes_read"`
	ErrorsDevice    uint64  `json:"errors_device"`
	ErrorsFormat    uint64  `json:"errors_format"`
	ErrorsUnknown   uint64  `json:"errors_unknown"`
	FPSTarget       int     `json:"fps_target"`
	FPSReal         float64 `json:"fps_real"`
	Resolution      string  `json:"resolution"`
	Source          string  `json:"source"`
	IsRunning       bool    `json:"is_running"`
	Failed          bool    `json:"failed"`
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to YAML configuration (optional)")
	device := flag.String("device", "", "V4L2 device node, e.g. /dev/video0 (overrides config)")
	source := flag.String("source", "", "Source stream identifier (overrides config)")
	resolution := flag.String("resolution", "", "Resolution WxH, e.g. 1280x720 (overrides config)")
	fps := flag.Int("fps", 0, "Target FPS (overrides config)")
	simulate := flag.Bool("simulate", false, "Force the simulated session")
	broker := flag.String("broker", "", "MQTT broker host:port (enables telemetry)")
	outputDir := flag.String("output", "", "Directory to save burst frames (optional)")
	outputFormat := flag.String("format", "png", "Output format: png, jpeg")
	jpegQuality := flag.Int("jpeg-quality", 90, "JPEG quality (1-100, only for jpeg format)")
	measureSecs := flag.Int("measure", 0, "Measurement window in seconds (overrides config)")
	burstFrames := flag.Int("burst", 0, "Still burst length (overrides config)")
	statsInterval := flag.Int("stats-interval", 10, "Seconds between stats reports")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("capture-probe %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Apply flag overrides, then re-validate
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *source != "" {
		cfg.Camera.Source = *source
	}
	if *resolution != "" {
		cfg.Camera.Resolution = *resolution
	}
	if *fps > 0 {
		cfg.Camera.FPS = *fps
	}
	if *simulate {
		cfg.Camera.Simulate = true
	}
	if *broker != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Broker = *broker
	}
	if *measureSecs > 0 {
		cfg.Capture.MeasureSeconds = *measureSecs
	}
	if *burstFrames > 0 {
		cfg.Capture.BurstFrames = *burstFrames
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *outputFormat != "png" && *outputFormat != "jpeg" {
		log.Fatalf("Invalid output format: %s (must be png or jpeg)", *outputFormat)
	}
	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	size, err := cfg.Camera.Size()
	if err != nil {
		log.Fatalf("Invalid resolution: %v", err)
	}

	// Print banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║              Camera Session Capture Probe                 ║\n")
	fmt.Printf("║                      Version %s                        ║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	if cfg.Camera.Device != "" {
		fmt.Printf("  Device:        %s\n", cfg.Camera.Device)
	} else {
		fmt.Printf("  Device:        (none - test source)\n")
	}
	fmt.Printf("  Resolution:    %s\n", cfg.Camera.Resolution)
	fmt.Printf("  Target FPS:    %d\n", cfg.Camera.FPS)
	fmt.Printf("  Measure:       %d seconds\n", cfg.Capture.MeasureSeconds)
	fmt.Printf("  Burst:         %d frames\n", cfg.Capture.BurstFrames)
	if cfg.Telemetry.Enabled {
		fmt.Printf("  Telemetry:     %s (%s)\n", cfg.Telemetry.Broker, cfg.Telemetry.BaseTopic)
	} else {
		fmt.Printf("  Telemetry:     disabled\n")
	}
	if *outputDir != "" {
		fmt.Printf("  Output Dir:    %s (%s)\n", *outputDir, *outputFormat)
	} else {
		fmt.Printf("  Output Dir:    (none - frames not saved)\n")
	}
	fmt.Printf("\n")

	// High-speed negotiation against the configured device profile
	chars, err := cfg.Characteristics()
	if err != nil {
		log.Fatalf("Invalid device profile: %v", err)
	}
	printNegotiation(chars, size)

	// Create the capture session
	backend, collect, backendName, err := newBackend(cfg, size)
	if err != nil {
		log.Fatalf("Failed to create capture session: %v", err)
	}
	slog.Info("capture session created", "backend", backendName, "source", cfg.Camera.Source)

	// Wire the probe's two outputs through a request processor
	previewSurface := capture.NewSurface("preview", cfg.Capture.SurfaceBuffer)
	stillSurface := capture.NewSurface("still", cfg.Capture.SurfaceBuffer)

	processor, err := capture.NewRequestProcessor(backend, []*capture.OutputBinding{
		capture.NewOutputBinding(outputPreview, previewSurface),
		capture.NewOutputBinding(outputStill, stillSurface),
	})
	if err != nil {
		log.Fatalf("Failed to create request processor: %v", err)
	}

	// Set up context with cancellation and graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Printf("\n\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	// Start the session
	slog.Info("Starting capture session...")
	if err := backend.Start(ctx); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	// Optional telemetry
	var emitter *telemetry.Emitter
	var commands *telemetry.CommandHandler
	if cfg.Telemetry.Enabled {
		emitter, commands = startTelemetry(ctx, cfg, processor, collect, cancel)
	}

	startTime := time.Now()

	// Launch stats reporter goroutine
	statsTicker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
	defer statsTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				stats := collect()
				printStatsBox(stats, time.Since(startTime))
				if emitter != nil {
					if err := emitter.PublishReport(stats); err != nil {
						slog.Debug("telemetry report failed", "error", err)
					}
				}
			}
		}
	}()

	previewCB := newProbeCallback()
	burstCB := newProbeCallback()

	// Phase 1: repeating preview + frame-rate measurement
	window := time.Duration(cfg.Capture.MeasureSeconds) * time.Second
	fmt.Printf("Measuring stream stability (%s)...\n", window)

	previewSeq := processor.SetRepeating(capture.NewRequest(capture.TemplatePreview, nil, outputPreview), previewCB)
	if previewSeq == capture.InvalidSequenceID {
		log.Fatalf("Failed to install repeating preview")
	}

	meterStats, completed := measureStream(ctx, previewSurface.Frames(), window)
	printMeasurement(meterStats)
	if !meterStats.IsStable && completed {
		fmt.Printf("\n⚠️  WARNING: Stream is unstable (high FPS variance or jitter)\n\n")
		if emitter != nil {
			emitter.PublishEvent("stream_unstable", map[string]any{
				"fps_mean":    meterStats.FPSMean,
				"fps_stddev":  meterStats.FPSStdDev,
				"jitter_mean": meterStats.JitterMean,
			})
		}
	}

	if completed {
		// Phase 2: stop the preview, run a still burst
		processor.StopRepeating()
		waitSequence(ctx, previewCB, previewSeq, 5*time.Second)

		runBurst(ctx, cfg, processor, burstCB, stillSurface, *outputDir, *outputFormat, *jpegQuality, emitter)

		// Phase 3: reinstall the preview and run until interrupted
		previewSeq = processor.SetRepeating(capture.NewRequest(capture.TemplatePreview, nil, outputPreview), previewCB)
		if previewSeq != capture.InvalidSequenceID {
			fmt.Printf("Preview running. Press Ctrl+C to stop gracefully\n")
			fmt.Printf("═══════════════════════════════════════════════════════════\n\n")
			runLive(ctx, previewSurface.Frames(), cfg.Camera.FPS)
		}
	}

	// Shutdown
	slog.Info("Stopping capture session...")
	processor.StopRepeating()
	processor.Close()
	if err := backend.Stop(); err != nil {
		slog.Error("Error stopping session", "error", err)
	}

	finalStats := collect()
	if emitter != nil {
		emitter.PublishEvent("probe_stopped", map[string]any{
			"frames_produced": finalStats.FramesProduced,
			"uptime_seconds":  time.Since(startTime).Seconds(),
		})
		if commands != nil {
			commands.Stop()
		}
		emitter.Disconnect()
	}

	printFinalStats(finalStats, previewCB, burstCB, time.Since(startTime))
	slog.Info("Capture probe completed")
}

// newBackend opens the GStreamer-backed session, falling back to the
// simulated one when GStreamer is unavailable or simulation is forced.
func newBackend(cfg *config.Config, size camera.Size) (captureBackend, func() sessionStats, string, error) {
	if !cfg.Camera.Simulate {
		gst, err := gstcapture.NewSession(gstcapture.Config{
			Device: cfg.Camera.Device,
			Source: cfg.Camera.Source,
			Size:   size,
			FPS:    cfg.Camera.FPS,
		})
		if err == nil {
			collect := func() sessionStats {
				st := gst.Stats()
				return sessionStats{
					FramesProduced:  st.FramesProduced,
					FramesDelivered: st.FramesDelivered,
					FramesIdle:      st.FramesIdle,
					BuffersLost:     st.BuffersLost,
					Failures:        st.Failures,
					BurstsSubmitted: st.BurstsSubmitted,
					BurstsCompleted: st.BurstsCompleted,
					BurstsAborted:   st.BurstsAborted,
					PendingBursts:   st.PendingBursts,
					RepeatingActive: st.RepeatingActive,
					BytesRead:       st.BytesRead,
					ErrorsDevice:    st.ErrorsDevice,
					ErrorsFormat:    st.ErrorsFormat,
					ErrorsUnknown:   st.ErrorsUnknown,
					FPSTarget:       st.FPSTarget,
					FPSReal:         st.FPSReal,
					Resolution:      st.Resolution,
					Source:          st.Source,
					IsRunning:       st.IsRunning,
					Failed:          st.Failed,
				}
			}
			return gst, collect, "gstreamer", nil
		}
		slog.Warn("GStreamer session unavailable, falling back to simulation", "error", err)
	}

	sim, err := simcapture.New(simcapture.Config{
		Width:  size.Width,
		Height: size.Height,
		FPS:    cfg.Camera.FPS,
		Source: cfg.Camera.Source,
	})
	if err != nil {
		return nil, nil, "", err
	}
	collect := func() sessionStats {
		st := sim.Stats()
		return sessionStats{
			FramesProduced:  st.FramesGenerated,
			FramesDelivered: st.FramesDelivered,
			FramesIdle:      st.FramesIdle,
			BuffersLost:     st.BuffersLost,
			BurstsSubmitted: st.BurstsSubmitted,
			BurstsCompleted: st.BurstsCompleted,
			BurstsAborted:   st.BurstsAborted,
			PendingBursts:   st.PendingBursts,
			RepeatingActive: st.RepeatingActive,
			FPSTarget:       st.FPSTarget,
			FPSReal:         st.FPSReal,
			Resolution:      st.Resolution,
			Source:          st.Source,
			IsRunning:       st.IsRunning,
		}
	}
	return sim, collect, "simulated", nil
}

// startTelemetry connects the emitter and command handler. Telemetry is
// best-effort: failures degrade to a warning, never stop the probe.
func startTelemetry(ctx context.Context, cfg *config.Config, processor *capture.RequestProcessor, collect func() sessionStats, shutdown context.CancelFunc) (*telemetry.Emitter, *telemetry.CommandHandler) {
	emitter, err := telemetry.NewEmitter(cfg.Telemetry.Broker, cfg.Telemetry.ClientID, cfg.Telemetry.BaseTopic)
	if err != nil {
		slog.Warn("telemetry disabled", "error", err)
		return nil, nil
	}
	if err := emitter.Connect(ctx); err != nil {
		slog.Warn("telemetry disabled", "error", err)
		return nil, nil
	}

	commands, err := telemetry.NewCommandHandler(emitter.Client, cfg.Telemetry.BaseTopic, telemetry.Callbacks{
		OnStatsRequest: func() map[string]any {
			return statsAsMap(collect())
		},
		OnStopRepeating: func() error {
			processor.StopRepeating()
			return nil
		},
		OnAbort: func() error {
			processor.AbortCaptures()
			return nil
		},
		OnShutdown: func() error {
			shutdown()
			return nil
		},
	})
	if err != nil {
		slog.Warn("command handler disabled", "error", err)
		return emitter, nil
	}
	if err := commands.Start(ctx); err != nil {
		slog.Warn("command handler disabled", "error", err)
		return emitter, nil
	}
	return emitter, commands
}

// runBurst submits a still burst, collects its frames, and optionally saves
// them to disk.
func runBurst(ctx context.Context, cfg *config.Config, processor *capture.RequestProcessor, cb *probeCallback, stills *capture.Surface, outputDir, format string, jpegQuality int, emitter *telemetry.Emitter) {
	count := cfg.Capture.BurstFrames
	fmt.Printf("Capturing still burst (%d frames)...\n", count)

	requests := make([]*capture.Request, count)
	for i := range requests {
		requests[i] = capture.NewRequest(capture.TemplateStillCapture, nil, outputStill)
	}

	seq := processor.SubmitBurst(requests, cb)
	if seq == capture.InvalidSequenceID {
		slog.Error("Burst submission rejected")
		return
	}

	// Allow one second per frame plus scheduling slack.
	timeout := time.Duration(count)*time.Second + 5*time.Second
	frames := collectFrames(ctx, stills.Frames(), count, timeout)
	done := waitSequence(ctx, cb, seq, timeout)

	saved := 0
	for _, frame := range frames {
		fmt.Printf("[%s] Still #%-3d | Frame: %-6d | Size: %6.1f KB | Trace: %s\n",
			frame.Timestamp.Format("15:04:05"),
			frame.Seq,
			frame.FrameNumber,
			float64(len(frame.Data))/1024,
			frame.TraceID,
		)
		if outputDir != "" {
			if err := saveFrame(outputDir, frame, format, jpegQuality); err != nil {
				slog.Error("Failed to save frame", "error", err, "frame", frame.FrameNumber)
			} else {
				saved++
			}
		}
	}

	fmt.Printf("Burst complete: %d/%d frames received, sequence done: %v\n\n", len(frames), count, done)

	if emitter != nil {
		emitter.PublishEvent("burst_completed", map[string]any{
			"sequence":        seq,
			"frames_expected": count,
			"frames_received": len(frames),
			"frames_saved":    saved,
		})
	}
}

// measureStream collects preview frame timestamps for the window and feeds
// them to the frame-rate meter. completed is false when interrupted early.
func measureStream(ctx context.Context, frames <-chan capture.Frame, window time.Duration) (*fpsmeter.Stats, bool) {
	var times []time.Time

	deadline := time.NewTimer(window)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return fpsmeter.Measure(times, window), false
		case <-deadline.C:
			return fpsmeter.Measure(times, window), true
		case frame, ok := <-frames:
			if !ok {
				return fpsmeter.Measure(times, window), false
			}
			times = append(times, frame.Timestamp)
		}
	}
}

// collectFrames drains up to want frames from a surface channel.
func collectFrames(ctx context.Context, frames <-chan capture.Frame, want int, timeout time.Duration) []capture.Frame {
	collected := make([]capture.Frame, 0, want)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for len(collected) < want {
		select {
		case <-ctx.Done():
			return collected
		case <-deadline.C:
			slog.Warn("Timed out waiting for burst frames", "received", len(collected), "expected", want)
			return collected
		case frame, ok := <-frames:
			if !ok {
				return collected
			}
			collected = append(collected, frame)
		}
	}
	return collected
}

// waitSequence blocks until the given sequence completes or aborts.
func waitSequence(ctx context.Context, cb *probeCallback, seq int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			slog.Warn("Timed out waiting for sequence", "sequence", seq)
			return false
		case got := <-cb.sequences:
			if got == seq {
				return true
			}
		}
	}
}

// runLive drains the preview stream until the context is canceled, logging
// a compact line roughly once per second.
func runLive(ctx context.Context, frames <-chan capture.Frame, fps int) {
	logEvery := uint64(fps)
	if logEvery == 0 {
		logEvery = 1
	}

	var count uint64
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			count++
			if count%logEvery == 0 {
				fmt.Printf("[%s] Preview | Seq: %-8d | Frame: %-6d | Size: %6.1f KB\n",
					time.Now().Format("15:04:05"),
					frame.Seq,
					frame.FrameNumber,
					float64(len(frame.Data))/1024,
				)
			}
		}
	}
}

// probeCallback counts capture events and signals sequence termination.
type probeCallback struct {
	capture.CallbackAdapter

	completed atomic.Uint64
	failed    atomic.Uint64
	lost      atomic.Uint64
	sequences chan int
}

func newProbeCallback() *probeCallback {
	return &probeCallback{sequences: make(chan int, 8)}
}

func (c *probeCallback) OnCaptureCompleted(req *capture.Request, result *capture.CaptureResult) {
	c.completed.Add(1)
}

func (c *probeCallback) OnCaptureFailed(req *capture.Request, failure *capture.CaptureFailure) {
	c.failed.Add(1)
	slog.Error("Capture failed", "reason", failure.Reason.String(), "frame", failure.FrameNumber)
}

func (c *probeCallback) OnCaptureBufferLost(req *capture.Request, frameNumber int64, outputID int) {
	c.lost.Add(1)
	slog.Warn("Buffer lost", "frame", frameNumber, "output", outputID)
}

func (c *probeCallback) OnCaptureSequenceCompleted(sequenceID int, frameNumber int64) {
	select {
	case c.sequences <- sequenceID:
	default:
	}
}

func (c *probeCallback) OnCaptureSequenceAborted(sequenceID int) {
	slog.Warn("Sequence aborted", "sequence", sequenceID)
	select {
	case c.sequences <- sequenceID:
	default:
	}
}

// printNegotiation reports what a constrained high-speed session could do
// on the configured device profile.
func printNegotiation(chars *camera.StaticCharacteristics, size camera.Size) {
	resolver := highspeed.New(chars)

	fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
	fmt.Printf("│ High-Speed Negotiation\n")
	fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
	fmt.Printf("│ Constrained high-speed:  %v\n", resolver.Supported())
	if maxSize, ok := resolver.MaxSize(); ok {
		fmt.Printf("│ Max high-speed size:     %s\n", maxSize)
	} else {
		fmt.Printf("│ Max high-speed size:     (none)\n")
	}
	for _, hsSize := range chars.HighSpeedSizes() {
		fmt.Printf("│   %-11s ranges:     %v\n", hsSize.String(), chars.HighSpeedFrameRateRangesFor(hsSize))
	}
	if maxRate := resolver.MaxFrameRate(camera.FormatPrivate, size); maxRate > 0 {
		fmt.Printf("│ Max rate at %-11s  %d fps\n", size.String()+":", maxRate)
		fmt.Printf("│ Fixed ranges (2 surfaces): %v\n", resolver.FrameRateRangesFor([]camera.Size{size, size}))
	} else {
		fmt.Printf("│ %s is not a high-speed size\n", size)
	}
	zoomMin, zoomMax := chars.ZoomRatioRange()
	fmt.Printf("│ Zoom ratio range:        [%.1f, %.1f]\n", zoomMin, zoomMax)
	fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
	fmt.Printf("\n")
}

// printMeasurement reports the frame-rate measurement results.
func printMeasurement(stats *fpsmeter.Stats) {
	fmt.Printf("\n")
	fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
	fmt.Printf("│ Measurement Complete\n")
	fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
	fmt.Printf("│ Frames Received:    %6d frames\n", stats.FramesReceived)
	fmt.Printf("│ Duration:           %6.1f seconds\n", stats.Duration.Seconds())
	fmt.Printf("│ FPS Mean:           %6.2f fps\n", stats.FPSMean)
	fmt.Printf("│ FPS StdDev:         %6.2f fps\n", stats.FPSStdDev)
	fmt.Printf("│ FPS Range:          %6.1f - %.1f fps\n", stats.FPSMin, stats.FPSMax)
	fmt.Printf("│ Jitter Mean:        %6.3f s\n", stats.JitterMean)
	fmt.Printf("│ Jitter Max:         %6.3f s\n", stats.JitterMax)
	fmt.Printf("│ Stable:             %6v\n", stats.IsStable)
	fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
	fmt.Printf("\n")
}

// printStatsBox reports periodic session statistics.
func printStatsBox(stats sessionStats, uptime time.Duration) {
	fmt.Printf("\n")
	fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
	fmt.Printf("│ Session Statistics (Uptime: %s)\n", uptime.Round(time.Second))
	fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
	fmt.Printf("│ Frames Produced:    %6d frames\n", stats.FramesProduced)
	fmt.Printf("│ Frames Delivered:   %6d frames\n", stats.FramesDelivered)
	fmt.Printf("│ Frames Idle:        %6d frames\n", stats.FramesIdle)
	if stats.BuffersLost > 0 {
		fmt.Printf("│ Buffers Lost:       %6d\n", stats.BuffersLost)
	}
	fmt.Printf("│ Bursts:             %6d submitted, %d completed, %d aborted\n",
		stats.BurstsSubmitted, stats.BurstsCompleted, stats.BurstsAborted)
	fmt.Printf("│ Repeating Active:   %6v\n", stats.RepeatingActive)
	fmt.Printf("│ Target FPS:         %6d fps\n", stats.FPSTarget)
	fmt.Printf("│ Real FPS:           %6.2f fps\n", stats.FPSReal)
	if stats.BytesRead > 0 {
		fmt.Printf("│ Bytes Read:         %6.2f MB\n", float64(stats.BytesRead)/1024/1024)
	}
	totalErrors := stats.ErrorsDevice + stats.ErrorsFormat + stats.ErrorsUnknown
	if totalErrors > 0 || stats.Failed {
		fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
		fmt.Printf("│ Device Errors:      %6d\n", stats.ErrorsDevice)
		fmt.Printf("│ Format Errors:      %6d\n", stats.ErrorsFormat)
		fmt.Printf("│ Unknown Errors:     %6d\n", stats.ErrorsUnknown)
		fmt.Printf("│ Failed:             %6v\n", stats.Failed)
	}
	fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
	fmt.Printf("\n")
}

// printFinalStats reports the end-of-run summary.
func printFinalStats(stats sessionStats, previewCB, burstCB *probeCallback, uptime time.Duration) {
	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("                     Final Statistics                      \n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("  Total Uptime:       %s\n", uptime.Round(time.Second))
	fmt.Printf("  Frames Produced:    %d frames\n", stats.FramesProduced)
	fmt.Printf("  Frames Delivered:   %d frames\n", stats.FramesDelivered)
	fmt.Printf("  Captures Completed: %d (preview %d, still %d)\n",
		previewCB.completed.Load()+burstCB.completed.Load(),
		previewCB.completed.Load(), burstCB.completed.Load())
	fmt.Printf("  Captures Failed:    %d\n", previewCB.failed.Load()+burstCB.failed.Load())
	fmt.Printf("  Buffers Lost:       %d\n", previewCB.lost.Load()+burstCB.lost.Load())
	fmt.Printf("  Average FPS:        %.2f fps\n", stats.FPSReal)
	if stats.BytesRead > 0 {
		fmt.Printf("  Bytes Read:         %.2f MB\n", float64(stats.BytesRead)/1024/1024)
	}
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("\n")
}

// statsAsMap converts a stats snapshot for the command response channel.
func statsAsMap(stats sessionStats) map[string]any {
	data, err := json.Marshal(stats)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"error": err.Error()}
	}
	return out
}

// saveFrame saves a frame to disk as PNG or JPEG.
func saveFrame(outputDir string, frame capture.Frame, format string, jpegQuality int) error {
	filename := fmt.Sprintf("still_%06d_%s.%s", frame.FrameNumber, frame.Timestamp.Format("20060102_150405.000"), format)
	path := filepath.Join(outputDir, filename)

	// Convert raw RGB bytes to image.Image (RGBA needs an alpha channel)
	img := &image.RGBA{
		Pix:    make([]uint8, frame.Width*frame.Height*4),
		Stride: frame.Width * 4,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}
	for i := 0; i < frame.Width*frame.Height; i++ {
		img.Pix[i*4+0] = frame.Data[i*3+0] // R
		img.Pix[i*4+1] = frame.Data[i*3+1] // G
		img.Pix[i*4+2] = frame.Data[i*3+2] // B
		img.Pix[i*4+3] = 255               // A (opaque)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	switch format {
	case "png":
		if err := png.Encode(file, img); err != nil {
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
	case "jpeg":
		if err := jpeg.Encode(file, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	return nil
}
