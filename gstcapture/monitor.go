package gstcapture

import (
	"context"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/camera-session/capture"
)

// busPollInterval keeps bus polling responsive to shutdown.
const busPollInterval = 50 * time.Millisecond

// monitorBus watches the pipeline bus until the context is cancelled or the
// pipeline dies. Capture sessions are terminal: a fatal error or end of
// stream fails the in-flight capture and marks the session failed; it is not
// restarted.
func (s *Session) monitorBus(ctx context.Context) {
	defer s.wg.Done()

	bus := s.elements.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("gstcapture: context cancelled, stopping bus monitor")
			return

		default:
			msg := bus.TimedPop(busPollInterval)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				slog.Error("gstcapture: end of stream",
					"source", s.cfg.Source,
					"uptime", time.Since(s.started),
				)
				s.failSession(capture.FailureReasonError)
				return

			case gst.MessageError:
				gerr := msg.ParseError()
				category := classifyGError(gerr)

				switch category {
				case ErrCategoryDevice:
					s.errorsDevice.Add(1)
				case ErrCategoryFormat:
					s.errorsFormat.Add(1)
				default:
					s.errorsUnknown.Add(1)
				}

				slog.Error("gstcapture: pipeline error",
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
					"category", category.String(),
					"source", s.cfg.Source,
					"uptime", time.Since(s.started),
				)
				s.failSession(capture.FailureReasonError)
				return

			case gst.MessageStateChanged:
				if msg.Source() == s.elements.pipeline.GetName() {
					old, next := msg.ParseStateChanged()
					slog.Debug("gstcapture: pipeline state changed",
						"from", old,
						"to", next,
					)
					if next == gst.StatePlaying {
						slog.Info("gstcapture: pipeline playing", "source", s.cfg.Source)
					}
				}
			}
		}
	}
}

// failSession records the terminal failure and fails the in-flight capture.
func (s *Session) failSession(reason capture.FailureReason) {
	s.failed.Store(true)
	s.engine.Fail(reason)
}
