package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Command is a control request received on <base>/command.
type Command struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Response acknowledges a command on <base>/response.
type Response struct {
	Ack       string         `json:"ack"`
	Status    string         `json:"status"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Callbacks connects control commands to session operations. A nil entry
// reports the matching action as unsupported.
type Callbacks struct {
	OnStatsRequest  func() map[string]any
	OnStopRepeating func() error
	OnAbort         func() error
	OnShutdown      func() error
}

// CommandHandler subscribes to the command topic and dispatches control
// actions to the session. Commands run on a single goroutine so callbacks
// never execute concurrently.
type CommandHandler struct {
	client    mqtt.Client
	baseTopic string
	callbacks Callbacks

	commands chan Command
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewCommandHandler creates a handler on an already connected client,
// typically the one owned by an Emitter.
func NewCommandHandler(client mqtt.Client, baseTopic string, callbacks Callbacks) (*CommandHandler, error) {
	if client == nil {
		return nil, fmt.Errorf("telemetry: command handler requires a client")
	}
	if baseTopic == "" {
		baseTopic = defaultBaseTopic
	}
	return &CommandHandler{
		client:    client,
		baseTopic: baseTopic,
		callbacks: callbacks,
		commands:  make(chan Command, 10),
	}, nil
}

// Start subscribes to the command topic and begins processing.
func (h *CommandHandler) Start(ctx context.Context) error {
	topic := h.topic(topicCommand)

	slog.Info("telemetry: subscribing to command topic", "topic", topic)

	token := h.client.Subscribe(topic, qosCommand, h.onMessage)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("telemetry: subscribe timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: subscribe on %s failed: %w", topic, err)
	}

	ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go h.run(ctx)

	slog.Info("telemetry: command handler started")
	return nil
}

// Stop unsubscribes and waits for in-flight commands to finish.
func (h *CommandHandler) Stop() error {
	if h.client.IsConnected() {
		token := h.client.Unsubscribe(h.topic(topicCommand))
		token.WaitTimeout(publishTimeout)
	}

	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()

	slog.Info("telemetry: command handler stopped")
	return nil
}

// onMessage parses inbound commands and queues them for processing.
// Parse errors are acknowledged immediately so the sender sees them.
func (h *CommandHandler) onMessage(_ mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		slog.Error("telemetry: failed to parse command", "error", err)
		h.respond(Response{Ack: "unknown", Status: statusError, Error: "invalid JSON"})
		return
	}

	slog.Info("telemetry: command received", "action", cmd.Action)

	select {
	case h.commands <- cmd:
	default:
		slog.Warn("telemetry: command queue full, dropping", "action", cmd.Action)
	}
}

func (h *CommandHandler) run(ctx context.Context) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			h.handle(cmd)
		}
	}
}

func (h *CommandHandler) handle(cmd Command) {
	resp := Response{Ack: cmd.Action}

	switch cmd.Action {
	case "stats":
		if h.callbacks.OnStatsRequest == nil {
			resp.Status = statusError
			resp.Error = "stats not supported"
			break
		}
		resp.Status = statusSuccess
		resp.Data = h.callbacks.OnStatsRequest()

	case "stop_repeating":
		if h.callbacks.OnStopRepeating == nil {
			resp.Status = statusError
			resp.Error = "stop_repeating not supported"
			break
		}
		if err := h.callbacks.OnStopRepeating(); err != nil {
			resp.Status = statusError
			resp.Error = err.Error()
			break
		}
		resp.Status = statusSuccess
		resp.Data = map[string]any{"repeating_active": false}

	case "abort":
		if h.callbacks.OnAbort == nil {
			resp.Status = statusError
			resp.Error = "abort not supported"
			break
		}
		if err := h.callbacks.OnAbort(); err != nil {
			resp.Status = statusError
			resp.Error = err.Error()
			break
		}
		resp.Status = statusSuccess
		resp.Data = map[string]any{"captures_aborted": true}

	case "shutdown":
		if h.callbacks.OnShutdown == nil {
			resp.Status = statusError
			resp.Error = "shutdown not supported"
			break
		}
		slog.Warn("telemetry: shutdown requested over command topic")
		resp.Status = statusSuccess
		resp.Data = map[string]any{"shutdown_initiated": true}
		// Ack first so the response goes out before the connection drops.
		h.respond(resp)
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := h.callbacks.OnShutdown(); err != nil {
				slog.Error("telemetry: shutdown callback failed", "error", err)
			}
		}()
		return

	default:
		resp.Status = statusError
		resp.Error = fmt.Sprintf("unknown action: %q", cmd.Action)
	}

	h.respond(resp)
}

func (h *CommandHandler) respond(resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("telemetry: failed to marshal response", "error", err)
		return
	}

	token := h.client.Publish(h.topic(topicResponse), qosCommand, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		slog.Error("telemetry: response publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		slog.Error("telemetry: response publish failed", "error", err)
		return
	}

	slog.Debug("telemetry: response sent", "ack", resp.Ack, "status", resp.Status)
}

func (h *CommandHandler) topic(leaf string) string {
	return h.baseTopic + "/" + leaf
}
