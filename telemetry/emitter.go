// Package telemetry publishes session reports and events over MQTT and
// accepts remote control commands for a running capture session.
//
// Topic layout under a configurable base topic:
//
//	<base>/report    periodic session statistics (QoS 0)
//	<base>/event     discrete occurrences like failures (QoS 1)
//	<base>/command   inbound control commands (QoS 1)
//	<base>/response  command acknowledgements (QoS 1)
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
	topicReport   = "report"
	topicEvent    = "event"
	topicCommand  = "command"
	topicResponse = "response"
)

const (
	qosReport  byte = 0
	qosEvent   byte = 1
	qosCommand byte = 1
)

const (
	connectTimeout   = 5 * time.Second
	subscribeTimeout = 5 * time.Second
	publishTimeout   = 2 * time.Second
)

const (
	defaultClientID  = "capture-probe"
	defaultBaseTopic = "camera-session"
)

// Emitter publishes session telemetry to an MQTT broker.
type Emitter struct {
	addr      string
	clientID  string
	baseTopic string

	// Client is exported so a CommandHandler can share the connection.
	Client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published map[string]uint64
	errors    uint64
}

// Stats contains emitter statistics.
type Stats struct {
	Connected bool
	Published map[string]uint64 // count per topic
	Errors    uint64
}

// Event is a discrete occurrence worth reporting, like a capture failure
// or a completed burst.
type Event struct {
	Name      string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEmitter creates an emitter for the broker at addr ("host:port").
// Empty clientID and baseTopic fall back to defaults.
func NewEmitter(addr, clientID, baseTopic string) (*Emitter, error) {
	if addr == "" {
		return nil, fmt.Errorf("telemetry: broker address is required")
	}
	if clientID == "" {
		clientID = defaultClientID
	}
	if baseTopic == "" {
		baseTopic = defaultBaseTopic
	}
	return &Emitter{
		addr:      addr,
		clientID:  clientID,
		baseTopic: baseTopic,
		published: make(map[string]uint64),
	}, nil
}

// Connect establishes the broker connection. Auto-reconnect stays on for
// the life of the emitter, so a lost connection recovers without help.
func (e *Emitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.addr))
	opts.SetClientID(e.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.mu.Unlock()
		slog.Info("telemetry: broker connection established",
			"broker", e.addr,
			"client_id", e.clientID)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		slog.Warn("telemetry: broker connection lost, waiting for auto-reconnect",
			"error", err,
			"broker", e.addr)
	}

	e.Client = mqtt.NewClient(opts)

	slog.Info("telemetry: connecting to broker", "broker", e.addr)

	token := e.Client.Connect()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	case <-time.After(connectTimeout):
		return fmt.Errorf("telemetry: connect timeout after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: connect failed: %w", err)
	}

	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()

	return nil
}

// PublishReport publishes a JSON-encoded report, typically a session
// stats snapshot, to <base>/report.
func (e *Emitter) PublishReport(report any) error {
	payload, err := json.Marshal(report)
	if err != nil {
		e.recordError()
		return fmt.Errorf("telemetry: marshal report: %w", err)
	}
	return e.publish(e.topic(topicReport), qosReport, payload)
}

// PublishEvent publishes a named event with optional data to <base>/event.
func (e *Emitter) PublishEvent(name string, data map[string]any) error {
	payload, err := json.Marshal(Event{
		Name:      name,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Data:      data,
	})
	if err != nil {
		e.recordError()
		return fmt.Errorf("telemetry: marshal event: %w", err)
	}
	return e.publish(e.topic(topicEvent), qosEvent, payload)
}

// Disconnect closes the broker connection.
func (e *Emitter) Disconnect() error {
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(250) // 250ms grace period
		slog.Info("telemetry: disconnected")
	}

	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()

	return nil
}

// Stats returns a snapshot of emitter statistics.
func (e *Emitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}

	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
	}
}

func (e *Emitter) publish(topic string, qos byte, payload []byte) error {
	if !e.isConnected() {
		e.recordError()
		return fmt.Errorf("telemetry: not connected")
	}

	token := e.Client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.recordError()
		return fmt.Errorf("telemetry: publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		e.recordError()
		return fmt.Errorf("telemetry: publish on %s failed: %w", topic, err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	slog.Debug("telemetry: published",
		"topic", topic,
		"qos", qos,
		"size", len(payload))

	return nil
}

func (e *Emitter) topic(leaf string) string {
	return e.baseTopic + "/" + leaf
}

func (e *Emitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *Emitter) recordError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
