// Package alert publishes recognized scans to an MQTT broker.
package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/monitor"
)

const (
	qos            = 1
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

var ErrNotConnected = errors.New("mqtt not connected")

// publisher is the part of mqtt.Client the emitter needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Message is the alert payload.
type Message struct {
	ScanID     string    `json:"scan_id"`
	Verdict    string    `json:"verdict"`
	Label      string    `json:"label"`
	PersonID   int       `json:"person_id,omitempty"`
	CaseFile   string    `json:"case_file,omitempty"`
	Offense    string    `json:"offense,omitempty"`
	Confidence float64   `json:"confidence"`
	Backend    string    `json:"backend"`
	Fabricated bool      `json:"fabricated,omitempty"`
	At         time.Time `json:"at"`
}

// NewMessage builds the payload for a scan report.
func NewMessage(report monitor.ScanReport) Message {
	msg := Message{
		ScanID:     report.ID,
		Verdict:    string(report.Verdict),
		Label:      report.Result.MatchedLabel,
		Confidence: report.Result.Confidence,
		Backend:    report.Result.Backend,
		Fabricated: report.Result.Fabricated,
		At:         report.FinishedAt,
	}
	if p := report.Result.MatchedPerson; p != nil {
		msg.PersonID = p.ID
		msg.CaseFile = p.CaseFile
		msg.Offense = p.Offense
	}
	return msg
}

// Stats counts publications.
type Stats struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Errors    uint64 `json:"errors"`
}

// Emitter publishes alerts for recognized scans. It implements monitor.Notifier.
type Emitter struct {
	broker string
	topic  string
	logger *slog.Logger

	client mqtt.Client
	pub    publisher

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// NewEmitter creates an emitter for cfg. Call Connect before publishing.
func NewEmitter(cfg *config.AlertConfig, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		broker: cfg.Broker,
		topic:  cfg.Topic,
		logger: logger,
	}
}

// Connect establishes the broker connection. Reconnects are automatic afterwards.
func (e *Emitter) Connect(clientID string) error {
	if clientID == "" {
		clientID = "facewatch-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		e.setConnected(true)
		e.logger.Info("mqtt connection established", "broker", e.broker, "client_id", clientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		e.setConnected(false)
		e.logger.Warn("mqtt connection lost, will auto-reconnect", "broker", e.broker, "error", err)
	}

	e.client = mqtt.NewClient(opts)
	e.pub = e.client

	e.logger.Info("connecting to mqtt broker", "broker", e.broker)
	token := e.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.New("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

func (e *Emitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *Emitter) fail() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

// Notify publishes a recognized scan; other verdicts are ignored.
func (e *Emitter) Notify(ctx context.Context, report monitor.ScanReport) error {
	if !report.Result.IsMatch {
		return nil
	}
	return e.Publish(ctx, NewMessage(report))
}

// Publish sends one alert to the configured topic.
func (e *Emitter) Publish(ctx context.Context, msg Message) error {
	e.mu.RLock()
	ok := e.connected && e.pub != nil
	e.mu.RUnlock()
	if !ok {
		e.fail()
		return ErrNotConnected
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		e.fail()
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	token := e.pub.Publish(e.topic, qos, false, payload)
	select {
	case <-token.Done():
	case <-time.After(publishTimeout):
		e.fail()
		return errors.New("publish timeout")
	case <-ctx.Done():
		e.fail()
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		e.fail()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()

	e.logger.Info("alert published", "topic", e.topic, "scan_id", msg.ScanID, "label", msg.Label)
	return nil
}

// Stats returns publication counters.
func (e *Emitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{Connected: e.connected, Published: e.published, Errors: e.errors}
}

// Disconnect closes the broker connection.
func (e *Emitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		e.logger.Info("mqtt disconnected")
	}
	e.setConnected(false)
}
