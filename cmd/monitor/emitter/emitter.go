// Package emitter publishes decoded frame summaries to an MQTT broker.
//
// Publishing is optional: the monitor only constructs an Emitter when a
// broker is configured. Each decoded frame is published as a JSON summary to
// <topic>/<deviceCode> at QoS 1. The underlying client reconnects
// automatically, and publish failures are reported to the caller rather than
// retried here.
package emitter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/HatiCode/dtstail/pkg/profile"
	"github.com/HatiCode/dtstail/pkg/storage"
)

type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string // topic prefix; the device code is appended
	Username string
	Password string
	ClientID string
}

type Emitter struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
}

// FrameMessage is the JSON payload published for each decoded frame. The
// shape matches the HTTP API's /frame/current response.
type FrameMessage struct {
	DeviceCode string          `json:"deviceCode"`
	SampleTime string          `json:"sampleTime"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Summary    profile.Summary `json:"summary"`
}

// New creates an emitter for the given broker. The connection is not
// established until Connect is called.
func New(opts Options, logger *slog.Logger) (*Emitter, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("broker cannot be empty")
	}
	if opts.Topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientID := opts.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("dtstail-%d", time.Now().Unix())
	}

	copts := mqtt.NewClientOptions()
	copts.AddBroker(opts.Broker)
	copts.SetClientID(clientID)
	if opts.Username != "" {
		copts.SetUsername(opts.Username)
		copts.SetPassword(opts.Password)
	}
	copts.SetAutoReconnect(true)
	copts.SetConnectRetry(true)
	copts.SetConnectRetryInterval(2 * time.Second)
	copts.SetMaxReconnectInterval(30 * time.Second)

	copts.OnConnect = func(c mqtt.Client) {
		logger.Info("mqtt connection established", "broker", opts.Broker, "client_id", clientID)
	}
	copts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, will auto-reconnect", "broker", opts.Broker, "error", err)
	}

	return &Emitter{
		client: mqtt.NewClient(copts),
		topic:  opts.Topic,
		logger: logger,
	}, nil
}

// Connect establishes the connection to the MQTT broker.
func (e *Emitter) Connect() error {
	token := e.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

// Publish sends the snapshot's summary to <topic>/<deviceCode> at QoS 1.
func (e *Emitter) Publish(snapshot storage.Snapshot) error {
	topic := fmt.Sprintf("%s/%s", e.topic, snapshot.DeviceCode)

	payload, err := json.Marshal(FrameMessage{
		DeviceCode: snapshot.DeviceCode,
		SampleTime: snapshot.SampleTime,
		ReceivedAt: snapshot.ReceivedAt,
		Summary:    snapshot.Summary,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal frame message: %w", err)
	}

	token := e.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	e.logger.Debug("frame summary published", "topic", topic, "size", len(payload))

	return nil
}

// Disconnect closes the MQTT connection with a short grace period.
func (e *Emitter) Disconnect() {
	if e.client.IsConnected() {
		e.client.Disconnect(250)
		e.logger.Info("mqtt disconnected")
	}
}
