package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

const (
	// mqttKeepAlive is the keep-alive period announced to the broker.
	mqttKeepAlive = 30 * time.Second
	// mqttDisconnectQuiesce is how long Close waits for in-flight work, in milliseconds.
	mqttDisconnectQuiesce = 250
)

// errBrokerRequired is returned when no broker is configured.
var errBrokerRequired = errors.New("mqtt broker must be provided")

// payload is the JSON document published for every message.
type payload struct {
	Timestamp time.Time        `json:"timestamp"`
	Kind      door.MessageKind `json:"kind"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
}

// MQTT publishes notifications as JSON to a broker topic.
// The connection is opened on first use and kept by the client's auto-reconnect.
type MQTT struct {
	// cfg holds the broker settings.
	cfg config.MQTTNotify
	// client is created lazily.
	client mqtt.Client
	// mu protects client.
	mu sync.Mutex
}

// NewMQTT creates an MQTT notifier from settings.
func NewMQTT(cfg config.MQTTNotify) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, errBrokerRequired
	}

	if cfg.ClientID == "" {
		cfg.ClientID = config.DefaultMQTTClientID
	}

	if cfg.Topic == "" {
		cfg.Topic = config.DefaultMQTTTopic
	}

	return &MQTT{cfg: cfg}, nil
}

// Name returns the transport name.
func (m *MQTT) Name() string { return "mqtt" }

// Notify publishes msg and waits for the broker acknowledgement the QoS requires.
func (m *MQTT) Notify(ctx context.Context, msg door.Message) error {
	client, err := m.connect(ctx)
	if err != nil {
		return err
	}

	data, err := encodePayload(msg)
	if err != nil {
		return err
	}

	token := client.Publish(m.cfg.Topic, m.cfg.QoS, m.cfg.Retained, data)
	if err = waitToken(ctx, token); err != nil {
		return fmt.Errorf("publish to %s: %w", m.cfg.Topic, err)
	}

	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		m.client.Disconnect(mqttDisconnectQuiesce)
		m.client = nil
	}
}

// connect returns a connected client, connecting on first use.
func (m *MQTT) connect(ctx context.Context) (mqtt.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(m.cfg.Broker).
		SetClientID(m.cfg.ClientID).
		SetUsername(m.cfg.Username).
		SetPassword(m.cfg.Password).
		SetKeepAlive(mqttKeepAlive).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WarnKV(ctx, "MQTT connection lost", "broker", m.cfg.Broker, "error", err)
		})

	client := mqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", m.cfg.Broker, err)
	}

	logger.InfoKV(ctx, "Connected to MQTT broker", "broker", m.cfg.Broker, "topic", m.cfg.Topic)

	m.client = client

	return client, nil
}

// waitToken waits for the token or the context, whichever finishes first.
func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// encodePayload renders the JSON document for msg.
func encodePayload(msg door.Message) ([]byte, error) {
	data, err := json.Marshal(payload{
		Timestamp: msg.Timestamp,
		Kind:      msg.Kind,
		Subject:   msg.Subject,
		Body:      msg.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}

	return data, nil
}
