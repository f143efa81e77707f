// Package telemetry publishes announced wake/sleep transitions to an MQTT
// broker so downstream consumers (dashboards, automations) can react
// without polling the gateway's HTTP API.
package telemetry

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/slumber.report/internal/actigraphy"
	"github.com/banshee-data/slumber.report/internal/monitoring"
)

// Options configures the publisher. An empty Broker disables publishing
// entirely.
type Options struct {
	Broker          string // host:port
	Topic           string
	Username        string
	Password        string
	UseTLS          bool
	InsecureSkipTLS bool
	DeviceID        string
}

// StatePayload is the JSON message published on each transition. Messages
// are retained so a late subscriber immediately learns the current state.
type StatePayload struct {
	DeviceID    string  `json:"device_id"`
	State       uint8   `json:"state"`
	StateName   string  `json:"state_name"`
	TimeSeconds float64 `json:"time_s"`
	PublishedAt string  `json:"published_at"`
}

// Publisher wraps a paho MQTT client for transition publishing.
type Publisher struct {
	opts   Options
	client mqtt.Client
}

// NewPublisher creates a publisher; call Connect before publishing.
func NewPublisher(opts Options) *Publisher {
	if opts.Topic == "" {
		opts.Topic = "slumber/state"
	}
	if opts.DeviceID == "" {
		opts.DeviceID = "slumber"
	}
	return &Publisher{opts: opts}
}

// Topic returns the topic transitions are published on.
func (p *Publisher) Topic() string {
	return p.opts.Topic
}

// Connect establishes the broker session with automatic reconnection.
func (p *Publisher) Connect() error {
	protocol := "tcp"
	if p.opts.UseTLS {
		protocol = "tls"
	}
	brokerURL := fmt.Sprintf("%s://%s", protocol, p.opts.Broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("slumber-%s-%d", p.opts.DeviceID, time.Now().Unix()))

	if p.opts.Username != "" {
		opts.SetUsername(p.opts.Username)
		opts.SetPassword(p.opts.Password)
	}
	if p.opts.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: p.opts.InsecureSkipTLS,
		})
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		monitoring.Logf("[mqtt] connected to %s", brokerURL)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		monitoring.Logf("[mqtt] connection lost: %v", err)
	}

	p.client = mqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connect timeout to %s", brokerURL)
	}
	if token.Error() != nil {
		return fmt.Errorf("mqtt connect failed: %w", token.Error())
	}
	return nil
}

// PublishTransition publishes one announced state change, retained at
// QoS 1.
func (p *Publisher) PublishTransition(state actigraphy.State, timeSeconds float64) error {
	payload := StatePayload{
		DeviceID:    p.opts.DeviceID,
		State:       uint8(state),
		StateName:   state.String(),
		TimeSeconds: timeSeconds,
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal state payload: %w", err)
	}

	token := p.client.Publish(p.opts.Topic, 1, true, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt publish timeout on %s", p.opts.Topic)
	}
	return token.Error()
}

// Close disconnects from the broker, allowing in-flight messages a short
// grace period.
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
