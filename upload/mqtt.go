package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/taigrr/iwls/types"
)

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	Loop     string
	QoS      byte
}

// MQTT publishes batches as JSON to <topic>/<loop>.
type MQTT struct {
	client paho.Client
	topic  string
	qos    byte
}

// DialMQTT connects to the broker.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID(cfg.ClientID))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(30*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return NewMQTT(client, cfg.Topic, cfg.Loop, cfg.QoS), nil
}

// clientID keeps agents sharing a broker from kicking each other off.
func clientID(id string) string {
	if id != "" {
		return id
	}
	return "iwls-" + uuid.NewString()
}

// NewMQTT wraps an existing client.
func NewMQTT(client paho.Client, topic, loop string, qos byte) *MQTT {
	if loop != "" {
		topic = topic + "/" + loop
	}
	return &MQTT{client: client, topic: topic, qos: qos}
}

func (m *MQTT) Topic() string { return m.topic }

func (m *MQTT) Send(ctx context.Context, set types.MetricSet) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	token := m.client.Publish(m.topic, m.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", m.topic, err)
	}
	return nil
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
