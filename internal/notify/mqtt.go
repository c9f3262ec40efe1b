// Package notify publishes finalization events to an MQTT broker so home
// automation can react when a trip or charge wraps up.
package notify

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"voltlog/internal/models"
)

const publishTimeout = 5 * time.Second

// MQTTNotifier publishes trip and charging finalization events. Publishing is
// best-effort; a broker outage is logged and never surfaces to the caller.
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

// NewMQTTNotifier connects to the broker. The broker URL carries optional
// credentials in its userinfo. mqtt:// and mqtts:// schemes map to paho's
// tcp:// and ssl://.
func NewMQTTNotifier(brokerURL, topic, clientID string, logger *zap.Logger) (*MQTTNotifier, error) {
	parsed, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mqtt broker url: %w", err)
	}

	var broker string
	switch parsed.Scheme {
	case "tcp", "ws", "wss":
		broker = brokerURL
	case "mqtt":
		broker = strings.Replace(brokerURL, "mqtt://", "tcp://", 1)
	case "mqtts":
		broker = strings.Replace(brokerURL, "mqtts://", "ssl://", 1)
	default:
		return nil, fmt.Errorf("unsupported mqtt scheme %q", parsed.Scheme)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetMaxReconnectInterval(10 * time.Second)
	if parsed.User != nil {
		opts.SetUsername(parsed.User.Username())
		if password, ok := parsed.User.Password(); ok {
			opts.SetPassword(password)
		}
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	logger.Info("mqtt notifier connected", zap.String("broker", parsed.Host), zap.String("topic", topic))
	return &MQTTNotifier{client: client, topic: topic, logger: logger}, nil
}

// TripClosed publishes a finalized trip.
func (n *MQTTNotifier) TripClosed(trip *models.Trip) {
	n.publish("trip_closed", trip)
}

// ChargingCompleted publishes a finalized charging session.
func (n *MQTTNotifier) ChargingCompleted(session *models.ChargingSession) {
	n.publish("charging_completed", session)
}

func (n *MQTTNotifier) publish(event string, payload any) {
	body, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		n.logger.Warn("notification marshal failed", zap.String("event", event), zap.Error(err))
		return
	}

	topic := n.topic + "/" + event
	token := n.client.Publish(topic, 1, false, body)
	if !token.WaitTimeout(publishTimeout) {
		n.logger.Warn("notification publish timed out", zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		n.logger.Warn("notification publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
