package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/benmeehan/olt-gateway/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Publisher publishes JSON payloads on the message bus.
type Publisher interface {
	PublishJSON(topic string, payload any) error
}

// MQTTPublisher implements Publisher over an MQTT client.
type MQTTPublisher struct {
	mqttClient mqtt.MQTTClient
	qos        int
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewMQTTPublisher creates a publisher that waits up to timeout for each acknowledgement.
func NewMQTTPublisher(mqttClient mqtt.MQTTClient, qos int, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		mqttClient: mqttClient,
		qos:        qos,
		timeout:    timeout,
		metrics:    m,
		logger:     logger,
	}
}

// PublishJSON serializes payload and publishes it to topic.
func (p *MQTTPublisher) PublishJSON(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload for %s: %w", topic, err)
	}

	token := p.mqttClient.Publish(topic, byte(p.qos), false, data)
	if !token.WaitTimeout(p.timeout) {
		p.metrics.PublishFailures.WithLabelValues(topic).Inc()
		p.logger.Error().Str("topic", topic).Dur("timeout", p.timeout).Msg("Timed out publishing MQTT message")
		return fmt.Errorf("publish to %s timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		p.metrics.PublishFailures.WithLabelValues(topic).Inc()
		p.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish MQTT message")
		return err
	}

	p.logger.Debug().Str("topic", topic).Int("bytes", len(data)).Msg("Published MQTT message")
	return nil
}
