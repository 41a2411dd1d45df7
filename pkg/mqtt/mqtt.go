package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/olt-gateway/pkg/file"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTClient defines the interface for an MQTT client.
type MQTTClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

// Options holds the broker connection parameters.
type Options struct {
	Broker         string
	Port           int
	ClientID       string
	Username       string
	Password       string
	CACertificate  string
	ConnectTimeout time.Duration
}

// BrokerURL returns the paho broker URL, switching to ssl:// when a CA certificate is configured.
func (o Options) BrokerURL() string {
	scheme := "tcp"
	if o.CACertificate != "" {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, o.Broker, o.Port)
}

type subscription struct {
	qos     byte
	handler mqtt.MessageHandler
}

// MqttService provides methods for MQTT operations.
type MqttService struct {
	client     MQTTClient
	fileClient file.FileOperations
	logger     zerolog.Logger

	subsMu        sync.Mutex
	subscriptions map[string]subscription
	connectedOnce bool
}

// NewMqttService creates a new MqttService instance.
func NewMqttService(fileClient file.FileOperations, logger zerolog.Logger) *MqttService {
	return &MqttService{
		fileClient:    fileClient,
		logger:        logger.With().Str("component", "mqtt").Logger(),
		subscriptions: make(map[string]subscription),
	}
}

// Initialize sets up the MQTT client and starts the connection.
func (s *MqttService) Initialize(o Options) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.BrokerURL())
	opts.SetClientID(o.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	// Handlers block on device sessions and wait for publish acks.
	opts.SetOrderMatters(false)
	if o.ConnectTimeout > 0 {
		opts.SetConnectTimeout(o.ConnectTimeout)
	}
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	if o.CACertificate != "" {
		caCert, err := s.fileClient.ReadFileRaw(o.CACertificate)
		if err != nil {
			return fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return fmt.Errorf("failed to append CA certificate")
		}
		opts.SetTLSConfig(&tls.Config{RootCAs: caCertPool})
	}

	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	s.client = mqtt.NewClient(opts)

	token := s.Connect()
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	s.logger.Info().Str("broker", o.BrokerURL()).Str("client_id", o.ClientID).Msg("Connected to MQTT broker")
	return nil
}

// onConnect restores subscriptions after an automatic reconnect; clean sessions drop them on the broker side.
func (s *MqttService) onConnect(client mqtt.Client) {
	s.restoreSubscriptions(client)
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

func (s *MqttService) restoreSubscriptions(client subscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if !s.connectedOnce {
		s.connectedOnce = true
		return
	}

	for topic, sub := range s.subscriptions {
		token := client.Subscribe(topic, sub.qos, sub.handler)
		if token.Wait() && token.Error() != nil {
			s.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to restore subscription")
			continue
		}
		s.logger.Info().Str("topic", topic).Msg("Subscription restored after reconnect")
	}
}

// Connect connects to the MQTT broker.
func (s *MqttService) Connect() mqtt.Token {
	return s.client.Connect()
}

// Publish sends a message to the specified topic.
func (s *MqttService) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return s.client.Publish(topic, qos, retained, payload)
}

// Subscribe subscribes to the specified topic with a message handler.
func (s *MqttService) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	s.subsMu.Lock()
	s.subscriptions[topic] = subscription{qos: qos, handler: callback}
	s.subsMu.Unlock()

	return s.client.Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes from the specified topics.
func (s *MqttService) Unsubscribe(topics ...string) mqtt.Token {
	s.subsMu.Lock()
	for _, topic := range topics {
		delete(s.subscriptions, topic)
	}
	s.subsMu.Unlock()

	return s.client.Unsubscribe(topics...)
}

// Disconnect gracefully disconnects the MQTT client.
func (s *MqttService) Disconnect(quiesce uint) {
	s.client.Disconnect(quiesce)
}
