package mqtt

import (
	"errors"
	"testing"

	"github.com/benmeehan/olt-gateway/internal/mocks"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestOptions_BrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://broker.local:1883", Options{Broker: "broker.local", Port: 1883}.BrokerURL())
	assert.Equal(t, "ssl://broker.local:8883", Options{Broker: "broker.local", Port: 8883, CACertificate: "ca.pem"}.BrokerURL())
}

func TestInitialize_BadCACertificate(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("ReadFileRaw", "ca.pem").Return([]byte("not a certificate"), nil)

	s := NewMqttService(fileClient, zerolog.Nop())
	err := s.Initialize(Options{Broker: "localhost", Port: 8883, ClientID: "t", CACertificate: "ca.pem"})

	assert.EqualError(t, err, "failed to append CA certificate")
}

func TestInitialize_MissingCACertificate(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("ReadFileRaw", "ca.pem").Return(nil, errors.New("no such file"))

	s := NewMqttService(fileClient, zerolog.Nop())
	err := s.Initialize(Options{Broker: "localhost", Port: 8883, ClientID: "t", CACertificate: "ca.pem"})

	assert.ErrorContains(t, err, "failed to read CA certificate")
}

func TestMqttService_RestoresSubscriptionsOnReconnect(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	s := NewMqttService(new(mocks.MockFileOperations), zerolog.Nop())
	s.client = client

	handler := func(mqtt.Client, mqtt.Message) {}
	client.On("Subscribe", "olt/cmd", byte(1), mock.Anything).Return(mocks.NewCompletedToken(nil))
	client.On("Subscribe", "olt/other", byte(0), mock.Anything).Return(mocks.NewCompletedToken(nil))
	client.On("Unsubscribe", []string{"olt/other"}).Return(mocks.NewCompletedToken(nil))

	s.Subscribe("olt/cmd", 1, handler)
	s.Subscribe("olt/other", 0, handler)
	s.Unsubscribe("olt/other")

	// The initial connect does not resubscribe.
	s.restoreSubscriptions(client)
	client.AssertNumberOfCalls(t, "Subscribe", 2)

	// A reconnect restores only the live subscription.
	s.restoreSubscriptions(client)
	client.AssertNumberOfCalls(t, "Subscribe", 3)
	client.AssertExpectations(t)
}
