package services

import (
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/benmeehan/olt-gateway/internal/mocks"
	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMQTTPublisher_PublishJSON(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "olt/data", byte(1), false, []byte(`{"olt":"OLT1","vendor":"huawei","output":"up"}`)).
		Return(mocks.NewCompletedToken(nil)).Once()

	p := NewMQTTPublisher(client, 1, time.Second, metrics.New(), zerolog.Nop())
	err := p.PublishJSON("olt/data", models.InterfaceStatus{OLT: "OLT1", Vendor: "huawei", Output: "up"})

	assert.NoError(t, err)
	client.AssertExpectations(t)
}

func TestMQTTPublisher_PublishJSON_Error(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "olt/onu", byte(0), false, mock.Anything).Return(mocks.NewCompletedToken(errors.New("not connected")))

	m := metrics.New()
	p := NewMQTTPublisher(client, 0, time.Second, m, zerolog.Nop())
	err := p.PublishJSON("olt/onu", models.SubscriberData{OLT: "OLT1"})

	assert.EqualError(t, err, "not connected")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PublishFailures.WithLabelValues("olt/onu")))
}

func TestMQTTPublisher_PublishJSON_Timeout(t *testing.T) {
	token := new(mocks.MockToken)
	token.On("WaitTimeout", 50*time.Millisecond).Return(false)
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "olt/cmd/result", byte(1), false, mock.Anything).Return(token)

	m := metrics.New()
	p := NewMQTTPublisher(client, 1, 50*time.Millisecond, m, zerolog.Nop())
	err := p.PublishJSON("olt/cmd/result", models.CmdResponse{OLT: "OLT1", Command: "show", Result: "x"})

	assert.ErrorContains(t, err, "timed out")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PublishFailures.WithLabelValues("olt/cmd/result")))
	token.AssertNotCalled(t, "Error")
}

func TestMQTTPublisher_PublishJSON_MarshalError(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	p := NewMQTTPublisher(client, 1, time.Second, metrics.New(), zerolog.Nop())

	err := p.PublishJSON("olt/data", make(chan int))

	assert.Error(t, err)
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
