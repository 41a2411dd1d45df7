package service_registry

import (
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/olt-gateway/internal/constants"
	"github.com/benmeehan/olt-gateway/internal/inventory"
	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/benmeehan/olt-gateway/internal/mocks"
	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/benmeehan/olt-gateway/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name     string
	startErr error
	events   *[]string
}

func (s *recordingService) Start() error {
	*s.events = append(*s.events, "start "+s.name)
	return s.startErr
}

func (s *recordingService) Stop() error {
	*s.events = append(*s.events, "stop "+s.name)
	return nil
}

func TestServiceRegistry_StartStopOrder(t *testing.T) {
	var events []string
	sr := NewServiceRegistry(zerolog.Nop())
	sr.RegisterService("a", &recordingService{name: "a", events: &events})
	sr.RegisterService("b", &recordingService{name: "b", events: &events})
	sr.RegisterService("a", &recordingService{name: "dup", events: &events})

	require.NoError(t, sr.StartServices())
	require.NoError(t, sr.StopServices())

	assert.Equal(t, []string{"a", "b"}, sr.Names())
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

func TestServiceRegistry_StartFailureRollsBack(t *testing.T) {
	var events []string
	sr := NewServiceRegistry(zerolog.Nop())
	sr.RegisterService("a", &recordingService{name: "a", events: &events})
	sr.RegisterService("b", &recordingService{name: "b", events: &events})
	sr.RegisterService("c", &recordingService{name: "c", startErr: errors.New("bind failed"), events: &events})
	sr.RegisterService("d", &recordingService{name: "d", events: &events})

	err := sr.StartServices()

	require.Error(t, err)
	assert.ErrorContains(t, err, "bind failed")
	assert.Equal(t, []string{"start a", "start b", "start c", "stop b", "stop a"}, events)
}

func TestServiceRegistry_RegisterServices(t *testing.T) {
	reg, err := inventory.NewRegistry(map[string]models.DeviceProfile{"OLT1": {Vendor: "huawei", PublicPort: 2201}})
	require.NoError(t, err)

	config := &utils.Config{}
	config.MQTT.TopicCmd = "olt/cmd"
	config.MQTT.TopicCmdResult = "olt/cmd/result"
	config.MQTT.TopicData = "olt/data"
	config.MQTT.TopicONU = "olt/onu"
	config.Services.Metrics.Enabled = true
	config.Services.Metrics.Listen = "127.0.0.1:0"
	config.Services.Command.Enabled = utils.Bool(true)
	config.Services.Poller.Enabled = utils.Bool(true)
	config.Services.Poller.Interval = 30 * time.Second

	sr := NewServiceRegistry(zerolog.Nop())
	err = sr.RegisterServices(config, Dependencies{
		Registry:   reg,
		Executor:   new(mocks.MockExecutor),
		Publisher:  new(mocks.MockPublisher),
		Sink:       new(mocks.MockSink),
		MQTTClient: new(mocks.MockMQTTClient),
		Metrics:    metrics.New(),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{constants.ServiceMetrics, constants.ServiceCommand, constants.ServicePoller}, sr.Names())
}

func TestServiceRegistry_RegisterServices_SkipsDisabled(t *testing.T) {
	config := &utils.Config{}
	config.Services.Command.Enabled = utils.Bool(false)
	config.Services.Poller.Enabled = utils.Bool(true)
	config.Services.Poller.Interval = -time.Second

	sr := NewServiceRegistry(zerolog.Nop())
	err := sr.RegisterServices(config, Dependencies{Metrics: metrics.New()})

	assert.Error(t, err)
	assert.Empty(t, sr.Names())
}

func TestServiceRegistry_RegisterServices_DefaultsEnableBridgeAndPoller(t *testing.T) {
	reg, err := inventory.NewRegistry(map[string]models.DeviceProfile{"OLT1": {Vendor: "huawei", PublicPort: 2201}})
	require.NoError(t, err)

	config := &utils.Config{}
	config.ApplyDefaults()

	sr := NewServiceRegistry(zerolog.Nop())
	err = sr.RegisterServices(config, Dependencies{
		Registry:   reg,
		Executor:   new(mocks.MockExecutor),
		Publisher:  new(mocks.MockPublisher),
		Sink:       new(mocks.MockSink),
		MQTTClient: new(mocks.MockMQTTClient),
		Metrics:    metrics.New(),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{constants.ServiceCommand, constants.ServicePoller}, sr.Names())
}
