package services

import (
	"errors"
	"testing"

	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/benmeehan/olt-gateway/internal/mocks"
	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type bridgeFixture struct {
	mqttClient *mocks.MockMQTTClient
	executor   *mocks.MockExecutor
	publisher  *mocks.MockPublisher
	sink       *mocks.MockSink
	metrics    *metrics.Metrics
	service    *CommandService
}

func newBridgeFixture(t *testing.T, notifyUnknown bool) *bridgeFixture {
	f := &bridgeFixture{
		mqttClient: new(mocks.MockMQTTClient),
		executor:   new(mocks.MockExecutor),
		publisher:  new(mocks.MockPublisher),
		sink:       new(mocks.MockSink),
		metrics:    metrics.New(),
	}
	f.service = NewCommandService("olt/cmd", "olt/cmd/result", 1, notifyUnknown, testRouter, testRegistry(t),
		f.executor, f.publisher, f.sink, f.mqttClient, f.metrics, zerolog.Nop())
	return f
}

func TestCommandService_HandleCommand_KnownDevice(t *testing.T) {
	f := newBridgeFixture(t, false)
	f.executor.On("Run", mock.Anything, testRouter, mock.MatchedBy(func(d models.DeviceProfile) bool {
		return d.ID == "OLT1"
	}), "show interface brief").Return(models.CommandResult{DeviceID: "OLT1", Output: "Gi0/1 up", Kind: models.KindNone})
	f.publisher.On("PublishJSON", "olt/cmd/result", models.CmdResponse{OLT: "OLT1", Command: "show interface brief", Result: "Gi0/1 up"}).Return(nil).Once()
	f.sink.On("Write", "OLT1", "CMD_EXEC show interface brief", "Gi0/1 up").Return(nil).Once()

	f.service.HandleCommand(nil, mocks.NewMockMessage("olt/cmd", []byte(`{"olt":"OLT1","cmd":"show interface brief"}`)))

	f.executor.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
	f.publisher.AssertNumberOfCalls(t, "PublishJSON", 1)
	f.sink.AssertExpectations(t)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.BridgeRequests.WithLabelValues(metrics.OutcomeExecuted)))
}

func TestCommandService_HandleCommand_DeviceError(t *testing.T) {
	f := newBridgeFixture(t, false)
	f.executor.On("Run", mock.Anything, mock.Anything, mock.Anything, "show onu all").
		Return(models.CommandResult{DeviceID: "OLT2", Kind: models.KindAuth, Err: errors.New("auth failed")})
	f.publisher.On("PublishJSON", "olt/cmd/result", models.CmdResponse{OLT: "OLT2", Command: "show onu all", Result: "Error: auth failed"}).Return(nil).Once()
	f.sink.On("Write", "OLT2", "CMD_EXEC show onu all", "Error: auth failed").Return(nil).Once()

	f.service.HandleCommand(nil, mocks.NewMockMessage("olt/cmd", []byte(`{"olt":"OLT2","cmd":"show onu all"}`)))

	f.publisher.AssertExpectations(t)
	f.sink.AssertExpectations(t)
}

func TestCommandService_HandleCommand_UnknownDevice(t *testing.T) {
	f := newBridgeFixture(t, false)

	f.service.HandleCommand(nil, mocks.NewMockMessage("olt/cmd", []byte(`{"olt":"OLT9","cmd":"show interface brief"}`)))

	f.executor.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	f.sink.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.BridgeRequests.WithLabelValues(metrics.OutcomeNotFound)))
}

func TestCommandService_HandleCommand_UnknownDeviceNotify(t *testing.T) {
	f := newBridgeFixture(t, true)
	f.publisher.On("PublishJSON", "olt/cmd/result", models.CmdResponse{OLT: "OLT9", Command: "show", Result: "Error: OLT OLT9 not found"}).Return(nil).Once()

	f.service.HandleCommand(nil, mocks.NewMockMessage("olt/cmd", []byte(`{"olt":"OLT9","cmd":"show"}`)))

	f.publisher.AssertExpectations(t)
	f.executor.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCommandService_HandleCommand_MalformedDropped(t *testing.T) {
	for _, payload := range []string{`not json`, `{"olt":"OLT1"}`, `{"olt":"OLT1","cmd":"   "}`, `{"cmd":"show"}`} {
		f := newBridgeFixture(t, true)

		f.service.HandleCommand(nil, mocks.NewMockMessage("olt/cmd", []byte(payload)))

		f.executor.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.BridgeRequests.WithLabelValues(metrics.OutcomeDecodeError)), payload)
	}
}

func TestCommandService_StartStop(t *testing.T) {
	f := newBridgeFixture(t, false)
	f.mqttClient.On("Subscribe", "olt/cmd", byte(1), mock.Anything).Return(mocks.NewCompletedToken(nil)).Once()
	f.mqttClient.On("Unsubscribe", []string{"olt/cmd"}).Return(mocks.NewCompletedToken(nil)).Once()

	require.NoError(t, f.service.Start())
	require.NoError(t, f.service.Stop())
	assert.Error(t, f.service.Stop())

	// Requests arriving after Stop are ignored.
	f.service.HandleCommand(nil, mocks.NewMockMessage("olt/cmd", []byte(`{"olt":"OLT1","cmd":"show"}`)))
	f.executor.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.mqttClient.AssertExpectations(t)
}

func TestCommandService_Start_SubscribeError(t *testing.T) {
	f := newBridgeFixture(t, false)
	f.mqttClient.On("Subscribe", "olt/cmd", byte(1), mock.Anything).Return(mocks.NewCompletedToken(errors.New("not authorized")))

	assert.EqualError(t, f.service.Start(), "not authorized")
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"olt":"OLT1","cmd":"display ont info summary"}`))
	require.NoError(t, err)
	assert.Equal(t, models.CmdRequest{OLT: "OLT1", Command: "display ont info summary"}, req)

	_, err = DecodeRequest([]byte(`{`))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
