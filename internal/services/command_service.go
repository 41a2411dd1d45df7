package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/olt-gateway/internal/constants"
	"github.com/benmeehan/olt-gateway/internal/devicelog"
	"github.com/benmeehan/olt-gateway/internal/inventory"
	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/benmeehan/olt-gateway/pkg/mqtt"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidRequest is returned by DecodeRequest for malformed payloads.
var ErrInvalidRequest = errors.New("invalid command request")

// CommandService bridges command requests received via MQTT to device
// sessions and publishes the results back to a response topic.
type CommandService struct {
	// Configuration Fields
	subTopic            string
	pubTopic            string
	qos                 int
	notifyUnknownDevice bool

	// Dependencies
	router     models.RouterProfile
	registry   *inventory.Registry
	executor   Executor
	publisher  Publisher
	sink       devicelog.Sink
	mqttClient mqtt.MQTTClient
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	// Internal state management
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCommandService initializes a new CommandService with given parameters.
func NewCommandService(subTopic, pubTopic string, qos int, notifyUnknownDevice bool, router models.RouterProfile,
	registry *inventory.Registry, executor Executor, publisher Publisher, sink devicelog.Sink,
	mqttClient mqtt.MQTTClient, m *metrics.Metrics, logger zerolog.Logger) *CommandService {

	// Initialize context and cancel function
	ctx, cancel := context.WithCancel(context.Background())

	return &CommandService{
		subTopic:            subTopic,
		pubTopic:            pubTopic,
		qos:                 qos,
		notifyUnknownDevice: notifyUnknownDevice,
		router:              router,
		registry:            registry,
		executor:            executor,
		publisher:           publisher,
		sink:                sink,
		mqttClient:          mqttClient,
		metrics:             m,
		logger:              logger,
		stopChan:            make(chan struct{}),
		ctx:                 ctx,
		cancel:              cancel,
	}
}

// Start subscribes to the MQTT topic and listens for incoming commands.
func (cs *CommandService) Start() error {
	cs.logger.Info().Str("topic", cs.subTopic).Msg("Starting CommandService and subscribing to MQTT topic")
	token := cs.mqttClient.Subscribe(cs.subTopic, byte(cs.qos), cs.HandleCommand)
	token.Wait()
	if err := token.Error(); err != nil {
		cs.logger.Error().Err(err).Str("topic", cs.subTopic).Msg("Failed to subscribe to MQTT topic")
		return err
	}

	cs.logger.Info().Str("topic", cs.subTopic).Msg("Successfully subscribed to MQTT topic")
	return nil
}

// Stop unsubscribes from MQTT after in-flight commands have been cancelled and drained.
func (cs *CommandService) Stop() error {
	cs.mu.Lock()
	select {
	case <-cs.stopChan:
		cs.mu.Unlock()
		return errors.New("command service is already stopped")
	default:
		close(cs.stopChan)
	}
	cs.mu.Unlock()

	cs.cancel() // Cancel the context to abort running device sessions
	cs.wg.Wait()

	token := cs.mqttClient.Unsubscribe(cs.subTopic)
	token.Wait()
	if err := token.Error(); err != nil {
		cs.logger.Error().Err(err).Str("topic", cs.subTopic).Msg("Failed to unsubscribe from MQTT topic")
		return err
	}

	cs.logger.Info().Msg("CommandService stopped successfully")
	return nil
}

// HandleCommand processes one inbound request: decode, validate, execute, publish.
func (cs *CommandService) HandleCommand(client MQTT.Client, msg MQTT.Message) {
	cs.mu.Lock()

	select {
	case <-cs.stopChan:
		cs.mu.Unlock()
		cs.logger.Warn().Msg("Received command but service is stopping, ignoring command")
		return
	default:
		cs.wg.Add(1)
		cs.mu.Unlock()
	}

	defer cs.wg.Done()

	logger := cs.logger.With().Str("request_id", uuid.NewString()).Logger()

	req, err := DecodeRequest(msg.Payload())
	if err != nil {
		cs.metrics.BridgeRequests.WithLabelValues(metrics.OutcomeDecodeError).Inc()
		logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Dropping malformed command request")
		return
	}

	logger.Info().Str("olt", req.OLT).Str("command", req.Command).Msg("Received command from MQTT topic")

	device, err := cs.registry.Lookup(req.OLT)
	if err != nil {
		cs.metrics.BridgeRequests.WithLabelValues(metrics.OutcomeNotFound).Inc()
		logger.Warn().Str("olt", req.OLT).Msg("OLT not found")
		if cs.notifyUnknownDevice {
			result := models.CommandResult{
				DeviceID:  req.OLT,
				Command:   req.Command,
				Kind:      models.KindNotFound,
				Err:       fmt.Errorf("OLT %s not found", req.OLT),
				Timestamp: time.Now(),
			}
			resp := models.CmdResponse{OLT: req.OLT, Command: req.Command, Result: result.Text()}
			if err := cs.publisher.PublishJSON(cs.pubTopic, resp); err != nil {
				logger.Error().Err(err).Msg("Failed to publish not-found response")
			}
		}
		return
	}

	result := cs.executor.Run(cs.ctx, cs.router, device, req.Command)
	cs.metrics.ObserveCommand(metrics.SourceBridge, result)
	cs.metrics.BridgeRequests.WithLabelValues(metrics.OutcomeExecuted).Inc()

	text := result.Text()
	resp := models.CmdResponse{OLT: device.ID, Command: req.Command, Result: text}
	if err := cs.publisher.PublishJSON(cs.pubTopic, resp); err != nil {
		logger.Error().Err(err).Str("olt", device.ID).Msg("Failed to publish command output")
	}

	if err := cs.sink.Write(device.ID, constants.CommandTag(req.Command), text); err != nil {
		logger.Error().Err(err).Str("olt", device.ID).Msg("Failed to write device log")
	}

	logger.Info().
		Str("olt", device.ID).
		Str("kind", string(result.Kind)).
		Dur("duration", result.Duration).
		Msg("Command output published")
}

// DecodeRequest parses a {"olt","cmd"} payload. Both fields must be non-empty.
func DecodeRequest(payload []byte) (models.CmdRequest, error) {
	var req models.CmdRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.OLT) == "" {
		return req, fmt.Errorf("%w: missing olt", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Command) == "" {
		return req, fmt.Errorf("%w: missing cmd", ErrInvalidRequest)
	}
	return req, nil
}
