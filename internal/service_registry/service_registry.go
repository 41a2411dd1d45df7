package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/olt-gateway/internal/constants"
	"github.com/benmeehan/olt-gateway/internal/devicelog"
	"github.com/benmeehan/olt-gateway/internal/inventory"
	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/benmeehan/olt-gateway/internal/services"
	"github.com/benmeehan/olt-gateway/internal/utils"
	"github.com/benmeehan/olt-gateway/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Service is the lifecycle every long-running component implements.
type Service interface {
	Start() error
	Stop() error
}

// Dependencies are the shared collaborators handed to service constructors.
type Dependencies struct {
	Router     models.RouterProfile
	Registry   *inventory.Registry
	Executor   services.Executor
	Publisher  services.Publisher
	Sink       devicelog.Sink
	MQTTClient mqtt.MQTTClient
	Metrics    *metrics.Metrics
}

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]Service // Stores registered services
	serviceKeys []string           // Maintains order of service registration
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new, empty service registry.
func NewServiceRegistry(logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]Service),
		Logger:   logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Names returns the registered service names in start order.
func (sr *ServiceRegistry) Names() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deps Dependencies) error {
	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    constants.ServiceMetrics,
			enabled: config.Services.Metrics.Enabled,
			constructor: func() (Service, error) {
				return services.NewMetricsService(
					config.Services.Metrics.Listen,
					deps.Metrics,
					sr.Logger.With().Str("service", constants.ServiceMetrics).Logger(),
				), nil
			},
		},
		{
			name:    constants.ServiceCommand,
			enabled: utils.Enabled(config.Services.Command.Enabled),
			constructor: func() (Service, error) {
				return services.NewCommandService(
					config.MQTT.TopicCmd,
					config.MQTT.TopicCmdResult,
					config.MQTT.QOS,
					config.Services.Command.NotifyUnknownDevice,
					deps.Router,
					deps.Registry,
					deps.Executor,
					deps.Publisher,
					deps.Sink,
					deps.MQTTClient,
					deps.Metrics,
					sr.Logger.With().Str("service", constants.ServiceCommand).Logger(),
				), nil
			},
		},
		{
			name:    constants.ServicePoller,
			enabled: utils.Enabled(config.Services.Poller.Enabled),
			constructor: func() (Service, error) {
				if config.Services.Poller.Interval <= 0 {
					return nil, fmt.Errorf("poller interval must be positive, got %s", config.Services.Poller.Interval)
				}
				return services.NewPollerService(
					deps.Router,
					deps.Registry,
					deps.Executor,
					deps.Publisher,
					deps.Sink,
					config.MQTT.TopicData,
					config.MQTT.TopicONU,
					config.Services.Poller.Interval,
					config.Services.Poller.Workers,
					deps.Metrics,
					sr.Logger.With().Str("service", constants.ServicePoller).Logger(),
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}
