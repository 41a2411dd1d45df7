package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/olt-gateway/internal/devicelog"
	"github.com/benmeehan/olt-gateway/internal/inventory"
	"github.com/benmeehan/olt-gateway/internal/metrics"
	"github.com/benmeehan/olt-gateway/internal/service_registry"
	"github.com/benmeehan/olt-gateway/internal/services"
	"github.com/benmeehan/olt-gateway/internal/utils"
	"github.com/benmeehan/olt-gateway/pkg/file"
	"github.com/benmeehan/olt-gateway/pkg/mqtt"
	"github.com/benmeehan/olt-gateway/pkg/remote"
	"github.com/benmeehan/olt-gateway/pkg/routeros"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	configEnv         = "OLT_GATEWAY_CONFIG"
	defaultConfigPath = "configs/config.yaml"
	disconnectQuiesce = 250 // milliseconds
)

func main() {
	// Bootstrap logger until the configured one is available
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	configPath := os.Getenv(configEnv)
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	log, err = utils.NewLogger(config.Log.Level, config.Log.Format, os.Stdout)
	if err != nil {
		log = zerolog.New(os.Stdout).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("Invalid log configuration")
	}

	registry, err := inventory.NewRegistry(config.DeviceProfiles())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build device registry")
	}
	router := config.RouterProfile()
	log.Info().Strs("devices", registry.IDs()).Msg("Loaded device inventory")

	sink, err := devicelog.NewFileSink(config.Log.File, fileClient, log.With().Str("component", "devicelog").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open device log")
	}
	defer sink.Close()

	gatewayMetrics := metrics.New()
	dialer := remote.NewSSHDialer(config.SSH.ConnectionTimeout, log.With().Str("component", "ssh").Logger())

	// Provision port forwards before anything tries to reach the devices
	if utils.Enabled(config.Services.NAT.Enabled) {
		reconciler := services.NewNatReconciler(dialer, routeros.Syntax{}, sink, config.Services.NAT.Timeout,
			gatewayMetrics, log.With().Str("service", "nat").Logger())
		report, err := reconciler.Reconcile(context.Background(), router, registry.All())
		if err != nil {
			log.Fatal().Err(err).Msg("NAT reconciliation aborted")
		}
		if failed := report.Failed(); len(failed) > 0 {
			log.Warn().Int("failed", len(failed)).Msg("Some NAT rules could not be reconciled")
		}
	}

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	log.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT Client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient, log)
	err = mqttClient.Initialize(mqtt.Options{
		Broker:         config.MQTT.Broker,
		Port:           config.MQTT.Port,
		ClientID:       config.MQTT.ClientID,
		Username:       config.MQTT.Username,
		Password:       config.MQTT.Password,
		CACertificate:  config.MQTT.CACertificate,
		ConnectTimeout: config.MQTT.ConnectTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	executor := services.NewDeviceExecutor(dialer, config.SSH.CommandTimeout, config.SSH.OutputSizeLimit,
		log.With().Str("component", "executor").Logger())
	publisher := services.NewMQTTPublisher(mqttClient, config.MQTT.QOS, config.MQTT.PublishTimeout,
		gatewayMetrics, log.With().Str("component", "publisher").Logger())

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(log)

	// Register all services based on the configuration
	err = serviceRegistry.RegisterServices(config, service_registry.Dependencies{
		Router:     router,
		Registry:   registry,
		Executor:   executor,
		Publisher:  publisher,
		Sink:       sink,
		MQTTClient: mqttClient,
		Metrics:    gatewayMetrics,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		mqttClient.Disconnect(disconnectQuiesce)
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Int("devices", registry.Len()).Strs("services", serviceRegistry.Names()).Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stopCh

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services failed to stop cleanly")
	}
	mqttClient.Disconnect(disconnectQuiesce)
}
