package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/olt-gateway/internal/models"
	"github.com/benmeehan/olt-gateway/pkg/file"
	"github.com/benmeehan/olt-gateway/pkg/remote"
)

// Config represents the structure of the configuration file.
type Config struct {
	Router struct {
		Host     string `yaml:"host"`     // Public address of the NAT router
		Port     int    `yaml:"port"`     // Router management SSH port
		User     string `yaml:"user"`     // Router admin user
		Password string `yaml:"password"` // Router admin password
	} `yaml:"router"`

	OLTs map[string]OLTConfig `yaml:"olts"` // Managed OLTs keyed by device ID

	MQTT struct {
		Broker         string        `yaml:"broker"`           // Broker host
		Port           int           `yaml:"port"`             // Broker port
		ClientID       string        `yaml:"client_id"`        // MQTT client ID prefix
		Username       string        `yaml:"username"`         // Optional broker user
		Password       string        `yaml:"password"`         // Optional broker password
		CACertificate  string        `yaml:"ca_certificate"`   // Optional CA certificate; enables TLS
		QOS            int           `yaml:"qos"`              // QoS for publishes and subscriptions
		PublishTimeout time.Duration `yaml:"publish_timeout"`  // Max wait for a publish acknowledgement
		ConnectTimeout time.Duration `yaml:"connect_timeout"`  // Max wait for the broker connection
		TopicCmd       string        `yaml:"topic_cmd"`        // Inbound command requests
		TopicCmdResult string        `yaml:"topic_cmd_result"` // Outbound command results
		TopicData      string        `yaml:"topic_data"`       // Interface status
		TopicONU       string        `yaml:"topic_onu"`        // Subscriber/ONU data
	} `yaml:"mqtt"`

	SSH struct {
		ConnectionTimeout time.Duration `yaml:"connection_timeout"` // TCP connect plus handshake
		CommandTimeout    time.Duration `yaml:"command_timeout"`    // Whole Run call, dial included
		OutputSizeLimit   int           `yaml:"output_size_limit"`  // Max captured output in bytes
	} `yaml:"ssh"`

	Services struct {
		NAT struct {
			Enabled *bool         `yaml:"enabled"` // Reconcile port forwards at startup (default true)
			Timeout time.Duration `yaml:"timeout"` // Per router command
		} `yaml:"nat"`

		Poller struct {
			Enabled  *bool         `yaml:"enabled"`  // Enable/disable periodic polling (default true)
			Interval time.Duration `yaml:"interval"` // Delay between fleet passes
			Workers  int           `yaml:"workers"`  // Devices polled concurrently
		} `yaml:"poller"`

		Command struct {
			Enabled             *bool `yaml:"enabled"`               // Enable/disable the command bridge (default true)
			NotifyUnknownDevice bool  `yaml:"notify_unknown_device"` // Publish a not-found result for unknown OLTs
		} `yaml:"command"`

		Metrics struct {
			Enabled bool   `yaml:"enabled"` // Serve Prometheus metrics (default false)
			Listen  string `yaml:"listen"`  // Listen address, e.g. ":9100"
		} `yaml:"metrics"`
	} `yaml:"services"`

	Log struct {
		Level  string `yaml:"level"`  // zerolog level name
		Format string `yaml:"format"` // "json" or "console"
		File   string `yaml:"file"`   // Append-only device output log
	} `yaml:"log"`
}

// OLTConfig is the connection profile of one OLT.
type OLTConfig struct {
	Vendor     string `yaml:"vendor"`
	LANIP      string `yaml:"lan_ip"`
	PortPublic int    `yaml:"port_public"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Mode       string `yaml:"mode"` // "exec" (default) or "interactive"
}

// Defaults applied by ApplyDefaults.
const (
	DefaultRouterPort         = 22
	DefaultMQTTPort           = 1883
	DefaultClientID           = "olt-gateway"
	DefaultPublishTimeout     = 10 * time.Second
	DefaultMQTTConnectTimeout = 30 * time.Second
	DefaultConnectionTimeout  = 10 * time.Second
	DefaultCommandTimeout     = 60 * time.Second
	DefaultOutputSizeLimit    = 1024 * 1024 // 1MB
	DefaultNATTimeout         = 15 * time.Second
	DefaultPollInterval       = 30 * time.Second
	DefaultPollWorkers        = 1
	DefaultLogFile            = "log_file.txt"
	DefaultMetricsListen      = ":9100"
)

// ErrConfigNotFound is returned by LoadConfig when the file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// LoadConfig loads the YAML configuration from the specified file, applies defaults and validates it.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filename, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, filename)
	}

	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyDefaults fills zero values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Router.Port == 0 {
		c.Router.Port = DefaultRouterPort
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = DefaultMQTTPort
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientID
	}
	if c.MQTT.PublishTimeout == 0 {
		c.MQTT.PublishTimeout = DefaultPublishTimeout
	}
	if c.MQTT.ConnectTimeout == 0 {
		c.MQTT.ConnectTimeout = DefaultMQTTConnectTimeout
	}
	if c.SSH.ConnectionTimeout == 0 {
		c.SSH.ConnectionTimeout = DefaultConnectionTimeout
	}
	if c.SSH.CommandTimeout == 0 {
		c.SSH.CommandTimeout = DefaultCommandTimeout
	}
	if c.SSH.OutputSizeLimit == 0 {
		c.SSH.OutputSizeLimit = DefaultOutputSizeLimit
	}
	if c.Services.NAT.Timeout == 0 {
		c.Services.NAT.Timeout = DefaultNATTimeout
	}
	if c.Services.Poller.Interval == 0 {
		c.Services.Poller.Interval = DefaultPollInterval
	}
	if c.Services.Poller.Workers <= 0 {
		c.Services.Poller.Workers = DefaultPollWorkers
	}
	for _, flag := range []**bool{
		&c.Services.NAT.Enabled,
		&c.Services.Poller.Enabled,
		&c.Services.Command.Enabled,
	} {
		if *flag == nil {
			*flag = Bool(true)
		}
	}
	if c.Services.Metrics.Listen == "" {
		c.Services.Metrics.Listen = DefaultMetricsListen
	}
	if c.Log.File == "" {
		c.Log.File = DefaultLogFile
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Bool returns a pointer to b, for optional config flags.
func Bool(b bool) *bool {
	return &b
}

// Enabled reports whether an optional flag is set and true.
func Enabled(flag *bool) bool {
	return flag != nil && *flag
}

// Validate checks the configuration for values the gateway cannot run without.
func (c *Config) Validate() error {
	var errs []error

	if c.Router.Host == "" {
		errs = append(errs, errors.New("router.host is required"))
	}
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.MQTT.QOS < 0 || c.MQTT.QOS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QOS))
	}
	for name, topic := range map[string]string{
		"mqtt.topic_cmd":        c.MQTT.TopicCmd,
		"mqtt.topic_cmd_result": c.MQTT.TopicCmdResult,
		"mqtt.topic_data":       c.MQTT.TopicData,
		"mqtt.topic_onu":        c.MQTT.TopicONU,
	} {
		if topic == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	if len(c.OLTs) == 0 {
		errs = append(errs, errors.New("olts must list at least one device"))
	}

	ports := make(map[int]string, len(c.OLTs))
	for _, id := range SortedKeys(c.OLTs) {
		olt := c.OLTs[id]
		if olt.LANIP == "" {
			errs = append(errs, fmt.Errorf("olts.%s.lan_ip is required", id))
		}
		if olt.PortPublic <= 0 || olt.PortPublic > 65535 {
			errs = append(errs, fmt.Errorf("olts.%s.port_public is out of range: %d", id, olt.PortPublic))
		}
		if other, dup := ports[olt.PortPublic]; dup {
			errs = append(errs, fmt.Errorf("olts.%s.port_public %d already used by %s", id, olt.PortPublic, other))
		}
		ports[olt.PortPublic] = id
		if _, err := remote.ParseMode(olt.Mode); err != nil {
			errs = append(errs, fmt.Errorf("olts.%s.mode: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

// RouterProfile returns the immutable router profile.
func (c *Config) RouterProfile() models.RouterProfile {
	return models.RouterProfile{
		Host:     c.Router.Host,
		Port:     c.Router.Port,
		User:     c.Router.User,
		Password: c.Router.Password,
	}
}

// DeviceProfiles converts the olts section into device profiles keyed by ID.
func (c *Config) DeviceProfiles() map[string]models.DeviceProfile {
	profiles := make(map[string]models.DeviceProfile, len(c.OLTs))
	for id, olt := range c.OLTs {
		mode, _ := remote.ParseMode(olt.Mode)
		profiles[id] = models.DeviceProfile{
			ID:         id,
			Vendor:     olt.Vendor,
			LANAddress: olt.LANIP,
			PublicPort: olt.PortPublic,
			SSHUser:    olt.User,
			SSHPass:    olt.Password,
			Mode:       mode,
		}
	}
	return profiles
}
