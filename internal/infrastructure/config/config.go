package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for a touch node.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node     NodeConfig     `yaml:"node"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Actuator ActuatorConfig `yaml:"actuator"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Link     LinkConfig     `yaml:"link"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NodeConfig identifies this node on the bus.
type NodeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// HealthInterval is how often the node publishes its retained health message.
	// Zero disables health reporting.
	HealthInterval time.Duration `yaml:"health_interval"`
}

// DatabaseConfig contains SQLite event journal settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// Retention is how long journal events are kept. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains the transport's own reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// SensorConfig configures the touch sensing and publish path.
type SensorConfig struct {
	// ScanInterval is the period of the scan trigger timer.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// ScanDuration is how long the simulated panel stays busy per scan.
	ScanDuration time.Duration `yaml:"scan_duration"`

	// PublishTopic receives "on"/"off" on every rising edge.
	PublishTopic string `yaml:"publish_topic"`

	Buttons []ButtonConfig `yaml:"buttons"`
}

// ButtonConfig maps one touch button to the status value it publishes.
type ButtonConfig struct {
	ID        int    `yaml:"id"`
	Name      string `yaml:"name"`
	Publishes string `yaml:"publishes"` // "on" or "off"
}

// ActuatorConfig configures the subscription and output device.
type ActuatorConfig struct {
	SubscribeTopic string `yaml:"subscribe_topic"`

	// MaxSubscribeRetries is the inner retry budget per Subscribe command.
	MaxSubscribeRetries int `yaml:"max_subscribe_retries"`

	// SubscribeRetryInterval is the pause between inner subscribe attempts.
	SubscribeRetryInterval time.Duration `yaml:"subscribe_retry_interval"`

	Output OutputConfig `yaml:"output"`
}

// OutputConfig selects the output device driver.
type OutputConfig struct {
	// Driver is "memory", "file" or "modbus".
	Driver string `yaml:"driver"`

	// Path is the file written by the "file" driver (e.g. a sysfs GPIO value node).
	Path string `yaml:"path"`

	Modbus ModbusOutputConfig `yaml:"modbus"`
}

// ModbusOutputConfig drives one coil on a Modbus TCP device (a relay module).
type ModbusOutputConfig struct {
	Endpoint string        `yaml:"endpoint"` // host:port
	UnitID   int           `yaml:"unit_id"`
	Coil     int           `yaml:"coil"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MonitorConfig configures the connectivity monitor.
type MonitorConfig struct {
	// ResubscribeDelay is the wait before re-issuing Subscribe after SubscribeFailed.
	ResubscribeDelay time.Duration `yaml:"resubscribe_delay"`

	// LinkPollInterval is the first wait between link checks while awaiting the link.
	LinkPollInterval time.Duration `yaml:"link_poll_interval"`

	// MaxLinkPollInterval caps the doubling poll delay. Equal to
	// LinkPollInterval gives a fixed cadence.
	MaxLinkPollInterval time.Duration `yaml:"max_link_poll_interval"`

	// MaxLinkPolls bounds the number of link checks per outage. 0 means unbounded.
	MaxLinkPolls int `yaml:"max_link_polls"`
}

// LinkConfig selects how link-layer availability is probed.
type LinkConfig struct {
	// Probe is "dial", "interface" or "mqtt".
	Probe string `yaml:"probe"`

	// Interface is the network interface checked by the "interface" probe.
	Interface string `yaml:"interface"`

	// Timeout bounds a single "dial" probe.
	Timeout time.Duration `yaml:"timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	Auth      APIAuthConfig    `yaml:"auth"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APIAuthConfig protects the control endpoints with HS256 bearer tokens.
// An empty JWTSecret leaves the API open.
type APIAuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL is the lifetime of issued tokens in minutes.
	TokenTTL int `yaml:"token_ttl"`
}

// WebSocketConfig contains live event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"` // bytes
	PingInterval   int `yaml:"ping_interval"`    // seconds
	PongTimeout    int `yaml:"pong_timeout"`     // seconds
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TOUCHNODE_SECTION_KEY
// For example: TOUCHNODE_MQTT_HOST, TOUCHNODE_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ID:             "touchnode-01",
			Name:           "Touch Node",
			HealthInterval: 30 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Sensor: SensorConfig{
			ScanInterval: 20 * time.Millisecond,
			ScanDuration: 2 * time.Millisecond,
			PublishTopic: "ORANGE_APP_STATUS",
			Buttons: []ButtonConfig{
				{ID: 0, Name: "button0", Publishes: "off"},
				{ID: 1, Name: "button1", Publishes: "on"},
			},
		},
		Actuator: ActuatorConfig{
			SubscribeTopic:         "RED_APP_STATUS",
			MaxSubscribeRetries:    3,
			SubscribeRetryInterval: time.Second,
			Output: OutputConfig{
				Driver: "memory",
				Modbus: ModbusOutputConfig{
					UnitID:  1,
					Timeout: time.Second,
				},
			},
		},
		Monitor: MonitorConfig{
			ResubscribeDelay:    2 * time.Second,
			LinkPollInterval:    2 * time.Second,
			MaxLinkPollInterval: 2 * time.Second,
			MaxLinkPolls:        0,
		},
		Link: LinkConfig{
			Probe:   "dial",
			Timeout: 2 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/touchnode.db",
			WALMode:     true,
			BusyTimeout: 5,
			Retention:   30 * 24 * time.Hour,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
			Auth: APIAuthConfig{
				TokenTTL: 60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TOUCHNODE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Node
	if v := os.Getenv("TOUCHNODE_NODE_ID"); v != "" {
		cfg.Node.ID = v
	}

	// MQTT
	if v := os.Getenv("TOUCHNODE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TOUCHNODE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("TOUCHNODE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TOUCHNODE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("TOUCHNODE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("TOUCHNODE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("TOUCHNODE_JWT_SECRET"); v != "" {
		cfg.API.Auth.JWTSecret = v
	}

	// InfluxDB
	if v := os.Getenv("TOUCHNODE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// minJWTSecretLength is the shortest accepted HS256 signing secret.
const minJWTSecretLength = 32

// Modbus addressing limits.
const (
	maxModbusUnitID  = 247
	maxModbusAddress = 65535
)

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.ID == "" {
		errs = append(errs, "node.id is required")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Sensor validation
	if c.Sensor.ScanInterval <= 0 {
		errs = append(errs, "sensor.scan_interval must be positive")
	}
	if c.Sensor.PublishTopic == "" {
		errs = append(errs, "sensor.publish_topic is required")
	}
	if len(c.Sensor.Buttons) == 0 {
		errs = append(errs, "sensor.buttons must list at least one button")
	}
	seen := make(map[int]bool, len(c.Sensor.Buttons))
	for _, b := range c.Sensor.Buttons {
		if b.ID < 0 {
			errs = append(errs, fmt.Sprintf("sensor.buttons: id %d cannot be negative", b.ID))
		}
		if seen[b.ID] {
			errs = append(errs, fmt.Sprintf("sensor.buttons: duplicate id %d", b.ID))
		}
		seen[b.ID] = true
		if b.Publishes != "on" && b.Publishes != "off" {
			errs = append(errs, fmt.Sprintf("sensor.buttons[%d].publishes must be \"on\" or \"off\"", b.ID))
		}
	}

	// Actuator validation
	if c.Actuator.SubscribeTopic == "" {
		errs = append(errs, "actuator.subscribe_topic is required")
	}
	if c.Actuator.MaxSubscribeRetries < 1 {
		errs = append(errs, "actuator.max_subscribe_retries must be at least 1")
	}
	if c.Actuator.SubscribeRetryInterval < 0 {
		errs = append(errs, "actuator.subscribe_retry_interval cannot be negative")
	}
	switch c.Actuator.Output.Driver {
	case "memory":
	case "file":
		if c.Actuator.Output.Path == "" {
			errs = append(errs, "actuator.output.path is required for the file driver")
		}
	case "modbus":
		mb := c.Actuator.Output.Modbus
		if mb.Endpoint == "" {
			errs = append(errs, "actuator.output.modbus.endpoint is required for the modbus driver")
		}
		if mb.UnitID < 0 || mb.UnitID > maxModbusUnitID {
			errs = append(errs, "actuator.output.modbus.unit_id must be between 0 and 247")
		}
		if mb.Coil < 0 || mb.Coil > maxModbusAddress {
			errs = append(errs, "actuator.output.modbus.coil must be between 0 and 65535")
		}
	default:
		errs = append(errs, "actuator.output.driver must be \"memory\", \"file\" or \"modbus\"")
	}

	// Monitor validation
	if c.Monitor.ResubscribeDelay < 0 {
		errs = append(errs, "monitor.resubscribe_delay cannot be negative")
	}
	if c.Monitor.LinkPollInterval <= 0 {
		errs = append(errs, "monitor.link_poll_interval must be positive")
	}
	if c.Monitor.MaxLinkPollInterval < c.Monitor.LinkPollInterval {
		errs = append(errs, "monitor.max_link_poll_interval must not be below link_poll_interval")
	}
	if c.Monitor.MaxLinkPolls < 0 {
		errs = append(errs, "monitor.max_link_polls cannot be negative (0 = unbounded)")
	}

	// Link validation
	switch c.Link.Probe {
	case "dial", "mqtt":
	case "interface":
		if c.Link.Interface == "" {
			errs = append(errs, "link.interface is required for the interface probe")
		}
	default:
		errs = append(errs, "link.probe must be \"dial\", \"interface\" or \"mqtt\"")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.Retention < 0 {
		errs = append(errs, "database.retention must not be negative")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Auth.JWTSecret != "" && len(c.API.Auth.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Sprintf("api.auth.jwt_secret must be at least %d characters", minJWTSecretLength))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
