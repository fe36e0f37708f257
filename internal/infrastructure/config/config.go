package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for fleetd.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Fleet     FleetConfig     `yaml:"fleet"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	State     StateConfig     `yaml:"state"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FleetConfig identifies the installation and points at the declarative
// device/capability metadata files.
type FleetConfig struct {
	ID           string `yaml:"id"`
	MetadataFile string `yaml:"metadata_file"`
	DevicesFile  string `yaml:"devices_file"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// StateConfig contains state synchronization settings.
// All durations are in seconds unless noted.
type StateConfig struct {
	// BootstrapTimeout bounds each execute-and-wait during the startup refresh.
	BootstrapTimeout int `yaml:"bootstrap_timeout"`

	// RefreshInterval is the steady-state cadence for re-issuing data
	// commands on push-capable components.
	RefreshInterval int `yaml:"refresh_interval"`

	// PollInterval is the default cadence for poll-only status paths.
	PollInterval int `yaml:"poll_interval"`

	// PollIntervals overrides PollInterval per status name.
	PollIntervals map[string]int `yaml:"poll_intervals"`

	// SettleDelayMs is how long to wait after issuing a command before
	// directly querying a poll-only component, in milliseconds.
	SettleDelayMs int `yaml:"settle_delay_ms"`

	// Internal seeds the internal (local control) state partition.
	Internal map[string]any `yaml:"internal"`
}

// HeartbeatConfig contains liveness probe settings.
type HeartbeatConfig struct {
	// Interval is the probe cadence in seconds. Normally longer than the
	// state refresh interval.
	Interval int `yaml:"interval"`

	// Timeout is how long to wait for a reply before marking a transport
	// namespace offline, in seconds.
	Timeout int `yaml:"timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// state-history recorder.
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
// Environment variables follow the pattern: FLEETD_SECTION_KEY
// For example: FLEETD_MQTT_HOST, FLEETD_INFLUXDB_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Fleet: FleetConfig{
			ID:           "fleet-001",
			MetadataFile: "configs/components.yaml",
			DevicesFile:  "configs/devices.yaml",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fleetd-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		State: StateConfig{
			BootstrapTimeout: 10,
			RefreshInterval:  30,
			PollInterval:     10,
			SettleDelayMs:    500,
		},
		Heartbeat: HeartbeatConfig{
			Interval: 30,
			Timeout:  10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FLEETD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("FLEETD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FLEETD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FLEETD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Metadata files
	if v := os.Getenv("FLEETD_METADATA_FILE"); v != "" {
		cfg.Fleet.MetadataFile = v
	}
	if v := os.Getenv("FLEETD_DEVICES_FILE"); v != "" {
		cfg.Fleet.DevicesFile = v
	}

	// InfluxDB
	if v := os.Getenv("FLEETD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Fleet validation
	if c.Fleet.ID == "" {
		errs = append(errs, "fleet.id is required")
	}
	if c.Fleet.MetadataFile == "" {
		errs = append(errs, "fleet.metadata_file is required")
	}
	if c.Fleet.DevicesFile == "" {
		errs = append(errs, "fleet.devices_file is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// State validation
	if c.State.BootstrapTimeout <= 0 {
		errs = append(errs, "state.bootstrap_timeout must be positive")
	}
	if c.State.PollInterval <= 0 {
		errs = append(errs, "state.poll_interval must be positive")
	}

	// Heartbeat validation. The probe timeout must fit inside the probe
	// cycle or a late reply from one cycle would be credited to the next.
	if c.Heartbeat.Interval <= 0 {
		errs = append(errs, "heartbeat.interval must be positive")
	}
	if c.Heartbeat.Timeout <= 0 || c.Heartbeat.Timeout >= c.Heartbeat.Interval {
		errs = append(errs, "heartbeat.timeout must be positive and shorter than heartbeat.interval")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set FLEETD_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BootstrapTimeout returns the bootstrap execute-and-wait deadline as a Duration.
func (c *Config) BootstrapTimeout() time.Duration {
	return time.Duration(c.State.BootstrapTimeout) * time.Second
}

// RefreshInterval returns the steady-state refresh cadence as a Duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.State.RefreshInterval) * time.Second
}

// PollInterval returns the poll cadence for the given status name,
// falling back to the default when no override exists.
func (c *Config) PollInterval(status string) time.Duration {
	if v, ok := c.State.PollIntervals[status]; ok && v > 0 {
		return time.Duration(v) * time.Second
	}
	return time.Duration(c.State.PollInterval) * time.Second
}

// SettleDelay returns the pre-query settling delay as a Duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.State.SettleDelayMs) * time.Millisecond
}

// HeartbeatInterval returns the probe cadence as a Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Heartbeat.Interval) * time.Second
}

// HeartbeatTimeout returns the probe reply deadline as a Duration.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Heartbeat.Timeout) * time.Second
}
