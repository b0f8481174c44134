package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the MyQ bridge.
// All configuration is loaded from YAML and can be overridden by environment
// variables. The YAML file is optional: the bridge historically ran with
// nothing but MYQ_SERVER_PORT set, and defaults cover everything else.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Update    UpdateConfig    `yaml:"update"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	MyQ       MyQConfig       `yaml:"myq"`
}

// ServerConfig contains HTTP server settings for the hub-facing API.
type ServerConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig contains HTTP timeout settings in seconds.
type TimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DiscoveryConfig contains SSDP auto-discovery settings.
//
// ServiceType is the search target the SmartThings hub broadcasts for;
// UDN is the unique device name advertised alongside it. Both default to
// the values the SmartThings Edge driver expects and rarely need changing.
type DiscoveryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceType string `yaml:"service_type"`
	UDN         string `yaml:"udn"`
	MaxAge      int    `yaml:"max_age"`     // advertisement validity, seconds
	AckTimeout  int    `yaml:"ack_timeout"` // hub /ping POST timeout, seconds
}

// UpdateConfig contains version-check settings.
type UpdateConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	App      string `yaml:"app"`
	Interval int    `yaml:"interval"` // seconds between checks
	Timeout  int    `yaml:"timeout"`  // request timeout, seconds
}

// MQTTConfig contains settings for the optional state-event publisher.
// Disabled by default; the HTTP bridge is fully functional without a broker.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MyQConfig contains upstream MyQ cloud API settings.
type MyQConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // request timeout, seconds
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults; file may be absent)
//  3. Environment variables (override file values)
//
// Environment variables: MYQ_SERVER_PORT (kept for compatibility with
// existing deployments) and MYQBRIDGE_SECTION_KEY for everything else,
// e.g. MYQBRIDGE_MQTT_HOST, MYQBRIDGE_LOG_LEVEL.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parsing config file: %w", unmarshalErr)
		}
	case os.IsNotExist(err):
		// No file: defaults plus environment are enough to run.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the bridge's stock settings.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: TimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Discovery: DiscoveryConfig{
			Enabled:     true,
			ServiceType: "urn:SmartThingsCommunity:device:MyQController",
			UDN:         "uuid:smartthings-brbeaird-myq",
			MaxAge:      120,
			AckTimeout:  5,
		},
		Update: UpdateConfig{
			Enabled:  true,
			URL:      "https://version.brbeaird.com/getVersion",
			App:      "myqEdge",
			Interval: 3600,
			Timeout:  15,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS:         1,
			TopicPrefix: "myq-bridge",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		MyQ: MyQConfig{
			BaseURL: "https://api.myqdevice.com",
			Timeout: 30,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// MYQ_SERVER_PORT predates the YAML config and is what the install
	// docs tell people to set, so it stays supported.
	if v := os.Getenv("MYQ_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("MYQBRIDGE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MYQBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MYQBRIDGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MYQBRIDGE_UPDATE_URL"); v != "" {
		cfg.Update.URL = v
	}
	if v := os.Getenv("MYQBRIDGE_MYQ_BASE_URL"); v != "" {
		cfg.MyQ.BaseURL = v
	}

	// MQTT
	if v := os.Getenv("MYQBRIDGE_MQTT_ENABLED"); v != "" {
		cfg.MQTT.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("MYQBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MYQBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MYQBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if c.Discovery.Enabled {
		if c.Discovery.ServiceType == "" {
			errs = append(errs, "discovery.service_type is required when discovery is enabled")
		}
		if c.Discovery.UDN == "" {
			errs = append(errs, "discovery.udn is required when discovery is enabled")
		}
		if c.Discovery.AckTimeout < 1 {
			errs = append(errs, "discovery.ack_timeout must be at least 1 second")
		}
		// The responder re-announces at max_age/2; anything under 2 gives
		// a zero interval.
		if c.Discovery.MaxAge < 2 {
			errs = append(errs, "discovery.max_age must be at least 2 seconds")
		}
	}

	if c.Update.Enabled {
		if c.Update.URL == "" {
			errs = append(errs, "update.url is required when update checks are enabled")
		}
		if c.Update.Interval < 60 {
			errs = append(errs, "update.interval must be at least 60 seconds")
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
	}

	if c.MyQ.BaseURL == "" {
		errs = append(errs, "myq.base_url is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the HTTP read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the HTTP idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}

// GetAckTimeout returns the discovery acknowledgement timeout as a Duration.
func (d DiscoveryConfig) GetAckTimeout() time.Duration {
	return time.Duration(d.AckTimeout) * time.Second
}

// GetInterval returns the version-check interval as a Duration.
func (u UpdateConfig) GetInterval() time.Duration {
	return time.Duration(u.Interval) * time.Second
}

// GetTimeout returns the version-check request timeout as a Duration.
func (u UpdateConfig) GetTimeout() time.Duration {
	return time.Duration(u.Timeout) * time.Second
}

// GetTimeout returns the upstream API request timeout as a Duration.
func (m MyQConfig) GetTimeout() time.Duration {
	return time.Duration(m.Timeout) * time.Second
}
