// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GlobalConfig is the top-level static configuration. Maps to the
// `ipdisp-client:` root key in YAML; env vars use the IPDISP_CLIENT_
// prefix via the key replacer (e.g. IPDISP_CLIENT_LOG_LEVEL).
type GlobalConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Receiver ReceiverConfig `mapstructure:"receiver" yaml:"receiver"`
	Control  ControlConfig  `mapstructure:"control" yaml:"control"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Events   EventsConfig   `mapstructure:"events" yaml:"events"`
}

// ─── Display Server ───

// ServerConfig identifies the remote display server.
type ServerConfig struct {
	Address        string `mapstructure:"address" yaml:"address"`
	Port           int    `mapstructure:"port" yaml:"port"`
	ConnectTimeout string `mapstructure:"connect_timeout" yaml:"connect_timeout"` // e.g. "10s"
	SOCKS5Proxy    string `mapstructure:"socks5_proxy" yaml:"socks5_proxy"`       // empty = direct dial
}

// Addr returns the host:port dial target.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
}

// ─── Display ───

// DisplayConfig contains initial presentation-layer parameters used
// until the server announces real dimensions.
type DisplayConfig struct {
	Width       uint32 `mapstructure:"width" yaml:"width"`
	Height      uint32 `mapstructure:"height" yaml:"height"`
	TestPattern bool   `mapstructure:"test_pattern" yaml:"test_pattern"` // render a gradient until the first frame
}

// ─── Receiver ───

// ReceiverConfig tunes the driving loop around the receive primitive.
type ReceiverConfig struct {
	IdleWait  string `mapstructure:"idle_wait" yaml:"idle_wait"`   // wait after an empty poll
	ErrorWait string `mapstructure:"error_wait" yaml:"error_wait"` // wait after a recoverable error
}

// ─── Control Plane ───

// ControlConfig contains local control plane settings.
type ControlConfig struct {
	Socket  string `mapstructure:"socket" yaml:"socket"`
	PIDFile string `mapstructure:"pid_file" yaml:"pid_file"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
	Loki LokiOutputConfig `mapstructure:"loki" yaml:"loki"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// LokiOutputConfig configures Loki log output.
type LokiOutputConfig struct {
	Enabled      bool              `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string            `mapstructure:"endpoint" yaml:"endpoint"`
	Labels       map[string]string `mapstructure:"labels" yaml:"labels"`
	BatchSize    int               `mapstructure:"batch_size" yaml:"batch_size"`
	BatchTimeout string            `mapstructure:"batch_timeout" yaml:"batch_timeout"`
}

// ─── Events ───

// EventsConfig configures the optional Kafka event reporter.
type EventsConfig struct {
	Enabled       bool     `mapstructure:"enabled" yaml:"enabled"`
	Brokers       []string `mapstructure:"brokers" yaml:"brokers"`
	Topic         string   `mapstructure:"topic" yaml:"topic"`
	FlushInterval string   `mapstructure:"flush_interval" yaml:"flush_interval"` // frame stat batch interval
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure.
type configRoot struct {
	IPDispClient GlobalConfig `mapstructure:"ipdisp-client" yaml:"ipdisp-client"`
}

// Load loads configuration from file with env var overrides.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// The `ipdisp-client.` key prefix maps to IPDISP_CLIENT_ env vars
	// via the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.IPDispClient

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values. All keys use the "ipdisp-client."
// prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ipdisp-client.server.address", "127.0.0.1")
	v.SetDefault("ipdisp-client.server.port", 8080)
	v.SetDefault("ipdisp-client.server.connect_timeout", "10s")

	v.SetDefault("ipdisp-client.display.width", 1920)
	v.SetDefault("ipdisp-client.display.height", 1080)
	v.SetDefault("ipdisp-client.display.test_pattern", false)

	v.SetDefault("ipdisp-client.receiver.idle_wait", "16ms")
	v.SetDefault("ipdisp-client.receiver.error_wait", "1s")

	v.SetDefault("ipdisp-client.control.socket", "/var/run/ipdisp-client.sock")
	v.SetDefault("ipdisp-client.control.pid_file", "/var/run/ipdisp-client.pid")

	v.SetDefault("ipdisp-client.metrics.enabled", true)
	v.SetDefault("ipdisp-client.metrics.listen", ":9092")
	v.SetDefault("ipdisp-client.metrics.path", "/metrics")

	v.SetDefault("ipdisp-client.log.level", "info")
	v.SetDefault("ipdisp-client.log.format", "json")
	v.SetDefault("ipdisp-client.log.outputs.file.enabled", false)
	v.SetDefault("ipdisp-client.log.outputs.file.path", "/var/log/ipdisp-client/ipdisp-client.log")
	v.SetDefault("ipdisp-client.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("ipdisp-client.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("ipdisp-client.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("ipdisp-client.log.outputs.file.rotation.compress", true)

	v.SetDefault("ipdisp-client.events.enabled", false)
	v.SetDefault("ipdisp-client.events.flush_interval", "5s")
}

// Validate checks the configuration for consistency.
func (c *GlobalConfig) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := time.ParseDuration(c.Server.ConnectTimeout); err != nil {
		return fmt.Errorf("invalid server.connect_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Receiver.IdleWait); err != nil {
		return fmt.Errorf("invalid receiver.idle_wait: %w", err)
	}
	if _, err := time.ParseDuration(c.Receiver.ErrorWait); err != nil {
		return fmt.Errorf("invalid receiver.error_wait: %w", err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %s", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format: %s", c.Log.Format)
	}

	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events.brokers is required when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events.topic is required when events are enabled")
		}
	}

	return nil
}

// Duration parses one of the config's duration strings, falling back
// to def when the value is empty.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
