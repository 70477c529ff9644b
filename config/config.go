// Package config holds the declarative client configuration: how to
// authenticate, whether to encrypt the transport, how long to wait for a
// connection and where log output goes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// AuthSettings capture the credentials used during the init handshake.
// Only basic authentication (with an optional realm) can be declared in a
// configuration file; other schemes are constructed programmatically.
type AuthSettings struct {
	Scheme   string `yaml:"scheme,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Realm    string `yaml:"realm,omitempty"`
}

// TLSSettings allow encrypted transports to be configured.
type TLSSettings struct {
	Enabled            bool     `yaml:"enabled"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify,omitempty"`
	CAFile             string   `yaml:"ca_file,omitempty"`
	CertFile           string   `yaml:"cert_file,omitempty"`
	KeyFile            string   `yaml:"key_file,omitempty"`
	ServerName         string   `yaml:"server_name,omitempty"`
	ALPN               []string `yaml:"alpn,omitempty"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates client logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetrySettings toggle Prometheus metrics for the connect path.
type TelemetrySettings struct {
	Enabled bool `yaml:"enabled"`
}

// ClientConfig is the root configuration structure for a client.
type ClientConfig struct {
	UserAgent      string            `yaml:"user_agent,omitempty"`
	ConnectTimeout Duration          `yaml:"connect_timeout,omitempty"`
	Auth           AuthSettings      `yaml:"auth"`
	TLS            TLSSettings       `yaml:"tls"`
	Logging        LoggingConfig     `yaml:"logging"`
	Telemetry      TelemetrySettings `yaml:"telemetry"`
}

// Load reads, decodes and validates the configuration file from disk.
func Load(path string) (*ClientConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg ClientConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for contradictions before any
// connection is attempted.
func (c *ClientConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.ConnectTimeout.Duration < 0 {
		return fmt.Errorf("connect_timeout must not be negative")
	}
	switch c.Auth.Scheme {
	case "", "basic", "none":
	default:
		return fmt.Errorf("auth scheme %q cannot be declared in configuration", c.Auth.Scheme)
	}
	if c.Auth.Scheme == "none" && c.Auth.Username != "" {
		return fmt.Errorf("auth scheme none must not carry a username")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("tls cert_file and key_file must be configured together")
	}
	return nil
}
