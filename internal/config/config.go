package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Dialogs DialogsConfig `yaml:"dialogs"`
	Probe   ProbeConfig   `yaml:"probe"`
	Limits  LimitsConfig  `yaml:"limits"`
}

type ServerConfig struct {
	Name           string   `yaml:"name"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	BaseURL        string   `yaml:"base_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DialogsConfig struct {
	PageSize int  `yaml:"page_size"`
	Seed     bool `yaml:"seed"`
}

// ProbeConfig bounds the background image probes that verify attachment
// URLs actually serve a decodable image.
type ProbeConfig struct {
	Timeout  time.Duration `yaml:"-"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// UnmarshalYAML accepts the timeout in time.ParseDuration form ("10s").
func (p *ProbeConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Timeout  string `yaml:"timeout"`
		MaxBytes int64  `yaml:"max_bytes"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parsing probe.timeout: %w", err)
		}
		p.Timeout = d
	}
	p.MaxBytes = raw.MaxBytes
	return nil
}

type LimitsConfig struct {
	RequestsPerMinute int      `yaml:"requests_per_minute"`
	MaxBodyBytes      int64    `yaml:"max_body_bytes"`
	TrustedProxies    []string `yaml:"trusted_proxies"`
}

// Load reads the config file, applies env overrides, and fills in
// defaults. A missing file is not an error: the server runs on defaults
// plus environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SUPPORTDESK_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SUPPORTDESK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SUPPORTDESK_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("SUPPORTDESK_PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Probe.Timeout = d
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Dialogs.PageSize < 0 {
		return fmt.Errorf("dialogs.page_size must not be negative")
	}
	if c.Probe.Timeout < 0 {
		return fmt.Errorf("probe.timeout must not be negative")
	}
	if c.Probe.MaxBytes < 0 {
		return fmt.Errorf("probe.max_bytes must not be negative")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "Support Desk"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Dialogs.PageSize == 0 {
		c.Dialogs.PageSize = 10
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = 10 * time.Second
	}
	if c.Probe.MaxBytes == 0 {
		c.Probe.MaxBytes = 4 << 20
	}
	if c.Limits.RequestsPerMinute == 0 {
		c.Limits.RequestsPerMinute = 300
	}
	if c.Limits.MaxBodyBytes == 0 {
		c.Limits.MaxBodyBytes = 1 << 20
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
