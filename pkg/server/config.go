package server

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds the server orchestrator configuration.
type Config struct {
	// Name is the service name reported by the health endpoints.
	Name string `mapstructure:"name" yaml:"name"` // Default: "gantry"

	// Host is the address both listeners bind to.
	Host string `mapstructure:"host" yaml:"host"` // Default: "127.0.0.1"

	// Port is the application listener port.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"` // Default: 9000

	// MetricsEnabled controls the dedicated metrics listener.
	// Default: true (pointer distinguishes "not set" from "explicitly false")
	MetricsEnabled *bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`

	// MetricsPort is the metrics listener port, serving /metrics and /health.
	MetricsPort int `mapstructure:"metrics_port" validate:"omitempty,min=1,max=65535" yaml:"metrics_port"` // Default: 9007

	// ReadTimeout is the maximum duration for reading an entire request,
	// including the body.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"` // Default: 10s

	// WriteTimeout is the maximum duration before timing out response writes.
	// Must exceed the middleware request timeout, or timeout responses are
	// cut off before they reach the client.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"` // Default: 30s

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"` // Default: 60s

	// ShutdownGrace is how long a shutdown waits for in-flight requests
	// before forcing connections closed. Must be positive.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"` // Default: 30s

	// PreRunTimeout bounds the concurrent process preflight phase at startup.
	PreRunTimeout time.Duration `mapstructure:"pre_run_timeout" yaml:"pre_run_timeout"` // Default: 60s
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "gantry"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 9007
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownGrace == 0 {
		c.ShutdownGrace = 30 * time.Second
	}
	if c.PreRunTimeout == 0 {
		c.PreRunTimeout = 60 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics_port must be between 0 and 65535, got %d", c.MetricsPort)
	}
	if c.IsMetricsEnabled() && c.MetricsPort == c.Port && c.Port != 0 {
		return fmt.Errorf("metrics_port must differ from port, both are %d", c.Port)
	}
	if c.ShutdownGrace <= 0 {
		return fmt.Errorf("shutdown_grace must be positive, got %s", c.ShutdownGrace)
	}
	if c.PreRunTimeout <= 0 {
		return fmt.Errorf("pre_run_timeout must be positive, got %s", c.PreRunTimeout)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// IsMetricsEnabled returns whether the metrics listener is enabled.
// Defaults to true if not explicitly set.
func (c *Config) IsMetricsEnabled() bool {
	if c.MetricsEnabled == nil {
		return true
	}
	return *c.MetricsEnabled
}

// Addr returns the application listener address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MetricsAddr returns the metrics listener address.
func (c *Config) MetricsAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.MetricsPort))
}
