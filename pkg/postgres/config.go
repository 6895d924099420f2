package postgres

import (
	"fmt"
	"time"
)

// Config holds the configuration for the managed PostgreSQL connection pool.
type Config struct {
	// Enabled turns the database pool on. When false the pool manager is
	// skipped entirely at startup and no connection is attempted.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"` // Default: false

	// Connection parameters
	Host     string `mapstructure:"host" yaml:"host"` // Default: 127.0.0.1
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"` // Default: 5432
	Database string `mapstructure:"database" yaml:"database"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	SSLMode  string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-ca verify-full prefer" yaml:"ssl_mode"` // Default: prefer

	// Connection pool (conservative sizing)
	MaxConns          int32         `mapstructure:"max_conns" yaml:"max_conns"`                     // Default: 10
	MinConns          int32         `mapstructure:"min_conns" yaml:"min_conns"`                     // Default: 3
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`     // Default: 1h
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time" yaml:"max_conn_idle_time"`   // Default: 30m
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period" yaml:"health_check_period"` // Default: 1m

	// Timeouts
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"` // Default: 5s
	QueryTimeout   time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`     // Default: 30s
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" yaml:"acquire_timeout"` // Default: 30s

	// RetryAttempts is the number of extra tries WithConn and WithTx get
	// on a fresh connection after a transient failure, before the
	// operation surfaces ErrUnavailable. Zero disables retries.
	RetryAttempts int `mapstructure:"retry_attempts" validate:"omitempty,min=0,max=10" yaml:"retry_attempts"` // Default: 1

	// AutoMigrate runs pending schema migrations during startup.
	AutoMigrate bool `mapstructure:"auto_migrate" yaml:"auto_migrate"` // Default: false
}

// ApplyDefaults sets default values for unspecified configuration fields
func (c *Config) ApplyDefaults() {
	// Connection defaults
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "prefer"
	}

	// Connection pool defaults (conservative sizing)
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 3
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 1 * time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.HealthCheckPeriod == 0 {
		c.HealthCheckPeriod = 1 * time.Minute
	}

	// Timeout defaults
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = 30 * time.Second
	}

	// RetryAttempts defaults to 1, but 0 (no retries) is a meaningful
	// setting, so the zero value cannot be patched here. The config
	// loader seeds the default before unmarshalling.
}

// Validate checks if the configuration is valid. A disabled pool skips
// the connection checks so a zero config stays loadable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.validateConnection()
}

// validateConnection checks the fields a live connection needs,
// regardless of the Enabled flag.
func (c *Config) validateConnection() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}

	// Validate connection pool values
	if c.MaxConns < 1 {
		return fmt.Errorf("max_conns must be at least 1")
	}
	if c.MinConns < 0 {
		return fmt.Errorf("min_conns cannot be negative")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min_conns (%d) cannot be greater than max_conns (%d)", c.MinConns, c.MaxConns)
	}

	// Validate timeouts and retry policy
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("acquire_timeout must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts cannot be negative")
	}

	// Validate SSL mode
	validSSLModes := map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
		"prefer":      true,
	}
	if !validSSLModes[c.SSLMode] {
		return fmt.Errorf("invalid ssl_mode: %s (must be one of: disable, require, verify-ca, verify-full, prefer)", c.SSLMode)
	}

	return nil
}

// ConnectionString builds a PostgreSQL connection string from the config
func (c *Config) ConnectionString() string {
	s := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=%s connect_timeout=%d",
		c.Host,
		c.Port,
		c.Database,
		c.User,
		c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
	if c.Password != "" {
		s += " password=" + c.Password
	}
	return s
}
