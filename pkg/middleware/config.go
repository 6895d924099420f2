package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds the configuration for the middleware pipeline.
type Config struct {
	// RequestTimeout bounds how long a single request may run before the
	// pipeline answers 504 on the handler's behalf.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // Default: 10s

	// Compression enables gzip response compression.
	Compression bool `mapstructure:"compression" yaml:"compression"` // Default: true (set by config loader)

	// CompressionLevel is the gzip level used when compression is enabled.
	CompressionLevel int `mapstructure:"compression_level" validate:"omitempty,min=1,max=9" yaml:"compression_level"` // Default: 5

	// RedactedHeaders are additional header names whose values must never
	// appear in logs or traces. Authorization is always redacted.
	RedactedHeaders []string `mapstructure:"redacted_headers" yaml:"redacted_headers"`

	// CORS configures cross-origin resource sharing.
	CORS CORSConfig `mapstructure:"cors" yaml:"cors"`
}

// CORSConfig holds the cross-origin policy applied by the CORS stage.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"` // Default: true (set by config loader)

	// AllowedOrigins lists origins permitted to call the API. Supports
	// "*" and subdomain wildcards like "https://*.example.com".
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"` // Default: ["*"]

	// AllowedMethods lists methods advertised on preflight responses.
	AllowedMethods []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`

	// AllowedHeaders lists request headers advertised on preflight responses.
	AllowedHeaders []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`

	// ExposedHeaders lists response headers browsers may read cross-origin.
	ExposedHeaders []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`

	// MaxAge is how long, in seconds, browsers may cache preflight results.
	MaxAge int `mapstructure:"max_age" validate:"omitempty,min=0" yaml:"max_age"` // Default: 300

	// AllowCredentials permits cookies and Authorization headers on
	// cross-origin requests. Incompatible with a literal "*" origin, so the
	// matched origin is echoed instead when this is set.
	AllowCredentials bool `mapstructure:"allow_credentials" yaml:"allow_credentials"` // Default: false
}

// ApplyDefaults sets default values for unspecified configuration fields
func (c *Config) ApplyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.CompressionLevel == 0 {
		c.CompressionLevel = 5
	}
	c.CORS.ApplyDefaults()
}

// ApplyDefaults sets default values for unspecified CORS fields
func (c *CORSConfig) ApplyDefaults() {
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}
	}
	if c.MaxAge == 0 {
		c.MaxAge = 300
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return fmt.Errorf("compression_level must be between 1 and 9, got %d", c.CompressionLevel)
	}
	if c.CORS.MaxAge < 0 {
		return fmt.Errorf("cors.max_age must not be negative")
	}
	return nil
}
