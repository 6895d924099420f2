package auth

import (
	"errors"
	"fmt"
	"time"
)

// MinSecretLength is the shortest HMAC secret accepted. Anything shorter
// is brute-forceable offline.
const MinSecretLength = 32

// EnvAuthSecret is the environment variable holding the signing secret,
// for deployments that keep it out of the configuration file.
const EnvAuthSecret = "GANTRY_AUTH_SECRET"

// ErrInvalidSecretLength is returned when the signing secret is too short.
var ErrInvalidSecretLength = errors.New("auth secret must be at least 32 characters")

// Config holds configuration for token issuance and validation.
type Config struct {
	// Enabled controls whether the auth stage is enforced at all. When
	// false the pipeline runs without authentication.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"` // Default: false

	// Secret is the HMAC signing key. Must be at least 32 characters.
	Secret string `mapstructure:"secret" validate:"omitempty,min=32" yaml:"secret"`

	// Issuer is the token issuer claim, verified on validation.
	Issuer string `mapstructure:"issuer" yaml:"issuer"` // Default: "gantry"

	// TokenDuration is the lifetime of issued access tokens.
	TokenDuration time.Duration `mapstructure:"token_duration" yaml:"token_duration"` // Default: 15m

	// RefreshTokenDuration is the lifetime of issued refresh tokens.
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" yaml:"refresh_token_duration"` // Default: 168h (7 days)
}

// ApplyDefaults sets default values for unspecified configuration fields
func (c *Config) ApplyDefaults() {
	if c.Issuer == "" {
		c.Issuer = "gantry"
	}
	if c.TokenDuration == 0 {
		c.TokenDuration = 15 * time.Minute
	}
	if c.RefreshTokenDuration == 0 {
		c.RefreshTokenDuration = 7 * 24 * time.Hour
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Secret) < MinSecretLength {
		return ErrInvalidSecretLength
	}
	if c.TokenDuration < 0 {
		return fmt.Errorf("token_duration must not be negative")
	}
	if c.RefreshTokenDuration < 0 {
		return fmt.Errorf("refresh_token_duration must not be negative")
	}
	return nil
}
