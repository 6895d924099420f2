package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared; the validator caches struct metadata internally.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
//
// Struct tags run first (ranges, oneof sets), then each component enforces
// its own cross-field invariants, so a section error carries the section
// name.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := cfg.Middleware.Validate(); err != nil {
		return fmt.Errorf("middleware: %w", err)
	}
	if err := cfg.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := cfg.Identity.Validate(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}

	return nil
}
