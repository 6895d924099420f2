package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills in any unspecified configuration fields.
//
// Zero values (0, "", nil) are replaced with defaults; explicit values are
// preserved. Fields whose zero value is meaningful (compression, CORS,
// retry attempts) are seeded by the loader instead, since this function
// cannot tell "false" from "not set".
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	cfg.Server.ApplyDefaults()
	cfg.Middleware.ApplyDefaults()
	cfg.Auth.ApplyDefaults()
	cfg.Database.ApplyDefaults()
	cfg.Identity.ApplyDefaults()
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OTLP and profiling defaults. Enabled stays
// opt-in for both.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.FlushTimeout == 0 {
		cfg.FlushTimeout = 5 * time.Second
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// Default returns a Config with every default applied, including the
// loader-seeded values ApplyDefaults cannot patch.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)

	cfg.Database.RetryAttempts = 1
	cfg.Middleware.Compression = true
	cfg.Middleware.CORS.Enabled = true
	cfg.Telemetry.Insecure = true

	return cfg
}
