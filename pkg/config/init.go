package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// configTemplate is the commented sample written by InitConfig. The single
// placeholder receives a generated auth secret.
const configTemplate = `# Gantry Configuration File
#
# Generated by "gantryd config init".
# Environment variables with the GANTRY_ prefix override file values,
# e.g. GANTRY_LOGGING_LEVEL=DEBUG.

logging:
  level: INFO                   # DEBUG, INFO, WARN, ERROR
  format: text                  # text, json
  output: stdout                # stdout, stderr, or a file path

server:
  name: gantry
  host: 127.0.0.1
  port: 9000
  metrics_port: 9007            # dedicated /metrics + /health listener
  read_timeout: 10s
  write_timeout: 30s
  idle_timeout: 60s
  shutdown_grace: 30s           # in-flight drain budget on shutdown
  pre_run_timeout: 60s          # startup preflight budget

middleware:
  request_timeout: 10s
  compression: true
  compression_level: 5
  # redacted_headers:           # on top of Authorization, always redacted
  #   - X-Api-Key
  cors:
    enabled: true
    allowed_origins: ["*"]
    max_age: 300

auth:
  enabled: false
  # Generated for development use. For production, inject the secret via
  # GANTRY_AUTH_SECRET instead of keeping it on disk:
  #   export GANTRY_AUTH_SECRET=$(openssl rand -hex 32)
  secret: %s
  issuer: gantry
  token_duration: 15m
  refresh_token_duration: 168h

database:
  enabled: false
  host: 127.0.0.1
  port: 5432
  database: gantry
  user: gantry
  password: ""
  ssl_mode: prefer              # disable, require, verify-ca, verify-full, prefer
  min_conns: 3
  max_conns: 10
  acquire_timeout: 30s
  health_check_period: 1m
  retry_attempts: 1             # 0 disables retries
  auto_migrate: false

identity:
  backend: sqlite               # sqlite, postgres
  sqlite: {}                    # path defaults to $XDG_CONFIG_HOME/gantry/identity.db

telemetry:
  enabled: false
  endpoint: localhost:4317      # OTLP gRPC collector
  insecure: true
  sample_rate: 1.0
  flush_timeout: 5s
  profiling:
    enabled: false
    endpoint: http://localhost:4040
`

// InitConfig writes a sample configuration file at the default location
// and returns its path.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file at path. Refuses to
// overwrite an existing file unless force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	secret, err := generateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate auth secret: %w", err)
	}

	content := fmt.Sprintf(configTemplate, secret)

	// 0600: the file holds the auth secret.
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateSecret returns a 64-character hex secret (32 bytes of entropy).
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
