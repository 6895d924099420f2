package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Database.RetryAttempts)
	assert.True(t, cfg.Middleware.Compression)
	assert.True(t, cfg.Middleware.CORS.Enabled)
	assert.True(t, cfg.Telemetry.Insecure)
}

func TestLoadReadsFileValues(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
server:
  port: 8080
  shutdown_grace: 5s
middleware:
  request_timeout: 2s
database:
  enabled: true
  database: orders
  user: svc
  min_conns: 2
  max_conns: 4
  retry_attempts: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level) // normalized
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownGrace)
	assert.Equal(t, 2*time.Second, cfg.Middleware.RequestTimeout)
	assert.EqualValues(t, 2, cfg.Database.MinConns)
	assert.EqualValues(t, 4, cfg.Database.MaxConns)
	assert.Equal(t, 3, cfg.Database.RetryAttempts)

	// Unset fields are filled with defaults.
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 9007, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Database.AcquireTimeout)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: INFO\n")
	t.Setenv("GANTRY_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestLoadZeroRetryAttemptsIsPreserved(t *testing.T) {
	// 0 disables retries; the loader seeds the default of 1 only when the
	// key is absent.
	path := writeConfig(t, "database:\n  retry_attempts: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Database.RetryAttempts)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "logging: [not a map\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  enabled: true
  database: orders
  user: svc
  min_conns: 8
  max_conns: 2
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_conns")
}

func TestMustLoadMissingExplicitFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestMustLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := MustLoad("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gantryd config init")
}

func TestGetDefaultConfigPathHonorsXDG(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	assert.Equal(t, filepath.Join(tmp, "gantry", "config.yaml"), GetDefaultConfigPath())
	assert.Equal(t, filepath.Join(tmp, "gantry"), GetConfigDir())
}
