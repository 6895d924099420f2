package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigCreatesSample(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	path, err := InitConfig(false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "gantry", "config.yaml"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, section := range []string{
		"# Gantry Configuration File",
		"logging:",
		"server:",
		"middleware:",
		"auth:",
		"database:",
		"identity:",
		"telemetry:",
	} {
		assert.Contains(t, string(content), section)
	}

	// The generated file must load cleanly.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Auth.Secret, 64)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Database.RetryAttempts)
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := InitConfig(false)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = InitConfig(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// Force regenerates the file, including a fresh auth secret.
	_, err = InitConfig(true)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, string(first), string(second))
}

func TestInitConfigToPathCustomLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "gantry.yaml")

	require.NoError(t, InitConfigToPath(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gantry", cfg.Server.Name)
}
