package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "prefer", cfg.SSLMode)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(3), cfg.MinConns)
	assert.Equal(t, time.Hour, cfg.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, cfg.MaxConnIdleTime)
	assert.Equal(t, time.Minute, cfg.HealthCheckPeriod)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 30*time.Second, cfg.AcquireTimeout)

	// The retry default is seeded by the config loader so an explicit
	// zero survives; ApplyDefaults leaves it alone.
	assert.Equal(t, 0, cfg.RetryAttempts)
}

func TestConfigApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Host:           "db.internal",
		Port:           5433,
		SSLMode:        "require",
		MaxConns:       50,
		AcquireTimeout: 250 * time.Millisecond,
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "require", cfg.SSLMode)
	assert.Equal(t, int32(50), cfg.MaxConns)
	assert.Equal(t, 250*time.Millisecond, cfg.AcquireTimeout)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{
			Enabled:  true,
			Database: "gantry",
			User:     "gantry",
			Password: "secret",
		}
		cfg.ApplyDefaults()
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
	})

	t.Run("disabled pool skips connection checks", func(t *testing.T) {
		cfg := Config{}
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing database", func(t *testing.T) {
		cfg := valid()
		cfg.Database = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database is required")
	})

	t.Run("missing user", func(t *testing.T) {
		cfg := valid()
		cfg.User = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "user is required")
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Port = 70000
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port must be between")
	})

	t.Run("min conns above max conns", func(t *testing.T) {
		cfg := valid()
		cfg.MinConns = 20
		cfg.MaxConns = 5
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "min_conns")
	})

	t.Run("invalid ssl mode", func(t *testing.T) {
		cfg := valid()
		cfg.SSLMode = "maybe"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid ssl_mode")
	})

	t.Run("negative acquire timeout", func(t *testing.T) {
		cfg := valid()
		cfg.AcquireTimeout = -time.Second
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "acquire_timeout must be positive")
	})

	t.Run("negative retry attempts", func(t *testing.T) {
		cfg := valid()
		cfg.RetryAttempts = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retry_attempts cannot be negative")
	})
}

func TestConnectionString(t *testing.T) {
	cfg := Config{
		Host:           "db.internal",
		Port:           5433,
		Database:       "gantry",
		User:           "svc",
		Password:       "hunter2",
		SSLMode:        "require",
		ConnectTimeout: 5 * time.Second,
	}

	assert.Equal(t,
		"host=db.internal port=5433 dbname=gantry user=svc sslmode=require connect_timeout=5 password=hunter2",
		cfg.ConnectionString(),
	)

	cfg.Password = ""
	assert.Equal(t,
		"host=db.internal port=5433 dbname=gantry user=svc sslmode=require connect_timeout=5",
		cfg.ConnectionString(),
		"trust-auth setups must not produce an empty password keyword",
	)
}
