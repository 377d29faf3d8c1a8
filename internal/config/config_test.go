// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "protect-viewer", cfg.Logger.ServiceName)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine.PollInterval)
	assert.Equal(t, 20*time.Millisecond, cfg.Engine.SettleDelay)
	assert.Equal(t, 60*time.Second, cfg.Engine.DefaultTimeout)
	assert.Equal(t, 4*time.Second, cfg.Engine.ReapplyDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.OptionPollInterval)
	assert.Equal(t, time.Minute, cfg.Engine.WatchdogInterval)
	assert.Equal(t, 10*time.Minute, cfg.Engine.WatchdogLead)
	assert.Equal(t, "F9", cfg.Shell.RestartKey)
	assert.Equal(t, "F10", cfg.Shell.ResetKey)
	assert.NoError(t, cfg.Validate(), "defaults must always validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Engine Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Engine.PollInterval = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.poll_interval must be a positive duration")

		cfg = NewDefaultConfig()
		cfg.Engine.SettleDelay = -time.Millisecond
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not be negative")

		cfg = NewDefaultConfig()
		cfg.Engine.SessionExpiryKey = " "
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.session_expiry_key is required")
	})

	t.Run("Shell Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Shell.ResetKey = cfg.Shell.RestartKey
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must differ")

		cfg = NewDefaultConfig()
		cfg.Shell.RestartKey = ""
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "are required")
	})

	t.Run("Reports Every Problem", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Engine.WatchdogInterval = 0
		cfg.Store.Dir = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.watchdog_interval")
		assert.Contains(t, err.Error(), "store.dir is required")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	yamlConfig := []byte(`
logger:
  level: debug
engine:
  reapply_delay: 2s
  watchdog_lead: 5m
shell:
  restart_key: F5
browser:
  kiosk: true
  args:
    - --disable-translate
`)
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 2*time.Second, cfg.Engine.ReapplyDelay)
	assert.Equal(t, 5*time.Minute, cfg.Engine.WatchdogLead)
	assert.Equal(t, "F5", cfg.Shell.RestartKey)
	assert.Equal(t, "F10", cfg.Shell.ResetKey, "unset keys keep their defaults")
	assert.True(t, cfg.Browser.Kiosk)
	assert.Equal(t, []string{"--disable-translate"}, cfg.Browser.Args)
}

func TestNewConfigFromViper_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("engine.poll_interval", "0s")

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
