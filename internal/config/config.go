// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application settings. Dashboard credentials are not part
// of it; they live in the store and are loaded fresh for every run.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Shell   ShellConfig   `mapstructure:"shell" yaml:"shell"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the Chrome window that hosts the dashboard.
type BrowserConfig struct {
	ExecPath        string        `mapstructure:"exec_path" yaml:"exec_path"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	Kiosk           bool          `mapstructure:"kiosk" yaml:"kiosk"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	UserDataDir     string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	WindowWidth     int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int           `mapstructure:"window_height" yaml:"window_height"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// EngineConfig tunes the DOM-adaptation engine's waits.
type EngineConfig struct {
	PollInterval       time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SettleDelay        time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	DefaultTimeout     time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	VersionTimeout     time.Duration `mapstructure:"version_timeout" yaml:"version_timeout"`
	ReapplyDelay       time.Duration `mapstructure:"reapply_delay" yaml:"reapply_delay"`
	OptionPollInterval time.Duration `mapstructure:"option_poll_interval" yaml:"option_poll_interval"`
	WatchdogInterval   time.Duration `mapstructure:"watchdog_interval" yaml:"watchdog_interval"`
	WatchdogLead       time.Duration `mapstructure:"watchdog_lead" yaml:"watchdog_lead"`
	SessionExpiryKey   string        `mapstructure:"session_expiry_key" yaml:"session_expiry_key"`
}

// ShellConfig configures the host shell around the engine.
type ShellConfig struct {
	RestartKey     string        `mapstructure:"restart_key" yaml:"restart_key"`
	ResetKey       string        `mapstructure:"reset_key" yaml:"reset_key"`
	ConfigAddr     string        `mapstructure:"config_addr" yaml:"config_addr"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
	KeyCooldown    time.Duration `mapstructure:"key_cooldown" yaml:"key_cooldown"`
}

// StoreConfig points at the persisted settings directory.
type StoreConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "protect-viewer")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.kiosk", false)
	v.SetDefault("browser.ignore_tls_errors", true)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 760)
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Engine --
	v.SetDefault("engine.poll_interval", "100ms")
	v.SetDefault("engine.settle_delay", "20ms")
	v.SetDefault("engine.default_timeout", "60s")
	v.SetDefault("engine.version_timeout", "15s")
	v.SetDefault("engine.reapply_delay", "4s")
	v.SetDefault("engine.option_poll_interval", "500ms")
	v.SetDefault("engine.watchdog_interval", "60s")
	v.SetDefault("engine.watchdog_lead", "10m")
	v.SetDefault("engine.session_expiry_key", "portal:localSessionsExpiresAt")

	// -- Shell --
	v.SetDefault("shell.restart_key", "F9")
	v.SetDefault("shell.reset_key", "F10")
	v.SetDefault("shell.config_addr", "127.0.0.1:0")
	v.SetDefault("shell.metrics_enabled", false)
	v.SetDefault("shell.key_cooldown", "2s")

	// -- Store --
	v.SetDefault("store.dir", "~/.config/protect-viewer")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Shell.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Browser.WindowWidth < 0 || c.Browser.WindowHeight < 0 {
		errs = append(errs, errors.New("browser.window_width and browser.window_height must not be negative"))
	}
	if strings.TrimSpace(c.Store.Dir) == "" {
		errs = append(errs, errors.New("store.dir is required"))
	}
	return errors.Join(errs...)
}

// Validate checks the engine timings.
func (e EngineConfig) Validate() error {
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"engine.poll_interval", e.PollInterval},
		{"engine.default_timeout", e.DefaultTimeout},
		{"engine.version_timeout", e.VersionTimeout},
		{"engine.option_poll_interval", e.OptionPollInterval},
		{"engine.watchdog_interval", e.WatchdogInterval},
	}
	var errs []error
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration", p.name))
		}
	}
	if e.SettleDelay < 0 || e.ReapplyDelay < 0 || e.WatchdogLead < 0 {
		errs = append(errs, errors.New("engine.settle_delay, engine.reapply_delay and engine.watchdog_lead must not be negative"))
	}
	if strings.TrimSpace(e.SessionExpiryKey) == "" {
		errs = append(errs, errors.New("engine.session_expiry_key is required"))
	}
	return errors.Join(errs...)
}

// Validate checks the shell bindings.
func (s ShellConfig) Validate() error {
	if s.RestartKey == "" || s.ResetKey == "" {
		return errors.New("shell.restart_key and shell.reset_key are required")
	}
	if s.RestartKey == s.ResetKey {
		return fmt.Errorf("shell.restart_key and shell.reset_key must differ (both %q)", s.RestartKey)
	}
	if s.ConfigAddr == "" {
		return errors.New("shell.config_addr is required")
	}
	return nil
}
