// Package config provides configuration management for the warrant browser.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Transport   TransportConfig `mapstructure:"transport"`
	Filter      FilterConfig    `mapstructure:"filter"`
	Auth        AuthConfig      `mapstructure:"auth"`
	UI          UIConfig        `mapstructure:"ui"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
}

// TransportConfig holds document-transport configuration.
type TransportConfig struct {
	MongoURI          string        `mapstructure:"mongo_uri"`
	Database          string        `mapstructure:"database"`
	CommandCollection string        `mapstructure:"command_collection"`
	ResultCollection  string        `mapstructure:"result_collection"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	Offline           bool          `mapstructure:"offline"`
}

// FilterConfig holds the strict filter thresholds. These are policy,
// not protocol: the pipeline reads whatever is configured here.
type FilterConfig struct {
	ExcludedBrokers   []string `mapstructure:"excluded_brokers"`
	MinDaysToMaturity int      `mapstructure:"min_days_to_maturity"`
	MinLeverage       float64  `mapstructure:"min_leverage"`
	MaxLeverage       float64  `mapstructure:"max_leverage"`
	MaxThetaPercent   float64  `mapstructure:"max_theta_percent"`
	MinVolume         float64  `mapstructure:"min_volume"`
	MinPrice          float64  `mapstructure:"min_price"`
	MaxPrice          float64  `mapstructure:"max_price"`
	MaxSpread         float64  `mapstructure:"max_spread"`
}

// AuthConfig holds login-gate configuration.
type AuthConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts"`
	LockoutSeconds int `mapstructure:"lockout_seconds"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds secrets kept out of the main config file.
type Credentials struct {
	Passcode     string            `mapstructure:"passcode"`
	OverrideCode string            `mapstructure:"override_code"`
	OpenAI       OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/warrant-sniper"
	}
	return filepath.Join(home, ".config", "warrant-sniper")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("transport.database", "warrant_sniper")
	v.SetDefault("transport.command_collection", "search_commands")
	v.SetDefault("transport.result_collection", "search_results")
	v.SetDefault("transport.connect_timeout", 10*time.Second)
	v.SetDefault("transport.offline", false)

	// Strict high-win-rate filter defaults
	v.SetDefault("filter.excluded_brokers", []string{"統一"})
	v.SetDefault("filter.min_days_to_maturity", 90)
	v.SetDefault("filter.min_leverage", 2.5)
	v.SetDefault("filter.max_leverage", 9.0)
	v.SetDefault("filter.max_theta_percent", 2.5)
	v.SetDefault("filter.min_volume", 10.0)
	v.SetDefault("filter.min_price", 0.25)
	v.SetDefault("filter.max_price", 3.0)
	v.SetDefault("filter.max_spread", 0.03)

	v.SetDefault("auth.max_attempts", 3)
	v.SetDefault("auth.lockout_seconds", 300)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.time_format", "15:04:05")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WARRANT_MONGO_URI"); v != "" {
		cfg.Transport.MongoURI = v
	}
	if v := os.Getenv("WARRANT_PASSCODE"); v != "" {
		cfg.Credentials.Passcode = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Filter.MinLeverage > c.Filter.MaxLeverage {
		return fmt.Errorf("min_leverage must not exceed max_leverage")
	}
	if c.Filter.MinPrice > c.Filter.MaxPrice {
		return fmt.Errorf("min_price must not exceed max_price")
	}
	if c.Filter.MinDaysToMaturity < 0 {
		return fmt.Errorf("min_days_to_maturity must be non-negative")
	}
	if c.Filter.MaxSpread < 0 {
		return fmt.Errorf("max_spread must be non-negative")
	}
	if c.Auth.MaxAttempts < 1 {
		return fmt.Errorf("auth.max_attempts must be at least 1")
	}
	if c.Auth.LockoutSeconds < 0 {
		return fmt.Errorf("auth.lockout_seconds must be non-negative")
	}
	return nil
}

// LockoutDuration returns the configured lockout window.
func (c *Config) LockoutDuration() time.Duration {
	return time.Duration(c.Auth.LockoutSeconds) * time.Second
}

// HasMongo reports whether a Mongo transport can be constructed.
func (c *Config) HasMongo() bool {
	return c.Transport.MongoURI != "" && !c.Transport.Offline
}
