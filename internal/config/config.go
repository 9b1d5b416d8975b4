// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models/events"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Addr string `mapstructure:"addr" yaml:"addr"`
	} `mapstructure:"server" yaml:"server"`

	Storage struct {
		Driver string `mapstructure:"driver" yaml:"driver"`
		DSN    string `mapstructure:"dsn" yaml:"-"` // may carry credentials
	} `mapstructure:"storage" yaml:"storage"`

	Categorizer struct {
		Endpoint       string `mapstructure:"endpoint" yaml:"endpoint"`
		APIKey         string `mapstructure:"api_key" yaml:"-"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		RulesFile      string `mapstructure:"rules_file" yaml:"rules_file"`
		Workers        int    `mapstructure:"workers" yaml:"workers"`
		QueueSize      int    `mapstructure:"queue_size" yaml:"queue_size"`
	} `mapstructure:"categorizer" yaml:"categorizer"`

	Gemini struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		APIKey  string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
		Model   string `mapstructure:"model" yaml:"model"`
	} `mapstructure:"gemini" yaml:"gemini"`

	Kafka struct {
		Brokers []string `mapstructure:"brokers" yaml:"brokers"`
		Topic   string   `mapstructure:"topic" yaml:"topic"`
	} `mapstructure:"kafka" yaml:"kafka"`
}

// CategorizerTimeout returns the remote classifier timeout.
func (c *Config) CategorizerTimeout() time.Duration {
	return time.Duration(c.Categorizer.TimeoutSeconds) * time.Second
}

// Load builds the configuration from defaults, an optional YAML file and
// LEDGER_* environment variables, in increasing priority. A .env file in the
// working directory is loaded first when present. configFile overrides the
// search path when non-empty.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.ledger")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 5. The Gemini key is also accepted unprefixed
	if err := v.BindEnv("gemini.api_key", "LEDGER_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.dsn", "")

	v.SetDefault("categorizer.endpoint", "")
	v.SetDefault("categorizer.api_key", "")
	v.SetDefault("categorizer.timeout_seconds", 10)
	v.SetDefault("categorizer.rules_file", "")
	v.SetDefault("categorizer.workers", 4)
	v.SetDefault("categorizer.queue_size", 256)

	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", events.TopicTransactionCommitted)
}

// Validate checks the configuration values
func Validate(cfg *Config) error {
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", cfg.Log.Format)
	}

	switch cfg.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("storage.dsn is required for driver %s", cfg.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver: %s (must be memory, sqlite or postgres)", cfg.Storage.Driver)
	}

	if cfg.Categorizer.TimeoutSeconds < 1 || cfg.Categorizer.TimeoutSeconds > 120 {
		return fmt.Errorf("categorizer.timeout_seconds must be between 1 and 120, got: %d", cfg.Categorizer.TimeoutSeconds)
	}
	if cfg.Categorizer.Workers < 1 {
		return fmt.Errorf("categorizer.workers must be positive, got: %d", cfg.Categorizer.Workers)
	}
	if cfg.Categorizer.QueueSize < 0 {
		return fmt.Errorf("categorizer.queue_size cannot be negative, got: %d", cfg.Categorizer.QueueSize)
	}

	if cfg.Gemini.Enabled && cfg.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY required when gemini is enabled")
	}
	return nil
}
