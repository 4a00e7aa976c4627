// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the resource manager service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int `mapstructure:"write_timeout"` // seconds
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	Enabled       bool   `mapstructure:"enabled"`
	MaxReconnects int    `mapstructure:"max_reconnects"`
	ReconnectWait int    `mapstructure:"reconnect_wait"` // seconds
}

// ReconnectWaitDuration returns the reconnect wait as a time.Duration.
func (n NATSConfig) ReconnectWaitDuration() time.Duration {
	return time.Duration(n.ReconnectWait) * time.Second
}

// StorageConfig selects and configures the document store backend.
type StorageConfig struct {
	// Backend is one of: memory, file, nats, postgres.
	Backend  string         `mapstructure:"backend"`
	File     FileConfig     `mapstructure:"file"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	NATS     NATSKVConfig   `mapstructure:"nats"`
}

// FileConfig configures the filesystem document store.
type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

// PostgresConfig configures the Postgres document store.
type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// NATSKVConfig configures the JetStream key-value document store.
type NATSKVConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// Load reads configuration from config.yaml (if present) and MISSIONCTL_* environment
// variables, applying defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/missionctl")

	v.SetEnvPrefix("MISSIONCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8084)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2)
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.file.dir", "./data")
	v.SetDefault("storage.nats.bucket", "missionctl")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	switch cfg.Storage.Backend {
	case "memory", "file", "nats", "postgres":
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return &cfg, nil
}
