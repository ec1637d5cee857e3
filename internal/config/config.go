package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STUDYEVENTS"

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Transport TransportConfig `yaml:"transport"`
	Events    EventsConfig    `yaml:"events"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Path enables a rotating log file next to the console output.
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" split_words:"true"`
	MaxBackups int    `yaml:"max_backups" split_words:"true"`
	MaxAgeDays int    `yaml:"max_age_days" split_words:"true"`
	Compress   bool   `yaml:"compress"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
	// DefaultApp is used when auth is disabled.
	DefaultApp string `yaml:"default_app" split_words:"true"`
}

type TransportConfig struct {
	// Mode is "http" or "stdio".
	Mode string `yaml:"mode"`
}

type EventsConfig struct {
	MaxCascadeDepth int `yaml:"max_cascade_depth" split_words:"true"`
	RetryAttempts   int `yaml:"retry_attempts" split_words:"true"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(envPrefix + "_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "studyevents.db",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Auth: AuthConfig{
			Enabled:    true,
			DefaultApp: "default",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Events: EventsConfig{
			MaxCascadeDepth: 5,
			RetryAttempts:   3,
		},
	}
}

func (c Config) validate() error {
	if c.Transport.Mode != "http" && c.Transport.Mode != "stdio" {
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("invalid log rotation settings")
	}
	if c.Events.MaxCascadeDepth < 0 {
		return fmt.Errorf("invalid max cascade depth %d", c.Events.MaxCascadeDepth)
	}
	if c.Events.RetryAttempts < 1 {
		return fmt.Errorf("invalid retry attempts %d", c.Events.RetryAttempts)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
