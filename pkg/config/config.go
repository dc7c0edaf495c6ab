// Package config holds runtime configuration for the knowledge graph backend.
// Values come from environment variables with sensible defaults, optionally
// overlaid by a YAML file for local development.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment identifies the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config holds all configuration values
type Config struct {
	TableName        string      `yaml:"table_name"`
	EntityIndexName  string      `yaml:"entity_index_name"`
	ReverseIndexName string      `yaml:"reverse_index_name"`
	Region           string      `yaml:"region"`
	EventBusName     string      `yaml:"event_bus_name"`
	ServerAddress    string      `yaml:"server_address"`
	Environment      Environment `yaml:"environment"`
	LogLevel         string      `yaml:"log_level"`
	EnableMetrics    bool        `yaml:"enable_metrics"`
}

// New creates a new configuration from environment variables.
func New() *Config {
	return &Config{
		TableName:        getEnv("TABLE_NAME", "kgraph"),
		EntityIndexName:  getEnv("ENTITY_INDEX_NAME", "EntityIndex"),
		ReverseIndexName: getEnv("REVERSE_INDEX_NAME", "ReverseIndex"),
		Region:           getEnv("AWS_REGION", "us-east-1"),
		EventBusName:     getEnv("EVENT_BUS_NAME", "kgraph-events"),
		ServerAddress:    getEnv("SERVER_ADDRESS", ":8080"),
		Environment:      Environment(getEnv("ENVIRONMENT", string(Development))),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		EnableMetrics:    getEnv("ENABLE_METRICS", "true") != "false",
	}
}

// Load builds the configuration from the environment and, when CONFIG_FILE is
// set (or a file path is passed explicitly), overlays values from that YAML
// file. File values win over environment defaults.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		return cfg, nil
	}
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
