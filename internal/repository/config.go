package repository

import "fmt"

// Config represents the configuration needed for repository implementations.
type Config struct {
	TableName        string // Primary table name
	EntityIndexName  string // GSI keyed by owning entity (subdomain -> nodes, domain -> subdomains, ...)
	ReverseIndexName string // GSI keyed by edge target, for incoming-edge queries

	MaxRetries int // Maximum number of retry attempts
	BatchSize  int // Maximum batch size for bulk operations
}

// Validate checks if the configuration has all required fields.
func (c Config) Validate() error {
	if c.TableName == "" {
		return fmt.Errorf("TableName is required")
	}
	if c.EntityIndexName == "" {
		return fmt.Errorf("EntityIndexName is required")
	}
	if c.ReverseIndexName == "" {
		return fmt.Errorf("ReverseIndexName is required")
	}
	return nil
}

// WithDefaults returns a new Config with default values applied.
func (c Config) WithDefaults() Config {
	config := c
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.BatchSize == 0 {
		config.BatchSize = 25
	}
	return config
}

// NewConfig creates a new repository configuration with required fields.
func NewConfig(tableName, entityIndexName, reverseIndexName string) Config {
	return Config{
		TableName:        tableName,
		EntityIndexName:  entityIndexName,
		ReverseIndexName: reverseIndexName,
	}.WithDefaults()
}
