package mongo

import (
	"fmt"
	"time"
)

// Config holds configuration for the MongoDB document store.
type Config struct {
	// URI is the mongodb connection string, e.g. "mongodb://localhost:27017".
	URI string `yaml:"uri"`
	// Database is the database name, default: "explorer".
	Database string `yaml:"database" default:"explorer"`
	// ConnectTimeout is the timeout for establishing the initial connection, default: 10s.
	ConnectTimeout time.Duration `yaml:"connectTimeout" default:"10s"`
	// QueryTimeout is the per-query server-side time limit, default: 20s.
	QueryTimeout time.Duration `yaml:"queryTimeout" default:"20s"`
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("mongo uri is required")
	}

	if c.Database == "" {
		c.Database = "explorer"
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}

	if c.QueryTimeout == 0 {
		c.QueryTimeout = 20 * time.Second
	}

	return nil
}
