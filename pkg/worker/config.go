package worker

import (
	"fmt"
	"time"
)

// Config contains the configuration for the queue worker.
type Config struct {
	// Concurrency is the number of tasks processed in parallel.
	Concurrency int `yaml:"concurrency" default:"5"`
	// RetryBackoff is the fixed delay before a failed trade stats task is
	// retried.
	RetryBackoff time.Duration `yaml:"retryBackoff" default:"2m"`
}

// Validate validates the config.
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if c.RetryBackoff <= 0 {
		return fmt.Errorf("retryBackoff must be positive")
	}

	return nil
}
