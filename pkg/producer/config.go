package producer

import (
	"fmt"
	"time"

	"github.com/chaintex/trade-processor/pkg/leaderelection"
)

// SettingKeyPushNewJob is the feature flag gating job production. Any value
// other than "1" pauses the producer.
const SettingKeyPushNewJob = "push_new_job"

// Config contains the configuration for the job producer.
type Config struct {
	// Interval is the time between production cycles.
	Interval time.Duration `yaml:"interval" default:"2m"`
	// MaxQueueDepth is the number of outstanding stats jobs above which a
	// cycle is skipped.
	MaxQueueDepth int `yaml:"maxQueueDepth" default:"1"`
	// LeaderElection restricts production to a single instance when
	// enabled.
	LeaderElection *leaderelection.Config `yaml:"leaderElection"`
}

// Validate validates the config.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	if c.MaxQueueDepth < 0 {
		return fmt.Errorf("maxQueueDepth must not be negative")
	}

	if c.LeaderElection != nil {
		if err := c.LeaderElection.Validate(); err != nil {
			return fmt.Errorf("leaderElection: %w", err)
		}
	}

	return nil
}
