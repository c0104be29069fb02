// Package leaderelection provides redis-based leader election so only one
// producer instance enqueues jobs at a time.
package leaderelection

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/creasty/defaults"
)

// Config holds configuration for leader election.
type Config struct {
	// Enabled turns leader election on. With it off the producer always
	// behaves as the leader.
	Enabled bool `yaml:"enabled" default:"false"`
	// TTL is the time-to-live of the leader lock.
	TTL time.Duration `yaml:"ttl" default:"10s"`
	// RenewalInterval is how often the lock is renewed or contested.
	RenewalInterval time.Duration `yaml:"renewalInterval" default:"3s"`
	// NodeID identifies this node. Generated when empty.
	NodeID string `yaml:"nodeId"`
}

// Validate validates the config, applying defaults to unset fields.
func (c *Config) Validate() error {
	if err := defaults.Set(c); err != nil {
		return err
	}

	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if c.RenewalInterval <= 0 || c.RenewalInterval >= c.TTL {
		return fmt.Errorf("renewalInterval must be positive and below ttl")
	}

	return nil
}

// Elector is the interface for leader election implementations.
type Elector interface {
	// Start begins the election process.
	Start(ctx context.Context) error

	// Stop gracefully stops the election, releasing the lock if held.
	Stop(ctx context.Context) error

	// IsLeader returns true if this node currently holds the lock.
	IsLeader() bool
}

func generateNodeID() (string, error) {
	bytes := make([]byte, 16)

	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate node ID: %w", err)
	}

	return hex.EncodeToString(bytes), nil
}
