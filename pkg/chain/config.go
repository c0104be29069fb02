package chain

import "fmt"

// Config holds the chain RPC endpoint.
type Config struct {
	// Endpoint is the JSON-RPC URL of an execution node.
	Endpoint string `yaml:"endpoint"`
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("chain rpc endpoint is required")
	}

	return nil
}
