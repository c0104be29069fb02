package external

import (
	"fmt"
	"time"
)

// Config holds the endpoints of the upstream services.
type Config struct {
	// ConstAPI is the partner statistics endpoint returning referral volumes.
	ConstAPI string `yaml:"constApi"`
	// ScanAPI is the base URL of the third-party scan service.
	ScanAPI string `yaml:"scanApi"`
	// TickerAPI is the price-ticker endpoint proxied by GET /setting/usd.
	TickerAPI string `yaml:"tickerApi"`
	// Address is the exchange address whose transactions are synchronized.
	Address string `yaml:"address"`
	// Timeout bounds every upstream call so a hung upstream cannot stall a
	// sync cycle indefinitely.
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

func (c *Config) Validate() error {
	if c.ConstAPI == "" {
		return fmt.Errorf("const api endpoint is required")
	}

	if c.ScanAPI == "" {
		return fmt.Errorf("scan api endpoint is required")
	}

	if c.Address == "" {
		return fmt.Errorf("exchange address is required")
	}

	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}

	return nil
}
