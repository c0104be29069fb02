package stats

import "fmt"

// SettingKeyPageSync is the settings key tracking the page cursor of the
// scan API transaction sync.
const SettingKeyPageSync = "txs_tomo_api_page_sync"

// CategoryConst is the partner category stored on trade statistics rows.
const CategoryConst = "CONST"

// Config contains the configuration for the statistics synchronizer.
type Config struct {
	// PerPage is the page size used when walking the scan API
	// transaction listing.
	PerPage int64 `yaml:"perPage" default:"50"`
}

// Validate validates the config.
func (c *Config) Validate() error {
	if c.PerPage <= 0 {
		return fmt.Errorf("perPage must be positive")
	}

	return nil
}
