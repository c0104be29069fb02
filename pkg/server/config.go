package server

import (
	"fmt"
	"time"

	"github.com/chaintex/trade-processor/pkg/chain"
	"github.com/chaintex/trade-processor/pkg/crawler"
	"github.com/chaintex/trade-processor/pkg/external"
	"github.com/chaintex/trade-processor/pkg/mongo"
	"github.com/chaintex/trade-processor/pkg/producer"
	"github.com/chaintex/trade-processor/pkg/redis"
	"github.com/chaintex/trade-processor/pkg/stats"
	"github.com/chaintex/trade-processor/pkg/worker"
)

// Mode selects which process the server runs.
type Mode string

const (
	// ModeAPI serves the read-only aggregation API.
	ModeAPI Mode = "api"
	// ModeProducer runs the job production loop.
	ModeProducer Mode = "producer"
	// ModeWorker consumes queue tasks.
	ModeWorker Mode = "worker"
	// ModeCrawler follows the chain head and enqueues block tasks.
	ModeCrawler Mode = "crawler"
)

// Config is the top-level configuration shared by all modes.
type Config struct {
	// LoggingLevel is the logrus level name.
	LoggingLevel string `yaml:"logging" default:"info"`
	// MetricsAddr is the address the prometheus endpoint listens on.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// HealthCheckAddr enables the healthcheck endpoint when set.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr enables pprof when set.
	PProfAddr *string `yaml:"pprofAddr"`
	// APIAddr is the address the aggregation API listens on.
	APIAddr string `yaml:"apiAddr" default:":3000"`
	// ShutdownTimeout bounds the graceful shutdown of HTTP servers.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`

	Mongo    *mongo.Config    `yaml:"mongo"`
	Redis    *redis.Config    `yaml:"redis"`
	Chain    *chain.Config    `yaml:"chain"`
	External *external.Config `yaml:"external"`

	Sync     stats.Config    `yaml:"sync"`
	Producer producer.Config `yaml:"producer"`
	Worker   worker.Config   `yaml:"worker"`
	Crawler  crawler.Config  `yaml:"crawler"`
}

// Validate checks the parts of the config the given mode needs.
func (c *Config) Validate(mode Mode) error {
	if c.Mongo == nil {
		return fmt.Errorf("mongo config is required")
	}

	if err := c.Mongo.Validate(); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}

	if c.Redis == nil {
		return fmt.Errorf("redis config is required")
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	switch mode {
	case ModeAPI:
		if c.External == nil {
			return fmt.Errorf("external config is required in api mode")
		}

		if err := c.External.Validate(); err != nil {
			return fmt.Errorf("external: %w", err)
		}
	case ModeProducer:
		if err := c.Producer.Validate(); err != nil {
			return fmt.Errorf("producer: %w", err)
		}
	case ModeWorker:
		if c.External == nil {
			return fmt.Errorf("external config is required in worker mode")
		}

		if err := c.External.Validate(); err != nil {
			return fmt.Errorf("external: %w", err)
		}

		if c.Chain == nil {
			return fmt.Errorf("chain config is required in worker mode")
		}

		if err := c.Chain.Validate(); err != nil {
			return fmt.Errorf("chain: %w", err)
		}

		if err := c.Worker.Validate(); err != nil {
			return fmt.Errorf("worker: %w", err)
		}

		if err := c.Sync.Validate(); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
	case ModeCrawler:
		if c.Chain == nil {
			return fmt.Errorf("chain config is required in crawler mode")
		}

		if err := c.Chain.Validate(); err != nil {
			return fmt.Errorf("chain: %w", err)
		}

		if err := c.Crawler.Validate(); err != nil {
			return fmt.Errorf("crawler: %w", err)
		}
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}

	return nil
}
