package redis

import (
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client from configuration
func New(config *Config) (*redis.Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: address(config),
	})

	return client, nil
}

// AsynqOpt builds the asynq connection options for the same Redis instance.
// Asynq keeps its own connections so queue shutdown does not race the cache client.
func AsynqOpt(config *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr: address(config),
	}
}

func address(config *Config) string {
	return strings.TrimPrefix(config.Address, "redis://")
}
