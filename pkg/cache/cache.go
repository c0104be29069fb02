// Package cache implements the cache-aside helper for hot query responses.
// Values are JSON-serialized response bodies with short, per-endpoint TTLs;
// eviction is delegated to Redis key expiry.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultTTL applies when a caller passes a zero TTL.
const DefaultTTL = 2 * time.Hour

type Cache struct {
	log    logrus.FieldLogger
	client *redis.Client
	prefix string
}

func New(log logrus.FieldLogger, client *redis.Client, prefix string) *Cache {
	return &Cache{
		log:    log.WithField("component", "cache"),
		client: client,
		prefix: prefix,
	}
}

// GetJSON loads the cached value for key into v. Returns false on miss.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.prefixed(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}

	return true, nil
}

// SetJSON stores v under key with the given TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.prefixed(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}

	return nil
}

func (c *Cache) prefixed(key string) string {
	return c.prefix + ":" + key
}

// Key builders. Keys are deterministic strings embedding the query
// parameters so equal queries share an entry.

func VolumeKey(address, fromDate, toDate string) string {
	return fmt.Sprintf("vol-%s-%s-%s", address, fromDate, toDate)
}

func Volume24hKey(address string) string {
	return fmt.Sprintf("vol24h-%s", address)
}

func ConstStatsKey() string {
	return "txs-conststats"
}

func TradeStatsKey(address, sort string, perPage int64) string {
	return fmt.Sprintf("txs-tradestats-%s-%s-%d", address, sort, perPage)
}

func LatestTradeKey(txAccount, address string) string {
	return fmt.Sprintf("txs-%s-%s", txAccount, address)
}

func USDKey() string {
	return "ticker-usd"
}
