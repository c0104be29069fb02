// Package crawler follows the chain head and enqueues block processing
// tasks, tracking its position in the settings collection.
package crawler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/chaintex/trade-processor/pkg/common"
	"github.com/chaintex/trade-processor/pkg/store"
	"github.com/chaintex/trade-processor/pkg/tasks"
)

// SettingKeyMinBlockCrawl is the settings key tracking the last enqueued
// block number.
const SettingKeyMinBlockCrawl = "min_block_crawl"

// Config contains the configuration for the block crawler.
type Config struct {
	// Interval is the pause between crawl cycles.
	Interval time.Duration `yaml:"interval" default:"10s"`
	// BatchSize is the maximum number of blocks enqueued per cycle.
	BatchSize uint64 `yaml:"batchSize" default:"20"`
}

// Validate validates the config.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	if c.BatchSize == 0 {
		return fmt.Errorf("batchSize must be positive")
	}

	return nil
}

// HeadSource reports the current chain head.
type HeadSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Enqueuer submits tasks to the queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SettingsStore persists the crawl cursor.
type SettingsStore interface {
	GetOrCreate(ctx context.Context, key, defaultValue string) (*store.Setting, error)
	Set(ctx context.Context, key, value string) error
}

// Crawler runs the crawl loop.
type Crawler struct {
	log      logrus.FieldLogger
	config   *Config
	chain    HeadSource
	client   Enqueuer
	settings SettingsStore
	clock    common.Clock
}

// NewCrawler creates a new Crawler.
func NewCrawler(
	log logrus.FieldLogger,
	config *Config,
	chain HeadSource,
	client Enqueuer,
	settings SettingsStore,
	clock common.Clock,
) *Crawler {
	return &Crawler{
		log:      log.WithField("component", "crawler"),
		config:   config,
		chain:    chain,
		client:   client,
		settings: settings,
		clock:    clock,
	}
}

// Run executes crawl cycles until the context is canceled.
func (c *Crawler) Run(ctx context.Context) error {
	c.log.WithField("interval", c.config.Interval).Info("Starting crawler")

	for {
		if err := c.cycle(ctx); err != nil {
			c.log.WithError(err).Warn("Crawl cycle failed")
		}

		select {
		case <-ctx.Done():
			c.log.Info("Stopping crawler")

			return nil
		case <-c.clock.After(c.config.Interval):
		}
	}
}

// cycle enqueues up to BatchSize blocks between the stored cursor and the
// chain head. The cursor only ever moves forward, and only after the block
// it points at has been enqueued, so a crash re-enqueues at most one
// already-processed block.
func (c *Crawler) cycle(ctx context.Context) error {
	head, err := c.chain.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch chain head: %w", err)
	}

	common.ChainHead.Set(float64(head))

	setting, err := c.settings.GetOrCreate(ctx, SettingKeyMinBlockCrawl, "0")
	if err != nil {
		return fmt.Errorf("failed to load crawl cursor: %w", err)
	}

	cursor, err := strconv.ParseUint(setting.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid crawl cursor %q: %w", setting.Value, err)
	}

	if cursor >= head {
		c.log.WithField("head", head).Debug("Crawler is caught up")

		return nil
	}

	end := cursor + c.config.BatchSize
	if end > head {
		end = head
	}

	for number := cursor; number < end; number++ {
		task, err := tasks.NewBlockProcessTask(number)
		if err != nil {
			return fmt.Errorf("failed to build block task %d: %w", number, err)
		}

		if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue(tasks.QueueBlocks)); err != nil {
			return fmt.Errorf("failed to enqueue block %d: %w", number, err)
		}

		common.TasksEnqueued.WithLabelValues(tasks.QueueBlocks, tasks.TypeBlockProcess).Inc()

		if number > cursor {
			if err := c.settings.Set(ctx, SettingKeyMinBlockCrawl, strconv.FormatUint(number, 10)); err != nil {
				return fmt.Errorf("failed to persist crawl cursor: %w", err)
			}

			common.CrawlCursor.Set(float64(number))
		}
	}

	c.log.WithFields(logrus.Fields{
		"from": cursor,
		"to":   end - 1,
		"head": head,
	}).Info("Enqueued block batch")

	return nil
}
