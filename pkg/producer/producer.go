// Package producer periodically enqueues trade statistics synchronization
// jobs, backing off while previous jobs are still outstanding.
package producer

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/chaintex/trade-processor/pkg/common"
	"github.com/chaintex/trade-processor/pkg/leaderelection"
	"github.com/chaintex/trade-processor/pkg/store"
	"github.com/chaintex/trade-processor/pkg/tasks"
)

// Enqueuer submits tasks to the queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SettingsStore reads the producer's feature flag.
type SettingsStore interface {
	GetOrCreate(ctx context.Context, key, defaultValue string) (*store.Setting, error)
}

// Producer runs the production loop.
type Producer struct {
	log       logrus.FieldLogger
	config    *Config
	settings  SettingsStore
	inspector QueueInspector
	client    Enqueuer
	clock     common.Clock
	elector   leaderelection.Elector
}

// NewProducer creates a new Producer. elector may be nil when leader
// election is disabled.
func NewProducer(
	log logrus.FieldLogger,
	config *Config,
	settings SettingsStore,
	inspector QueueInspector,
	client Enqueuer,
	clock common.Clock,
	elector leaderelection.Elector,
) *Producer {
	return &Producer{
		log:       log.WithField("component", "producer"),
		config:    config,
		settings:  settings,
		inspector: inspector,
		client:    client,
		clock:     clock,
		elector:   elector,
	}
}

// Run executes production cycles until the context is canceled.
func (p *Producer) Run(ctx context.Context) error {
	p.log.WithField("interval", p.config.Interval).Info("Starting producer")

	for {
		p.cycle(ctx)

		select {
		case <-ctx.Done():
			p.log.Info("Stopping producer")

			return nil
		case <-p.clock.After(p.config.Interval):
		}
	}
}

// cycle runs one production pass. Failures are logged and retried on the
// next tick rather than stopping the loop.
func (p *Producer) cycle(ctx context.Context) {
	if p.elector != nil && !p.elector.IsLeader() {
		p.log.Debug("Not the leader, skipping cycle")

		return
	}

	depth, err := p.inspector.QueueDepth(tasks.QueueStats)
	if err != nil {
		p.log.WithError(err).Warn("Failed to inspect stats queue")

		return
	}

	common.QueueDepth.WithLabelValues(tasks.QueueStats).Set(float64(depth))

	if depth > p.config.MaxQueueDepth {
		p.log.WithField("depth", depth).Debug("Stats queue is backed up, skipping cycle")

		return
	}

	setting, err := p.settings.GetOrCreate(ctx, SettingKeyPushNewJob, "1")
	if err != nil {
		p.log.WithError(err).Warn("Failed to read push_new_job flag")

		return
	}

	if setting.Value != "1" {
		p.log.Debug("Job production is paused")

		return
	}

	info, err := p.client.EnqueueContext(ctx, tasks.NewTradeStatsTask(),
		asynq.Queue(tasks.QueueStats),
		asynq.MaxRetry(2),
	)
	if err != nil {
		p.log.WithError(err).Warn("Failed to enqueue trade stats task")

		return
	}

	common.TasksEnqueued.WithLabelValues(tasks.QueueStats, tasks.TypeTradeStats).Inc()

	p.log.WithField("task_id", info.ID).Debug("Enqueued trade stats task")
}
