package producer

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// QueueInspector reports the number of outstanding tasks in a queue.
type QueueInspector interface {
	QueueDepth(queue string) (int, error)
}

type asynqInspector struct {
	inspector *asynq.Inspector
}

// NewQueueInspector creates a QueueInspector backed by an asynq Inspector.
func NewQueueInspector(opt asynq.RedisClientOpt) QueueInspector {
	return &asynqInspector{inspector: asynq.NewInspector(opt)}
}

// QueueDepth counts pending, scheduled and retry tasks. Active tasks are
// excluded: a running sync should not stop the next one being queued
// behind it.
func (a *asynqInspector) QueueDepth(queue string) (int, error) {
	info, err := a.inspector.GetQueueInfo(queue)
	if err != nil {
		// The queue only exists once something has been enqueued.
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to inspect queue %s: %w", queue, err)
	}

	return info.Pending + info.Scheduled + info.Retry, nil
}
