// Package worker consumes trade statistics and block processing tasks from
// the queue.
package worker

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/chaintex/trade-processor/pkg/tasks"
)

// Worker wraps the asynq server and its handler mux.
type Worker struct {
	log    logrus.FieldLogger
	server *asynq.Server
	mux    *asynq.ServeMux
}

// New creates a Worker consuming from both queues with the configured
// concurrency. Trade stats tasks retry on a fixed delay so a flapping
// upstream is probed at a steady rate; everything else keeps asynq's
// exponential default.
func New(log logrus.FieldLogger, config *Config, redisOpt asynq.RedisClientOpt, handlers *Handlers) *Worker {
	retryDelay := func(n int, err error, task *asynq.Task) time.Duration {
		if task.Type() == tasks.TypeTradeStats {
			return config.RetryBackoff
		}

		return asynq.DefaultRetryDelayFunc(n, err, task)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    config.Concurrency,
		Queues:         tasks.QueuePriorities(),
		RetryDelayFunc: retryDelay,
		Logger:         log.WithField("component", "asynq"),
	})

	mux := asynq.NewServeMux()
	handlers.Register(mux)

	return &Worker{
		log:    log.WithField("component", "worker"),
		server: server,
		mux:    mux,
	}
}

// Start begins processing tasks. It does not block.
func (w *Worker) Start() error {
	w.log.Info("Starting worker")

	return w.server.Start(w.mux)
}

// Stop waits for in-flight tasks and shuts the server down.
func (w *Worker) Stop() {
	w.log.Info("Stopping worker")

	w.server.Stop()
	w.server.Shutdown()
}
