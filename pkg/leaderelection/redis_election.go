package leaderelection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/chaintex/trade-processor/pkg/common"
)

// renewScript extends the lock TTL only while we still own it.
const renewScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// releaseScript deletes the lock only while we still own it.
const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// RedisElector implements leader election on a single redis key.
type RedisElector struct {
	client  *redis.Client
	log     logrus.FieldLogger
	config  *Config
	nodeID  string
	keyName string

	mu       sync.RWMutex
	isLeader bool
	stopped  bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRedisElector creates a new redis-based leader elector.
func NewRedisElector(client *redis.Client, log logrus.FieldLogger, keyName string, config *Config) (*RedisElector, error) {
	nodeID := config.NodeID
	if nodeID == "" {
		var err error

		nodeID, err = generateNodeID()
		if err != nil {
			return nil, err
		}
	}

	return &RedisElector{
		client:   client,
		log:      log.WithField("component", "leader_election").WithField("node_id", nodeID),
		config:   config,
		nodeID:   nodeID,
		keyName:  keyName,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins the election process.
func (e *RedisElector) Start(ctx context.Context) error {
	e.log.WithField("key", e.keyName).Info("Starting leader election")

	common.LeaderElectionStatus.WithLabelValues(e.nodeID).Set(0)

	e.wg.Add(1)

	go e.run(ctx)

	return nil
}

// Stop gracefully stops the election, releasing the lock if held.
func (e *RedisElector) Stop(ctx context.Context) error {
	e.mu.Lock()

	if e.stopped {
		e.mu.Unlock()

		return nil
	}

	e.stopped = true
	e.mu.Unlock()

	close(e.stopChan)
	e.wg.Wait()

	if e.IsLeader() {
		common.LeaderElectionStatus.WithLabelValues(e.nodeID).Set(0)

		if err := e.release(ctx); err != nil {
			common.LeaderElectionErrors.WithLabelValues(e.nodeID, "release").Inc()

			return err
		}
	}

	e.log.Info("Stopped leader election")

	return nil
}

// IsLeader returns true if this node currently holds the lock.
func (e *RedisElector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isLeader
}

func (e *RedisElector) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.RenewalInterval)
	defer ticker.Stop()

	e.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *RedisElector) tick(ctx context.Context) {
	if e.IsLeader() {
		if !e.renew(ctx) {
			e.setLeader(false)
			e.log.Warn("Lost leadership")
		}

		return
	}

	if e.acquire(ctx) {
		e.setLeader(true)
		e.log.Info("Acquired leadership")
	}
}

func (e *RedisElector) setLeader(isLeader bool) {
	e.mu.Lock()
	e.isLeader = isLeader
	e.mu.Unlock()

	status := float64(0)
	if isLeader {
		status = 1
	}

	common.LeaderElectionStatus.WithLabelValues(e.nodeID).Set(status)
}

func (e *RedisElector) acquire(ctx context.Context) bool {
	ok, err := e.client.SetNX(ctx, e.keyName, e.nodeID, e.config.TTL).Result()
	if err != nil {
		e.log.WithError(err).Error("Failed to acquire leadership")

		common.LeaderElectionErrors.WithLabelValues(e.nodeID, "acquire").Inc()

		return false
	}

	return ok
}

func (e *RedisElector) renew(ctx context.Context) bool {
	result, err := e.client.Eval(ctx, renewScript, []string{e.keyName}, e.nodeID, e.config.TTL.Milliseconds()).Result()
	if err != nil {
		e.log.WithError(err).Error("Failed to renew leadership")

		common.LeaderElectionErrors.WithLabelValues(e.nodeID, "renew").Inc()

		return false
	}

	val, ok := result.(int64)

	return ok && val == 1
}

func (e *RedisElector) release(ctx context.Context) error {
	result, err := e.client.Eval(ctx, releaseScript, []string{e.keyName}, e.nodeID).Result()
	if err != nil {
		return fmt.Errorf("failed to release leadership: %w", err)
	}

	if val, ok := result.(int64); !ok || val == 0 {
		e.log.Warn("Lock was not owned by this node on release")
	}

	e.setLeader(false)

	return nil
}
