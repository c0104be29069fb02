package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintex/trade-processor/pkg/common"
	"github.com/chaintex/trade-processor/pkg/store"
	"github.com/chaintex/trade-processor/pkg/tasks"
)

type fakeInspector struct {
	depth int
	err   error
}

func (f *fakeInspector) QueueDepth(_ string) (int, error) {
	return f.depth, f.err
}

type fakeEnqueuer struct {
	enqueued []*asynq.Task
	err      error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.enqueued = append(f.enqueued, task)

	return &asynq.TaskInfo{ID: "task-1", Queue: tasks.QueueStats}, nil
}

type fakeFlagStore struct {
	value string
	err   error
}

func (f *fakeFlagStore) GetOrCreate(_ context.Context, key, defaultValue string) (*store.Setting, error) {
	if f.err != nil {
		return nil, f.err
	}

	value := f.value
	if value == "" {
		value = defaultValue
	}

	return &store.Setting{Key: key, Value: value}, nil
}

type staticElector struct {
	leader bool
}

func (s *staticElector) Start(_ context.Context) error { return nil }
func (s *staticElector) Stop(_ context.Context) error  { return nil }
func (s *staticElector) IsLeader() bool                { return s.leader }

func newTestProducer(inspector *fakeInspector, client *fakeEnqueuer, flags *fakeFlagStore) *Producer {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	config := &Config{Interval: 2 * time.Minute, MaxQueueDepth: 1}

	return NewProducer(log, config, flags, inspector, client, common.NewClock(), nil)
}

func TestCycleEnqueuesTradeStatsTask(t *testing.T) {
	client := &fakeEnqueuer{}
	p := newTestProducer(&fakeInspector{depth: 0}, client, &fakeFlagStore{})

	p.cycle(context.Background())

	require.Len(t, client.enqueued, 1)
	assert.Equal(t, tasks.TypeTradeStats, client.enqueued[0].Type())
}

func TestCycleAllowsOneOutstandingJob(t *testing.T) {
	client := &fakeEnqueuer{}
	p := newTestProducer(&fakeInspector{depth: 1}, client, &fakeFlagStore{})

	p.cycle(context.Background())

	assert.Len(t, client.enqueued, 1)
}

func TestCycleSkipsWhenQueueBackedUp(t *testing.T) {
	client := &fakeEnqueuer{}
	p := newTestProducer(&fakeInspector{depth: 2}, client, &fakeFlagStore{})

	p.cycle(context.Background())

	assert.Empty(t, client.enqueued)
}

func TestCycleSkipsWhenPaused(t *testing.T) {
	client := &fakeEnqueuer{}
	p := newTestProducer(&fakeInspector{}, client, &fakeFlagStore{value: "0"})

	p.cycle(context.Background())

	assert.Empty(t, client.enqueued)
}

func TestCycleSkipsOnInspectorError(t *testing.T) {
	client := &fakeEnqueuer{}
	p := newTestProducer(&fakeInspector{err: errors.New("redis down")}, client, &fakeFlagStore{})

	p.cycle(context.Background())

	assert.Empty(t, client.enqueued)
}

func TestCycleSkipsWhenNotLeader(t *testing.T) {
	client := &fakeEnqueuer{}
	p := newTestProducer(&fakeInspector{}, client, &fakeFlagStore{})
	p.elector = &staticElector{leader: false}

	p.cycle(context.Background())
	assert.Empty(t, client.enqueued)

	p.elector = &staticElector{leader: true}

	p.cycle(context.Background())
	assert.Len(t, client.enqueued, 1)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	client := &fakeEnqueuer{}
	p := newTestProducer(&fakeInspector{}, client, &fakeFlagStore{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("producer did not stop")
	}

	// The first cycle runs before the loop observes cancellation.
	assert.Len(t, client.enqueued, 1)
}
