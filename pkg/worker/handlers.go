package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/chaintex/trade-processor/pkg/common"
	"github.com/chaintex/trade-processor/pkg/stats"
	"github.com/chaintex/trade-processor/pkg/store"
	"github.com/chaintex/trade-processor/pkg/tasks"
)

// Synchronizer runs one trade statistics sync pass.
type Synchronizer interface {
	Sync(ctx context.Context) error
}

// BlockSource fetches blocks and recovers transaction senders.
type BlockSource interface {
	BlockByNumber(ctx context.Context, number uint64) (*types.Block, error)
	Sender(tx *types.Transaction) (ethcommon.Address, error)
}

// TxStore persists processed transactions.
type TxStore interface {
	Upsert(ctx context.Context, tx *store.Tx) error
}

// Handlers holds the task handlers served by the worker.
type Handlers struct {
	log   logrus.FieldLogger
	sync  Synchronizer
	chain BlockSource
	txs   TxStore
}

// NewHandlers creates the worker task handlers.
func NewHandlers(log logrus.FieldLogger, sync Synchronizer, chain BlockSource, txs TxStore) *Handlers {
	return &Handlers{
		log:   log.WithField("component", "worker"),
		sync:  sync,
		chain: chain,
		txs:   txs,
	}
}

// Register wires the handlers into the mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeTradeStats, h.HandleTradeStats)
	mux.HandleFunc(tasks.TypeBlockProcess, h.HandleBlockProcess)
}

// HandleTradeStats runs one synchronization pass. Errors propagate so the
// queue retries the task.
func (h *Handlers) HandleTradeStats(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()

	err := h.sync.Sync(ctx)

	h.observe(tasks.QueueStats, tasks.TypeTradeStats, start, err)

	if err != nil {
		return fmt.Errorf("trade stats sync: %w", err)
	}

	return nil
}

// HandleBlockProcess fetches one block and upserts its transactions.
func (h *Handlers) HandleBlockProcess(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	err := h.processBlock(ctx, task)

	h.observe(tasks.QueueBlocks, tasks.TypeBlockProcess, start, err)

	return err
}

func (h *Handlers) processBlock(ctx context.Context, task *asynq.Task) error {
	var payload tasks.BlockPayload
	if err := payload.UnmarshalBinary(task.Payload()); err != nil {
		// A malformed payload will never succeed, skip retries.
		return fmt.Errorf("invalid block payload: %w: %s", asynq.SkipRetry, err)
	}

	block, err := h.chain.BlockByNumber(ctx, payload.Number)
	if err != nil {
		return fmt.Errorf("failed to fetch block %d: %w", payload.Number, err)
	}

	timestamp := time.Unix(int64(block.Time()), 0).UTC()

	for _, btx := range block.Transactions() {
		from, err := h.chain.Sender(btx)
		if err != nil {
			return fmt.Errorf("failed to recover sender of %s: %w", btx.Hash().Hex(), err)
		}

		to := ""
		if btx.To() != nil {
			to = btx.To().Hex()
		}

		value := btx.Value().String()

		tx := &store.Tx{
			Hash:        btx.Hash().Hex(),
			From:        from.Hex(),
			To:          to,
			Value:       value,
			RealValue:   stats.NormalizeValue(value),
			BlockNumber: payload.Number,
			Timestamp:   timestamp,
			IsPending:   false,
		}

		if err := h.txs.Upsert(ctx, tx); err != nil {
			return fmt.Errorf("failed to upsert tx %s: %w", tx.Hash, err)
		}
	}

	h.log.WithFields(logrus.Fields{
		"block": payload.Number,
		"txs":   len(block.Transactions()),
	}).Debug("Processed block")

	return nil
}

func (h *Handlers) observe(queue, taskType string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, asynq.SkipRetry) {
		status = "error"
	}

	common.TasksProcessed.WithLabelValues(queue, taskType, status).Inc()
	common.TaskProcessingDuration.WithLabelValues(queue, taskType).Observe(time.Since(start).Seconds())
}
