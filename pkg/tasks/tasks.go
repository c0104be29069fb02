// Package tasks defines the queue task types shared by the producer, the
// crawler and the worker.
package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TypeTradeStats is the trade statistics synchronization task. It
	// carries no payload.
	TypeTradeStats = "stats:trade"
	// TypeBlockProcess is the block processing task.
	TypeBlockProcess = "block:process"

	// QueueStats is the high-priority queue for trade statistics jobs.
	QueueStats = "stats"
	// QueueBlocks is the queue for block processing jobs.
	QueueBlocks = "blocks"
)

// QueuePriorities maps queue names to asynq priorities.
func QueuePriorities() map[string]int {
	return map[string]int{
		QueueStats:  6,
		QueueBlocks: 3,
	}
}

// BlockPayload is the payload of a block processing task.
type BlockPayload struct {
	Number uint64 `json:"number"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *BlockPayload) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *BlockPayload) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}

// NewTradeStatsTask creates a trade statistics synchronization task.
func NewTradeStatsTask() *asynq.Task {
	return asynq.NewTask(TypeTradeStats, nil)
}

// NewBlockProcessTask creates a block processing task for the given height.
func NewBlockProcessTask(number uint64) (*asynq.Task, error) {
	payload := &BlockPayload{Number: number}

	data, err := payload.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeBlockProcess, data), nil
}
