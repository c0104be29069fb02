package worker

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintex/trade-processor/pkg/store"
	"github.com/chaintex/trade-processor/pkg/tasks"
)

type fakeSync struct {
	err   error
	calls int
}

func (f *fakeSync) Sync(_ context.Context) error {
	f.calls++

	return f.err
}

type fakeChain struct {
	blocks map[uint64]*types.Block
	sender ethcommon.Address
}

func (f *fakeChain) BlockByNumber(_ context.Context, number uint64) (*types.Block, error) {
	block, ok := f.blocks[number]
	if !ok {
		return nil, errors.New("block not found")
	}

	return block, nil
}

func (f *fakeChain) Sender(_ *types.Transaction) (ethcommon.Address, error) {
	return f.sender, nil
}

type fakeTxStore struct {
	byHash map[string]*store.Tx
}

func (f *fakeTxStore) Upsert(_ context.Context, tx *store.Tx) error {
	if f.byHash == nil {
		f.byHash = map[string]*store.Tx{}
	}

	f.byHash[tx.Hash] = tx

	return nil
}

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func TestHandleTradeStats(t *testing.T) {
	sync := &fakeSync{}
	h := NewHandlers(testLog(), sync, &fakeChain{}, &fakeTxStore{})

	require.NoError(t, h.HandleTradeStats(context.Background(), tasks.NewTradeStatsTask()))
	assert.Equal(t, 1, sync.calls)
}

func TestHandleTradeStatsPropagatesError(t *testing.T) {
	sync := &fakeSync{err: errors.New("scan api down")}
	h := NewHandlers(testLog(), sync, &fakeChain{}, &fakeTxStore{})

	err := h.HandleTradeStats(context.Background(), tasks.NewTradeStatsTask())
	require.Error(t, err)
}

func TestHandleBlockProcess(t *testing.T) {
	to := ethcommon.HexToAddress("0x2222222222222222222222222222222222222222")
	tx := types.NewTransaction(0, to, big.NewInt(1000000000000000000), 21000, big.NewInt(1), nil)

	header := &types.Header{Number: big.NewInt(7), Time: 1700000000}
	block := types.NewBlockWithHeader(header).WithBody(types.Body{
		Transactions: []*types.Transaction{tx},
	})

	chain := &fakeChain{
		blocks: map[uint64]*types.Block{7: block},
		sender: ethcommon.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
	txs := &fakeTxStore{}
	h := NewHandlers(testLog(), &fakeSync{}, chain, txs)

	task, err := tasks.NewBlockProcessTask(7)
	require.NoError(t, err)

	require.NoError(t, h.HandleBlockProcess(context.Background(), task))
	require.Len(t, txs.byHash, 1)

	stored := txs.byHash[tx.Hash().Hex()]
	require.NotNil(t, stored)
	assert.Equal(t, chain.sender.Hex(), stored.From)
	assert.Equal(t, to.Hex(), stored.To)
	assert.Equal(t, "1000000000000000000", stored.Value)
	assert.Equal(t, float64(1), stored.RealValue)
	assert.Equal(t, uint64(7), stored.BlockNumber)
	assert.False(t, stored.IsPending)
}

func TestHandleBlockProcessMissingBlock(t *testing.T) {
	h := NewHandlers(testLog(), &fakeSync{}, &fakeChain{}, &fakeTxStore{})

	task, err := tasks.NewBlockProcessTask(99)
	require.NoError(t, err)

	require.Error(t, h.HandleBlockProcess(context.Background(), task))
}
