package stats

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintex/trade-processor/pkg/external"
	"github.com/chaintex/trade-processor/pkg/store"
)

type fakePartner struct {
	items []external.ConstTradeStat
	err   error
	calls int
}

func (f *fakePartner) TradeStats(_ context.Context) ([]external.ConstTradeStat, error) {
	f.calls++

	return f.items, f.err
}

type fakeScan struct {
	pageCount    int64
	pageCountErr error
	pages        map[int64][]external.ScanTx
	internal     map[string][]external.InternalTx
	internalErr  error
	fetched      []int64
}

func (f *fakeScan) PageCount(_ context.Context, _ int64) (int64, error) {
	return f.pageCount, f.pageCountErr
}

func (f *fakeScan) Transactions(_ context.Context, page, _ int64) (int64, []external.ScanTx, error) {
	f.fetched = append(f.fetched, page)

	return f.pageCount * 50, f.pages[page], nil
}

func (f *fakeScan) InternalTransactions(_ context.Context, hash string) ([]external.InternalTx, error) {
	if f.internalErr != nil {
		return nil, f.internalErr
	}

	return f.internal[hash], nil
}

type fakeTradeStore struct {
	snapshot []store.TradeStat
	replaces int
	err      error
}

func (f *fakeTradeStore) ReplaceAll(_ context.Context, _ string, items []store.TradeStat) error {
	if f.err != nil {
		return f.err
	}

	f.snapshot = items
	f.replaces++

	return nil
}

type fakeTxStore struct {
	byHash map[string]*store.Tx
	err    error
}

func (f *fakeTxStore) Upsert(_ context.Context, tx *store.Tx) error {
	if f.err != nil {
		return f.err
	}

	if f.byHash == nil {
		f.byHash = map[string]*store.Tx{}
	}

	f.byHash[tx.Hash] = tx

	return nil
}

type fakeSettings struct {
	cursor *store.Setting
	sets   int
}

func (f *fakeSettings) Get(_ context.Context, _ string) (*store.Setting, error) {
	return f.cursor, nil
}

func (f *fakeSettings) SetPage(_ context.Context, key, value string, pages int64) error {
	f.cursor = &store.Setting{Key: key, Value: value, Pages: pages}
	f.sets++

	return nil
}

func newTestSynchronizer(partner *fakePartner, scan *fakeScan, trades *fakeTradeStore, txs *fakeTxStore, settings *fakeSettings) *Synchronizer {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewSynchronizer(log, &Config{PerPage: 50}, partner, scan, trades, txs, settings)
}

func TestSyncPartnerStatsReplacesSnapshot(t *testing.T) {
	partner := &fakePartner{items: []external.ConstTradeStat{
		{ReferralCode: "alice", Amount: 12.5},
		{ReferralCode: "bob", Amount: 3},
	}}
	trades := &fakeTradeStore{}
	s := newTestSynchronizer(partner, &fakeScan{}, trades, &fakeTxStore{}, &fakeSettings{})

	require.NoError(t, s.Sync(context.Background()))
	require.Len(t, trades.snapshot, 2)
	assert.Equal(t, CategoryConst, trades.snapshot[0].Type)
	assert.Equal(t, "alice", trades.snapshot[0].From)
	assert.Equal(t, 12.5, trades.snapshot[0].Volume)
	assert.Equal(t, int64(1), trades.snapshot[0].Txs)

	// Running again with the same upstream dataset leaves an equivalent
	// snapshot behind.
	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, 2, trades.replaces)
	require.Len(t, trades.snapshot, 2)
	assert.Equal(t, "alice", trades.snapshot[0].From)
}

func TestSyncPartnerFailureKeepsSnapshotAndReportsError(t *testing.T) {
	partner := &fakePartner{err: errors.New("upstream down")}
	trades := &fakeTradeStore{snapshot: []store.TradeStat{{From: "alice"}}}
	s := newTestSynchronizer(partner, &fakeScan{}, trades, &fakeTxStore{}, &fakeSettings{})

	err := s.Sync(context.Background())
	require.Error(t, err)
	assert.Zero(t, trades.replaces)
	require.Len(t, trades.snapshot, 1)
}

func TestSyncScanFirstRunStartsAtNewestPage(t *testing.T) {
	scan := &fakeScan{
		pageCount: 40,
		pages: map[int64][]external.ScanTx{
			40: {{Hash: "0xaa", From: "0x1", To: "0x2", Value: "1000000000000000000", BlockNumber: 7, Timestamp: 1700000000}},
		},
	}
	txs := &fakeTxStore{}
	settings := &fakeSettings{}
	s := newTestSynchronizer(&fakePartner{}, scan, &fakeTradeStore{}, txs, settings)

	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, []int64{40}, scan.fetched)
	require.NotNil(t, settings.cursor)
	assert.Equal(t, "40", settings.cursor.Value)
	assert.Equal(t, int64(40), settings.cursor.Pages)

	require.Contains(t, txs.byHash, "0xaa")
	assert.Equal(t, float64(1), txs.byHash["0xaa"].RealValue)
	assert.False(t, txs.byHash["0xaa"].IsPending)
}

func TestSyncScanWalksBackward(t *testing.T) {
	scan := &fakeScan{pageCount: 40, pages: map[int64][]external.ScanTx{}}
	settings := &fakeSettings{cursor: &store.Setting{Key: SettingKeyPageSync, Value: "10", Pages: 40}}
	s := newTestSynchronizer(&fakePartner{}, scan, &fakeTradeStore{}, &fakeTxStore{}, settings)

	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, []int64{9}, scan.fetched)
	assert.Equal(t, "9", settings.cursor.Value)
}

func TestSyncScanGrowthShiftsCursor(t *testing.T) {
	scan := &fakeScan{pageCount: 45, pages: map[int64][]external.ScanTx{}}
	settings := &fakeSettings{cursor: &store.Setting{Key: SettingKeyPageSync, Value: "10", Pages: 40}}
	s := newTestSynchronizer(&fakePartner{}, scan, &fakeTradeStore{}, &fakeTxStore{}, settings)

	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, []int64{14}, scan.fetched)
	assert.Equal(t, "14", settings.cursor.Value)
	assert.Equal(t, int64(45), settings.cursor.Pages)
}

func TestSyncScanStopsAtFront(t *testing.T) {
	scan := &fakeScan{pageCount: 40}
	settings := &fakeSettings{cursor: &store.Setting{Key: SettingKeyPageSync, Value: "1", Pages: 40}}
	s := newTestSynchronizer(&fakePartner{}, scan, &fakeTradeStore{}, &fakeTxStore{}, settings)

	require.NoError(t, s.Sync(context.Background()))
	assert.Empty(t, scan.fetched)
	// The exhausted cursor is left untouched so growth can resume the walk.
	assert.Equal(t, "1", settings.cursor.Value)
	assert.Zero(t, settings.sets)
}

func TestSyncScanInternalValueFallback(t *testing.T) {
	scan := &fakeScan{
		pageCount: 1,
		pages: map[int64][]external.ScanTx{
			1: {{Hash: "0xbb", Value: "0", InternalTxCount: 2, Timestamp: 1700000000}},
		},
		internal: map[string][]external.InternalTx{
			"0xbb": {{Value: "2000000000000000000"}, {Value: "5"}},
		},
	}
	txs := &fakeTxStore{}
	s := newTestSynchronizer(&fakePartner{}, scan, &fakeTradeStore{}, txs, &fakeSettings{})

	require.NoError(t, s.Sync(context.Background()))
	require.Contains(t, txs.byHash, "0xbb")
	assert.Equal(t, float64(2), txs.byHash["0xbb"].RealValue)
	assert.Equal(t, "2000000000000000000", txs.byHash["0xbb"].InternalValue)
}

func TestSyncScanInternalFetchFailureLeavesCursor(t *testing.T) {
	scan := &fakeScan{
		pageCount: 5,
		pages: map[int64][]external.ScanTx{
			5: {{Hash: "0xcc", Value: "0", InternalTxCount: 1}},
		},
		internalErr: errors.New("scan api 502"),
	}
	settings := &fakeSettings{}
	s := newTestSynchronizer(&fakePartner{}, scan, &fakeTradeStore{}, &fakeTxStore{}, settings)

	err := s.Sync(context.Background())
	require.Error(t, err)
	// The page was not fully processed, so the cursor must not move.
	assert.Nil(t, settings.cursor)
}

func TestSyncScanUpsertIsIdempotent(t *testing.T) {
	tx := external.ScanTx{Hash: "0xdd", Value: "1000000000000000000", Timestamp: 1700000000}
	scan := &fakeScan{
		pageCount: 3,
		pages:     map[int64][]external.ScanTx{3: {tx}, 2: {tx}},
	}
	txs := &fakeTxStore{}
	s := newTestSynchronizer(&fakePartner{}, scan, &fakeTradeStore{}, txs, &fakeSettings{})

	require.NoError(t, s.Sync(context.Background()))
	require.NoError(t, s.Sync(context.Background()))

	assert.Len(t, txs.byHash, 1)
	assert.Equal(t, float64(1), txs.byHash["0xdd"].RealValue)
}

func TestSyncScanPagesNeverRegressWithoutGrowth(t *testing.T) {
	scan := &fakeScan{pageCount: 40, pages: map[int64][]external.ScanTx{}}
	settings := &fakeSettings{}
	s := newTestSynchronizer(&fakePartner{}, scan, &fakeTradeStore{}, &fakeTxStore{}, settings)

	var lastPages int64

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Sync(context.Background()))
		require.NotNil(t, settings.cursor)
		assert.GreaterOrEqual(t, settings.cursor.Pages, lastPages)
		lastPages = settings.cursor.Pages

		cur, err := strconv.ParseInt(settings.cursor.Value, 10, 64)
		require.NoError(t, err)
		assert.Positive(t, cur)
	}

	assert.Equal(t, []int64{40, 39, 38, 37, 36}, scan.fetched)
}
