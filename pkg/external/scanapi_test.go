package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *Config {
	return &Config{
		ConstAPI:  baseURL + "/const",
		ScanAPI:   baseURL,
		TickerAPI: baseURL + "/ticker",
		Address:   "0xexchange",
		Timeout:   5 * time.Second,
	}
}

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func TestScanTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/txs", r.URL.Path)
		assert.Equal(t, "0xexchange", r.URL.Query().Get("address"))
		assert.Equal(t, "in", r.URL.Query().Get("tx_account"))
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(txListResponse{
			Total: 120,
			Items: []ScanTx{
				{Hash: "0xaa", From: "0x1", To: "0xexchange", Value: "5", BlockNumber: 9, Timestamp: 1700000000, InternalTxCount: 1},
			},
		})
	}))
	defer srv.Close()

	client := NewScanClient(testLog(), testConfig(srv.URL))

	total, items, err := client.Transactions(context.Background(), 3, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(120), total)
	require.Len(t, items, 1)
	assert.Equal(t, "0xaa", items[0].Hash)
	assert.Equal(t, int64(1), items[0].InternalTxCount)
}

func TestScanPageCount(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		perPage  int64
		expected int64
	}{
		{name: "exact division", total: 100, perPage: 50, expected: 2},
		{name: "rounds up", total: 101, perPage: 50, expected: 3},
		{name: "single page", total: 1, perPage: 50, expected: 1},
		{name: "empty listing", total: 0, perPage: 50, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// The probe asks for a single item on page two.
				assert.Equal(t, "2", r.URL.Query().Get("page"))
				assert.Equal(t, "1", r.URL.Query().Get("limit"))

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(txListResponse{Total: tt.total})
			}))
			defer srv.Close()

			client := NewScanClient(testLog(), testConfig(srv.URL))

			pages, err := client.PageCount(context.Background(), tt.perPage)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pages)
		})
	}
}

func TestScanInternalTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/txs/0xaa/internal", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(internalTxResponse{
			Items: []InternalTx{{Hash: "0xaa", Value: "3000000000000000000"}},
		})
	}))
	defer srv.Close()

	client := NewScanClient(testLog(), testConfig(srv.URL))

	items, err := client.InternalTransactions(context.Background(), "0xaa")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "3000000000000000000", items[0].Value)
}

func TestScanErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewScanClient(testLog(), testConfig(srv.URL))

	_, _, err := client.Transactions(context.Background(), 1, 50)
	require.Error(t, err)
}

func TestConstTradeStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(constResponse{
			Result: []ConstTradeStat{{ReferralCode: "alice", Amount: 7.25}},
		})
	}))
	defer srv.Close()

	client := NewConstClient(testLog(), testConfig(srv.URL))

	items, err := client.TradeStats(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].ReferralCode)
	assert.Equal(t, 7.25, items[0].Amount)
}

func TestConstTradeStatsNilResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewConstClient(testLog(), testConfig(srv.URL))

	items, err := client.TradeStats(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestTickerUSD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"quotes":{"USD":{"price":1.02}}}}`))
	}))
	defer srv.Close()

	client := NewTickerClient(testLog(), testConfig(srv.URL))

	raw, err := client.USD(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"quotes":{"USD":{"price":1.02}}}}`, string(raw))
}
