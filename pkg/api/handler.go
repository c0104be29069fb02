// Package api serves the read-only aggregation endpoints consumed by the
// exchange frontend.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chaintex/trade-processor/pkg/common"
	"github.com/chaintex/trade-processor/pkg/store"
)

// maxPages caps the reported page count so clients cannot page the store
// into a deep skip scan.
const maxPages = 500

// TxQuerier reads transaction aggregates.
type TxQuerier interface {
	SumVolume(ctx context.Context, address string, from, to time.Time) (float64, error)
	CountGroups(ctx context.Context, q store.GroupQuery) (int64, error)
	GroupByFrom(ctx context.Context, q store.GroupQuery) ([]store.TradeRow, error)
	Latest(ctx context.Context, offset, limit int64) ([]store.Tx, error)
}

// TradeStatQuerier reads the partner trade statistics snapshot.
type TradeStatQuerier interface {
	Count(ctx context.Context, category string) (int64, error)
	List(ctx context.Context, category string, offset, limit int64) ([]store.TradeStat, error)
}

// OverviewQuerier reads the chain-wide counters.
type OverviewQuerier interface {
	Totals(ctx context.Context) (*store.Totals, error)
	TotalTransactions(ctx context.Context) (*int64, error)
}

// AccountQuerier reads account records for response enrichment.
type AccountQuerier interface {
	ByHashes(ctx context.Context, hashes []string) (map[string]store.Account, error)
}

// Ticker fetches the USD price quote.
type Ticker interface {
	USD(ctx context.Context) (json.RawMessage, error)
}

// ResponseCache caches rendered responses.
type ResponseCache interface {
	GetJSON(ctx context.Context, key string, v interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// Handler serves the HTTP API.
type Handler struct {
	log      logrus.FieldLogger
	address  string
	txs      TxQuerier
	trades   TradeStatQuerier
	overview OverviewQuerier
	accounts AccountQuerier
	ticker   Ticker
	cache    ResponseCache
}

// NewHandler creates the API handler. address is the exchange account all
// trade queries are scoped to.
func NewHandler(
	log logrus.FieldLogger,
	address string,
	txs TxQuerier,
	trades TradeStatQuerier,
	overview OverviewQuerier,
	accounts AccountQuerier,
	ticker Ticker,
	cache ResponseCache,
) *Handler {
	return &Handler{
		log:      log.WithField("component", "api"),
		address:  address,
		txs:      txs,
		trades:   trades,
		overview: overview,
		accounts: accounts,
		ticker:   ticker,
		cache:    cache,
	}
}

// Register wires the routes into the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/chaintex/volume", h.instrument("volume", h.handleVolume)).Methods(http.MethodGet)
	r.HandleFunc("/chaintex/volume24h", h.instrument("volume24h", h.handleVolume24h)).Methods(http.MethodGet)
	r.HandleFunc("/chaintex/conststats", h.instrument("conststats", h.handleConstStats)).Methods(http.MethodGet)
	r.HandleFunc("/chaintex/tradestats", h.instrument("tradestats", h.handleTradeStats)).Methods(http.MethodGet)
	r.HandleFunc("/chaintex/latestTrade", h.instrument("latestTrade", h.handleLatestTrade)).Methods(http.MethodGet)
	r.HandleFunc("/setting", h.instrument("setting", h.handleSetting)).Methods(http.MethodGet)
	r.HandleFunc("/setting/usd", h.instrument("settingUSD", h.handleSettingUSD)).Methods(http.MethodGet)
}

// PageData is the pagination envelope shared by all listing endpoints.
type PageData struct {
	Total       int64       `json:"total"`
	PerPage     int64       `json:"perPage"`
	CurrentPage int64       `json:"currentPage"`
	Pages       int64       `json:"pages"`
	Items       interface{} `json:"items"`
}

// emptyPage is the envelope returned when a listing has no matches. It is
// never cached.
func emptyPage(perPage, page int64) *PageData {
	return &PageData{
		Total:       0,
		PerPage:     perPage,
		CurrentPage: page,
		Pages:       0,
		Items:       []interface{}{},
	}
}

func pageCount(total, perPage int64) int64 {
	pages := (total + perPage - 1) / perPage
	if pages > maxPages {
		pages = maxPages
	}

	return pages
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("Failed to write response")
	}
}

func (h *Handler) writeValidationErrors(w http.ResponseWriter, errs []fieldError) {
	h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
}

func (h *Handler) writeServerError(w http.ResponseWriter, endpoint string, err error) {
	h.log.WithError(err).WithField("endpoint", endpoint).Warn("Request failed")

	h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"errors": map[string]string{"message": "Something error!"},
	})
}

// fromCache serves a cached rendering if one exists.
func (h *Handler) fromCache(w http.ResponseWriter, r *http.Request, endpoint, key string) bool {
	var cached json.RawMessage

	hit, err := h.cache.GetJSON(r.Context(), key, &cached)
	if err != nil {
		h.log.WithError(err).WithField("key", key).Warn("Cache read failed")

		return false
	}

	if !hit {
		common.CacheMisses.WithLabelValues(endpoint).Inc()

		return false
	}

	common.CacheHits.WithLabelValues(endpoint).Inc()

	h.writeJSON(w, http.StatusOK, cached)

	return true
}

func (h *Handler) saveCache(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if err := h.cache.SetJSON(ctx, key, v, ttl); err != nil {
		h.log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		common.HTTPRequestDuration.
			WithLabelValues(endpoint, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	}
}
