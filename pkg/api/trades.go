package api

import (
	"net/http"
	"time"

	"github.com/chaintex/trade-processor/pkg/cache"
	"github.com/chaintex/trade-processor/pkg/stats"
	"github.com/chaintex/trade-processor/pkg/store"
)

// handleConstStats lists the partner trade statistics snapshot ordered by
// volume.
func (h *Handler) handleConstStats(w http.ResponseWriter, r *http.Request) {
	params, errs := parsePageParams(r)
	if len(errs) > 0 {
		h.writeValidationErrors(w, errs)

		return
	}

	key := cache.ConstStatsKey()
	if params.Page == 1 && h.fromCache(w, r, "conststats", key) {
		return
	}

	total, err := h.trades.Count(r.Context(), stats.CategoryConst)
	if err != nil {
		h.writeServerError(w, "conststats", err)

		return
	}

	if total == 0 {
		h.writeJSON(w, http.StatusOK, emptyPage(params.PerPage, params.Page))

		return
	}

	items, err := h.trades.List(r.Context(), stats.CategoryConst, params.offset(), params.PerPage)
	if err != nil {
		h.writeServerError(w, "conststats", err)

		return
	}

	rows := make([]store.TradeRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, store.TradeRow{From: item.From, Volume: item.Volume, Txs: item.Txs})
	}

	data := &PageData{
		Total:       total,
		PerPage:     params.PerPage,
		CurrentPage: params.Page,
		Pages:       pageCount(total, params.PerPage),
		Items:       rows,
	}

	if params.Page == 1 && len(rows) > 0 {
		h.saveCache(r.Context(), key, data, 10*time.Second)
	}

	h.writeJSON(w, http.StatusOK, data)
}

// handleTradeStats lists the per-sender trade leaderboard for the exchange
// address, grouped live from the transaction store.
func (h *Handler) handleTradeStats(w http.ResponseWriter, r *http.Request) {
	params, errs := parsePageParams(r)

	sort, serr := parseSort(r)
	if serr != nil {
		errs = append(errs, *serr)
	}

	minValue, merr := parseMinValue(r)
	if merr != nil {
		errs = append(errs, *merr)
	}

	from, hasFrom, ferr := parseDate(r, "fromDate")
	if ferr != nil {
		errs = append(errs, *ferr)
	}

	to, hasTo, terr := parseDate(r, "toDate")
	if terr != nil {
		errs = append(errs, *terr)
	}

	if len(errs) > 0 {
		h.writeValidationErrors(w, errs)

		return
	}

	now := time.Now().UTC()

	fromDate := now
	if hasFrom {
		fromDate = from
	}

	toDate := now
	if hasTo {
		toDate = to
	}

	toDate = toDate.AddDate(0, 0, 1)

	key := cache.TradeStatsKey(h.address, sort, params.PerPage)
	if params.Page == 1 && h.fromCache(w, r, "tradestats", key) {
		return
	}

	query := store.GroupQuery{
		Address:  h.address,
		MinValue: minValue,
		From:     fromDate,
		To:       toDate,
		SortBy:   sort,
		Offset:   params.offset(),
		Limit:    params.PerPage,
	}

	total, err := h.txs.CountGroups(r.Context(), query)
	if err != nil {
		h.writeServerError(w, "tradestats", err)

		return
	}

	if total == 0 {
		h.writeJSON(w, http.StatusOK, emptyPage(params.PerPage, params.Page))

		return
	}

	rows, err := h.txs.GroupByFrom(r.Context(), query)
	if err != nil {
		h.writeServerError(w, "tradestats", err)

		return
	}

	data := &PageData{
		Total:       total,
		PerPage:     params.PerPage,
		CurrentPage: params.Page,
		Pages:       pageCount(total, params.PerPage),
		Items:       rows,
	}

	if params.Page == 1 && len(rows) > 0 {
		h.saveCache(r.Context(), key, data, 10*time.Second)
	}

	h.writeJSON(w, http.StatusOK, data)
}

type accountSummary struct {
	Status        bool    `json:"status"`
	Balance       string  `json:"balance"`
	BalanceNumber float64 `json:"balanceNumber"`
	IsToken       bool    `json:"isToken"`
	IsContract    bool    `json:"isContract,omitempty"`
	AccountName   *string `json:"accountName"`
}

type latestTradeItem struct {
	CreatedAt time.Time      `json:"createdAt"`
	Value     string         `json:"value"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	FromModel accountSummary `json:"from_model"`
	ToModel   accountSummary `json:"to_model"`
}

// handleLatestTrade lists the most recent trades, newest block first, with
// the involved accounts embedded.
func (h *Handler) handleLatestTrade(w http.ResponseWriter, r *http.Request) {
	params, errs := parsePageParams(r)
	if len(errs) > 0 {
		h.writeValidationErrors(w, errs)

		return
	}

	txAccount := r.URL.Query().Get("tx_account")

	key := cache.LatestTradeKey(txAccount, h.address)
	if params.Page == 1 && h.fromCache(w, r, "latestTrade", key) {
		return
	}

	total, err := h.latestTradeTotal(r, txAccount)
	if err != nil {
		h.writeServerError(w, "latestTrade", err)

		return
	}

	items, err := h.txs.Latest(r.Context(), params.offset(), params.PerPage)
	if err != nil {
		h.writeServerError(w, "latestTrade", err)

		return
	}

	rows, err := h.enrichTrades(r, items)
	if err != nil {
		h.writeServerError(w, "latestTrade", err)

		return
	}

	data := &PageData{
		Total:       total,
		PerPage:     params.PerPage,
		CurrentPage: params.Page,
		Pages:       pageCount(total, params.PerPage),
		Items:       rows,
	}

	if params.Page == 1 && len(rows) > 0 {
		h.saveCache(r.Context(), key, data, 0)
	}

	h.writeJSON(w, http.StatusOK, data)
}

// latestTradeTotal resolves the global transaction count, falling back to
// the exchange account's counters when the precomputed counter is missing.
func (h *Handler) latestTradeTotal(r *http.Request, txAccount string) (int64, error) {
	total, err := h.overview.TotalTransactions(r.Context())
	if err != nil {
		return 0, err
	}

	if total != nil {
		return *total, nil
	}

	accounts, err := h.accounts.ByHashes(r.Context(), []string{h.address})
	if err != nil {
		return 0, err
	}

	account, ok := accounts[h.address]
	if !ok {
		return 0, nil
	}

	switch txAccount {
	case "in":
		return account.InTxCount, nil
	case "out":
		return account.OutTxCount, nil
	default:
		return account.TotalTxCount, nil
	}
}

func (h *Handler) enrichTrades(r *http.Request, items []store.Tx) ([]latestTradeItem, error) {
	hashes := make([]string, 0, len(items)*2)
	seen := map[string]bool{}

	for _, item := range items {
		for _, hash := range []string{item.From, item.To} {
			if hash != "" && !seen[hash] {
				seen[hash] = true

				hashes = append(hashes, hash)
			}
		}
	}

	accounts := map[string]store.Account{}

	if len(hashes) > 0 {
		var err error

		accounts, err = h.accounts.ByHashes(r.Context(), hashes)
		if err != nil {
			return nil, err
		}
	}

	rows := make([]latestTradeItem, 0, len(items))

	for _, item := range items {
		from := accounts[item.From]
		to := accounts[item.To]

		rows = append(rows, latestTradeItem{
			CreatedAt: item.CreatedAt,
			Value:     item.Value,
			From:      item.From,
			To:        item.To,
			FromModel: accountSummary{
				Status:        from.Status,
				Balance:       from.Balance,
				BalanceNumber: from.BalanceNumber,
				IsToken:       from.IsToken,
				AccountName:   nil,
			},
			ToModel: accountSummary{
				Status:        to.Status,
				Balance:       to.Balance,
				BalanceNumber: to.BalanceNumber,
				IsToken:       to.IsToken,
				IsContract:    to.IsContract,
				AccountName:   nil,
			},
		})
	}

	return rows, nil
}
