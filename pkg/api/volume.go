package api

import (
	"net/http"
	"time"

	"github.com/chaintex/trade-processor/pkg/cache"
)

// earliestTradeDate is the lower bound used when no fromDate is given.
var earliestTradeDate = time.Date(2019, 1, 1, 0, 0, 1, 0, time.UTC)

type volumeData struct {
	Volume float64   `json:"volume"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Time   time.Time `json:"time"`
}

// handleVolume reports the traded volume over an arbitrary date range. The
// upper bound is pushed one day past the requested toDate so a same-day
// query still covers today's trades.
func (h *Handler) handleVolume(w http.ResponseWriter, r *http.Request) {
	var errs []fieldError

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

	fromDate := earliestTradeDate
	if hasFrom {
		fromDate = from.Add(time.Second)
	}

	toDate := time.Now().UTC()
	if hasTo {
		toDate = to.Add(24*time.Hour - time.Second)
	}

	toDate = toDate.AddDate(0, 0, 1)

	key := cache.VolumeKey(h.address, r.URL.Query().Get("fromDate"), r.URL.Query().Get("toDate"))
	if h.fromCache(w, r, "volume", key) {
		return
	}

	h.serveVolume(w, r, "volume", key, fromDate, toDate, time.Minute)
}

// handleVolume24h reports the traded volume of the current day.
func (h *Handler) handleVolume24h(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	fromDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 1, 0, time.UTC)
	toDate := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)

	key := cache.Volume24hKey(h.address)
	if h.fromCache(w, r, "volume24h", key) {
		return
	}

	h.serveVolume(w, r, "volume24h", key, fromDate, toDate, 30*time.Second)
}

func (h *Handler) serveVolume(w http.ResponseWriter, r *http.Request, endpoint, key string, from, to time.Time, ttl time.Duration) {
	volume, err := h.txs.SumVolume(r.Context(), h.address, from, to)
	if err != nil {
		h.writeServerError(w, endpoint, err)

		return
	}

	data := &volumeData{
		Volume: volume,
		From:   from,
		To:     to,
		Time:   time.Now().UTC(),
	}

	// An empty range is not worth pinning in the cache.
	if volume > 0 {
		h.saveCache(r.Context(), key, data, ttl)
	}

	h.writeJSON(w, http.StatusOK, data)
}
