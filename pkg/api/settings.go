package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/chaintex/trade-processor/pkg/cache"
	"github.com/chaintex/trade-processor/pkg/store"
)

type settingData struct {
	Stats *store.Totals `json:"stats"`
}

// handleSetting reports the chain-wide counters maintained by the sync
// subsystems.
func (h *Handler) handleSetting(w http.ResponseWriter, r *http.Request) {
	totals, err := h.overview.Totals(r.Context())
	if err != nil {
		h.writeServerError(w, "setting", err)

		return
	}

	h.writeJSON(w, http.StatusOK, &settingData{Stats: totals})
}

// handleSettingUSD proxies the upstream USD quote, caching it briefly to
// keep the ticker API out of the request path.
func (h *Handler) handleSettingUSD(w http.ResponseWriter, r *http.Request) {
	key := cache.USDKey()
	if h.fromCache(w, r, "settingUSD", key) {
		return
	}

	quote, err := h.ticker.USD(r.Context())
	if err != nil {
		h.writeServerError(w, "settingUSD", err)

		return
	}

	h.saveCache(r.Context(), key, json.RawMessage(quote), 30*time.Second)

	h.writeJSON(w, http.StatusOK, json.RawMessage(quote))
}
