package handler

import (
	"context"
	"net/http"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// MarketHandler serves the market catalog and wallet balance.
type MarketHandler struct {
	catalog domain.MarketCatalog
	venue   domain.Venue // nil when trading is not configured
}

// NewMarketHandler creates a market handler. venue may be nil.
func NewMarketHandler(catalog domain.MarketCatalog, venue domain.Venue) *MarketHandler {
	return &MarketHandler{catalog: catalog, venue: venue}
}

// ListMarkets returns the current tradeable market set.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.GetAll())
}

// GetBalance returns the venue wallet balance. Without a configured venue it
// reports a zero balance rather than an error, matching the engine's
// degraded no-trading mode.
// GET /api/balance
func (h *MarketHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if h.venue == nil {
		writeJSON(w, http.StatusOK, domain.Balance{Symbol: "USDT"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultHandlerTimeout)
	defer cancel()

	balance, err := h.venue.GetBalance(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, "balance unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, balance)
}
