package handler

import (
	"log/slog"
	"net/http"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

// OpportunityHandler serves the currently active arbitrage opportunities.
type OpportunityHandler struct {
	cache  domain.OpportunityCache
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler backed by the given
// cache.
func NewOpportunityHandler(cache domain.OpportunityCache, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{cache: cache, logger: logger}
}

// GetActive returns the latest active-opportunity snapshot. When the engine
// has not published one yet (or the cache entry expired) the response carries
// an empty list rather than an error.
// GET /api/opportunities
func (h *OpportunityHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cache.GetActive(r.Context())
	if err != nil {
		h.logger.Error("handler: get active snapshot",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		return
	}

	if snap.Active == nil {
		snap.Active = []domain.ActivePath{}
	}
	writeJSON(w, http.StatusOK, snap)
}
