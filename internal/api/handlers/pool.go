package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Laimiu-debug/quantscan/internal/matrix"
	"github.com/Laimiu-debug/quantscan/internal/screener"
	"github.com/Laimiu-debug/quantscan/internal/signals"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// PoolHandler handles daily pool API endpoints.
type PoolHandler struct {
	builder  *matrix.Builder
	computer *signals.Computer
	pools    *screener.PoolStore
	logger   *logger.Logger
}

// NewPoolHandler creates a new pool handler.
func NewPoolHandler(
	builder *matrix.Builder,
	computer *signals.Computer,
	pools *screener.PoolStore,
	log *logger.Logger,
) *PoolHandler {
	return &PoolHandler{
		builder:  builder,
		computer: computer,
		pools:    pools,
		logger:   log,
	}
}

// Get returns the cached pool for a date
// GET /api/pool/{date}
func (h *PoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := mux.Vars(r)["date"]

	symbols, ok, err := h.pools.Get(ctx, date)
	if err != nil {
		h.logger.WithError(err).WithField("date", date).Error("Pool lookup failed")
		respondError(w, http.StatusInternalServerError, "Pool lookup failed")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "No pool cached for "+date)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":    date,
		"symbols": symbols,
		"count":   len(symbols),
	})
}

// RefreshRequest asks for pools to be recomputed over a range.
type RefreshRequest struct {
	Symbols  []string `json:"symbols"`
	DateFrom string   `json:"date_from"`
	DateTo   string   `json:"date_to"`
}

// Refresh recomputes and caches pools over a date range
// POST /api/pool/refresh
func (h *PoolHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bundle, _, err := h.builder.Build(ctx, matrix.Request{
		Symbols:  req.Symbols,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	})
	if err != nil {
		h.logger.WithError(err).Error("Matrix build failed for pool refresh")
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stored, err := h.pools.Screen(ctx, h.computer, bundle)
	if err != nil {
		h.logger.WithError(err).Error("Pool refresh failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "refreshed",
		"dates":  stored,
	})
}
