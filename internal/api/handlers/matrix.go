package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Laimiu-debug/quantscan/internal/matrix"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// MatrixHandler handles matrix cache API endpoints.
type MatrixHandler struct {
	builder *matrix.Builder
	logger  *logger.Logger
}

// NewMatrixHandler creates a new matrix handler.
func NewMatrixHandler(builder *matrix.Builder, log *logger.Logger) *MatrixHandler {
	return &MatrixHandler{
		builder: builder,
		logger:  log,
	}
}

// BuildRequest asks for a matrix bundle to be built or warmed.
type BuildRequest struct {
	Symbols  []string `json:"symbols"`
	DateFrom string   `json:"date_from"`
	DateTo   string   `json:"date_to"`
	Windows  []int    `json:"windows,omitempty"`
}

// BuildResponse summarizes the built bundle.
type BuildResponse struct {
	Dates    int    `json:"dates"`
	Symbols  int    `json:"symbols"`
	CacheHit bool   `json:"cache_hit"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// Build builds (or warms) a matrix bundle
// POST /api/matrix/build
func (h *MatrixHandler) Build(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bundle, hit, err := h.builder.Build(ctx, matrix.Request{
		Symbols:  req.Symbols,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Windows:  req.Windows,
	})
	if err != nil {
		h.logger.WithError(err).Error("Matrix build failed")
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	t, n := bundle.Shape()
	respondJSON(w, http.StatusOK, BuildResponse{
		Dates:    t,
		Symbols:  n,
		CacheHit: hit,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	})
}

// ClearCache drops the runtime and disk matrix caches
// DELETE /api/matrix/cache
func (h *MatrixHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.builder.ClearRuntime()
	if err := h.builder.ClearDisk(); err != nil {
		h.logger.WithError(err).Error("Failed to clear disk cache")
		respondError(w, http.StatusInternalServerError, "Failed to clear disk cache")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
