package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Laimiu-debug/quantscan/internal/backtest"
	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/screener"
	"github.com/Laimiu-debug/quantscan/internal/strategyconfig"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// BacktestHandler handles backtest API endpoints.
type BacktestHandler struct {
	engine *backtest.Engine
	pools  *screener.PoolStore
	logger *logger.Logger
}

// NewBacktestHandler creates a new backtest handler. pools may be nil.
func NewBacktestHandler(engine *backtest.Engine, pools *screener.PoolStore, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		engine: engine,
		pools:  pools,
		logger: log,
	}
}

// RunRequest is the backtest run payload. Either inline params or a
// preset file path plus the universe and date range.
type RunRequest struct {
	contracts.BacktestParams

	// PresetPath loads parameter defaults from a preset file; inline
	// fields are ignored except symbols and dates when set.
	PresetPath string `json:"preset_path,omitempty"`

	// UsePool attaches the screener's cached daily pools as the
	// per-date allow-list when no explicit pool is supplied.
	UsePool bool `json:"use_pool,omitempty"`
}

// Run executes a backtest synchronously
// POST /api/backtest/run
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := req.BacktestParams
	if req.PresetPath != "" {
		preset, err := strategyconfig.Load(req.PresetPath)
		if err != nil {
			h.logger.WithError(err).WithField("preset", req.PresetPath).Error("Failed to load preset")
			respondError(w, http.StatusBadRequest, "Failed to load preset: "+err.Error())
			return
		}
		params = preset.Params(req.Symbols, req.DateFrom, req.DateTo)
	}

	if req.UsePool && h.pools != nil && len(params.DailyPool) == 0 {
		calendar := weekdays(params.DateFrom, params.DateTo)
		if err := h.pools.BuildParams(ctx, &params, calendar); err != nil {
			h.logger.WithError(err).Warn("Failed to attach daily pools, running ungated")
		}
	}

	result, err := h.engine.Run(ctx, params)
	if err != nil {
		h.logger.WithError(err).Error("Backtest run failed")
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}
