package contracts

// SkipReason classifies why a candidate was not admitted.
type SkipReason string

const (
	SkipMaxPositions     SkipReason = "max_positions"
	SkipInsufficientCash SkipReason = "insufficient_cash"
	SkipInvalidPrice     SkipReason = "invalid_price"
	SkipDuplicateSymbol  SkipReason = "duplicate_symbol"
	SkipNoSellableDay    SkipReason = "no_sellable_day" // settlement-constrained drop
)

// ExecutedTrade is one admitted and fully settled trade.
type ExecutedTrade struct {
	Symbol      string     `json:"symbol"`
	Name        string     `json:"name,omitempty"`
	SignalDate  string     `json:"signal_date"`
	EntryDate   string     `json:"entry_date"`
	ExitDate    string     `json:"exit_date"`
	EntryPrice  float64    `json:"entry_price"`
	ExitPrice   float64    `json:"exit_price"`
	Quantity    int64      `json:"quantity"` // shares, 100-share lots
	Fees        float64    `json:"fees"`     // total entry + exit fees
	PnL         float64    `json:"pnl"`      // fee-adjusted
	PnLRatio    float64    `json:"pnl_ratio"`
	ExitReason  ExitReason `json:"exit_reason"`
	HoldingDays int        `json:"holding_days"`
}

// SimulationResult is the portfolio simulator's output.
type SimulationResult struct {
	Trades        []ExecutedTrade    `json:"trades"`
	SkipCounts    map[SkipReason]int `json:"skip_counts"`
	PeakPositions int                `json:"peak_positions"`
	FinalCash     float64            `json:"final_cash"`
	RealizedPnL   float64            `json:"realized_pnl"`

	// CommissionNote is set when the configured fee exceeds the display
	// cap; the full fee is still applied to PnL.
	CommissionNote string `json:"commission_note,omitempty"`
}
