package contracts

// EquityPoint is one trading day's mark-to-market portfolio value.
type EquityPoint struct {
	Date        string  `json:"date"`
	Equity      float64 `json:"equity"`
	RealizedPnL float64 `json:"realized_pnl"` // cumulative
}

// DrawdownPoint is (equity - running peak) / peak for one trading day.
type DrawdownPoint struct {
	Date     string  `json:"date"`
	Drawdown float64 `json:"drawdown"` // <= 0
}

// MonthlyReturn aggregates trades by exit month.
type MonthlyReturn struct {
	Month   string  `json:"month"` // YYYY-MM
	PnL     float64 `json:"pnl"`
	Trades  int     `json:"trades"`
	Winners int     `json:"winners"`
	WinRate float64 `json:"win_rate"`
}

// Summary holds the headline statistics of a run.
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalReturn   float64 `json:"total_return"` // final/initial - 1
	MaxDrawdown   float64 `json:"max_drawdown"` // absolute value
	ProfitFactor  float64 `json:"profit_factor"`
	FinalEquity   float64 `json:"final_equity"`
}

// BacktestResult is the full output of one backtest run.
type BacktestResult struct {
	RunID  string         `json:"run_id"`
	Params BacktestParams `json:"params"`

	Trades       []ExecutedTrade `json:"trades"`
	Equity       []EquityPoint   `json:"equity_curve"`
	Drawdown     []DrawdownPoint `json:"drawdown_curve"`
	Monthly      []MonthlyReturn `json:"monthly_returns"`
	TopTrades    []ExecutedTrade `json:"top_trades"`
	BottomTrades []ExecutedTrade `json:"bottom_trades"`
	Summary      Summary         `json:"summary"`

	CandidateCount int                `json:"candidate_count"`
	SkipCounts     map[SkipReason]int `json:"skip_counts"`
	FillRate       float64            `json:"fill_rate"` // trades / candidates

	// Notes describe which code paths and caches served the run.
	Notes []string `json:"notes"`
}
