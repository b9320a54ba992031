package contracts

// ExitReason describes why a candidate's position closes.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitEvent      ExitReason = "event_exit" // explicit sell signal or exit event
	ExitTimeLimit  ExitReason = "time_exit"  // max holding days elapsed
	ExitEndOfData  ExitReason = "eod_exit"   // sample ended, last sellable close
)

// PriorityMode selects the same-day tie-break ordering of candidates.
type PriorityMode string

const (
	PriorityPhase    PriorityMode = "phase"    // phase score first
	PriorityMomentum PriorityMode = "momentum" // trend score first
	PriorityBalanced PriorityMode = "balanced" // quality score first
)

// Candidate is one proposed trade: a (symbol, signal date) pair with a
// resolved entry and exit, awaiting portfolio admission.
type Candidate struct {
	Symbol     string  `json:"symbol"`
	SignalDate string  `json:"signal_date"`
	EntryDate  string  `json:"entry_date"`  // next trading day after signal
	EntryIndex int     `json:"-"`           // index into the symbol's bar series
	EntryPrice float64 `json:"entry_price"` // next day's open

	// Ranking tuple
	QualityScore   float64 `json:"quality_score"`
	PhaseScore     float64 `json:"phase_score"`
	EventWeight    float64 `json:"event_weight"`
	StructureScore float64 `json:"structure_score"`
	TrendScore     float64 `json:"trend_score"`

	// Resolved exit
	ExitDate    string     `json:"exit_date"`
	ExitIndex   int        `json:"-"`
	ExitPrice   float64    `json:"exit_price"`
	ExitReason  ExitReason `json:"exit_reason"`
	HoldingDays int        `json:"holding_days"` // sellable bars between entry and exit
}

// BacktestParams are the caller-supplied inputs of one backtest run.
type BacktestParams struct {
	Symbols  []string `json:"symbols"`
	DateFrom string   `json:"date_from"`
	DateTo   string   `json:"date_to"`

	// Signal thresholds
	WindowDays      int      `json:"window_days"`      // snapshot lookback for the fallback path
	MinScore        float64  `json:"min_score"`        // minimum entry quality score
	EntryEvents     []string `json:"entry_events"`     // fallback path entry event codes
	ExitEvents      []string `json:"exit_events"`      // fallback path exit event codes
	MinEventCount   int      `json:"min_event_count"`  // minimum events in the snapshot window
	RequireSequence bool     `json:"require_sequence"` // gate entries on sequence validity

	// Capital and sizing
	InitialCapital   float64 `json:"initial_capital"`
	PositionFraction float64 `json:"position_fraction"` // target fraction of equity per position
	MaxPositions     int     `json:"max_positions"`

	// Exit rules
	StopLoss    float64 `json:"stop_loss"`     // fraction below entry, <= 0 disables
	TakeProfit  float64 `json:"take_profit"`   // fraction above entry, <= 0 disables
	MaxHoldDays int     `json:"max_hold_days"` // sellable bars, <= 0 disables

	// Costs and settlement
	FeeBps           float64 `json:"fee_bps"`             // symmetric proportional fee
	AllowSameDaySell bool    `json:"allow_same_day_sell"` // false = T+1

	// Candidate ordering and admission
	PriorityMode PriorityMode `json:"priority_mode"`
	TopKPerDay   int          `json:"top_k_per_day"` // 0 = unlimited
	AllowReentry bool         `json:"allow_reentry"`
	MaxSymbols   int          `json:"max_symbols"` // universe size cap, 0 = unlimited

	// Optional per-date allow-list (date -> symbols), e.g. a screener's
	// daily pool. Empty means every symbol is eligible.
	DailyPool map[string][]string `json:"daily_pool,omitempty"`
}

// Defaults fills zero-valued fields with sensible run defaults.
func (p *BacktestParams) Defaults() {
	if p.InitialCapital <= 0 {
		p.InitialCapital = 1_000_000
	}
	if p.PositionFraction <= 0 || p.PositionFraction > 1 {
		p.PositionFraction = 0.2
	}
	if p.MaxPositions <= 0 {
		p.MaxPositions = 5
	}
	if p.MaxHoldDays <= 0 {
		p.MaxHoldDays = 20
	}
	if p.WindowDays <= 0 {
		p.WindowDays = 60
	}
	if p.PriorityMode == "" {
		p.PriorityMode = PriorityBalanced
	}
}
