package strategyconfig

import (
	"github.com/Laimiu-debug/quantscan/internal/contracts"
)

// Preset is a reusable backtest parameter set loaded from YAML. Presets
// capture a strategy's knobs without the run-specific universe and date
// range, which the caller supplies at run time.
type Preset struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Signals  Signals  `yaml:"signals" json:"signals"`
	Capital  Capital  `yaml:"capital" json:"capital"`
	Exit     Exit     `yaml:"exit" json:"exit"`
	Costs    Costs    `yaml:"costs" json:"costs"`
	Ordering Ordering `yaml:"ordering" json:"ordering"`
}

// Meta identifies the preset.
type Meta struct {
	PresetID    string `yaml:"preset_id" json:"preset_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// Signals configures entry gating.
type Signals struct {
	WindowDays      int      `yaml:"window_days" json:"window_days"`
	MinScore        float64  `yaml:"min_score" json:"min_score"`
	EntryEvents     []string `yaml:"entry_events" json:"entry_events"`
	ExitEvents      []string `yaml:"exit_events" json:"exit_events"`
	MinEventCount   int      `yaml:"min_event_count" json:"min_event_count"`
	RequireSequence bool     `yaml:"require_sequence" json:"require_sequence"`
}

// Capital configures the cash model.
type Capital struct {
	InitialCapital   float64 `yaml:"initial_capital" json:"initial_capital"`
	PositionFraction float64 `yaml:"position_fraction" json:"position_fraction"`
	MaxPositions     int     `yaml:"max_positions" json:"max_positions"`
}

// Exit configures the exit rules.
type Exit struct {
	StopLoss    float64 `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit  float64 `yaml:"take_profit" json:"take_profit"`
	MaxHoldDays int     `yaml:"max_hold_days" json:"max_hold_days"`
}

// Costs configures fees and settlement.
type Costs struct {
	FeeBps           float64 `yaml:"fee_bps" json:"fee_bps"`
	AllowSameDaySell bool    `yaml:"allow_same_day_sell" json:"allow_same_day_sell"`
}

// Ordering configures candidate ranking and admission.
type Ordering struct {
	PriorityMode string `yaml:"priority_mode" json:"priority_mode"`
	TopKPerDay   int    `yaml:"top_k_per_day" json:"top_k_per_day"`
	AllowReentry bool   `yaml:"allow_reentry" json:"allow_reentry"`
	MaxSymbols   int    `yaml:"max_symbols" json:"max_symbols"`
}

// Params converts the preset into run parameters; symbols and dates
// come from the caller.
func (p *Preset) Params(symbols []string, dateFrom, dateTo string) contracts.BacktestParams {
	return contracts.BacktestParams{
		Symbols:  symbols,
		DateFrom: dateFrom,
		DateTo:   dateTo,

		WindowDays:      p.Signals.WindowDays,
		MinScore:        p.Signals.MinScore,
		EntryEvents:     p.Signals.EntryEvents,
		ExitEvents:      p.Signals.ExitEvents,
		MinEventCount:   p.Signals.MinEventCount,
		RequireSequence: p.Signals.RequireSequence,

		InitialCapital:   p.Capital.InitialCapital,
		PositionFraction: p.Capital.PositionFraction,
		MaxPositions:     p.Capital.MaxPositions,

		StopLoss:    p.Exit.StopLoss,
		TakeProfit:  p.Exit.TakeProfit,
		MaxHoldDays: p.Exit.MaxHoldDays,

		FeeBps:           p.Costs.FeeBps,
		AllowSameDaySell: p.Costs.AllowSameDaySell,

		PriorityMode: contracts.PriorityMode(p.Ordering.PriorityMode),
		TopKPerDay:   p.Ordering.TopKPerDay,
		AllowReentry: p.Ordering.AllowReentry,
		MaxSymbols:   p.Ordering.MaxSymbols,
	}
}
