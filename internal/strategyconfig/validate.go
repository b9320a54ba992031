package strategyconfig

import (
	"fmt"
)

// ValidationError is a fatal preset constraint violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the preset's required constraints.
func Validate(p *Preset) error {
	if p.Meta.PresetID == "" {
		return ValidationError{"meta.preset_id", "required"}
	}

	if p.Signals.WindowDays < 0 {
		return ValidationError{"signals.window_days", "must be >= 0"}
	}
	if p.Signals.MinScore < 0 || p.Signals.MinScore > 100 {
		return ValidationError{"signals.min_score", "must be in [0, 100]"}
	}
	if p.Signals.MinEventCount < 0 {
		return ValidationError{"signals.min_event_count", "must be >= 0"}
	}

	if p.Capital.InitialCapital < 0 {
		return ValidationError{"capital.initial_capital", "must be >= 0"}
	}
	if p.Capital.PositionFraction < 0 || p.Capital.PositionFraction > 1 {
		return ValidationError{"capital.position_fraction", "must be in [0, 1]"}
	}
	if p.Capital.MaxPositions < 0 {
		return ValidationError{"capital.max_positions", "must be >= 0"}
	}

	if p.Exit.StopLoss < 0 || p.Exit.StopLoss >= 1 {
		return ValidationError{"exit.stop_loss", "must be in [0, 1)"}
	}
	if p.Exit.TakeProfit < 0 {
		return ValidationError{"exit.take_profit", "must be >= 0"}
	}
	if p.Exit.MaxHoldDays < 0 {
		return ValidationError{"exit.max_hold_days", "must be >= 0"}
	}

	if p.Costs.FeeBps < 0 {
		return ValidationError{"costs.fee_bps", "must be >= 0"}
	}

	switch p.Ordering.PriorityMode {
	case "", "phase", "momentum", "balanced":
	default:
		return ValidationError{"ordering.priority_mode", "must be phase, momentum or balanced"}
	}
	if p.Ordering.TopKPerDay < 0 {
		return ValidationError{"ordering.top_k_per_day", "must be >= 0"}
	}
	if p.Ordering.MaxSymbols < 0 {
		return ValidationError{"ordering.max_symbols", "must be >= 0"}
	}

	return nil
}
