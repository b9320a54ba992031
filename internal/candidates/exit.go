package candidates

import (
	"github.com/Laimiu-debug/quantscan/internal/contracts"
)

// ExitSpec carries everything the exit resolver needs, as plain slices
// so the matrix path and the snapshot path share one algorithm.
type ExitSpec struct {
	Open  []float64
	High  []float64
	Low   []float64
	Close []float64
	Valid []bool
	Sell  []bool // explicit sell-signal bars; may be nil

	EntryIndex int
	EntryPrice float64

	StopLoss         float64 // fraction below entry, <= 0 disables
	TakeProfit       float64 // fraction above entry, <= 0 disables
	MaxHoldDays      int     // sellable bars, <= 0 disables
	AllowSameDaySell bool    // false = T+1: no sale on the entry day
}

// Exit is a resolved exit point.
type Exit struct {
	Index       int
	Price       float64
	Reason      contracts.ExitReason
	HoldingDays int // sellable bars between entry and exit inclusive
}

// ResolveExit scans forward from the entry bar and returns the first
// triggered exit: stop hit, take-profit hit, sell-signal bar, holding
// limit, or the last sellable bar's close when the sample ends first.
// Returns ok=false when no sellable bar exists at all; the caller drops
// the candidate and counts it as a settlement-constrained skip.
func ResolveExit(s ExitSpec) (Exit, bool) {
	stopPrice := 0.0
	if s.StopLoss > 0 {
		stopPrice = s.EntryPrice * (1 - s.StopLoss)
	}
	takePrice := 0.0
	if s.TakeProfit > 0 {
		takePrice = s.EntryPrice * (1 + s.TakeProfit)
	}

	first := s.EntryIndex
	if !s.AllowSameDaySell {
		first++
	}

	held := 0
	lastSellable := -1

	for i := first; i < len(s.Close); i++ {
		if i < 0 || !s.Valid[i] {
			continue
		}
		held++
		lastSellable = i

		if stopPrice > 0 && s.Low[i] <= stopPrice {
			price := stopPrice
			if s.Open[i] < stopPrice {
				// Gap below the stop fills at the open
				price = s.Open[i]
			}
			return Exit{Index: i, Price: price, Reason: contracts.ExitStopLoss, HoldingDays: held}, true
		}

		if takePrice > 0 && s.High[i] >= takePrice {
			price := takePrice
			if s.Open[i] > takePrice {
				price = s.Open[i]
			}
			return Exit{Index: i, Price: price, Reason: contracts.ExitTakeProfit, HoldingDays: held}, true
		}

		if s.Sell != nil && s.Sell[i] {
			return Exit{Index: i, Price: s.Close[i], Reason: contracts.ExitEvent, HoldingDays: held}, true
		}

		if s.MaxHoldDays > 0 && held >= s.MaxHoldDays {
			return Exit{Index: i, Price: s.Close[i], Reason: contracts.ExitTimeLimit, HoldingDays: held}, true
		}
	}

	if lastSellable < 0 {
		return Exit{}, false
	}

	return Exit{
		Index:       lastSellable,
		Price:       s.Close[lastSellable],
		Reason:      contracts.ExitEndOfData,
		HoldingDays: held,
	}, true
}
