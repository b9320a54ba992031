package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// lotSize is the exchange board lot: orders are floored to whole lots.
const lotSize = 100

// feeDisplayCap bounds the commission rate quoted in run output. The
// configured rate is still applied in full to every fill.
const feeDisplayCap = 0.01

// position is one open holding awaiting its resolved exit.
type position struct {
	cand     contracts.Candidate
	quantity int64
	cost     float64 // cash spent at entry, fee included
	entryFee float64
}

// Simulator replays ranked candidates through a single-account cash
// model: admission checks, lot-floored sizing, fee-adjusted settlement.
type Simulator struct {
	logger *logger.Logger
}

// NewSimulator creates a portfolio simulator.
func NewSimulator(log *logger.Logger) *Simulator {
	return &Simulator{
		logger: log.WithField("module", "portfolio_simulator"),
	}
}

// Simulate walks candidates in their ranked order. Positions exiting
// strictly before a candidate's entry date release their cash first; a
// same-day exit does not fund a same-day entry. Rejections are counted
// by reason, never fatal.
func (s *Simulator) Simulate(cands []contracts.Candidate, p contracts.BacktestParams) *contracts.SimulationResult {
	feeRate := p.FeeBps / 10000

	res := &contracts.SimulationResult{
		SkipCounts: make(map[contracts.SkipReason]int),
		FinalCash:  p.InitialCapital,
	}
	if feeRate > feeDisplayCap {
		res.CommissionNote = fmt.Sprintf(
			"commission rate %.2f%% exceeds the %.0f%% display cap; full rate applied to results",
			feeRate*100, feeDisplayCap*100)
	}

	cash := p.InitialCapital
	invested := 0.0
	open := make(map[string]*position)

	for _, cand := range cands {
		// 1. Settle every position whose exit precedes this entry
		for _, pos := range takeExitsBefore(open, cand.EntryDate) {
			trade := s.settle(pos, feeRate)
			cash += trade.ExitPrice*float64(trade.Quantity) - (trade.Fees - pos.entryFee)
			invested -= pos.cost
			res.RealizedPnL += trade.PnL
			res.Trades = append(res.Trades, trade)
		}

		// 2. Admission checks
		if _, held := open[cand.Symbol]; held {
			res.SkipCounts[contracts.SkipDuplicateSymbol]++
			continue
		}
		if len(open) >= p.MaxPositions {
			res.SkipCounts[contracts.SkipMaxPositions]++
			continue
		}
		if !(cand.EntryPrice > 0) || math.IsNaN(cand.EntryPrice) || math.IsInf(cand.EntryPrice, 0) {
			res.SkipCounts[contracts.SkipInvalidPrice]++
			continue
		}

		// 3. Size to the target fraction of book equity, floored to
		// whole lots, and never beyond available cash
		equity := cash + invested
		target := equity * p.PositionFraction
		if target > cash {
			target = cash
		}

		unitCost := cand.EntryPrice * (1 + feeRate)
		lots := int64(target / (unitCost * lotSize))
		quantity := lots * lotSize
		if quantity <= 0 {
			res.SkipCounts[contracts.SkipInsufficientCash]++
			continue
		}

		// 4. Open the position
		gross := cand.EntryPrice * float64(quantity)
		entryFee := gross * feeRate
		cost := gross + entryFee

		cash -= cost
		invested += cost
		open[cand.Symbol] = &position{
			cand:     cand,
			quantity: quantity,
			cost:     cost,
			entryFee: entryFee,
		}

		if len(open) > res.PeakPositions {
			res.PeakPositions = len(open)
		}
	}

	// 5. Drain remaining positions in exit order
	for _, pos := range takeExitsBefore(open, "") {
		trade := s.settle(pos, feeRate)
		cash += trade.ExitPrice*float64(trade.Quantity) - (trade.Fees - pos.entryFee)
		invested -= pos.cost
		res.RealizedPnL += trade.PnL
		res.Trades = append(res.Trades, trade)
	}

	res.FinalCash = cash

	s.logger.WithFields(map[string]interface{}{
		"trades":         len(res.Trades),
		"peak_positions": res.PeakPositions,
		"realized_pnl":   res.RealizedPnL,
		"final_cash":     res.FinalCash,
	}).Info("Portfolio simulation complete")

	return res
}

// settle converts an open position into an executed trade at its
// pre-resolved exit.
func (s *Simulator) settle(pos *position, feeRate float64) contracts.ExecutedTrade {
	cand := pos.cand
	grossExit := cand.ExitPrice * float64(pos.quantity)
	exitFee := grossExit * feeRate
	proceeds := grossExit - exitFee

	pnl := proceeds - pos.cost

	return contracts.ExecutedTrade{
		Symbol:      cand.Symbol,
		SignalDate:  cand.SignalDate,
		EntryDate:   cand.EntryDate,
		ExitDate:    cand.ExitDate,
		EntryPrice:  cand.EntryPrice,
		ExitPrice:   cand.ExitPrice,
		Quantity:    pos.quantity,
		Fees:        pos.entryFee + exitFee,
		PnL:         pnl,
		PnLRatio:    pnl / pos.cost,
		ExitReason:  cand.ExitReason,
		HoldingDays: cand.HoldingDays,
	}
}

// takeExitsBefore removes and returns positions exiting strictly before
// the cutoff date, ordered by exit date then symbol. An empty cutoff
// removes everything.
func takeExitsBefore(open map[string]*position, cutoff string) []*position {
	var due []*position
	for sym, pos := range open {
		if cutoff == "" || pos.cand.ExitDate < cutoff {
			due = append(due, pos)
			delete(open, sym)
		}
	}
	sort.Slice(due, func(a, b int) bool {
		if due[a].cand.ExitDate != due[b].cand.ExitDate {
			return due[a].cand.ExitDate < due[b].cand.ExitDate
		}
		return due[a].cand.Symbol < due[b].cand.Symbol
	})
	return due
}
