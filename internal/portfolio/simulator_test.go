package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

func cand(symbol, entry, exit string, entryPx, exitPx float64) contracts.Candidate {
	return contracts.Candidate{
		Symbol:     symbol,
		SignalDate: entry,
		EntryDate:  entry,
		EntryPrice: entryPx,
		ExitDate:   exit,
		ExitPrice:  exitPx,
		ExitReason: contracts.ExitTimeLimit,
	}
}

func baseParams() contracts.BacktestParams {
	return contracts.BacktestParams{
		InitialCapital:   100_000,
		PositionFraction: 0.5,
		MaxPositions:     5,
	}
}

func TestSimulate_LotFlooring(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	// Target 50k at price 17: 2941 shares, floored to 2900
	res := s.Simulate([]contracts.Candidate{
		cand("600000", "2024-01-02", "2024-01-10", 17, 18),
	}, baseParams())

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, int64(2900), tr.Quantity)
	assert.InDelta(t, (18-17)*2900, tr.PnL, 1e-9, "no fees configured")
	assert.InDelta(t, res.RealizedPnL, tr.PnL, 1e-9)
	assert.InDelta(t, 100_000+tr.PnL, res.FinalCash, 1e-6)
}

func TestSimulate_Fees(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	p := baseParams()
	p.FeeBps = 100 // 1%

	res := s.Simulate([]contracts.Candidate{
		cand("600000", "2024-01-02", "2024-01-10", 10, 10),
	}, p)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	// Flat price round trip loses both fees
	expectedFees := 10*float64(tr.Quantity)*0.01 + 10*float64(tr.Quantity)*0.01
	assert.InDelta(t, expectedFees, tr.Fees, 1e-9)
	assert.InDelta(t, -expectedFees, tr.PnL, 1e-9)
	assert.Empty(t, res.CommissionNote)
}

func TestSimulate_CommissionNoteAboveCap(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	p := baseParams()
	p.FeeBps = 250 // 2.5%, above the display cap

	res := s.Simulate(nil, p)
	assert.Contains(t, res.CommissionNote, "display cap")
}

func TestSimulate_DuplicateSymbolRejected(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	res := s.Simulate([]contracts.Candidate{
		cand("600000", "2024-01-02", "2024-01-10", 10, 11),
		cand("600000", "2024-01-03", "2024-01-09", 10, 11),
	}, baseParams())

	assert.Len(t, res.Trades, 1)
	assert.Equal(t, 1, res.SkipCounts[contracts.SkipDuplicateSymbol])
}

func TestSimulate_MaxPositions(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	p := baseParams()
	p.MaxPositions = 2
	p.PositionFraction = 0.1

	res := s.Simulate([]contracts.Candidate{
		cand("a", "2024-01-02", "2024-01-10", 10, 11),
		cand("b", "2024-01-02", "2024-01-10", 10, 11),
		cand("c", "2024-01-02", "2024-01-10", 10, 11),
	}, p)

	assert.Len(t, res.Trades, 2)
	assert.Equal(t, 1, res.SkipCounts[contracts.SkipMaxPositions])
	assert.Equal(t, 2, res.PeakPositions)
}

func TestSimulate_InsufficientCash(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	p := baseParams()
	p.InitialCapital = 500 // not enough for one lot at 10

	res := s.Simulate([]contracts.Candidate{
		cand("600000", "2024-01-02", "2024-01-10", 10, 11),
	}, p)

	assert.Empty(t, res.Trades)
	assert.Equal(t, 1, res.SkipCounts[contracts.SkipInsufficientCash])
}

func TestSimulate_InvalidPrice(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	res := s.Simulate([]contracts.Candidate{
		cand("600000", "2024-01-02", "2024-01-10", 0, 11),
	}, baseParams())

	assert.Empty(t, res.Trades)
	assert.Equal(t, 1, res.SkipCounts[contracts.SkipInvalidPrice])
}

func TestSimulate_ExitReleasesCashForLaterEntry(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	p := baseParams()
	p.PositionFraction = 1.0 // all-in per position

	res := s.Simulate([]contracts.Candidate{
		cand("a", "2024-01-02", "2024-01-05", 10, 12),
		// Enters after a's exit, so the freed cash funds it
		cand("b", "2024-01-08", "2024-01-15", 10, 10),
	}, p)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, "a", res.Trades[0].Symbol)
	assert.Equal(t, "b", res.Trades[1].Symbol)
	assert.Greater(t, res.Trades[1].Quantity, res.Trades[0].Quantity,
		"profits from a compound into b")
}

func TestSimulate_SameDayExitDoesNotFundEntry(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	p := baseParams()
	p.PositionFraction = 1.0

	res := s.Simulate([]contracts.Candidate{
		cand("a", "2024-01-02", "2024-01-08", 10, 10),
		// Same-day as a's exit: cash is still locked
		cand("b", "2024-01-08", "2024-01-15", 10, 10),
	}, p)

	assert.Len(t, res.Trades, 1)
	assert.Equal(t, 1, res.SkipCounts[contracts.SkipInsufficientCash])
}

func TestSimulate_DrainsInExitOrder(t *testing.T) {
	s := NewSimulator(logger.NewNop())

	p := baseParams()
	p.PositionFraction = 0.2

	res := s.Simulate([]contracts.Candidate{
		cand("b", "2024-01-02", "2024-01-20", 10, 10),
		cand("a", "2024-01-02", "2024-01-10", 10, 10),
	}, p)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, "a", res.Trades[0].Symbol, "earlier exit settles first")
	assert.Equal(t, "b", res.Trades[1].Symbol)
}
