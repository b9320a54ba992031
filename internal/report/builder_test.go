package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

func trade(symbol, entry, exit string, entryPx, exitPx float64, qty int64) contracts.ExecutedTrade {
	return contracts.ExecutedTrade{
		Symbol:     symbol,
		SignalDate: entry,
		EntryDate:  entry,
		ExitDate:   exit,
		EntryPrice: entryPx,
		ExitPrice:  exitPx,
		Quantity:   qty,
		PnL:        (exitPx - entryPx) * float64(qty),
	}
}

func simOf(trades ...contracts.ExecutedTrade) *contracts.SimulationResult {
	sim := &contracts.SimulationResult{
		Trades:     trades,
		SkipCounts: map[contracts.SkipReason]int{},
	}
	for _, t := range trades {
		sim.RealizedPnL += t.PnL
	}
	return sim
}

func reportParams() contracts.BacktestParams {
	return contracts.BacktestParams{
		DateFrom:       "2024-01-02",
		DateTo:         "2024-01-04",
		InitialCapital: 10_000,
	}
}

func TestBuild_MarkToMarketCurve(t *testing.T) {
	marks := map[string]float64{
		"2024-01-02": 10.5,
		"2024-01-03": 11,
	}
	prices := func(symbol, date string) (float64, bool) {
		px, ok := marks[date]
		return px, ok
	}

	b := NewBuilder(logger.NewNop())
	res := b.Build(
		simOf(trade("600000", "2024-01-02", "2024-01-04", 10, 12, 100)),
		reportParams(),
		[]string{"2024-01-02", "2024-01-03", "2024-01-04"},
		prices,
	)

	require.Len(t, res.Equity, 3)
	assert.InDelta(t, 10_050, res.Equity[0].Equity, 1e-9, "marked at the day's close")
	assert.InDelta(t, 10_100, res.Equity[1].Equity, 1e-9)
	assert.InDelta(t, 10_200, res.Equity[2].Equity, 1e-9, "exit realizes the gain")
	assert.InDelta(t, 200, res.Equity[2].RealizedPnL, 1e-9)

	assert.InDelta(t, 10_200, res.Summary.FinalEquity, 1e-9)
	assert.InDelta(t, 0.02, res.Summary.TotalReturn, 1e-9)
}

func TestBuild_MissingMarkCarriesForward(t *testing.T) {
	prices := func(symbol, date string) (float64, bool) {
		if date == "2024-01-02" {
			return 10.5, true
		}
		return 0, false // suspended: last mark carries
	}

	b := NewBuilder(logger.NewNop())
	res := b.Build(
		simOf(trade("600000", "2024-01-02", "2024-01-04", 10, 12, 100)),
		reportParams(),
		[]string{"2024-01-02", "2024-01-03", "2024-01-04"},
		prices,
	)

	require.Len(t, res.Equity, 3)
	assert.InDelta(t, res.Equity[0].Equity, res.Equity[1].Equity, 1e-9)
}

func TestBuild_NilLookupMarksAtEntry(t *testing.T) {
	b := NewBuilder(logger.NewNop())
	res := b.Build(
		simOf(trade("600000", "2024-01-02", "2024-01-04", 10, 12, 100)),
		reportParams(),
		[]string{"2024-01-02", "2024-01-03", "2024-01-04"},
		nil,
	)

	require.Len(t, res.Equity, 3)
	assert.InDelta(t, 10_000, res.Equity[0].Equity, 1e-9, "flat until the exit realizes")
	assert.InDelta(t, 10_200, res.Equity[2].Equity, 1e-9)
}

func TestBuild_Drawdown(t *testing.T) {
	marks := map[string]float64{
		"2024-01-02": 12, // run up first
		"2024-01-03": 9,  // then fall
	}
	prices := func(symbol, date string) (float64, bool) {
		px, ok := marks[date]
		return px, ok
	}

	b := NewBuilder(logger.NewNop())
	res := b.Build(
		simOf(trade("600000", "2024-01-02", "2024-01-04", 10, 10, 100)),
		reportParams(),
		[]string{"2024-01-02", "2024-01-03", "2024-01-04"},
		prices,
	)

	// Peak 10200, trough 9900: drawdown -300/10200
	require.Len(t, res.Drawdown, 3)
	assert.InDelta(t, 0, res.Drawdown[0].Drawdown, 1e-9)
	assert.InDelta(t, -300.0/10_200, res.Drawdown[1].Drawdown, 1e-9)
	assert.InDelta(t, 300.0/10_200, res.Summary.MaxDrawdown, 1e-9)
}

func TestBuild_MonthlyGrouping(t *testing.T) {
	b := NewBuilder(logger.NewNop())
	p := reportParams()
	p.DateTo = "2024-02-29"

	res := b.Build(simOf(
		trade("a", "2024-01-02", "2024-01-10", 10, 11, 100),
		trade("b", "2024-01-03", "2024-01-20", 10, 9, 100),
		trade("c", "2024-02-01", "2024-02-10", 10, 12, 100),
	), p, nil, nil)

	require.Len(t, res.Monthly, 2)
	jan := res.Monthly[0]
	assert.Equal(t, "2024-01", jan.Month)
	assert.Equal(t, 2, jan.Trades)
	assert.Equal(t, 1, jan.Winners)
	assert.InDelta(t, 0.5, jan.WinRate, 1e-9)
	assert.InDelta(t, 0, jan.PnL, 1e-9)
	assert.Equal(t, "2024-02", res.Monthly[1].Month)
}

func TestBuild_TopAndBottomTrades(t *testing.T) {
	b := NewBuilder(logger.NewNop())
	res := b.Build(simOf(
		trade("mid", "2024-01-02", "2024-01-10", 10, 10.5, 100),
		trade("best", "2024-01-02", "2024-01-10", 10, 13, 100),
		trade("worst", "2024-01-02", "2024-01-10", 10, 8, 100),
	), reportParams(), nil, nil)

	require.NotEmpty(t, res.TopTrades)
	require.NotEmpty(t, res.BottomTrades)
	assert.Equal(t, "best", res.TopTrades[0].Symbol)
	assert.Equal(t, "worst", res.BottomTrades[0].Symbol)
}

func TestBuild_ProfitFactorSentinels(t *testing.T) {
	b := NewBuilder(logger.NewNop())

	res := b.Build(simOf(
		trade("a", "2024-01-02", "2024-01-04", 10, 12, 100),
	), reportParams(), nil, nil)
	assert.InDelta(t, 999.0, res.Summary.ProfitFactor, 1e-9, "winners only")

	res = b.Build(simOf(), reportParams(), nil, nil)
	assert.Zero(t, res.Summary.ProfitFactor, "no trades")
	assert.InDelta(t, 10_000, res.Summary.FinalEquity, 1e-9)
}

func TestBuild_EquityDeterministic(t *testing.T) {
	// Several positions open at once, marked at values whose float sum
	// depends on addition order: every rebuild must match exactly
	trades := []contracts.ExecutedTrade{
		trade("a", "2024-01-02", "2024-01-04", 0.1, 0.3, 100),
		trade("b", "2024-01-02", "2024-01-04", 0.2, 0.1, 300),
		trade("c", "2024-01-02", "2024-01-04", 0.3, 0.4, 700),
		trade("d", "2024-01-02", "2024-01-04", 0.7, 0.9, 100),
		trade("e", "2024-01-02", "2024-01-04", 1.1, 1.3, 100),
	}
	marks := map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3, "d": 0.7, "e": 1.1}
	prices := func(symbol, date string) (float64, bool) {
		px, ok := marks[symbol]
		return px, ok
	}
	calendar := []string{"2024-01-02", "2024-01-03", "2024-01-04"}

	b := NewBuilder(logger.NewNop())
	first := b.Build(simOf(trades...), reportParams(), calendar, prices)
	for i := 0; i < 20; i++ {
		again := b.Build(simOf(trades...), reportParams(), calendar, prices)
		for k := range first.Equity {
			assert.Equal(t, first.Equity[k].Equity, again.Equity[k].Equity,
				"equity on %s", first.Equity[k].Date)
		}
	}
}

func TestBuild_WeekdayCalendarFallback(t *testing.T) {
	b := NewBuilder(logger.NewNop())
	p := reportParams()
	p.DateFrom = "2024-01-05" // Friday
	p.DateTo = "2024-01-08"   // Monday

	res := b.Build(simOf(), p, nil, nil)

	require.Len(t, res.Equity, 2, "weekend days are skipped")
	assert.Equal(t, "2024-01-05", res.Equity[0].Date)
	assert.Equal(t, "2024-01-08", res.Equity[1].Date)
}
