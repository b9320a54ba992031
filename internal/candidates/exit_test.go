package candidates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
)

func allValid(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}

func TestResolveExit_StopLoss(t *testing.T) {
	exit, ok := ResolveExit(ExitSpec{
		Open:       []float64{10, 10, 10, 10},
		High:       []float64{10, 10, 10, 10},
		Low:        []float64{10, 10, 8.9, 10},
		Close:      []float64{10, 10, 9.5, 10},
		Valid:      allValid(4),
		EntryIndex: 1,
		EntryPrice: 10,
		StopLoss:   0.10,
	})

	require.True(t, ok)
	assert.Equal(t, 2, exit.Index)
	assert.InDelta(t, 9.0, exit.Price, 1e-9, "fills at the stop level")
	assert.Equal(t, contracts.ExitStopLoss, exit.Reason)
	assert.Equal(t, 1, exit.HoldingDays)
}

func TestResolveExit_GapBelowStopFillsAtOpen(t *testing.T) {
	exit, ok := ResolveExit(ExitSpec{
		Open:       []float64{10, 10, 8.5},
		High:       []float64{10, 10, 8.6},
		Low:        []float64{10, 10, 8.0},
		Close:      []float64{10, 10, 8.2},
		Valid:      allValid(3),
		EntryIndex: 1,
		EntryPrice: 10,
		StopLoss:   0.10,
	})

	require.True(t, ok)
	assert.InDelta(t, 8.5, exit.Price, 1e-9)
	assert.Equal(t, contracts.ExitStopLoss, exit.Reason)
}

func TestResolveExit_StopBeatsTakeOnSameBar(t *testing.T) {
	// A wide bar touches both levels; the stop resolves first
	exit, ok := ResolveExit(ExitSpec{
		Open:       []float64{10, 10, 10},
		High:       []float64{10, 10, 12},
		Low:        []float64{10, 10, 8.5},
		Close:      []float64{10, 10, 11},
		Valid:      allValid(3),
		EntryIndex: 1,
		EntryPrice: 10,
		StopLoss:   0.10,
		TakeProfit: 0.15,
	})

	require.True(t, ok)
	assert.Equal(t, contracts.ExitStopLoss, exit.Reason)
}

func TestResolveExit_TakeProfit(t *testing.T) {
	exit, ok := ResolveExit(ExitSpec{
		Open:       []float64{10, 10, 10.2},
		High:       []float64{10, 10, 11.8},
		Low:        []float64{10, 10, 10.1},
		Close:      []float64{10, 10, 11.5},
		Valid:      allValid(3),
		EntryIndex: 1,
		EntryPrice: 10,
		TakeProfit: 0.15,
	})

	require.True(t, ok)
	assert.InDelta(t, 11.5, exit.Price, 1e-9, "fills at the take level")
	assert.Equal(t, contracts.ExitTakeProfit, exit.Reason)
}

func TestResolveExit_NoSameDaySell(t *testing.T) {
	// Entry day crashes through the stop; T+1 blocks the exit until
	// the next bar
	exit, ok := ResolveExit(ExitSpec{
		Open:       []float64{10, 10, 9.5},
		High:       []float64{10, 10, 9.6},
		Low:        []float64{10, 8.0, 9.0},
		Close:      []float64{10, 8.5, 9.2},
		Valid:      allValid(3),
		EntryIndex: 1,
		EntryPrice: 10,
		StopLoss:   0.10,
	})

	require.True(t, ok)
	assert.Equal(t, 2, exit.Index, "entry bar is not sellable")
}

func TestResolveExit_SameDaySellAllowed(t *testing.T) {
	exit, ok := ResolveExit(ExitSpec{
		Open:             []float64{10, 10, 9.5},
		High:             []float64{10, 10, 9.6},
		Low:              []float64{10, 8.0, 9.0},
		Close:            []float64{10, 8.5, 9.2},
		Valid:            allValid(3),
		EntryIndex:       1,
		EntryPrice:       10,
		StopLoss:         0.10,
		AllowSameDaySell: true,
	})

	require.True(t, ok)
	assert.Equal(t, 1, exit.Index)
}

func TestResolveExit_SellSignal(t *testing.T) {
	exit, ok := ResolveExit(ExitSpec{
		Open:       []float64{10, 10, 10, 10},
		High:       []float64{10, 10, 10, 10},
		Low:        []float64{10, 10, 10, 10},
		Close:      []float64{10, 10, 10.4, 10},
		Valid:      allValid(4),
		Sell:       []bool{false, false, true, false},
		EntryIndex: 1,
		EntryPrice: 10,
	})

	require.True(t, ok)
	assert.Equal(t, 2, exit.Index)
	assert.InDelta(t, 10.4, exit.Price, 1e-9, "event exits at the close")
	assert.Equal(t, contracts.ExitEvent, exit.Reason)
}

func TestResolveExit_TimeLimitCountsSellableBarsOnly(t *testing.T) {
	// Bars 2 and 3 are suspension days; the 2-day limit lands on bar 5
	valid := []bool{true, true, false, false, true, true}
	exit, ok := ResolveExit(ExitSpec{
		Open:        []float64{10, 10, 0, 0, 10, 10},
		High:        []float64{10, 10, 0, 0, 10, 10},
		Low:         []float64{10, 10, 0, 0, 10, 10},
		Close:       []float64{10, 10, 0, 0, 10.1, 10.2},
		Valid:       valid,
		EntryIndex:  1,
		EntryPrice:  10,
		MaxHoldDays: 2,
	})

	require.True(t, ok)
	assert.Equal(t, 5, exit.Index)
	assert.Equal(t, contracts.ExitTimeLimit, exit.Reason)
	assert.Equal(t, 2, exit.HoldingDays)
}

func TestResolveExit_EndOfData(t *testing.T) {
	exit, ok := ResolveExit(ExitSpec{
		Open:       []float64{10, 10, 10},
		High:       []float64{10, 10, 10},
		Low:        []float64{10, 10, 10},
		Close:      []float64{10, 10, 10.3},
		Valid:      allValid(3),
		EntryIndex: 1,
		EntryPrice: 10,
	})

	require.True(t, ok)
	assert.Equal(t, 2, exit.Index)
	assert.InDelta(t, 10.3, exit.Price, 1e-9)
	assert.Equal(t, contracts.ExitEndOfData, exit.Reason)
}

func TestResolveExit_NoSellableDay(t *testing.T) {
	// Entry on the last bar under T+1: the position can never close
	_, ok := ResolveExit(ExitSpec{
		Open:       []float64{10, 10},
		High:       []float64{10, 10},
		Low:        []float64{10, 10},
		Close:      []float64{10, 10},
		Valid:      allValid(2),
		EntryIndex: 1,
		EntryPrice: 10,
	})

	assert.False(t, ok)
}

func TestResolveExit_SuspendedToSampleEnd(t *testing.T) {
	// Symbol suspends right after entry and never trades again
	_, ok := ResolveExit(ExitSpec{
		Open:       []float64{10, 10, 0, 0},
		High:       []float64{10, 10, 0, 0},
		Low:        []float64{10, 10, 0, 0},
		Close:      []float64{10, 10, 0, 0},
		Valid:      []bool{true, true, false, false},
		EntryIndex: 1,
		EntryPrice: 10,
	})

	assert.False(t, ok)
}
