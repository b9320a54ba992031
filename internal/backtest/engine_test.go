package backtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laimiu-debug/quantscan/internal/candidates"
	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/portfolio"
	"github.com/Laimiu-debug/quantscan/internal/report"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// fakeCandleSource serves canned flat bars for every symbol.
type fakeCandleSource struct {
	bars []contracts.Bar
}

func (f *fakeCandleSource) GetCandles(ctx context.Context, symbol string) ([]contracts.Bar, error) {
	return f.bars, nil
}

// fakeSnapshots fires snapshots keyed by date.
type fakeSnapshots struct {
	snaps map[string]*contracts.Snapshot
}

func (f *fakeSnapshots) BuildRow(ctx context.Context, symbol, asOfDate string) (contracts.SnapshotRow, error) {
	if _, ok := f.snaps[asOfDate]; !ok {
		return nil, nil
	}
	return asOfDate, nil
}

func (f *fakeSnapshots) CalcSnapshot(ctx context.Context, row contracts.SnapshotRow, windowDays int, asOfDate string) (*contracts.Snapshot, error) {
	return f.snaps[row.(string)], nil
}

// fakeNames resolves every symbol to a fixed display name.
type fakeNames struct{}

func (fakeNames) ResolveName(ctx context.Context, symbol string) string {
	return "Test Co " + symbol
}

func flatBars(n int) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	for i := range bars {
		bars[i] = contracts.Bar{
			Date:   fmt.Sprintf("2024-01-%02d", i+1),
			Open:   10,
			High:   10,
			Low:    10,
			Close:  10,
			Volume: 1000,
		}
	}
	return bars
}

func snapshotEngine(src contracts.CandleSource, snaps contracts.SnapshotSource) *Engine {
	log := logger.NewNop()
	return NewEngine(
		nil, // no matrix builder: snapshot path only
		src,
		nil,
		candidates.NewGenerator(log),
		portfolio.NewSimulator(log),
		report.NewBuilder(log),
		snaps,
		fakeNames{},
		nil,
		nil,
		log,
	)
}

func TestRun_NoSymbols(t *testing.T) {
	e := snapshotEngine(&fakeCandleSource{}, &fakeSnapshots{})

	_, err := e.Run(context.Background(), contracts.BacktestParams{
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-10",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no symbols")
}

func TestRun_InvalidDate(t *testing.T) {
	e := snapshotEngine(&fakeCandleSource{}, &fakeSnapshots{})

	_, err := e.Run(context.Background(), contracts.BacktestParams{
		Symbols:  []string{"600000"},
		DateFrom: "not-a-date",
		DateTo:   "2024-01-10",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "date_from")
}

func TestRun_ReversedRangeSwapped(t *testing.T) {
	e := snapshotEngine(
		&fakeCandleSource{bars: flatBars(10)},
		&fakeSnapshots{snaps: map[string]*contracts.Snapshot{}},
	)

	res, err := e.Run(context.Background(), contracts.BacktestParams{
		Symbols:     []string{"600000"},
		DateFrom:    "2024-01-10",
		DateTo:      "2024-01-01",
		EntryEvents: []string{"breakout"},
	})

	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", res.Params.DateFrom)
	assert.Equal(t, "2024-01-10", res.Params.DateTo)
}

func TestRun_SnapshotPathEndToEnd(t *testing.T) {
	snaps := &fakeSnapshots{snaps: map[string]*contracts.Snapshot{
		"2024-01-02": {
			EventDates:        map[string]string{"breakout": "2024-01-02"},
			SequenceOK:        true,
			EntryQualityScore: 80,
			Phase:             "launch",
		},
	}}
	e := snapshotEngine(&fakeCandleSource{bars: flatBars(10)}, snaps)

	res, err := e.Run(context.Background(), contracts.BacktestParams{
		Symbols:     []string{"600000"},
		DateFrom:    "2024-01-01",
		DateTo:      "2024-01-10",
		EntryEvents: []string{"breakout"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, 1, res.CandidateCount)
	assert.InDelta(t, 1.0, res.FillRate, 1e-9)
	assert.Contains(t, res.Notes, "signals computed on the snapshot path")

	tr := res.Trades[0]
	assert.Equal(t, "600000", tr.Symbol)
	assert.Equal(t, "Test Co 600000", tr.Name)
	assert.Equal(t, "2024-01-03", tr.EntryDate)
	assert.Equal(t, contracts.ExitEndOfData, tr.ExitReason)

	require.NotEmpty(t, res.Equity)
	assert.Equal(t, "2024-01-01", res.Equity[0].Date)
	assert.Equal(t, "2024-01-10", res.Equity[len(res.Equity)-1].Date)
}

func TestRun_NoSellableDayCounted(t *testing.T) {
	// Signal on the second-to-last bar: entry lands on the final bar and
	// T+1 leaves nothing sellable, so the candidate drops with a count
	snaps := &fakeSnapshots{snaps: map[string]*contracts.Snapshot{
		"2024-01-03": {
			EventDates: map[string]string{"breakout": "2024-01-03"},
			SequenceOK: true,
		},
	}}
	e := snapshotEngine(&fakeCandleSource{bars: flatBars(4)}, snaps)

	res, err := e.Run(context.Background(), contracts.BacktestParams{
		Symbols:     []string{"600000"},
		DateFrom:    "2024-01-01",
		DateTo:      "2024-01-04",
		EntryEvents: []string{"breakout"},
	})
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, 1, res.SkipCounts[contracts.SkipNoSellableDay])
	assert.Equal(t, 1, res.CandidateCount)
	assert.Zero(t, res.FillRate)
	assert.Contains(t, res.Notes, "1 signals skipped: no sellable day")
}

func TestRun_SampleEndsAtRangeEnd(t *testing.T) {
	// The source has bars well past the requested range; the sample must
	// still end at date_to, so the resolved exit cannot land beyond it
	snaps := &fakeSnapshots{snaps: map[string]*contracts.Snapshot{
		"2024-01-08": {
			EventDates: map[string]string{"breakout": "2024-01-08"},
			SequenceOK: true,
		},
	}}
	e := snapshotEngine(&fakeCandleSource{bars: flatBars(20)}, snaps)

	res, err := e.Run(context.Background(), contracts.BacktestParams{
		Symbols:     []string{"600000"},
		DateFrom:    "2024-01-01",
		DateTo:      "2024-01-10",
		EntryEvents: []string{"breakout"},
		MaxHoldDays: 8,
	})
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, "2024-01-09", tr.EntryDate)
	assert.LessOrEqual(t, tr.ExitDate, "2024-01-10")
	assert.Equal(t, contracts.ExitEndOfData, tr.ExitReason)

	require.NotEmpty(t, res.Equity)
	assert.Equal(t, "2024-01-10", res.Equity[len(res.Equity)-1].Date,
		"the exit settles inside the report calendar")
	assert.InDelta(t, res.Summary.FinalEquity,
		res.Equity[len(res.Equity)-1].Equity, 1e-9)
}

func TestRun_NoCandidatePath(t *testing.T) {
	e := snapshotEngine(&fakeCandleSource{bars: flatBars(4)}, nil)

	_, err := e.Run(context.Background(), contracts.BacktestParams{
		Symbols:  []string{"600000"},
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-04",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidate path")
}
