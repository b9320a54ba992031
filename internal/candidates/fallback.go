package candidates

import (
	"context"
	"sort"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
)

// daySnap is one symbol-day snapshot evaluation on the fallback path.
type daySnap struct {
	entryCodes []string
	exitFired  bool
	snap       *contracts.Snapshot
}

// FromSnapshots is the per-symbol fallback path used when no matrix
// bundle is available: each bar inside the run window is evaluated
// through the pattern collaborator, entries fire on configured entry
// events and exits reuse the shared resolver with the collaborator's
// exit events as sell-signal bars. Bars are treated as the symbol's own
// trading calendar, so every bar is sellable.
func (g *Generator) FromSnapshots(
	ctx context.Context,
	src contracts.SnapshotSource,
	barsBySymbol map[string][]contracts.Bar,
	p contracts.BacktestParams,
) ([]contracts.Candidate, int, error) {
	symbols := make([]string, 0, len(barsBySymbol))
	for s := range barsBySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var cands []contracts.Candidate
	noSellable := 0

	for _, symbol := range symbols {
		cs, skipped, err := g.snapshotSymbol(ctx, src, symbol, barsBySymbol[symbol], p)
		if err != nil {
			return nil, 0, err
		}
		cands = append(cands, cs...)
		noSellable += skipped
	}

	Rank(cands, p.PriorityMode)
	cands = CapPerDay(cands, p.TopKPerDay)

	g.logger.WithFields(map[string]interface{}{
		"candidates":  len(cands),
		"no_sellable": noSellable,
		"symbols":     len(symbols),
	}).Info("Generated candidates from snapshots")

	return cands, noSellable, nil
}

func (g *Generator) snapshotSymbol(
	ctx context.Context,
	src contracts.SnapshotSource,
	symbol string,
	bars []contracts.Bar,
	p contracts.BacktestParams,
) ([]contracts.Candidate, int, error) {
	if len(bars) == 0 {
		return nil, 0, nil
	}

	idxFrom, to := scanRange(bars, p.DateFrom, p.DateTo)
	if idxFrom < 0 {
		return nil, 0, nil
	}

	// One snapshot per bar from the window start through the end of the
	// sample: signal days need the full evaluation, later days only
	// contribute their exit-event flag.
	snaps := make([]*daySnap, len(bars))
	sell := make([]bool, len(bars))
	for i := idxFrom; i < len(bars); i++ {
		ds, err := g.evalDay(ctx, src, symbol, bars[i].Date, p)
		if err != nil {
			return nil, 0, err
		}
		snaps[i] = ds
		if ds != nil {
			sell[i] = ds.exitFired
		}
	}

	open := make([]float64, len(bars))
	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	valid := make([]bool, len(bars))
	for i, bar := range bars {
		open[i], high[i], low[i], closes[i] = bar.Open, bar.High, bar.Low, bar.Close
		valid[i] = true
	}

	var cands []contracts.Candidate
	noSellable := 0
	blockUntil := -1

	for i := idxFrom; i <= to; i++ {
		ds := snaps[i]
		if ds == nil || len(ds.entryCodes) == 0 {
			continue
		}
		if !p.AllowReentry && i <= blockUntil {
			continue
		}
		if !admitSnapshot(ds.snap, p) {
			continue
		}

		entry := i + 1
		if entry >= len(bars) || !(open[entry] > 0) {
			continue
		}

		exit, ok := ResolveExit(ExitSpec{
			Open:             open,
			High:             high,
			Low:              low,
			Close:            closes,
			Valid:            valid,
			Sell:             sell,
			EntryIndex:       entry,
			EntryPrice:       open[entry],
			StopLoss:         p.StopLoss,
			TakeProfit:       p.TakeProfit,
			MaxHoldDays:      p.MaxHoldDays,
			AllowSameDaySell: p.AllowSameDaySell,
		})
		if !ok {
			noSellable++
			if !p.AllowReentry {
				blockUntil = len(bars)
			}
			continue
		}

		cands = append(cands, contracts.Candidate{
			Symbol:         symbol,
			SignalDate:     bars[i].Date,
			EntryDate:      bars[entry].Date,
			EntryIndex:     entry,
			EntryPrice:     open[entry],
			QualityScore:   ds.snap.EntryQualityScore,
			PhaseScore:     phaseScore(ds.snap.Phase),
			EventWeight:    eventWeight(ds.entryCodes),
			StructureScore: structureScore(ds.snap.StructureHHH),
			TrendScore:     ds.snap.TrendScore,
			ExitDate:       bars[exit.Index].Date,
			ExitIndex:      exit.Index,
			ExitPrice:      exit.Price,
			ExitReason:     exit.Reason,
			HoldingDays:    exit.HoldingDays,
		})

		if !p.AllowReentry {
			blockUntil = exit.Index
		}
	}

	return cands, noSellable, nil
}

// evalDay evaluates one symbol-day. A nil result means no data for the
// date; snapshot errors are logged and treated the same way, so one bad
// day never aborts the run.
func (g *Generator) evalDay(
	ctx context.Context,
	src contracts.SnapshotSource,
	symbol, date string,
	p contracts.BacktestParams,
) (*daySnap, error) {
	row, err := src.BuildRow(ctx, symbol, date)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	snap, err := src.CalcSnapshot(ctx, row, p.WindowDays, date)
	if err != nil {
		g.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol": symbol,
			"date":   date,
		}).Debug("Snapshot evaluation failed, skipping day")
		return nil, nil
	}
	if snap == nil {
		return nil, nil
	}

	ds := &daySnap{snap: snap}
	for _, code := range p.EntryEvents {
		if snap.EventDates[code] == date {
			ds.entryCodes = append(ds.entryCodes, code)
		}
	}
	for _, code := range p.ExitEvents {
		if snap.EventDates[code] == date {
			ds.exitFired = true
			break
		}
	}
	return ds, nil
}

// admitSnapshot applies the entry quality gates.
func admitSnapshot(snap *contracts.Snapshot, p contracts.BacktestParams) bool {
	if p.MinEventCount > 0 && len(snap.EventDates) < p.MinEventCount {
		return false
	}
	if p.MinScore > 0 && snap.EntryQualityScore < p.MinScore {
		return false
	}
	if p.RequireSequence && !snap.SequenceOK {
		return false
	}
	return true
}

// scanRange bounds the signal scan to bars dated inside [from, to].
func scanRange(bars []contracts.Bar, from, to string) (int, int) {
	lo := 0
	for lo < len(bars) && bars[lo].Date < from {
		lo++
	}
	hi := len(bars) - 1
	for hi >= 0 && bars[hi].Date > to {
		hi--
	}
	if lo > hi {
		return -1, -1
	}
	return lo, hi
}
