package candidates

import (
	"strings"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// Generator turns signal planes (or per-symbol snapshots) into ranked,
// exit-resolved trade candidates.
type Generator struct {
	logger *logger.Logger
}

// NewGenerator creates a candidate generator.
func NewGenerator(log *logger.Logger) *Generator {
	return &Generator{
		logger: log.WithField("module", "candidate_generator"),
	}
}

// FromMatrix scans the buy plane inside [DateFrom, DateTo] and emits
// one candidate per admissible signal: ranked, entry priced at the next
// valid open, exit pre-resolved. The second return value counts signals
// dropped because no sellable bar existed for them.
func (g *Generator) FromMatrix(
	b *contracts.MatrixBundle,
	sig *contracts.SignalMatrix,
	p contracts.BacktestParams,
) ([]contracts.Candidate, int, error) {
	t, n := b.Shape()
	if st, sn := sig.Shape(); st != t || sn != n {
		return nil, 0, contracts.ErrShapeMismatch
	}

	idxFrom, idxTo := dateRange(b.Dates, p.DateFrom, p.DateTo)
	if idxFrom < 0 {
		return nil, 0, nil
	}

	pool := poolIndex(p.DailyPool)

	var cands []contracts.Candidate
	noSellable := 0

	for j := 0; j < n; j++ {
		symbol := b.Symbols[j]

		var (
			open  = contracts.Column(b.Open, j)
			high  = contracts.Column(b.High, j)
			low   = contracts.Column(b.Low, j)
			close = contracts.Column(b.Close, j)
			valid = contracts.BoolColumn(b.Valid, j)
			sell  = contracts.BoolColumn(sig.Sell, j)
		)

		// Signals inside an open position's holding window are
		// suppressed unless re-entry is allowed. A signal whose
		// candidate was dropped for lack of a sellable bar suppresses
		// the rest of the sample: the position would never have closed.
		blockUntil := -1

		for i := idxFrom; i <= idxTo; i++ {
			if !sig.Buy[i][j] {
				continue
			}
			if !p.AllowReentry && i <= blockUntil {
				continue
			}
			if pool != nil && !pool[b.Dates[i]][symbol] {
				continue
			}
			if p.MinScore > 0 && sig.Score[i][j] < p.MinScore {
				continue
			}

			// Entry is the next bar's open; reject signals whose entry
			// bar is missing, invalid, or non-positively priced.
			entry := i + 1
			if entry >= t || !valid[entry] || !(open[entry] > 0) {
				continue
			}

			exit, ok := ResolveExit(ExitSpec{
				Open:             open,
				High:             high,
				Low:              low,
				Close:            close,
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
					blockUntil = t
				}
				continue
			}

			score := sig.Score[i][j]
			cands = append(cands, contracts.Candidate{
				Symbol:         symbol,
				SignalDate:     b.Dates[i],
				EntryDate:      b.Dates[entry],
				EntryIndex:     entry,
				EntryPrice:     open[entry],
				QualityScore:   score,
				PhaseScore:     score,
				TrendScore:     score,
				StructureScore: structureFromPlanes(sig, i, j),
				ExitDate:       b.Dates[exit.Index],
				ExitIndex:      exit.Index,
				ExitPrice:      exit.Price,
				ExitReason:     exit.Reason,
				HoldingDays:    exit.HoldingDays,
			})

			if !p.AllowReentry {
				blockUntil = exit.Index
			}
		}
	}

	Rank(cands, p.PriorityMode)
	cands = CapPerDay(cands, p.TopKPerDay)

	g.logger.WithFields(map[string]interface{}{
		"candidates":  len(cands),
		"no_sellable": noSellable,
		"from":        p.DateFrom,
		"to":          p.DateTo,
	}).Info("Generated candidates from signal matrix")

	return cands, noSellable, nil
}

// structureFromPlanes derives a coarse structure score from the trend
// and base planes, ten points per condition.
func structureFromPlanes(sig *contracts.SignalMatrix, i, j int) float64 {
	score := 0.0
	if sig.TrendStack[i][j] {
		score += 10
	}
	if sig.SidewaysBase[i][j] {
		score += 10
	}
	if sig.MomentumLeader[i][j] {
		score += 10
	}
	return score
}

// dateRange returns the inclusive index span of [from, to] over a
// sorted date axis, or (-1, -1) when the span is empty.
func dateRange(dates []string, from, to string) (int, int) {
	lo := 0
	for lo < len(dates) && dates[lo] < from {
		lo++
	}
	hi := len(dates) - 1
	for hi >= 0 && dates[hi] > to {
		hi--
	}
	if lo > hi || lo >= len(dates) {
		return -1, -1
	}
	return lo, hi
}

// poolIndex inverts the daily allow-list into date -> symbol set form,
// lower-casing symbols to match the bundle's axis.
func poolIndex(pool map[string][]string) map[string]map[string]bool {
	if len(pool) == 0 {
		return nil
	}
	out := make(map[string]map[string]bool, len(pool))
	for date, symbols := range pool {
		set := make(map[string]bool, len(symbols))
		for _, s := range symbols {
			set[strings.ToLower(strings.TrimSpace(s))] = true
		}
		out[date] = set
	}
	return out
}
