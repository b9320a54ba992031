package report

import (
	"math"
	"sort"
	"time"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// topTradeCount bounds the best/worst trade lists.
const topTradeCount = 10

// profitFactorCap is reported when there are winners but no losers.
const profitFactorCap = 999.0

// PriceLookup returns a symbol's close on a date. A false return means
// the symbol did not trade that day; the builder then carries the last
// known mark forward, falling back to the entry price.
type PriceLookup func(symbol, date string) (float64, bool)

// Builder derives the equity curve, drawdown, monthly aggregates and
// headline statistics from a finished simulation.
type Builder struct {
	logger *logger.Logger
}

// NewBuilder creates a report builder.
func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{
		logger: log.WithField("module", "report_builder"),
	}
}

// Build replays the trades over the trading calendar and marks open
// positions to market each day. An empty calendar falls back to
// weekdays between the run dates; a nil price lookup marks positions at
// their entry price until exit.
func (b *Builder) Build(
	sim *contracts.SimulationResult,
	p contracts.BacktestParams,
	calendar []string,
	prices PriceLookup,
) *contracts.BacktestResult {
	if len(calendar) == 0 {
		calendar = weekdayCalendar(p.DateFrom, p.DateTo)
	}

	res := &contracts.BacktestResult{
		Params:     p,
		Trades:     sim.Trades,
		SkipCounts: sim.SkipCounts,
	}

	res.Equity = b.equityCurve(sim.Trades, p, calendar, prices)
	res.Drawdown = drawdownCurve(res.Equity)
	res.Monthly = monthlyReturns(sim.Trades)
	res.TopTrades, res.BottomTrades = rankTrades(sim.Trades)
	res.Summary = summarize(sim, p, res.Equity, res.Drawdown)

	b.logger.WithFields(map[string]interface{}{
		"trades":       res.Summary.TotalTrades,
		"win_rate":     res.Summary.WinRate,
		"total_return": res.Summary.TotalReturn,
		"max_drawdown": res.Summary.MaxDrawdown,
	}).Info("Built backtest report")

	return res
}

// openTrade tracks a trade across its holding window during the replay.
type openTrade struct {
	trade    *contracts.ExecutedTrade
	entryFee float64
	lastMark float64
}

// equityCurve walks the calendar replaying entries and exits, marking
// open positions each day. Same-day exits settle before entries so the
// curve never double counts.
func (b *Builder) equityCurve(
	trades []contracts.ExecutedTrade,
	p contracts.BacktestParams,
	calendar []string,
	prices PriceLookup,
) []contracts.EquityPoint {
	feeRate := p.FeeBps / 10000

	entriesBy := make(map[string][]*contracts.ExecutedTrade)
	exitsBy := make(map[string][]*contracts.ExecutedTrade)
	for i := range trades {
		t := &trades[i]
		entriesBy[t.EntryDate] = append(entriesBy[t.EntryDate], t)
		exitsBy[t.ExitDate] = append(exitsBy[t.ExitDate], t)
	}

	cash := p.InitialCapital
	realized := 0.0
	// Open positions in a slice ordered by (symbol, entry date): float
	// summation order must not depend on map iteration, or identical
	// runs diverge in the last bits.
	var open []*openTrade
	curve := make([]contracts.EquityPoint, 0, len(calendar))

	for _, date := range calendar {
		for _, t := range exitsBy[date] {
			i := indexOfOpen(open, t)
			if i < 0 {
				continue
			}
			entryFee := open[i].entryFee
			cash += t.ExitPrice*float64(t.Quantity) - (t.Fees - entryFee)
			realized += t.PnL
			open = append(open[:i], open[i+1:]...)
		}

		for _, t := range entriesBy[date] {
			gross := t.EntryPrice * float64(t.Quantity)
			entryFee := gross * feeRate
			cash -= gross + entryFee
			open = insertOpen(open, &openTrade{trade: t, entryFee: entryFee, lastMark: t.EntryPrice})
		}

		market := 0.0
		for _, ot := range open {
			if prices != nil {
				if px, ok := prices(ot.trade.Symbol, date); ok && px > 0 {
					ot.lastMark = px
				}
			}
			market += ot.lastMark * float64(ot.trade.Quantity)
		}

		curve = append(curve, contracts.EquityPoint{
			Date:        date,
			Equity:      cash + market,
			RealizedPnL: realized,
		})
	}

	return curve
}

func openBefore(a, b *contracts.ExecutedTrade) bool {
	if a.Symbol != b.Symbol {
		return a.Symbol < b.Symbol
	}
	return a.EntryDate < b.EntryDate
}

// insertOpen keeps the open list sorted by (symbol, entry date).
func insertOpen(open []*openTrade, ot *openTrade) []*openTrade {
	i := sort.Search(len(open), func(k int) bool {
		return !openBefore(open[k].trade, ot.trade)
	})
	open = append(open, nil)
	copy(open[i+1:], open[i:])
	open[i] = ot
	return open
}

func indexOfOpen(open []*openTrade, t *contracts.ExecutedTrade) int {
	for i, ot := range open {
		if ot.trade == t {
			return i
		}
	}
	return -1
}

// drawdownCurve is (equity - running peak) / peak per day.
func drawdownCurve(equity []contracts.EquityPoint) []contracts.DrawdownPoint {
	out := make([]contracts.DrawdownPoint, 0, len(equity))
	peak := 0.0
	for _, pt := range equity {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (pt.Equity - peak) / peak
		}
		out = append(out, contracts.DrawdownPoint{Date: pt.Date, Drawdown: dd})
	}
	return out
}

// monthlyReturns groups realized trades by exit month.
func monthlyReturns(trades []contracts.ExecutedTrade) []contracts.MonthlyReturn {
	byMonth := make(map[string]*contracts.MonthlyReturn)
	for _, t := range trades {
		if len(t.ExitDate) < 7 {
			continue
		}
		month := t.ExitDate[:7]
		m, ok := byMonth[month]
		if !ok {
			m = &contracts.MonthlyReturn{Month: month}
			byMonth[month] = m
		}
		m.PnL += t.PnL
		m.Trades++
		if t.PnL > 0 {
			m.Winners++
		}
	}

	out := make([]contracts.MonthlyReturn, 0, len(byMonth))
	for _, m := range byMonth {
		if m.Trades > 0 {
			m.WinRate = float64(m.Winners) / float64(m.Trades)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Month < out[b].Month })
	return out
}

// rankTrades returns the ten best and ten worst trades by PnL.
func rankTrades(trades []contracts.ExecutedTrade) (top, bottom []contracts.ExecutedTrade) {
	ranked := make([]contracts.ExecutedTrade, len(trades))
	copy(ranked, trades)
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].PnL != ranked[b].PnL {
			return ranked[a].PnL > ranked[b].PnL
		}
		return ranked[a].Symbol < ranked[b].Symbol
	})

	k := topTradeCount
	if k > len(ranked) {
		k = len(ranked)
	}
	top = append(top, ranked[:k]...)
	for i := len(ranked) - 1; i >= len(ranked)-k; i-- {
		bottom = append(bottom, ranked[i])
	}
	return top, bottom
}

// summarize derives the headline statistics.
func summarize(
	sim *contracts.SimulationResult,
	p contracts.BacktestParams,
	equity []contracts.EquityPoint,
	drawdown []contracts.DrawdownPoint,
) contracts.Summary {
	s := contracts.Summary{TotalTrades: len(sim.Trades)}

	grossProfit, grossLoss := 0.0, 0.0
	for _, t := range sim.Trades {
		if t.PnL > 0 {
			s.WinningTrades++
			grossProfit += t.PnL
		} else if t.PnL < 0 {
			s.LosingTrades++
			grossLoss += -t.PnL
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
	}

	switch {
	case grossLoss > 0:
		s.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		s.ProfitFactor = profitFactorCap
	}

	s.FinalEquity = p.InitialCapital + sim.RealizedPnL
	if len(equity) > 0 {
		s.FinalEquity = equity[len(equity)-1].Equity
	}
	if p.InitialCapital > 0 {
		s.TotalReturn = s.FinalEquity/p.InitialCapital - 1
	}

	worst := 0.0
	for _, dd := range drawdown {
		if dd.Drawdown < worst {
			worst = dd.Drawdown
		}
	}
	s.MaxDrawdown = math.Abs(worst)

	return s
}

// weekdayCalendar is the last-resort trading calendar: every weekday
// between the two dates inclusive.
func weekdayCalendar(from, to string) []string {
	start, err := time.Parse(contracts.DateLayout, from)
	if err != nil {
		return nil
	}
	end, err := time.Parse(contracts.DateLayout, to)
	if err != nil {
		return nil
	}

	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d.Format(contracts.DateLayout))
	}
	return out
}
