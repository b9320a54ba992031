package backtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Laimiu-debug/quantscan/internal/candidates"
	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/matrix"
	"github.com/Laimiu-debug/quantscan/internal/portfolio"
	"github.com/Laimiu-debug/quantscan/internal/report"
	"github.com/Laimiu-debug/quantscan/internal/runcache"
	"github.com/Laimiu-debug/quantscan/internal/signals"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
	"github.com/Laimiu-debug/quantscan/pkg/metrics"
)

// Engine wires the backtest pipeline: matrix build, signal computation,
// candidate generation, portfolio simulation and report assembly. The
// snapshot source and name resolver are optional collaborators.
type Engine struct {
	builder   *matrix.Builder
	source    contracts.CandleSource
	computer  *signals.Computer
	generator *candidates.Generator
	simulator *portfolio.Simulator
	reporter  *report.Builder
	snapshots contracts.SnapshotSource
	names     contracts.NameResolver
	sigCache  *runcache.Cache[*contracts.SignalMatrix]
	metrics   *metrics.Registry
	logger    *logger.Logger
}

// NewEngine creates a backtest engine. builder may be nil when only the
// snapshot path is available; snapshots, names and sigCache may be nil.
func NewEngine(
	builder *matrix.Builder,
	source contracts.CandleSource,
	computer *signals.Computer,
	generator *candidates.Generator,
	simulator *portfolio.Simulator,
	reporter *report.Builder,
	snapshots contracts.SnapshotSource,
	names contracts.NameResolver,
	sigCache *runcache.Cache[*contracts.SignalMatrix],
	reg *metrics.Registry,
	log *logger.Logger,
) *Engine {
	return &Engine{
		builder:   builder,
		source:    source,
		computer:  computer,
		generator: generator,
		simulator: simulator,
		reporter:  reporter,
		snapshots: snapshots,
		names:     names,
		sigCache:  sigCache,
		metrics:   reg,
		logger:    log.WithField("module", "backtest_engine"),
	}
}

// Run executes one backtest. Candidate-level problems degrade into skip
// counts; only unusable inputs and pipeline invariant violations fail
// the run.
func (e *Engine) Run(ctx context.Context, p contracts.BacktestParams) (*contracts.BacktestResult, error) {
	start := time.Now()

	if err := e.prepare(&p); err != nil {
		e.observe("rejected", start)
		return nil, err
	}

	var notes []string

	cands, skipped, calendar, prices, err := e.generate(ctx, p, &notes)
	if err != nil {
		e.observe("failed", start)
		return nil, err
	}

	sim := e.simulator.Simulate(cands, p)
	sim.SkipCounts[contracts.SkipNoSellableDay] += skipped
	if skipped > 0 {
		notes = append(notes, fmt.Sprintf("%d signals skipped: no sellable day", skipped))
	}
	if sim.CommissionNote != "" {
		notes = append(notes, sim.CommissionNote)
	}

	res := e.reporter.Build(sim, p, calendar, prices)
	res.RunID = uuid.NewString()
	res.CandidateCount = len(cands) + skipped
	if res.CandidateCount > 0 {
		res.FillRate = float64(len(res.Trades)) / float64(res.CandidateCount)
	}
	res.Notes = notes

	e.resolveNames(ctx, res)

	if e.metrics != nil {
		e.metrics.AddCandidates(res.CandidateCount)
		e.metrics.AddTrades(len(res.Trades))
	}
	e.observe("completed", start)

	e.logger.WithFields(map[string]interface{}{
		"run_id":     res.RunID,
		"candidates": res.CandidateCount,
		"trades":     len(res.Trades),
		"fill_rate":  res.FillRate,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("Backtest run complete")

	return res, nil
}

// prepare validates and normalizes the run parameters in place.
func (e *Engine) prepare(p *contracts.BacktestParams) error {
	p.Defaults()

	if len(p.Symbols) == 0 {
		return fmt.Errorf("no symbols requested")
	}

	from, err := time.Parse(contracts.DateLayout, p.DateFrom)
	if err != nil {
		return fmt.Errorf("invalid date_from %q: %w", p.DateFrom, err)
	}
	to, err := time.Parse(contracts.DateLayout, p.DateTo)
	if err != nil {
		return fmt.Errorf("invalid date_to %q: %w", p.DateTo, err)
	}
	if from.After(to) {
		// A reversed range is a caller slip, not an error worth failing
		p.DateFrom, p.DateTo = p.DateTo, p.DateFrom
	}

	p.Symbols = matrix.NormalizeSymbols(p.Symbols)
	if p.MaxSymbols > 0 && len(p.Symbols) > p.MaxSymbols {
		p.Symbols = p.Symbols[:p.MaxSymbols]
	}
	return nil
}

// generate produces ranked candidates plus the trading calendar and
// price lookup the report builder will mark positions with. The matrix
// path is preferred; the snapshot path serves when no builder is wired,
// or when the matrix build fails and a snapshot source exists.
func (e *Engine) generate(
	ctx context.Context,
	p contracts.BacktestParams,
	notes *[]string,
) ([]contracts.Candidate, int, []string, report.PriceLookup, error) {
	if e.builder != nil {
		bundle, cached, err := e.builder.Build(ctx, matrix.Request{
			Symbols:  p.Symbols,
			DateFrom: p.DateFrom,
			DateTo:   p.DateTo,
		})
		if err == nil {
			if cached {
				*notes = append(*notes, "matrix served from cache")
			}

			sig, err := e.computeSignals(bundle, p, notes)
			if err != nil {
				return nil, 0, nil, nil, err
			}

			cands, skipped, err := e.generator.FromMatrix(bundle, sig, p)
			if err != nil {
				return nil, 0, nil, nil, err
			}

			*notes = append(*notes, "signals computed on the matrix path")
			return cands, skipped, bundleCalendar(bundle, p), bundlePrices(bundle), nil
		}

		if e.snapshots == nil {
			return nil, 0, nil, nil, err
		}
		e.logger.WithError(err).Warn("Matrix build failed, falling back to snapshot path")
	}

	if e.snapshots == nil {
		return nil, 0, nil, nil, fmt.Errorf("no candidate path available")
	}

	bars, err := e.loadBars(ctx, p)
	if err != nil {
		return nil, 0, nil, nil, err
	}

	cands, skipped, err := e.generator.FromSnapshots(ctx, e.snapshots, bars, p)
	if err != nil {
		return nil, 0, nil, nil, err
	}

	*notes = append(*notes, "signals computed on the snapshot path")
	return cands, skipped, barsCalendar(bars, p), barsPrices(bars), nil
}

// computeSignals runs the signal computer over a bundle, consulting the
// run-scoped signal cache first. Signal matrices are deterministic per
// bundle, so the cache key only needs the normalized run window.
func (e *Engine) computeSignals(
	bundle *contracts.MatrixBundle,
	p contracts.BacktestParams,
	notes *[]string,
) (*contracts.SignalMatrix, error) {
	if e.sigCache == nil {
		return e.computer.Compute(bundle)
	}

	key := strings.Join(p.Symbols, ",") + "|" + p.DateFrom + "|" + p.DateTo
	if sig, ok := e.sigCache.Get(key); ok {
		*notes = append(*notes, "signals served from cache")
		return sig, nil
	}

	sig, err := e.computer.Compute(bundle)
	if err != nil {
		return nil, err
	}
	e.sigCache.Set(key, sig)
	return sig, nil
}

// loadBars fetches each symbol's bars for the snapshot path, clipped to
// the run window so the sample ends at DateTo exactly like the matrix
// path's bundle does. Symbol failures are skipped, matching the matrix
// path's tolerance of missing columns.
func (e *Engine) loadBars(ctx context.Context, p contracts.BacktestParams) (map[string][]contracts.Bar, error) {
	if e.source == nil {
		return nil, fmt.Errorf("no candle source wired")
	}

	out := make(map[string][]contracts.Bar, len(p.Symbols))
	for _, sym := range p.Symbols {
		bars, err := e.source.GetCandles(ctx, sym)
		if err != nil {
			e.logger.WithError(err).WithField("symbol", sym).Warn("Failed to load candles")
			continue
		}
		kept := bars[:0:0]
		for _, bar := range bars {
			if bar.Date >= p.DateFrom && bar.Date <= p.DateTo {
				kept = append(kept, bar)
			}
		}
		if len(kept) > 0 {
			out[sym] = kept
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no bars available for any requested symbol")
	}
	return out, nil
}

// resolveNames fills display names on the result's trade lists.
func (e *Engine) resolveNames(ctx context.Context, res *contracts.BacktestResult) {
	if e.names == nil {
		return
	}
	fill := func(trades []contracts.ExecutedTrade) {
		for i := range trades {
			trades[i].Name = e.names.ResolveName(ctx, trades[i].Symbol)
		}
	}
	fill(res.Trades)
	fill(res.TopTrades)
	fill(res.BottomTrades)
}

func (e *Engine) observe(status string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveBacktest(status, time.Since(start))
	}
}

// bundleCalendar restricts the bundle's date axis to the run window.
func bundleCalendar(b *contracts.MatrixBundle, p contracts.BacktestParams) []string {
	var out []string
	for _, d := range b.Dates {
		if d >= p.DateFrom && d <= p.DateTo {
			out = append(out, d)
		}
	}
	return out
}

// bundlePrices marks positions at the bundle's valid closes.
func bundlePrices(b *contracts.MatrixBundle) report.PriceLookup {
	return func(symbol, date string) (float64, bool) {
		j := b.SymbolIndex(symbol)
		if j < 0 {
			return 0, false
		}
		i := b.DateIndex(date)
		if i < 0 || !b.Valid[i][j] {
			return 0, false
		}
		return b.Close[i][j], true
	}
}

// barsCalendar is the sorted union of bar dates inside the run window.
func barsCalendar(bars map[string][]contracts.Bar, p contracts.BacktestParams) []string {
	seen := make(map[string]bool)
	for _, bs := range bars {
		for _, bar := range bs {
			if bar.Date >= p.DateFrom && bar.Date <= p.DateTo {
				seen[bar.Date] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// barsPrices marks positions at per-symbol closes.
func barsPrices(bars map[string][]contracts.Bar) report.PriceLookup {
	type key struct{ symbol, date string }
	idx := make(map[key]float64)
	for sym, bs := range bars {
		for _, bar := range bs {
			idx[key{sym, bar.Date}] = bar.Close
		}
	}
	return func(symbol, date string) (float64, bool) {
		px, ok := idx[key{symbol, date}]
		return px, ok
	}
}
