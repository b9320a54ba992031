package matrix

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/runcache"
	"github.com/Laimiu-debug/quantscan/pkg/config"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
	"github.com/Laimiu-debug/quantscan/pkg/metrics"
)

// lookbackScale stretches the calendar window so the requested number
// of trading days survives weekends and holidays.
const lookbackScale = 3

// maxWorkers caps the candle-load pool regardless of CPU count.
const maxWorkers = 8

// defaultWindows is the rolling-window set the signal layer consumes.
var defaultWindows = []int{10, 20, 60}

// Builder constructs time-aligned matrix bundles from a candle source,
// with a disk cache, a runtime cache, and incremental extension of
// previously cached ranges.
type Builder struct {
	source      contracts.CandleSource
	disk        *DiskCache
	cache       *runcache.Cache[*contracts.MatrixBundle]
	limiter     *rate.Limiter
	workers     int
	dataVersion string
	metrics     *metrics.Registry
	logger      *logger.Logger
}

// Request describes one bundle to build.
type Request struct {
	Symbols         []string
	DateFrom        string // YYYY-MM-DD
	DateTo          string // YYYY-MM-DD
	MaxLookbackDays int    // trading days of history needed before DateFrom
	Windows         []int  // empty = defaultWindows
}

// NewBuilder creates a matrix builder. The runtime cache is owned by
// the caller; metrics may be nil.
func NewBuilder(
	source contracts.CandleSource,
	disk *DiskCache,
	cache *runcache.Cache[*contracts.MatrixBundle],
	cfg config.MatrixConfig,
	reg *metrics.Registry,
	log *logger.Logger,
) *Builder {
	var limiter *rate.Limiter
	if cfg.LoadRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.LoadRatePerSec), 1)
	}

	return &Builder{
		source:      source,
		disk:        disk,
		cache:       cache,
		limiter:     limiter,
		workers:     cfg.Workers,
		dataVersion: cfg.DataVersion,
		metrics:     reg,
		logger:      log.WithField("module", "matrix_builder"),
	}
}

// Build returns the bundle for the request and whether it was served
// from cache. Symbol-level load failures are swallowed: those columns
// stay invalid and the symbol never produces a signal.
func (b *Builder) Build(ctx context.Context, req Request) (*contracts.MatrixBundle, bool, error) {
	start := time.Now()

	symbols := NormalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return nil, false, fmt.Errorf("no symbols requested")
	}

	windows := req.Windows
	if len(windows) == 0 {
		windows = defaultWindows
	}

	lookback := req.MaxLookbackDays
	if lookback <= 0 {
		for _, w := range windows {
			if w > lookback {
				lookback = w
			}
		}
	}

	spec := Spec{
		Symbols:     symbols,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		DataVersion: b.dataVersion,
		Windows:     windows,
		Lookback:    lookback,
	}
	key := spec.CacheKey()

	// 1. Runtime cache
	if bundle, ok := b.cache.Get(key); ok {
		b.observe("hit", start)
		return bundle, true, nil
	}

	// 2. Disk cache
	if bundle, ok, err := b.disk.Load(key); err != nil {
		return nil, false, err
	} else if ok {
		b.cache.Set(key, bundle)
		b.observe("hit", start)
		return bundle, true, nil
	}

	// 3. Incremental extension of a cached prefix range
	if baseKey, baseTo, ok := b.disk.FindExtensible(spec.Signature(), req.DateFrom, req.DateTo); ok {
		bundle, err := b.extend(ctx, spec, key, baseKey, baseTo)
		if err == nil {
			b.cache.Set(key, bundle)
			b.observe("extended", start)
			return bundle, false, nil
		}
		b.logger.WithError(err).WithFields(map[string]interface{}{
			"base_key": baseKey,
			"key":      key,
		}).Warn("Incremental extension failed, rebuilding from scratch")
	}

	// 4. Full build
	effFrom := shiftDate(req.DateFrom, -lookback*lookbackScale)
	bars := b.loadAll(ctx, symbols, effFrom, req.DateTo)
	bundle := align(symbols, bars)

	if err := b.disk.Save(key, spec, bundle); err != nil {
		b.logger.WithError(err).WithField("key", key).Warn("Failed to persist matrix archive")
	}

	b.cache.Set(key, bundle)
	b.observe("miss", start)

	t, n := bundle.Shape()
	b.logger.WithFields(map[string]interface{}{
		"key":     key,
		"dates":   t,
		"symbols": n,
		"from":    req.DateFrom,
		"to":      req.DateTo,
	}).Info("Built matrix bundle")

	return bundle, false, nil
}

// ClearRuntime drops every runtime cache entry.
func (b *Builder) ClearRuntime() {
	b.cache.Clear()
}

// ClearDisk removes every on-disk artifact.
func (b *Builder) ClearDisk() error {
	return b.disk.Clear()
}

// extend loads only the date suffix after baseTo and appends it to the
// cached base bundle, persisting the merged result under the new key.
func (b *Builder) extend(ctx context.Context, spec Spec, key, baseKey, baseTo string) (*contracts.MatrixBundle, error) {
	base, ok, err := b.disk.Load(baseKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("base archive %s vanished", baseKey)
	}

	suffixFrom := shiftDate(baseTo, 1)
	bars := b.loadAll(ctx, base.Symbols, suffixFrom, spec.DateTo)
	suffix := align(base.Symbols, bars)

	merged := &contracts.MatrixBundle{
		Dates:   append(append([]string{}, base.Dates...), suffix.Dates...),
		Symbols: base.Symbols,
		Open:    append(append([][]float64{}, base.Open...), suffix.Open...),
		High:    append(append([][]float64{}, base.High...), suffix.High...),
		Low:     append(append([][]float64{}, base.Low...), suffix.Low...),
		Close:   append(append([][]float64{}, base.Close...), suffix.Close...),
		Volume:  append(append([][]float64{}, base.Volume...), suffix.Volume...),
		Valid:   append(append([][]bool{}, base.Valid...), suffix.Valid...),
	}

	if err := b.disk.Save(key, spec, merged); err != nil {
		b.logger.WithError(err).WithField("key", key).Warn("Failed to persist extended archive")
	}

	b.logger.WithFields(map[string]interface{}{
		"base_key":  baseKey,
		"key":       key,
		"new_dates": len(suffix.Dates),
	}).Info("Extended matrix bundle incrementally")

	return merged, nil
}

// loadAll fetches bars per symbol, concurrently when more than one
// symbol is requested, and filters them to [from, to].
func (b *Builder) loadAll(ctx context.Context, symbols []string, from, to string) map[string][]contracts.Bar {
	if len(symbols) == 1 {
		return map[string][]contracts.Bar{
			symbols[0]: b.loadOne(ctx, symbols[0], from, to),
		}
	}

	workers := b.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	type result struct {
		symbol string
		bars   []contracts.Bar
	}

	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan result, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range symbolCh {
				resultCh <- result{symbol: sym, bars: b.loadOne(ctx, sym, from, to)}
			}
		}()
	}

	for _, sym := range symbols {
		symbolCh <- sym
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := make(map[string][]contracts.Bar, len(symbols))
	for r := range resultCh {
		out[r.symbol] = r.bars
	}
	return out
}

// loadOne fetches and filters one symbol's bars. Errors are swallowed;
// the symbol's columns stay invalid.
func (b *Builder) loadOne(ctx context.Context, symbol, from, to string) []contracts.Bar {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	bars, err := b.source.GetCandles(ctx, symbol)
	if err != nil {
		b.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to load candles")
		return nil
	}

	filtered := bars[:0:0]
	for _, bar := range bars {
		if bar.Date < from || bar.Date > to {
			continue
		}
		filtered = append(filtered, bar)
	}
	return filtered
}

// align builds the dense bundle over the union of observed dates.
func align(symbols []string, barsBySymbol map[string][]contracts.Bar) *contracts.MatrixBundle {
	dateSet := make(map[string]bool)
	for _, bars := range barsBySymbol {
		for _, bar := range bars {
			dateSet[bar.Date] = true
		}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	dateIdx := make(map[string]int, len(dates))
	for i, d := range dates {
		dateIdx[d] = i
	}

	t, n := len(dates), len(symbols)
	bundle := &contracts.MatrixBundle{
		Dates:   dates,
		Symbols: symbols,
		Open:    contracts.NewMatrix(t, n),
		High:    contracts.NewMatrix(t, n),
		Low:     contracts.NewMatrix(t, n),
		Close:   contracts.NewMatrix(t, n),
		Volume:  contracts.NewMatrix(t, n),
		Valid:   contracts.NewBoolMatrix(t, n),
	}

	for j, sym := range symbols {
		for _, bar := range barsBySymbol[sym] {
			i, ok := dateIdx[bar.Date]
			if !ok {
				continue
			}
			bundle.Open[i][j] = bar.Open
			bundle.High[i][j] = bar.High
			bundle.Low[i][j] = bar.Low
			bundle.Close[i][j] = bar.Close
			bundle.Volume[i][j] = bar.Volume
			bundle.Valid[i][j] = true
		}
	}

	return bundle
}

// shiftDate moves a YYYY-MM-DD date by a number of calendar days.
func shiftDate(date string, days int) string {
	t, err := time.Parse(contracts.DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format(contracts.DateLayout)
}

func (b *Builder) observe(outcome string, start time.Time) {
	if b.metrics != nil {
		b.metrics.ObserveMatrixBuild(outcome, time.Since(start))
		b.metrics.SetCacheEntries("bundle", b.cache.Len())
	}
}
