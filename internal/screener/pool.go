package screener

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/signals"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
	"github.com/Laimiu-debug/quantscan/pkg/redis"
)

// poolTTL bounds how long a cached daily pool survives; pools are
// recomputed nightly anyway.
const poolTTL = 7 * 24 * time.Hour

// PoolStore keeps the per-date candidate pool (symbols passing the
// accumulation screen) in Redis so backtests and the API can reuse the
// nightly screen instead of recomputing it.
type PoolStore struct {
	cache  *redis.Cache
	logger *logger.Logger
}

// NewPoolStore creates a daily pool store.
func NewPoolStore(client *redis.Client, log *logger.Logger) *PoolStore {
	return &PoolStore{
		cache:  redis.NewCache(client, "screener"),
		logger: log.WithField("module", "screener_pool"),
	}
}

// Get returns the pooled symbols for a date. A miss returns (nil, false).
func (s *PoolStore) Get(ctx context.Context, date string) ([]string, bool, error) {
	var symbols []string
	ok, err := s.cache.Get(ctx, poolKey(date), &symbols)
	if err != nil {
		return nil, false, err
	}
	return symbols, ok, nil
}

// Set stores the pooled symbols for a date.
func (s *PoolStore) Set(ctx context.Context, date string, symbols []string) error {
	return s.cache.Set(ctx, poolKey(date), symbols, poolTTL)
}

// GetRange assembles the date -> symbols map over [from, to] from
// whatever pools are cached. Missing dates are simply absent.
func (s *PoolStore) GetRange(ctx context.Context, dates []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, d := range dates {
		symbols, ok, err := s.Get(ctx, d)
		if err != nil {
			return nil, err
		}
		if ok {
			out[d] = symbols
		}
	}
	return out, nil
}

// Refresh recomputes pools for every date in the bundle's axis and
// stores them. The pool on a date is the set of symbols whose InPool
// plane is true.
func (s *PoolStore) Refresh(ctx context.Context, b *contracts.MatrixBundle, sig *contracts.SignalMatrix) (int, error) {
	t, n := b.Shape()
	if st, sn := sig.Shape(); st != t || sn != n {
		return 0, contracts.ErrShapeMismatch
	}

	stored := 0
	for i := 0; i < t; i++ {
		var symbols []string
		for j := 0; j < n; j++ {
			if sig.InPool[i][j] {
				symbols = append(symbols, b.Symbols[j])
			}
		}
		sort.Strings(symbols)

		if err := s.Set(ctx, b.Dates[i], symbols); err != nil {
			return stored, fmt.Errorf("store pool for %s: %w", b.Dates[i], err)
		}
		stored++
	}

	s.logger.WithFields(map[string]interface{}{
		"dates":   stored,
		"symbols": n,
	}).Info("Refreshed daily pools")

	return stored, nil
}

// BuildParams attaches cached pools to run parameters when the caller
// asked for pool gating but supplied no explicit allow-list.
func (s *PoolStore) BuildParams(ctx context.Context, p *contracts.BacktestParams, calendar []string) error {
	if len(p.DailyPool) > 0 {
		return nil
	}
	pools, err := s.GetRange(ctx, calendar)
	if err != nil {
		return err
	}
	if len(pools) > 0 {
		p.DailyPool = pools
	}
	return nil
}

func poolKey(date string) string {
	return fmt.Sprintf("pool:%s", date)
}

// Screen runs the signal computer over a bundle and refreshes the
// cached pools, returning the number of dates stored. Used by the
// nightly job and the manual CLI path.
func (s *PoolStore) Screen(ctx context.Context, computer *signals.Computer, b *contracts.MatrixBundle) (int, error) {
	sig, err := computer.Compute(b)
	if err != nil {
		return 0, err
	}
	return s.Refresh(ctx, b, sig)
}
