package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/marketdata"
	"github.com/Laimiu-debug/quantscan/internal/matrix"
	"github.com/Laimiu-debug/quantscan/internal/screener"
	"github.com/Laimiu-debug/quantscan/internal/signals"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// poolRangeDays covers the recent dates whose pools the API and
// backtests query. Pools further back come from explicit refreshes.
const poolRangeDays = 120

// PoolRefreshJob recomputes the daily candidate pools after the warm
// job, reusing its cached bundle.
type PoolRefreshJob struct {
	repo     *marketdata.Repository
	builder  *matrix.Builder
	computer *signals.Computer
	pools    *screener.PoolStore
	logger   *logger.Logger
}

// NewPoolRefreshJob creates a pool refresh job.
func NewPoolRefreshJob(
	repo *marketdata.Repository,
	builder *matrix.Builder,
	computer *signals.Computer,
	pools *screener.PoolStore,
	log *logger.Logger,
) *PoolRefreshJob {
	return &PoolRefreshJob{
		repo:     repo,
		builder:  builder,
		computer: computer,
		pools:    pools,
		logger:   log,
	}
}

// Name returns the job name
func (j *PoolRefreshJob) Name() string {
	return "pool_refresh"
}

// Schedule returns the cron schedule (6 PM on weekdays, after the
// matrix warm)
func (j *PoolRefreshJob) Schedule() string {
	return "0 0 18 * * 1-5"
}

// Run screens the recent window and stores the per-date pools.
func (j *PoolRefreshJob) Run(ctx context.Context) error {
	symbols, err := j.repo.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no active symbols")
	}

	now := time.Now()
	bundle, _, err := j.builder.Build(ctx, matrix.Request{
		Symbols:  symbols,
		DateFrom: now.AddDate(0, 0, -poolRangeDays).Format(contracts.DateLayout),
		DateTo:   now.Format(contracts.DateLayout),
	})
	if err != nil {
		return fmt.Errorf("build matrix: %w", err)
	}

	stored, err := j.pools.Screen(ctx, j.computer, bundle)
	if err != nil {
		return fmt.Errorf("refresh pools: %w", err)
	}

	j.logger.WithField("dates", stored).Info("Daily pools refreshed")
	return nil
}
