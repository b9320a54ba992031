package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/marketdata"
	"github.com/Laimiu-debug/quantscan/internal/matrix"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// warmRangeDays is the trailing window the nightly warm keeps hot. Kept
// at one year so typical backtest ranges extend the cached archive
// instead of rebuilding it.
const warmRangeDays = 365

// MatrixWarmJob rebuilds or extends the full-universe matrix bundle
// after the market close so the first backtest of the day hits cache.
type MatrixWarmJob struct {
	repo    *marketdata.Repository
	builder *matrix.Builder
	logger  *logger.Logger
}

// NewMatrixWarmJob creates a matrix warm job.
func NewMatrixWarmJob(repo *marketdata.Repository, builder *matrix.Builder, log *logger.Logger) *MatrixWarmJob {
	return &MatrixWarmJob{
		repo:    repo,
		builder: builder,
		logger:  log,
	}
}

// Name returns the job name
func (j *MatrixWarmJob) Name() string {
	return "matrix_warm"
}

// Schedule returns the cron schedule (5:30 PM on weekdays, after the
// daily bars land)
func (j *MatrixWarmJob) Schedule() string {
	return "0 30 17 * * 1-5"
}

// Run builds the trailing-window bundle for the active universe.
func (j *MatrixWarmJob) Run(ctx context.Context) error {
	symbols, err := j.repo.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no active symbols")
	}

	from, to := warmWindow(time.Now())
	req := matrix.Request{
		Symbols:  symbols,
		DateFrom: from,
		DateTo:   to,
	}

	bundle, cached, err := j.builder.Build(ctx, req)
	if err != nil {
		return fmt.Errorf("build matrix: %w", err)
	}

	t, n := bundle.Shape()
	j.logger.WithFields(map[string]interface{}{
		"dates":     t,
		"symbols":   n,
		"cache_hit": cached,
	}).Info("Matrix bundle warmed")

	return nil
}

// warmWindow returns the build range ending today. The start is pinned
// to the first of the month the trailing window lands in: incremental
// extension requires an identical start date, so consecutive nightly
// runs must share one. The archive rebuilds once per month instead of
// every night.
func warmWindow(now time.Time) (string, string) {
	from := now.AddDate(0, 0, -warmRangeDays)
	from = time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	return from.Format(contracts.DateLayout), now.Format(contracts.DateLayout)
}
