package commands

import (
	"fmt"

	"github.com/Laimiu-debug/quantscan/internal/backtest"
	"github.com/Laimiu-debug/quantscan/internal/candidates"
	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/marketdata"
	"github.com/Laimiu-debug/quantscan/internal/matrix"
	"github.com/Laimiu-debug/quantscan/internal/portfolio"
	"github.com/Laimiu-debug/quantscan/internal/report"
	"github.com/Laimiu-debug/quantscan/internal/runcache"
	"github.com/Laimiu-debug/quantscan/internal/screener"
	"github.com/Laimiu-debug/quantscan/internal/signals"
	"github.com/Laimiu-debug/quantscan/pkg/config"
	"github.com/Laimiu-debug/quantscan/pkg/database"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
	"github.com/Laimiu-debug/quantscan/pkg/metrics"
	"github.com/Laimiu-debug/quantscan/pkg/redis"
)

// app holds the initialized service dependencies shared by commands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	rds      *redis.Client
	metrics  *metrics.Registry
	repo     *marketdata.Repository
	builder  *matrix.Builder
	computer *signals.Computer
	pools    *screener.PoolStore
	engine   *backtest.Engine
}

// initApp wires the full dependency graph.
func initApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to Redis (no-op when disabled)
	rds, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 5. Metrics
	reg := metrics.NewRegistry()

	// 6. Market data and matrix layer
	repo := marketdata.NewRepository(db.Pool, log)
	disk, err := matrix.NewDiskCache(cfg.Matrix.CacheDir, log)
	if err != nil {
		return nil, fmt.Errorf("open matrix disk cache: %w", err)
	}
	cache := runcache.New[*contracts.MatrixBundle](cfg.Matrix.CacheTTL, cfg.Matrix.CacheMaxItems)
	builder := matrix.NewBuilder(repo, disk, cache, cfg.Matrix, reg, log)

	// 7. Signal and candidate layer
	computer := signals.NewComputer(signals.DefaultConfig())
	sigCache := runcache.New[*contracts.SignalMatrix](cfg.Matrix.CacheTTL, cfg.Matrix.CacheMaxItems)
	generator := candidates.NewGenerator(log)

	// 8. Pools, simulation and reporting
	pools := screener.NewPoolStore(rds, log)
	simulator := portfolio.NewSimulator(log)
	reporter := report.NewBuilder(log)

	// 9. Backtest engine
	engine := backtest.NewEngine(
		builder, repo, computer, generator, simulator, reporter,
		nil, repo, sigCache, reg, log,
	)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		rds:      rds,
		metrics:  reg,
		repo:     repo,
		builder:  builder,
		computer: computer,
		pools:    pools,
		engine:   engine,
	}, nil
}

// Close releases connections.
func (a *app) Close() {
	if a.rds != nil {
		a.rds.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
