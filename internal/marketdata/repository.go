package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// Repository reads daily candles and symbol metadata from Postgres.
// Implements contracts.CandleSource and contracts.NameResolver.
type Repository struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewRepository creates a market data repository.
func NewRepository(pool *pgxpool.Pool, log *logger.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: log.WithField("module", "marketdata"),
	}
}

// GetCandles returns every daily bar for a symbol in ascending date order.
func (r *Repository) GetCandles(ctx context.Context, symbol string) ([]contracts.Bar, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM market.daily_bars
		WHERE symbol = $1
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		var date time.Time
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Date = date.Format(contracts.DateLayout)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetCandlesRange returns a symbol's bars within [from, to] inclusive.
func (r *Repository) GetCandlesRange(ctx context.Context, symbol, from, to string) ([]contracts.Bar, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM market.daily_bars
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		var date time.Time
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Date = date.Format(contracts.DateLayout)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns every active symbol in the universe, sorted.
func (r *Repository) ListSymbols(ctx context.Context) ([]string, error) {
	query := `
		SELECT symbol
		FROM market.symbols
		WHERE is_active = true
		ORDER BY symbol ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// ResolveName returns a symbol's display name, or the symbol itself
// when no metadata exists. Cosmetic only, so lookup errors are logged
// and swallowed.
func (r *Repository) ResolveName(ctx context.Context, symbol string) string {
	query := `
		SELECT name
		FROM market.symbols
		WHERE symbol = $1
	`

	var name string
	if err := r.pool.QueryRow(ctx, query, symbol).Scan(&name); err != nil {
		r.logger.WithError(err).WithField("symbol", symbol).Debug("Name lookup failed")
		return symbol
	}
	if name == "" {
		return symbol
	}
	return name
}
