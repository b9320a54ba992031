package contracts

import "context"

// DateLayout is the canonical trading-date format used across the pipeline.
const DateLayout = "2006-01-02"

// Bar is one day's OHLCV for a symbol.
type Bar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// CandleSource supplies daily bars for a symbol in ascending date order.
// Gaps are tolerated; missing dates become invalid matrix cells.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string) ([]Bar, error)
}

// NameResolver maps a symbol to its display name. Cosmetic only.
type NameResolver interface {
	ResolveName(ctx context.Context, symbol string) string
}
