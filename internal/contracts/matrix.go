package contracts

import (
	"errors"
	"math"
)

// ErrShapeMismatch indicates a bundle and a derived plane disagree on
// dimensions. This should never happen unless a cache key collided.
var ErrShapeMismatch = errors.New("matrix shape mismatch")

// MatrixBundle is an immutable dense (time x symbol) snapshot of aligned
// daily bars. All matrices share the shape (len(Dates), len(Symbols)).
// A cell with Valid=false holds NaN and must never be read for computation.
type MatrixBundle struct {
	Dates   []string // ascending, unique, YYYY-MM-DD
	Symbols []string // lower-cased, unique, sorted

	Open   [][]float64
	High   [][]float64
	Low    [][]float64
	Close  [][]float64
	Volume [][]float64
	Valid  [][]bool
}

// Shape returns (T, N).
func (b *MatrixBundle) Shape() (int, int) {
	return len(b.Dates), len(b.Symbols)
}

// DateIndex returns the row index of date, or -1.
func (b *MatrixBundle) DateIndex(date string) int {
	// Dates are sorted ascending; binary search.
	lo, hi := 0, len(b.Dates)
	for lo < hi {
		mid := (lo + hi) / 2
		if b.Dates[mid] < date {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(b.Dates) && b.Dates[lo] == date {
		return lo
	}
	return -1
}

// SymbolIndex returns the column index of symbol, or -1.
func (b *MatrixBundle) SymbolIndex(symbol string) int {
	for i, s := range b.Symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Column extracts one symbol's series from a plane. The returned slice
// aliases nothing; invalid cells stay NaN.
func Column(plane [][]float64, n int) []float64 {
	col := make([]float64, len(plane))
	for t := range plane {
		col[t] = plane[t][n]
	}
	return col
}

// BoolColumn extracts one symbol's series from a boolean plane.
func BoolColumn(plane [][]bool, n int) []bool {
	col := make([]bool, len(plane))
	for t := range plane {
		col[t] = plane[t][n]
	}
	return col
}

// NewMatrix allocates a T x N float64 matrix filled with NaN.
func NewMatrix(t, n int) [][]float64 {
	m := make([][]float64, t)
	for i := range m {
		row := make([]float64, n)
		for j := range row {
			row[j] = math.NaN()
		}
		m[i] = row
	}
	return m
}

// NewBoolMatrix allocates a T x N boolean matrix.
func NewBoolMatrix(t, n int) [][]bool {
	m := make([][]bool, t)
	for i := range m {
		m[i] = make([]bool, n)
	}
	return m
}
