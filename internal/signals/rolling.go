package signals

import (
	"math"
	"sort"
)

// Rolling statistics over the time axis of a (T x N) plane. A cell is
// finite only when its entire trailing window is finite; any NaN inside
// the window poisons the result, which keeps partially listed symbols
// from producing half-baked signals.

// rollMean returns the w-bar trailing mean per column.
func rollMean(m [][]float64, w int) [][]float64 {
	t := len(m)
	if t == 0 {
		return nil
	}
	n := len(m[0])
	out := nanMatrix(t, n)

	for j := 0; j < n; j++ {
		sum := 0.0
		lastNaN := -1
		for i := 0; i < t; i++ {
			v := m[i][j]
			if math.IsNaN(v) {
				lastNaN = i
			} else {
				sum += v
			}
			if i >= w {
				old := m[i-w][j]
				if !math.IsNaN(old) {
					sum -= old
				}
			}
			if i-lastNaN >= w && i >= w-1 {
				out[i][j] = sum / float64(w)
			}
		}
	}
	return out
}

// rollMax returns the w-bar trailing maximum per column.
func rollMax(m [][]float64, w int) [][]float64 {
	return rollExtreme(m, w, true)
}

// rollMin returns the w-bar trailing minimum per column.
func rollMin(m [][]float64, w int) [][]float64 {
	return rollExtreme(m, w, false)
}

// rollExtreme keeps a monotonic index deque per column.
func rollExtreme(m [][]float64, w int, wantMax bool) [][]float64 {
	t := len(m)
	if t == 0 {
		return nil
	}
	n := len(m[0])
	out := nanMatrix(t, n)

	better := func(a, b float64) bool {
		if wantMax {
			return a >= b
		}
		return a <= b
	}

	deque := make([]int, 0, w)
	for j := 0; j < n; j++ {
		deque = deque[:0]
		lastNaN := -1

		for i := 0; i < t; i++ {
			v := m[i][j]
			if math.IsNaN(v) {
				lastNaN = i
			} else {
				for len(deque) > 0 && better(v, m[deque[len(deque)-1]][j]) {
					deque = deque[:len(deque)-1]
				}
				deque = append(deque, i)
			}

			// Drop indexes that fell out of the window
			for len(deque) > 0 && deque[0] <= i-w {
				deque = deque[1:]
			}

			if i-lastNaN >= w && i >= w-1 && len(deque) > 0 {
				out[i][j] = m[deque[0]][j]
			}
		}
	}
	return out
}

// shift lags a plane by k rows; the first k rows become NaN.
func shift(m [][]float64, k int) [][]float64 {
	t := len(m)
	if t == 0 {
		return nil
	}
	n := len(m[0])
	out := nanMatrix(t, n)

	for i := k; i < t; i++ {
		copy(out[i], m[i-k])
	}
	return out
}

// changeOver returns m[t]/m[t-k] - 1 per cell.
func changeOver(m [][]float64, k int) [][]float64 {
	t := len(m)
	if t == 0 {
		return nil
	}
	n := len(m[0])
	out := nanMatrix(t, n)

	for i := k; i < t; i++ {
		for j := 0; j < n; j++ {
			prev := m[i-k][j]
			cur := m[i][j]
			if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
				continue
			}
			out[i][j] = cur/prev - 1
		}
	}
	return out
}

// topKPerRow marks, for each row, the cells holding the K largest
// finite values. Ties at the boundary are broken by column order so the
// plane is deterministic.
func topKPerRow(m [][]float64, k int) [][]bool {
	t := len(m)
	if t == 0 {
		return nil
	}
	n := len(m[0])
	out := make([][]bool, t)

	type cell struct {
		col int
		val float64
	}

	for i := 0; i < t; i++ {
		out[i] = make([]bool, n)

		cells := make([]cell, 0, n)
		for j := 0; j < n; j++ {
			if !math.IsNaN(m[i][j]) {
				cells = append(cells, cell{col: j, val: m[i][j]})
			}
		}
		if len(cells) == 0 {
			continue
		}

		// Value desc, then column asc for a deterministic boundary.
		sort.Slice(cells, func(a, b int) bool {
			if cells[a].val != cells[b].val {
				return cells[a].val > cells[b].val
			}
			return cells[a].col < cells[b].col
		})

		limit := k
		if limit > len(cells) {
			limit = len(cells)
		}
		for _, c := range cells[:limit] {
			out[i][c.col] = true
		}
	}
	return out
}

func nanMatrix(t, n int) [][]float64 {
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
