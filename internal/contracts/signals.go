package contracts

// SignalMatrix holds the boolean condition planes and the score plane
// derived from one MatrixBundle. Every plane is masked by the bundle's
// validity mask: an invalid cell is always false / 0.
type SignalMatrix struct {
	// Primitive condition planes
	VolContraction [][]bool // 20d range compressed vs 60d range
	QuietVolume    [][]bool // 10d avg volume well below 60d avg
	MomentumLeader [][]bool // 40d return in cross-sectional top K
	SidewaysBase   [][]bool // price hugging MA20 in a narrow range
	Breakout       [][]bool // close above prior 20d high on volume
	MAReclaim      [][]bool // reclaim of MA10 after a dip
	TrendStack     [][]bool // MA10 > MA20 > MA60
	Breakdown      [][]bool // close below prior 20d low
	Exhaustion     [][]bool // high-volume decline under MA10, negative 40d return

	InPool [][]bool // at least 2 of the 4 accumulation conditions
	Buy    [][]bool // (Breakout or MAReclaim) and InPool
	Sell   [][]bool // Breakdown or Exhaustion

	Score [][]float64 // [0, 100]
}

// Shape returns (T, N) of the score plane.
func (s *SignalMatrix) Shape() (int, int) {
	if len(s.Score) == 0 {
		return 0, 0
	}
	return len(s.Score), len(s.Score[0])
}
