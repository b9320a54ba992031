package signals

import (
	"math"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
)

// Config holds the signal thresholds. Defaults match the screener's
// production parameters.
type Config struct {
	RangeCompressionMax float64 // s1: 20d range / 60d range below this
	QuietVolumeMax      float64 // s2: 10d avg volume / 60d avg volume below this
	MomentumTopK        int     // s3: cross-sectional top-K by 40d return
	BaseMADeviationMax  float64 // s4: |close/ma20 - 1| below this
	BaseRangeRatioMax   float64 // s4: 20d range / close below this
	ExhaustVolumeMin    float64 // s9: volume / 20d avg volume above this
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		RangeCompressionMax: 0.7,
		QuietVolumeMax:      0.6,
		MomentumTopK:        50,
		BaseMADeviationMax:  0.03,
		BaseRangeRatioMax:   0.10,
		ExhaustVolumeMin:    1.5,
	}
}

// Computer derives signal planes from a matrix bundle. Pure: no I/O,
// no state beyond the thresholds; safe for concurrent use.
type Computer struct {
	cfg Config
}

// NewComputer creates a signal computer.
func NewComputer(cfg Config) *Computer {
	if cfg.MomentumTopK <= 0 {
		cfg = DefaultConfig()
	}
	return &Computer{cfg: cfg}
}

// Compute builds every condition plane, the composite buy/sell planes
// and the score plane from the bundle. All planes are masked by the
// bundle's validity mask as the final step, so an invalid cell never
// leaks a true signal or a nonzero score.
func (c *Computer) Compute(b *contracts.MatrixBundle) (*contracts.SignalMatrix, error) {
	t, n := b.Shape()

	// Rolling statistics shared by several planes
	ma10 := rollMean(b.Close, 10)
	ma20 := rollMean(b.Close, 20)
	ma60 := rollMean(b.Close, 60)
	vol10 := rollMean(b.Volume, 10)
	vol20 := rollMean(b.Volume, 20)
	vol60 := rollMean(b.Volume, 60)
	hi20 := rollMax(b.High, 20)
	lo20 := rollMin(b.Low, 20)
	hi60 := rollMax(b.High, 60)
	lo60 := rollMin(b.Low, 60)
	lo10 := rollMin(b.Low, 10)
	ret40 := changeOver(b.Close, 40)

	priorHi20 := shift(hi20, 1)
	priorLo20 := shift(lo20, 1)
	priorLo10 := shift(lo10, 1)
	priorClose := shift(b.Close, 1)
	priorMA10 := shift(ma10, 1)

	sig := &contracts.SignalMatrix{
		VolContraction: contracts.NewBoolMatrix(t, n),
		QuietVolume:    contracts.NewBoolMatrix(t, n),
		MomentumLeader: topKPerRow(ret40, c.cfg.MomentumTopK),
		SidewaysBase:   contracts.NewBoolMatrix(t, n),
		Breakout:       contracts.NewBoolMatrix(t, n),
		MAReclaim:      contracts.NewBoolMatrix(t, n),
		TrendStack:     contracts.NewBoolMatrix(t, n),
		Breakdown:      contracts.NewBoolMatrix(t, n),
		Exhaustion:     contracts.NewBoolMatrix(t, n),
		InPool:         contracts.NewBoolMatrix(t, n),
		Buy:            contracts.NewBoolMatrix(t, n),
		Sell:           contracts.NewBoolMatrix(t, n),
		Score:          make([][]float64, t),
	}

	for i := 0; i < t; i++ {
		sig.Score[i] = make([]float64, n)

		for j := 0; j < n; j++ {
			close := b.Close[i][j]
			low := b.Low[i][j]
			volume := b.Volume[i][j]

			// s1: volatility contraction
			range20 := hi20[i][j] - lo20[i][j]
			range60 := hi60[i][j] - lo60[i][j]
			if finite(range20, range60) && range60 > 0 {
				sig.VolContraction[i][j] = range20/range60 < c.cfg.RangeCompressionMax
			}

			// s2: quiet accumulation
			if finite(vol10[i][j], vol60[i][j]) && vol60[i][j] > 0 {
				sig.QuietVolume[i][j] = vol10[i][j]/vol60[i][j] < c.cfg.QuietVolumeMax
			}

			// s4: sideways base around MA20
			if finite(close, ma20[i][j], range20) && ma20[i][j] > 0 && close > 0 {
				dev := math.Abs(close/ma20[i][j] - 1)
				sig.SidewaysBase[i][j] = dev < c.cfg.BaseMADeviationMax &&
					range20/close < c.cfg.BaseRangeRatioMax
			}

			// s5: breakout above prior 20d high on above-average volume
			if finite(close, priorHi20[i][j], volume, vol20[i][j]) {
				sig.Breakout[i][j] = close > priorHi20[i][j] && volume > vol20[i][j]
			}

			// s6: reclaim of MA10 after a dip, holding the prior 10d low
			if finite(close, ma10[i][j], priorClose[i][j], priorMA10[i][j], low, priorLo10[i][j]) {
				sig.MAReclaim[i][j] = close > ma10[i][j] &&
					priorClose[i][j] < priorMA10[i][j] &&
					low > priorLo10[i][j]
			}

			// s7: established uptrend structure
			if finite(ma10[i][j], ma20[i][j], ma60[i][j]) {
				sig.TrendStack[i][j] = ma10[i][j] > ma20[i][j] && ma20[i][j] > ma60[i][j]
			}

			// s8: breakdown below prior support
			if finite(close, priorLo20[i][j]) {
				sig.Breakdown[i][j] = close < priorLo20[i][j]
			}

			// s9: high-volume decline under MA10 with negative 40d return
			if finite(close, ma10[i][j], volume, vol20[i][j], ret40[i][j]) && vol20[i][j] > 0 {
				sig.Exhaustion[i][j] = close < ma10[i][j] &&
					volume/vol20[i][j] > c.cfg.ExhaustVolumeMin &&
					ret40[i][j] < 0
			}

			// Composites
			pool := boolToInt(sig.VolContraction[i][j]) +
				boolToInt(sig.QuietVolume[i][j]) +
				boolToInt(sig.MomentumLeader[i][j]) +
				boolToInt(sig.SidewaysBase[i][j])
			sig.InPool[i][j] = pool >= 2
			sig.Buy[i][j] = (sig.Breakout[i][j] || sig.MAReclaim[i][j]) && sig.InPool[i][j]
			sig.Sell[i][j] = sig.Breakdown[i][j] || sig.Exhaustion[i][j]

			// Score: pool depth plus the trend/trigger conditions,
			// linear in [0, 100].
			score := 10.0*float64(pool) +
				20.0*float64(boolToInt(sig.Breakout[i][j])) +
				20.0*float64(boolToInt(sig.MAReclaim[i][j])) +
				20.0*float64(boolToInt(sig.TrendStack[i][j]))
			if score > 100 {
				score = 100
			}
			sig.Score[i][j] = score
		}
	}

	c.mask(sig, b)
	return sig, nil
}

// mask forces every plane to false/0 wherever the bundle is invalid.
func (c *Computer) mask(sig *contracts.SignalMatrix, b *contracts.MatrixBundle) {
	planes := [][][]bool{
		sig.VolContraction, sig.QuietVolume, sig.MomentumLeader,
		sig.SidewaysBase, sig.Breakout, sig.MAReclaim, sig.TrendStack,
		sig.Breakdown, sig.Exhaustion, sig.InPool, sig.Buy, sig.Sell,
	}

	for i := range b.Valid {
		for j := range b.Valid[i] {
			if b.Valid[i][j] {
				continue
			}
			for _, p := range planes {
				p[i][j] = false
			}
			sig.Score[i][j] = 0
		}
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
