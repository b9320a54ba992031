package matrix

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/internal/runcache"
	"github.com/Laimiu-debug/quantscan/pkg/config"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// rangeSource serves one bar per calendar day over a fixed January range.
type rangeSource struct {
	days  int
	calls atomic.Int64
}

func (s *rangeSource) GetCandles(ctx context.Context, symbol string) ([]contracts.Bar, error) {
	s.calls.Add(1)
	bars := make([]contracts.Bar, s.days)
	for i := range bars {
		px := 10 + float64(i)
		bars[i] = contracts.Bar{
			Date:   fmt.Sprintf("2024-01-%02d", i+1),
			Open:   px,
			High:   px + 1,
			Low:    px - 1,
			Close:  px + 0.5,
			Volume: 1000,
		}
	}
	return bars, nil
}

func newTestBuilder(t *testing.T, src contracts.CandleSource) *Builder {
	t.Helper()
	log := logger.NewNop()
	disk, err := NewDiskCache(t.TempDir(), log)
	require.NoError(t, err)
	cache := runcache.New[*contracts.MatrixBundle](time.Hour, 8)
	return NewBuilder(src, disk, cache, config.MatrixConfig{DataVersion: "v1"}, nil, log)
}

func TestBuilder_BuildAndCacheHit(t *testing.T) {
	src := &rangeSource{days: 10}
	b := newTestBuilder(t, src)

	req := Request{
		Symbols:  []string{"600000"},
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-10",
	}

	bundle, cached, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, bundle.Dates, 10)
	assert.Equal(t, []string{"600000"}, bundle.Symbols)
	assert.InDelta(t, 19.5, bundle.Close[9][0], 1e-9)
	assert.True(t, bundle.Valid[0][0])

	again, cached, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, bundle.Dates, again.Dates)
	assert.EqualValues(t, 1, src.calls.Load(), "second request never touches the source")
}

func TestBuilder_DiskCacheSurvivesRuntimeClear(t *testing.T) {
	src := &rangeSource{days: 10}
	b := newTestBuilder(t, src)

	req := Request{
		Symbols:  []string{"600000"},
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-10",
	}

	_, _, err := b.Build(context.Background(), req)
	require.NoError(t, err)

	b.ClearRuntime()

	_, cached, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, cached, "served from the disk archive")
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestBuilder_IncrementalExtension(t *testing.T) {
	src := &rangeSource{days: 20}
	b := newTestBuilder(t, src)

	_, _, err := b.Build(context.Background(), Request{
		Symbols:  []string{"600000"},
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-10",
	})
	require.NoError(t, err)

	bundle, cached, err := b.Build(context.Background(), Request{
		Symbols:  []string{"600000"},
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-20",
	})
	require.NoError(t, err)
	assert.False(t, cached)

	require.Len(t, bundle.Dates, 20, "base plus loaded suffix")
	assert.Equal(t, "2024-01-20", bundle.Dates[19])
	assert.InDelta(t, 29.5, bundle.Close[19][0], 1e-9)
	assert.True(t, bundle.Valid[19][0])
}

func TestBuilder_NormalizesSymbols(t *testing.T) {
	src := &rangeSource{days: 5}
	b := newTestBuilder(t, src)

	bundle, _, err := b.Build(context.Background(), Request{
		Symbols:  []string{" 600000 ", "000001", "600000"},
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-05",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"000001", "600000"}, bundle.Symbols)
}

func TestBuilder_NoSymbols(t *testing.T) {
	b := newTestBuilder(t, &rangeSource{days: 5})

	_, _, err := b.Build(context.Background(), Request{
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-05",
	})

	assert.Error(t, err)
}
