package matrix

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

func testBundle() *contracts.MatrixBundle {
	b := &contracts.MatrixBundle{
		Dates:   []string{"2024-01-02", "2024-01-03", "2024-01-04"},
		Symbols: []string{"000001", "600000"},
		Open:    contracts.NewMatrix(3, 2),
		High:    contracts.NewMatrix(3, 2),
		Low:     contracts.NewMatrix(3, 2),
		Close:   contracts.NewMatrix(3, 2),
		Volume:  contracts.NewMatrix(3, 2),
		Valid:   contracts.NewBoolMatrix(3, 2),
	}
	for i := 0; i < 3; i++ {
		b.Open[i][0] = 10 + float64(i)
		b.High[i][0] = 11 + float64(i)
		b.Low[i][0] = 9 + float64(i)
		b.Close[i][0] = 10.5 + float64(i)
		b.Volume[i][0] = 1000
		b.Valid[i][0] = true
	}
	// second symbol suspended the whole range: NaN cells, invalid mask
	return b
}

func testSpec() Spec {
	return Spec{
		Symbols:     []string{"000001", "600000"},
		DateFrom:    "2024-01-02",
		DateTo:      "2024-01-04",
		DataVersion: "v1",
		Windows:     []int{10, 20, 60},
		Lookback:    60,
	}
}

func newTestDiskCache(t *testing.T) *DiskCache {
	t.Helper()
	d, err := NewDiskCache(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return d
}

func TestDiskCache_SaveLoadRoundtrip(t *testing.T) {
	d := newTestDiskCache(t)
	spec := testSpec()
	key := spec.CacheKey()

	require.NoError(t, d.Save(key, spec, testBundle()))

	got, ok, err := d.Load(key)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, got.Dates)
	assert.Equal(t, []string{"000001", "600000"}, got.Symbols)
	assert.InDelta(t, 12.5, got.Close[2][0], 1e-9)
	assert.True(t, got.Valid[2][0])
	assert.False(t, got.Valid[2][1])
	assert.True(t, math.IsNaN(got.Close[2][1]), "invalid cells stay NaN")
}

func TestDiskCache_MissingKeyIsMiss(t *testing.T) {
	d := newTestDiskCache(t)

	_, ok, err := d.Load("deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiskCache_CorruptArchiveIsMiss(t *testing.T) {
	d := newTestDiskCache(t)
	spec := testSpec()
	key := spec.CacheKey()
	require.NoError(t, d.Save(key, spec, testBundle()))

	require.NoError(t, os.WriteFile(d.archivePath(key), []byte("not gzip"), 0o644))

	_, ok, err := d.Load(key)
	require.NoError(t, err, "corruption degrades to a rebuild, never an error")
	assert.False(t, ok)

	_, statErr := os.Stat(d.archivePath(key))
	assert.True(t, os.IsNotExist(statErr), "corrupt artifact is removed")
}

func TestDiskCache_FindExtensible(t *testing.T) {
	d := newTestDiskCache(t)

	short := testSpec()
	short.DateTo = "2024-01-03"
	require.NoError(t, d.Save(short.CacheKey(), short, testBundle()))

	longer := testSpec()
	longer.DateTo = "2024-01-04"
	require.NoError(t, d.Save(longer.CacheKey(), longer, testBundle()))

	want := testSpec()
	want.DateTo = "2024-06-30"

	key, baseTo, ok := d.FindExtensible(want.Signature(), want.DateFrom, want.DateTo)
	require.True(t, ok)
	assert.Equal(t, longer.CacheKey(), key, "latest-ending base wins")
	assert.Equal(t, "2024-01-04", baseTo)

	// A range already covered is a direct hit, not an extension
	_, _, ok = d.FindExtensible(want.Signature(), want.DateFrom, "2024-01-04")
	assert.False(t, ok)

	// Different signature never extends
	other := testSpec()
	other.DataVersion = "v2"
	_, _, ok = d.FindExtensible(other.Signature(), want.DateFrom, want.DateTo)
	assert.False(t, ok)
}

func TestDiskCache_Clear(t *testing.T) {
	d := newTestDiskCache(t)
	spec := testSpec()
	key := spec.CacheKey()
	require.NoError(t, d.Save(key, spec, testBundle()))

	require.NoError(t, d.Clear())

	_, ok, err := d.Load(key)
	require.NoError(t, err)
	assert.False(t, ok)
}
