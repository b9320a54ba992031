package matrix

import (
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
)

// archive is the on-disk form of a bundle: axes, the five matrices and
// the validity mask flattened to bytes, plus the metadata needed to
// detect incremental-extension eligibility.
type archive struct {
	Signature string
	DateFrom  string
	DateTo    string

	Dates   []string
	Symbols []string
	Open    [][]float64
	High    [][]float64
	Low     [][]float64
	Close   [][]float64
	Volume  [][]float64
	Valid   []byte // row-major T*N, 1 = valid
}

// meta is the JSON sidecar written next to each archive so extension
// candidates can be found without decompressing every artifact.
type meta struct {
	Key       string `json:"key"`
	Signature string `json:"signature"`
	DateFrom  string `json:"date_from"`
	DateTo    string `json:"date_to"`
}

// DiskCache persists bundle archives as gzip-compressed gob files.
type DiskCache struct {
	dir    string
	logger *logger.Logger
}

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string, log *logger.Logger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir, logger: log.WithField("module", "matrix_disk_cache")}, nil
}

func (d *DiskCache) archivePath(key string) string {
	return filepath.Join(d.dir, key+".bundle.gz")
}

func (d *DiskCache) metaPath(key string) string {
	return filepath.Join(d.dir, key+".meta.json")
}

// Save writes the bundle atomically: temp file first, then rename, so a
// crash mid-write never corrupts a previously valid entry.
func (d *DiskCache) Save(key string, spec Spec, bundle *contracts.MatrixBundle) error {
	t, n := bundle.Shape()

	valid := make([]byte, t*n)
	for i := 0; i < t; i++ {
		for j := 0; j < n; j++ {
			if bundle.Valid[i][j] {
				valid[i*n+j] = 1
			}
		}
	}

	arc := archive{
		Signature: spec.Signature(),
		DateFrom:  spec.DateFrom,
		DateTo:    spec.DateTo,
		Dates:     bundle.Dates,
		Symbols:   bundle.Symbols,
		Open:      bundle.Open,
		High:      bundle.High,
		Low:       bundle.Low,
		Close:     bundle.Close,
		Volume:    bundle.Volume,
		Valid:     valid,
	}

	if err := d.writeAtomic(d.archivePath(key), func(f *os.File) error {
		zw := gzip.NewWriter(f)
		if err := gob.NewEncoder(zw).Encode(&arc); err != nil {
			return err
		}
		return zw.Close()
	}); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	m := meta{Key: key, Signature: arc.Signature, DateFrom: arc.DateFrom, DateTo: arc.DateTo}
	if err := d.writeAtomic(d.metaPath(key), func(f *os.File) error {
		return json.NewEncoder(f).Encode(&m)
	}); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}

	return nil
}

func (d *DiskCache) writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// Load reads a bundle by key. A missing file returns (nil, false, nil).
// A corrupt or shape-inconsistent artifact is treated as a miss: the
// files are removed and the caller rebuilds.
func (d *DiskCache) Load(key string) (*contracts.MatrixBundle, bool, error) {
	f, err := os.Open(d.archivePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	arc, err := d.decode(f)
	if err != nil {
		d.logger.WithError(err).WithField("key", key).Warn("Corrupt matrix archive, discarding")
		d.Remove(key)
		return nil, false, nil
	}

	bundle, err := arc.toBundle()
	if err != nil {
		d.logger.WithError(err).WithField("key", key).Warn("Inconsistent matrix archive, discarding")
		d.Remove(key)
		return nil, false, nil
	}

	return bundle, true, nil
}

func (d *DiskCache) decode(f *os.File) (*archive, error) {
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()

	var arc archive
	if err := gob.NewDecoder(zr).Decode(&arc); err != nil {
		return nil, fmt.Errorf("gob: %w", err)
	}
	return &arc, nil
}

// toBundle validates shapes and unpacks the validity mask.
func (a *archive) toBundle() (*contracts.MatrixBundle, error) {
	t, n := len(a.Dates), len(a.Symbols)

	for _, plane := range [][][]float64{a.Open, a.High, a.Low, a.Close, a.Volume} {
		if len(plane) != t {
			return nil, fmt.Errorf("plane rows %d, want %d: %w", len(plane), t, contracts.ErrShapeMismatch)
		}
		for _, row := range plane {
			if len(row) != n {
				return nil, fmt.Errorf("plane cols %d, want %d: %w", len(row), n, contracts.ErrShapeMismatch)
			}
		}
	}
	if len(a.Valid) != t*n {
		return nil, fmt.Errorf("mask size %d, want %d: %w", len(a.Valid), t*n, contracts.ErrShapeMismatch)
	}

	valid := make([][]bool, t)
	for i := 0; i < t; i++ {
		row := make([]bool, n)
		for j := 0; j < n; j++ {
			row[j] = a.Valid[i*n+j] == 1
		}
		valid[i] = row
	}

	return &contracts.MatrixBundle{
		Dates:   a.Dates,
		Symbols: a.Symbols,
		Open:    a.Open,
		High:    a.High,
		Low:     a.Low,
		Close:   a.Close,
		Volume:  a.Volume,
		Valid:   valid,
	}, nil
}

// FindExtensible looks for a cached archive with the same signature and
// start date whose end date is before wantTo. Returns the best (latest
// ending) candidate's key and end date.
func (d *DiskCache) FindExtensible(signature, wantFrom, wantTo string) (string, string, bool) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return "", "", false
	}

	bestKey, bestTo := "", ""
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".meta.json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(d.dir, e.Name()))
		if err != nil {
			continue
		}

		var m meta
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}

		if m.Signature != signature || m.DateFrom != wantFrom {
			continue
		}
		if m.DateTo >= wantTo {
			continue // not an extension, a direct hit handles this
		}
		if m.DateTo > bestTo {
			bestKey, bestTo = m.Key, m.DateTo
		}
	}

	return bestKey, bestTo, bestKey != ""
}

// Remove deletes an archive and its sidecar.
func (d *DiskCache) Remove(key string) {
	os.Remove(d.archivePath(key))
	os.Remove(d.metaPath(key))
}

// Clear removes every artifact in the cache directory.
func (d *DiskCache) Clear() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".bundle.gz") || strings.HasSuffix(e.Name(), ".meta.json") {
			os.Remove(filepath.Join(d.dir, e.Name()))
		}
	}
	return nil
}
