package matrix

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// AlgoVersion is baked into every cache key. Bump it whenever the
// alignment or archive layout changes so stale artifacts never load.
const AlgoVersion = "m2"

// Spec identifies the content of one matrix bundle. Two requests with
// the same Spec always produce the same matrices.
type Spec struct {
	Symbols     []string // normalized: lower-cased, deduped, sorted
	DateFrom    string
	DateTo      string
	DataVersion string
	Windows     []int // rolling windows the signal layer will request
	Lookback    int   // trading days of history loaded before DateFrom
}

// Signature hashes everything except the date range. Bundles sharing a
// signature differ only in time coverage, which makes them candidates
// for incremental extension.
func (s Spec) Signature() string {
	h := sha256.New()
	h.Write([]byte(strings.Join(s.Symbols, ",")))
	h.Write([]byte{0})
	h.Write([]byte(s.DataVersion))
	h.Write([]byte{0})
	for _, w := range s.Windows {
		fmt.Fprintf(h, "%d,", w)
	}
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", s.Lookback)
	h.Write([]byte{0})
	h.Write([]byte(AlgoVersion))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// CacheKey hashes the full spec including the date range.
func (s Spec) CacheKey() string {
	h := sha256.New()
	h.Write([]byte(s.Signature()))
	h.Write([]byte{0})
	h.Write([]byte(s.DateFrom))
	h.Write([]byte{0})
	h.Write([]byte(s.DateTo))
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// NormalizeSymbols lower-cases, deduplicates and sorts a symbol list.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
