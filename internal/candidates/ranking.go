package candidates

import (
	"sort"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
)

// Rank orders candidates deterministically: entry date ascending, then
// the priority mode's score descending, then event weight, structure
// score, and finally symbol as the total tie-break. Both generation
// paths feed the same comparator so contention is resolved identically.
func Rank(cands []contracts.Candidate, mode contracts.PriorityMode) {
	sort.SliceStable(cands, func(a, b int) bool {
		ca, cb := &cands[a], &cands[b]

		if ca.EntryDate != cb.EntryDate {
			return ca.EntryDate < cb.EntryDate
		}

		ka, kb := priorityKey(ca, mode), priorityKey(cb, mode)
		if ka != kb {
			return ka > kb
		}

		if ca.EventWeight != cb.EventWeight {
			return ca.EventWeight > cb.EventWeight
		}
		if ca.StructureScore != cb.StructureScore {
			return ca.StructureScore > cb.StructureScore
		}
		return ca.Symbol < cb.Symbol
	})
}

func priorityKey(c *contracts.Candidate, mode contracts.PriorityMode) float64 {
	switch mode {
	case contracts.PriorityPhase:
		return c.PhaseScore
	case contracts.PriorityMomentum:
		return c.TrendScore
	default: // balanced
		return c.QualityScore
	}
}

// CapPerDay truncates same-entry-date candidates to the top K after
// ranking. K <= 0 keeps everything.
func CapPerDay(cands []contracts.Candidate, k int) []contracts.Candidate {
	if k <= 0 {
		return cands
	}

	out := cands[:0]
	count := 0
	lastDate := ""
	for _, c := range cands {
		if c.EntryDate != lastDate {
			lastDate = c.EntryDate
			count = 0
		}
		if count < k {
			out = append(out, c)
			count++
		}
	}
	return out
}
