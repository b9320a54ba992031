package candidates

import "strings"

// Event weights used for same-day tie-breaking on the snapshot path.
// A breakout trigger outranks a pullback reclaim, which outranks the
// softer accumulation events.
var eventWeights = map[string]float64{
	"breakout":     100,
	"gap_up":       90,
	"ma_reclaim":   80,
	"volume_surge": 70,
	"base_exit":    60,
	"pullback_end": 50,
	"accumulation": 40,
}

// Phase scores rank the market phase labels the pattern collaborator
// emits. Unknown labels score zero and lose phase-priority ties.
var phaseScores = map[string]float64{
	"launch":       100,
	"acceleration": 80,
	"accumulation": 60,
	"base":         40,
	"distribution": 20,
	"decline":      0,
	"dormant":      0,
}

// eventWeight returns the heaviest weight among the given event codes.
func eventWeight(codes []string) float64 {
	best := 0.0
	for _, c := range codes {
		if w, ok := eventWeights[strings.ToLower(c)]; ok && w > best {
			best = w
		}
	}
	return best
}

// phaseScore maps a phase label to its rank.
func phaseScore(phase string) float64 {
	return phaseScores[strings.ToLower(phase)]
}

// structureScore counts higher-high / higher-low marks in the structure
// label ("HHH" style), ten points each.
func structureScore(label string) float64 {
	score := 0.0
	for _, r := range strings.ToUpper(label) {
		if r == 'H' {
			score += 10
		}
	}
	return score
}
