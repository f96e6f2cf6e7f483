package shipment

import "github.com/kilianp07/prodplan/core/model"

// candidateStep returns the sampling step used for a cycle length.
func candidateStep(cycle int) int {
	switch {
	case cycle <= 10:
		return 1
	case cycle <= 30:
		return 2
	case cycle <= 90:
		return 7
	default:
		return 15
	}
}

// Candidates returns the sampled start days (1-indexed, within [1, cycle]) of
// the source at position index. Sources are staggered by index so that equal
// cycles do not share their first candidate. The preferred day is always part
// of the set.
func Candidates(index int, src model.DemandSource) []int {
	cycle := src.CycleLengthDays
	if cycle <= 0 {
		return nil
	}
	step := candidateStep(cycle)
	offset := (index * 13) % cycle
	seen := make(map[int]bool)
	var out []int
	for k := 0; k*step < cycle; k++ {
		d := (k*step+offset)%cycle + 1
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	if p := src.NormalizedPreferredStart(); p > 0 && !seen[p] {
		out = append(out, p)
	}
	return out
}
