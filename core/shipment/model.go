package shipment

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/core/solver"
)

const peakVar = "Z"

// choice is one binary decision: source src starting on day start.
type choice struct {
	src   int
	start int
	name  string
}

// Problem is the assignment model built for a list of sources.
type Problem struct {
	Model   solver.Model
	choices [][]choice
}

func varName(src, start int) string { return "x_" + strconv.Itoa(src) + "_" + strconv.Itoa(start) }

// BuildProblem builds the min-peak assignment model for sources.
func BuildProblem(sources []model.DemandSource) Problem {
	p := Problem{choices: make([][]choice, len(sources))}
	m := solver.Model{Name: "shipment_peak", Objective: map[string]float64{peakVar: 1}}

	// land[t] lists the choices that ship on day t.
	land := make([][]int, model.Horizon)
	var flat []choice
	for i, s := range sources {
		pref := s.NormalizedPreferredStart()
		sel := solver.Constraint{Name: "select_" + strconv.Itoa(i), Terms: map[string]float64{}, Op: solver.EQ, RHS: 1}
		for _, d := range Candidates(i, s) {
			c := choice{src: i, start: d, name: varName(i, d)}
			v := solver.Variable{Name: c.name, Kind: solver.Binary, Upper: 1}
			if pref == d {
				v.Lower = 1
			}
			m.Variables = append(m.Variables, v)
			sel.Terms[c.name] = 1
			p.choices[i] = append(p.choices[i], c)
			if s.QuantityPerShipment > 0 {
				for _, t := range s.ShipmentDays(d) {
					land[t] = append(land[t], len(flat))
				}
			}
			flat = append(flat, c)
		}
		m.Constraints = append(m.Constraints, sel)
	}
	m.Variables = append(m.Variables, solver.Variable{Name: peakVar, Kind: solver.Continuous, Lower: peakLowerBound(sources), Upper: math.Inf(1)})

	for _, r := range loadRows(land) {
		terms := map[string]float64{peakVar: -1}
		for _, k := range r.choices {
			c := flat[k]
			terms[c.name] = sources[c.src].QuantityPerShipment
		}
		m.Constraints = append(m.Constraints, solver.Constraint{Name: "load_" + strconv.Itoa(r.day), Terms: terms, Op: solver.LE})
	}
	p.Model = m
	return p
}

// peakLowerBound is the largest quantity among sources that ship at least once
// whatever their start day.
func peakLowerBound(sources []model.DemandSource) float64 {
	var lb float64
	for _, s := range sources {
		if s.CycleLengthDays <= model.Horizon && s.QuantityPerShipment > lb {
			lb = s.QuantityPerShipment
		}
	}
	return lb
}

type loadRow struct {
	day     int
	choices []int
}

// loadRows returns one row per distinct set of landing choices, dropping sets
// contained in another set since their constraint is implied.
func loadRows(land [][]int) []loadRow {
	seen := make(map[string]bool)
	var rows []loadRow
	for t, cs := range land {
		if len(cs) == 0 {
			continue
		}
		key := rowKey(cs)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, loadRow{day: t, choices: cs})
	}
	sort.SliceStable(rows, func(a, b int) bool { return len(rows[a].choices) > len(rows[b].choices) })

	var kept []loadRow
	var sets []map[int]bool
	for _, r := range rows {
		dominated := false
		for k, set := range sets {
			if len(kept[k].choices) <= len(r.choices) {
				continue
			}
			if subset(r.choices, set) {
				dominated = true
				break
			}
		}
		if dominated {
			continue
		}
		set := make(map[int]bool, len(r.choices))
		for _, c := range r.choices {
			set[c] = true
		}
		kept = append(kept, r)
		sets = append(sets, set)
	}
	sort.Slice(kept, func(a, b int) bool { return kept[a].day < kept[b].day })
	return kept
}

func rowKey(cs []int) string {
	var b strings.Builder
	for _, c := range cs {
		fmt.Fprintf(&b, "%d,", c)
	}
	return b.String()
}

func subset(cs []int, set map[int]bool) bool {
	for _, c := range cs {
		if !set[c] {
			return false
		}
	}
	return true
}

// GreedyStarts assigns sources by decreasing quantity, each on the candidate
// that keeps the running peak lowest. It is used as the solver warm start.
func (p Problem) GreedyStarts(sources []model.DemandSource) []int {
	order := make([]int, len(sources))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sources[order[a]].QuantityPerShipment > sources[order[b]].QuantityPerShipment
	})
	load := make([]float64, model.Horizon)
	starts := make([]int, len(sources))
	for _, i := range order {
		s := sources[i]
		best, bestPeak := 0, math.Inf(1)
		for _, c := range p.choices[i] {
			if pref := s.NormalizedPreferredStart(); pref > 0 && c.start != pref {
				continue
			}
			var peak float64
			for _, t := range s.ShipmentDays(c.start) {
				peak = math.Max(peak, load[t]+s.QuantityPerShipment)
			}
			if peak < bestPeak {
				best, bestPeak = c.start, peak
			}
		}
		starts[i] = best
		for _, t := range s.ShipmentDays(best) {
			load[t] += s.QuantityPerShipment
		}
	}
	return starts
}

// StartValues converts start days into a solver assignment.
func (p Problem) StartValues(sources []model.DemandSource, starts []int) map[string]float64 {
	values := make(map[string]float64, len(p.Model.Variables))
	load := make([]float64, model.Horizon)
	for i, s := range sources {
		values[varName(i, starts[i])] = 1
		if s.QuantityPerShipment <= 0 {
			continue
		}
		for _, t := range s.ShipmentDays(starts[i]) {
			load[t] += s.QuantityPerShipment
		}
	}
	peak := peakLowerBound(sources)
	for _, l := range load {
		peak = math.Max(peak, l)
	}
	values[peakVar] = peak
	return values
}

// Decode selects, per source, the candidate with the largest primal value.
func (p Problem) Decode(values map[string]float64) ([]int, error) {
	starts := make([]int, len(p.choices))
	for i, cs := range p.choices {
		best, bestVal := 0, 0.5
		for _, c := range cs {
			if v := values[c.name]; v > bestVal {
				best, bestVal = c.start, v
			}
		}
		if best == 0 {
			return nil, fmt.Errorf("source %d has no selected start day", i)
		}
		starts[i] = best
	}
	return starts, nil
}
