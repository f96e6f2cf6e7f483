package milp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/prodplan/core/solver"
)

var errNodeInfeasible = errors.New("milp: node bounds infeasible")

// lpRow is a constraint over free columns. slack is +1 for <=, -1 for >= and
// 0 for equalities.
type lpRow struct {
	coef  map[int]float64
	slack float64
	rhs   float64
}

type row struct {
	cols []int
	coef []float64
	op   solver.Op
	rhs  float64
}

// problem is the index-addressed form of a solver.Model.
type problem struct {
	names  []string
	kind   []solver.VarKind
	lower  []float64
	upper  []float64
	cost   []float64
	rows   []row
	tol    float64
	binary []int
}

func newProblem(m solver.Model, tol float64) *problem {
	idx := m.VariableIndex()
	n := len(m.Variables)
	p := &problem{
		names: make([]string, n),
		kind:  make([]solver.VarKind, n),
		lower: make([]float64, n),
		upper: make([]float64, n),
		cost:  make([]float64, n),
		tol:   tol,
	}
	for i, v := range m.Variables {
		p.names[i] = v.Name
		p.kind[i] = v.Kind
		p.lower[i] = v.Lower
		p.upper[i] = v.Upper
		if v.Kind == solver.Binary {
			p.binary = append(p.binary, i)
		}
	}
	for name, c := range m.Objective {
		p.cost[idx[name]] = c
	}
	for _, c := range m.Constraints {
		r := row{op: c.Op, rhs: c.RHS}
		for _, v := range m.Variables {
			// iterate in declaration order so matrices are deterministic
			coef, ok := c.Terms[v.Name]
			if !ok || coef == 0 {
				continue
			}
			r.cols = append(r.cols, idx[v.Name])
			r.coef = append(r.coef, coef)
		}
		p.rows = append(p.rows, r)
	}
	return p
}

// initialFixing marks variables whose bounds collapse to a single value.
func (p *problem) initialFixing() []float64 {
	fixed := make([]float64, len(p.names))
	for i := range fixed {
		fixed[i] = math.NaN()
		if p.upper[i]-p.lower[i] <= p.tol {
			fixed[i] = p.lower[i]
		}
	}
	return fixed
}

func (p *problem) startValues(m solver.Model) ([]float64, bool) {
	if len(m.Start) == 0 {
		return nil, false
	}
	if !m.Feasible(m.Start, 1e-6) {
		return nil, false
	}
	vals := make([]float64, len(p.names))
	for i, n := range p.names {
		vals[i] = m.Start[n]
	}
	return p.roundBinaries(vals), true
}

func (p *problem) objective(x []float64) float64 {
	var obj float64
	for i, c := range p.cost {
		obj += c * x[i]
	}
	return obj
}

// trivialBound is the objective lower bound implied by variable bounds alone.
func (p *problem) trivialBound() float64 {
	var lb float64
	for i, c := range p.cost {
		switch {
		case c > 0:
			lb += c * p.lower[i]
		case c < 0:
			if math.IsInf(p.upper[i], 1) {
				return math.Inf(-1)
			}
			lb += c * p.upper[i]
		}
	}
	return lb
}

func (p *problem) branchVariable(x []float64) int {
	best, bestFrac := -1, p.tol
	for _, j := range p.binary {
		f := math.Min(x[j]-math.Floor(x[j]), math.Ceil(x[j])-x[j])
		if f > bestFrac {
			best, bestFrac = j, f
		}
	}
	return best
}

func (p *problem) roundBinaries(x []float64) []float64 {
	out := append([]float64(nil), x...)
	for _, j := range p.binary {
		out[j] = math.Round(out[j])
	}
	return out
}

func (p *problem) solution(status solver.Status, inc *incumbent, nodes int) solver.Solution {
	values := make(map[string]float64, len(p.names))
	for i, n := range p.names {
		values[n] = inc.values[i]
	}
	return solver.Solution{Status: status, Objective: inc.obj, Values: values, Nodes: nodes}
}

// relax solves the LP relaxation of the node defined by fixed. Free variables
// are shifted by their lower bound so that every column is non-negative.
//
//gocyclo:ignore
func (p *problem) relax(fixed []float64) (float64, []float64, error) {
	n := len(p.names)
	col := make([]int, n)
	var free []int
	for j := 0; j < n; j++ {
		col[j] = -1
		if math.IsNaN(fixed[j]) {
			col[j] = len(free)
			free = append(free, j)
		}
	}

	var rows []lpRow
	used := make([]bool, len(free))
	for _, r := range p.rows {
		rhs := r.rhs
		coef := make(map[int]float64, len(r.cols))
		for k, j := range r.cols {
			if col[j] < 0 {
				rhs -= r.coef[k] * fixed[j]
				continue
			}
			rhs -= r.coef[k] * p.lower[j]
			coef[col[j]] = r.coef[k]
		}
		if len(coef) == 0 {
			if !constantHolds(r.op, rhs, p.tol) {
				return 0, nil, errNodeInfeasible
			}
			continue
		}
		lr := lpRow{coef: coef, rhs: rhs}
		switch r.op {
		case solver.LE:
			lr.slack = 1
		case solver.GE:
			lr.slack = -1
		}
		for c := range coef {
			used[c] = true
		}
		rows = append(rows, lr)
	}

	// Upper bounds become rows unless a set-partition equality already implies them.
	implied := p.impliedUpper(rows, len(free))
	for c, j := range free {
		span := p.upper[j] - p.lower[j]
		if math.IsInf(span, 1) || implied[c] <= span+p.tol {
			continue
		}
		rows = append(rows, lpRow{coef: map[int]float64{c: 1}, slack: 1, rhs: span})
		used[c] = true
	}

	// Columns that appear nowhere sit at their lower bound unless that is unbounded.
	var cols []int
	colPos := make([]int, len(free))
	for c, j := range free {
		colPos[c] = -1
		if !used[c] {
			if p.cost[j] < 0 {
				return 0, nil, lp.ErrUnbounded
			}
			continue
		}
		colPos[c] = len(cols)
		cols = append(cols, c)
	}

	x := make([]float64, n)
	offset := 0.0
	for j := 0; j < n; j++ {
		if col[j] < 0 {
			x[j] = fixed[j]
		} else {
			x[j] = p.lower[j]
		}
		offset += p.cost[j] * x[j]
	}
	if len(rows) == 0 {
		return offset, x, nil
	}

	nSlack := 0
	for _, r := range rows {
		if r.slack != 0 {
			nSlack++
		}
	}
	width := len(cols) + nSlack
	if len(rows) > width {
		return 0, nil, lp.ErrSingular
	}
	a := mat.NewDense(len(rows), width, nil)
	b := make([]float64, len(rows))
	c := make([]float64, width)
	for k, fc := range cols {
		c[k] = p.cost[free[fc]]
	}
	s := len(cols)
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for fc, v := range r.coef {
			a.Set(i, colPos[fc], sign*v)
		}
		if r.slack != 0 {
			a.Set(i, s, sign*r.slack)
			s++
		}
		b[i] = sign * r.rhs
	}

	_, sol, err := lpSolve(c, a, b, p.tol, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, fc := range cols {
		j := free[fc]
		x[j] = p.lower[j] + math.Max(0, sol[k])
	}
	return p.objective(x), x, nil
}

// impliedUpper derives upper bounds on shifted columns from equality rows with
// only positive coefficients.
func (p *problem) impliedUpper(rows []lpRow, n int) []float64 {
	ub := make([]float64, n)
	for i := range ub {
		ub[i] = math.Inf(1)
	}
	for _, r := range rows {
		if r.slack != 0 {
			continue
		}
		positive := true
		for _, v := range r.coef {
			if v <= 0 {
				positive = false
				break
			}
		}
		if !positive || r.rhs < 0 {
			continue
		}
		for c, v := range r.coef {
			ub[c] = math.Min(ub[c], r.rhs/v)
		}
	}
	return ub
}

func constantHolds(op solver.Op, rhs, tol float64) bool {
	switch op {
	case solver.LE:
		return rhs >= -tol
	case solver.GE:
		return rhs <= tol
	default:
		return math.Abs(rhs) <= tol
	}
}
