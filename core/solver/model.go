package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

func (k VarKind) String() string {
	if k == Binary {
		return "binary"
	}
	return "continuous"
}

// Op is the relation of a linear constraint.
type Op int

const (
	LE Op = iota
	EQ
	GE
)

func (o Op) String() string {
	switch o {
	case EQ:
		return "="
	case GE:
		return ">="
	default:
		return "<="
	}
}

// Variable declares a decision variable with its bounds. Upper may be +Inf.
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Constraint is Σ Terms[v]·v Op RHS.
type Constraint struct {
	Name  string
	Terms map[string]float64
	Op    Op
	RHS   float64
}

// Model is a minimisation MILP.
type Model struct {
	Name        string
	Objective   map[string]float64
	Variables   []Variable
	Constraints []Constraint
	// Start optionally holds a feasible assignment used as first incumbent.
	Start map[string]float64
}

// Status tags the outcome of a solve.
type Status string

const (
	StatusOptimal    Status = "Optimal"
	StatusFeasible   Status = "Feasible"
	StatusInfeasible Status = "Infeasible"
	StatusUnbounded  Status = "Unbounded"
	StatusNodeLimit  Status = "NodeLimit"
	StatusError      Status = "Error"
)

// Usable reports whether the solution carries an assignment that can be applied.
func (s Status) Usable() bool { return s == StatusOptimal || s == StatusFeasible }

// Solution is the solver answer for a Model.
type Solution struct {
	Status    Status
	Objective float64
	Values    map[string]float64
	Nodes     int
}

// Solver solves MILP models.
type Solver interface {
	Solve(ctx context.Context, m Model) (Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, m Model) (Solution, error)

func (f SolverFunc) Solve(ctx context.Context, m Model) (Solution, error) { return f(ctx, m) }

// ErrNoSolver is returned when no solver has been provided.
var ErrNoSolver = errors.New("solver: no solver configured")

// VariableIndex maps variable names to their position in Variables.
func (m Model) VariableIndex() map[string]int {
	idx := make(map[string]int, len(m.Variables))
	for i, v := range m.Variables {
		idx[v.Name] = i
	}
	return idx
}

// Validate checks that every referenced variable is declared and bounds are consistent.
func (m Model) Validate() error {
	idx := make(map[string]int, len(m.Variables))
	for i, v := range m.Variables {
		if v.Name == "" {
			return fmt.Errorf("variable %d has no name", i)
		}
		if _, dup := idx[v.Name]; dup {
			return fmt.Errorf("variable %s declared twice", v.Name)
		}
		if math.IsInf(v.Lower, 0) || math.IsNaN(v.Lower) {
			return fmt.Errorf("variable %s: finite lower bound required", v.Name)
		}
		if v.Upper < v.Lower {
			return fmt.Errorf("variable %s: upper bound %v below lower bound %v", v.Name, v.Upper, v.Lower)
		}
		if v.Kind == Binary && (v.Lower < 0 || v.Upper > 1) {
			return fmt.Errorf("variable %s: binary bounds must lie in [0,1]", v.Name)
		}
		idx[v.Name] = i
	}
	for name := range m.Objective {
		if _, ok := idx[name]; !ok {
			return fmt.Errorf("objective references unknown variable %s", name)
		}
	}
	for _, c := range m.Constraints {
		for name := range c.Terms {
			if _, ok := idx[name]; !ok {
				return fmt.Errorf("constraint %s references unknown variable %s", c.Name, name)
			}
		}
	}
	return nil
}

// Evaluate computes the objective of an assignment.
func (m Model) Evaluate(values map[string]float64) float64 {
	var obj float64
	for name, c := range m.Objective {
		obj += c * values[name]
	}
	return obj
}

// Feasible checks an assignment against bounds, integrality and constraints.
func (m Model) Feasible(values map[string]float64, tol float64) bool {
	for _, v := range m.Variables {
		x := values[v.Name]
		if x < v.Lower-tol || x > v.Upper+tol {
			return false
		}
		if v.Kind == Binary && math.Abs(x-math.Round(x)) > tol {
			return false
		}
	}
	for _, c := range m.Constraints {
		var lhs float64
		for name, coef := range c.Terms {
			lhs += coef * values[name]
		}
		switch c.Op {
		case LE:
			if lhs > c.RHS+tol {
				return false
			}
		case GE:
			if lhs < c.RHS-tol {
				return false
			}
		case EQ:
			if math.Abs(lhs-c.RHS) > tol {
				return false
			}
		}
	}
	return true
}

// String renders the model in an LP-file like text form for diagnostics.
func (m Model) String() string {
	var b strings.Builder
	if m.Name != "" {
		fmt.Fprintf(&b, "\\ %s\n", m.Name)
	}
	b.WriteString("Minimize\n obj: ")
	b.WriteString(formatTerms(m.Objective))
	b.WriteString("\nSubject To\n")
	for _, c := range m.Constraints {
		fmt.Fprintf(&b, " %s: %s %s %s\n", c.Name, formatTerms(c.Terms), c.Op, formatNum(c.RHS))
	}
	b.WriteString("Bounds\n")
	var bins []string
	for _, v := range m.Variables {
		if v.Kind == Binary {
			bins = append(bins, v.Name)
			if v.Lower == v.Upper {
				fmt.Fprintf(&b, " %s = %s\n", v.Name, formatNum(v.Lower))
			}
			continue
		}
		if math.IsInf(v.Upper, 1) {
			fmt.Fprintf(&b, " %s >= %s\n", v.Name, formatNum(v.Lower))
		} else {
			fmt.Fprintf(&b, " %s <= %s <= %s\n", formatNum(v.Lower), v.Name, formatNum(v.Upper))
		}
	}
	if len(bins) > 0 {
		b.WriteString("Binary\n ")
		b.WriteString(strings.Join(bins, " "))
		b.WriteString("\n")
	}
	b.WriteString("End\n")
	return b.String()
}

func formatTerms(terms map[string]float64) string {
	names := make([]string, 0, len(terms))
	for n := range terms {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, n := range names {
		c := terms[n]
		switch {
		case i == 0 && c < 0:
			b.WriteString("- ")
		case i > 0 && c < 0:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		if a := math.Abs(c); a != 1 {
			b.WriteString(formatNum(a))
			b.WriteString(" ")
		}
		b.WriteString(n)
	}
	if len(names) == 0 {
		b.WriteString("0")
	}
	return b.String()
}

func formatNum(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
