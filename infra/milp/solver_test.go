package milp

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/prodplan/core/solver"
)

// spreadModel assigns three sources of 5 units to one of two alternating days.
func spreadModel() solver.Model {
	m := solver.Model{Name: "spread", Objective: map[string]float64{"Z": 1}}
	day0 := map[string]float64{"Z": -1}
	day1 := map[string]float64{"Z": -1}
	for _, s := range []string{"a", "b", "c"} {
		x1, x2 := s+"_1", s+"_2"
		m.Variables = append(m.Variables,
			solver.Variable{Name: x1, Kind: solver.Binary, Upper: 1},
			solver.Variable{Name: x2, Kind: solver.Binary, Upper: 1})
		m.Constraints = append(m.Constraints, solver.Constraint{Name: "pick_" + s, Terms: map[string]float64{x1: 1, x2: 1}, Op: solver.EQ, RHS: 1})
		day0[x1] = 5
		day1[x2] = 5
	}
	m.Variables = append(m.Variables, solver.Variable{Name: "Z", Kind: solver.Continuous, Lower: 5, Upper: math.Inf(1)})
	m.Constraints = append(m.Constraints,
		solver.Constraint{Name: "day0", Terms: day0, Op: solver.LE},
		solver.Constraint{Name: "day1", Terms: day1, Op: solver.LE})
	return m
}

func TestSolve_BranchAndBound(t *testing.T) {
	s := New(Config{}, nil)
	sol, err := s.Solve(context.Background(), spreadModel())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if sol.Status != solver.StatusOptimal {
		t.Fatalf("expected optimal got %s", sol.Status)
	}
	if math.Abs(sol.Objective-10) > 1e-6 {
		t.Fatalf("expected peak 10 got %v", sol.Objective)
	}
	for _, src := range []string{"a", "b", "c"} {
		if sum := sol.Values[src+"_1"] + sol.Values[src+"_2"]; math.Abs(sum-1) > 1e-9 {
			t.Fatalf("source %s selected %v candidates", src, sum)
		}
	}
}

func TestSolve_WarmStartAtLowerBound(t *testing.T) {
	m := spreadModel()
	// Only two sources: a start with one per day already reaches the bound of 5.
	m.Variables = m.Variables[2:]
	m.Constraints = m.Constraints[1:]
	for _, c := range m.Constraints {
		delete(c.Terms, "a_1")
		delete(c.Terms, "a_2")
	}
	m.Start = map[string]float64{"b_1": 1, "c_2": 1, "Z": 5}
	called := false
	old := lpSolve
	lpSolve = func(c []float64, a mat.Matrix, b []float64, tol float64, basic []int) (float64, []float64, error) {
		called = true
		return old(c, a, b, tol, basic)
	}
	defer func() { lpSolve = old }()

	sol, err := New(Config{}, nil).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if sol.Status != solver.StatusOptimal || sol.Objective != 5 {
		t.Fatalf("unexpected solution %+v", sol)
	}
	if called {
		t.Fatal("relaxation should not run when the start meets the bound")
	}
}

func TestSolve_RootFailure(t *testing.T) {
	old := lpSolve
	lpSolve = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		return 0, nil, errors.New("boom")
	}
	defer func() { lpSolve = old }()

	sol, err := New(Config{}, nil).Solve(context.Background(), spreadModel())
	if err == nil {
		t.Fatal("expected error")
	}
	if sol.Status != solver.StatusError {
		t.Fatalf("expected error status got %s", sol.Status)
	}
}

func TestSolve_PanicRecovered(t *testing.T) {
	old := lpSolve
	lpSolve = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		panic("bad shape")
	}
	defer func() { lpSolve = old }()

	sol, err := New(Config{}, nil).Solve(context.Background(), spreadModel())
	if err == nil || sol.Status != solver.StatusError {
		t.Fatalf("expected recovered panic, got %v %v", sol.Status, err)
	}
}

func TestSolve_InfeasibleFixing(t *testing.T) {
	m := solver.Model{
		Objective: map[string]float64{"a": 1},
		Variables: []solver.Variable{
			{Name: "a", Kind: solver.Binary, Lower: 1, Upper: 1},
			{Name: "b", Kind: solver.Binary, Lower: 1, Upper: 1},
		},
		Constraints: []solver.Constraint{{Name: "c", Terms: map[string]float64{"a": 1, "b": 1}, Op: solver.LE, RHS: 1}},
	}
	sol, err := New(Config{}, nil).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if sol.Status != solver.StatusInfeasible {
		t.Fatalf("expected infeasible got %s", sol.Status)
	}
}

func TestSolve_ContinuousLP(t *testing.T) {
	m := solver.Model{
		Objective: map[string]float64{"x": 1, "y": 2},
		Variables: []solver.Variable{
			{Name: "x", Upper: 3},
			{Name: "y", Upper: math.Inf(1)},
		},
		Constraints: []solver.Constraint{{Name: "demand", Terms: map[string]float64{"x": 1, "y": 1}, Op: solver.GE, RHS: 4}},
	}
	sol, err := New(Config{}, nil).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if sol.Status != solver.StatusOptimal {
		t.Fatalf("expected optimal got %s", sol.Status)
	}
	if math.Abs(sol.Values["x"]-3) > 1e-6 || math.Abs(sol.Values["y"]-1) > 1e-6 {
		t.Fatalf("unexpected values %v", sol.Values)
	}
}

func TestSolve_NodeLimit(t *testing.T) {
	sol, err := New(Config{MaxNodes: 1}, nil).Solve(context.Background(), spreadModel())
	if !errors.Is(err, ErrNodeLimit) {
		t.Fatalf("expected node limit error got %v", err)
	}
	if sol.Status != solver.StatusNodeLimit {
		t.Fatalf("expected node limit status got %s", sol.Status)
	}
}

func TestSolve_InvalidModel(t *testing.T) {
	m := solver.Model{Objective: map[string]float64{"ghost": 1}}
	if _, err := New(Config{}, nil).Solve(context.Background(), m); err == nil {
		t.Fatal("expected validation error")
	}
}
