package milp

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/core/shipment"
)

func mixedCycleSources() []model.DemandSource {
	return []model.DemandSource{
		{Name: "Lyon", QuantityPerShipment: 4, CycleLengthDays: 7},
		{Name: "Lille", QuantityPerShipment: 5, CycleLengthDays: 14},
		{Name: "Nantes", QuantityPerShipment: 6, CycleLengthDays: 30},
		{Name: "Brest", QuantityPerShipment: 7, CycleLengthDays: 45},
	}
}

func TestConfig_DefaultTimeLimit(t *testing.T) {
	var c Config
	c.SetDefaults()
	if c.TimeLimitSeconds != defaultTimeLimitSeconds {
		t.Fatalf("expected default time limit, got %d", c.TimeLimitSeconds)
	}
	c = Config{TimeLimitSeconds: -1}
	c.SetDefaults()
	if c.TimeLimitSeconds != -1 {
		t.Fatalf("negative limit must disable the bound, got %d", c.TimeLimitSeconds)
	}
}

// The shipment model of a few mixed-cycle sources is too large to prove
// optimal quickly; the search must stop at the limit with the best incumbent.
func TestSolve_ShipmentModelWithinTimeLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the solver up to its time limit")
	}
	sources := mixedCycleSources()
	prob := shipment.BuildProblem(sources)
	prob.Model.Start = prob.StartValues(sources, prob.GreedyStarts(sources))
	greedy := prob.Model.Evaluate(prob.Model.Start)

	const limit = 2
	began := time.Now()
	sol, err := New(Config{TimeLimitSeconds: limit}, nil).Solve(context.Background(), prob.Model)
	took := time.Since(began)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !sol.Status.Usable() {
		t.Fatalf("expected optimal or feasible, got %s", sol.Status)
	}
	// One relaxation in flight may overrun the limit.
	if took > limit*time.Second+8*time.Second {
		t.Fatalf("search ran %s with a %ds limit", took, limit)
	}
	if sol.Objective > greedy+1e-6 {
		t.Fatalf("objective %v worse than warm start %v", sol.Objective, greedy)
	}
	starts, err := prob.Decode(sol.Values)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, s := range sources {
		if !slices.Contains(shipment.Candidates(i, s), starts[i]) {
			t.Fatalf("source %s: start %d is not a candidate", s.Name, starts[i])
		}
	}
}
