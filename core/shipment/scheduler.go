package shipment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/prodplan/core/logger"
	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/core/solver"
)

// Status tags reported in Outcome.Status.
const (
	StatusOptimal  = "optimal"
	StatusFeasible = "feasible"
	StatusSkipped  = "skipped"
	fallbackPrefix = "fallback_"
)

// Outcome describes the schedule applied to the day records.
type Outcome struct {
	Status string `json:"status"`
	// PeakDemand is -1 when the fallback spread was used.
	PeakDemand float64 `json:"peak_demand"`
	StartDays  []int   `json:"start_days"`
	Reason     string  `json:"reason,omitempty"`
	Nodes      int     `json:"nodes"`
	Variables  int     `json:"variables"`
	Rows       int     `json:"rows"`
}

// IsFallback reports whether the deterministic spread was applied.
func (o Outcome) IsFallback() bool { return strings.HasPrefix(o.Status, fallbackPrefix) }

// Scheduler picks the start day of every demand source.
type Scheduler struct {
	solver solver.Solver
	log    logger.Logger
}

// NewScheduler returns a scheduler using s. A nil solver always falls back.
func NewScheduler(s solver.Solver, log logger.Logger) *Scheduler {
	return &Scheduler{solver: s, log: logger.OrNop(log)}
}

// Schedule books the shipments of sources into days and reports how the
// start days were chosen. Solver failures never surface: they trigger the
// fallback spread.
func (s *Scheduler) Schedule(ctx context.Context, sources []model.DemandSource, days []model.DayRecord) Outcome {
	if len(sources) == 0 {
		return Outcome{Status: StatusSkipped}
	}
	prob := BuildProblem(sources)
	starts, out, err := s.solve(ctx, sources, prob)
	out.Variables = len(prob.Model.Variables)
	out.Rows = len(prob.Model.Constraints)
	if err != nil {
		s.log.Warnf("shipment solver unavailable (%v), using linear spread", err)
		return s.fallback(sources, days, out, reasonOf(err))
	}
	Apply(sources, starts, days)
	out.StartDays = starts
	out.PeakDemand = PeakDemand(days)
	s.log.Infof("shipment schedule %s: peak demand %.2f over %d sources (%d nodes)", out.Status, out.PeakDemand, len(sources), out.Nodes)
	return out
}

type fallbackError struct {
	reason string
	err    error
}

func (e *fallbackError) Error() string {
	if e.err == nil {
		return e.reason
	}
	return fmt.Sprintf("%s: %v", e.reason, e.err)
}

func (e *fallbackError) Unwrap() error { return e.err }

func reasonOf(err error) string {
	var fe *fallbackError
	if errors.As(err, &fe) {
		return fe.reason
	}
	return "solver_error"
}

func (s *Scheduler) solve(ctx context.Context, sources []model.DemandSource, prob Problem) (starts []int, out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &fallbackError{reason: "solver_panic", err: fmt.Errorf("%v", r)}
		}
	}()
	if s.solver == nil {
		return nil, out, &fallbackError{reason: "no_solver", err: solver.ErrNoSolver}
	}
	prob.Model.Start = prob.StartValues(sources, prob.GreedyStarts(sources))
	s.log.Debugw("solving shipment model", map[string]any{
		"variables":   len(prob.Model.Variables),
		"constraints": len(prob.Model.Constraints),
	})
	sol, serr := s.solver.Solve(ctx, prob.Model)
	out.Nodes = sol.Nodes
	if serr != nil {
		return nil, out, &fallbackError{reason: "solver_error", err: serr}
	}
	switch sol.Status {
	case solver.StatusOptimal:
		out.Status = StatusOptimal
	case solver.StatusFeasible:
		out.Status = StatusFeasible
	default:
		return nil, out, &fallbackError{reason: "status_" + strings.ToLower(string(sol.Status))}
	}
	starts, derr := prob.Decode(sol.Values)
	if derr != nil {
		return nil, out, &fallbackError{reason: "decode", err: derr}
	}
	return starts, out, nil
}

func (s *Scheduler) fallback(sources []model.DemandSource, days []model.DayRecord, out Outcome, reason string) Outcome {
	starts := FallbackStarts(sources)
	Apply(sources, starts, days)
	out.Status = fallbackPrefix + reason
	out.Reason = reason
	out.PeakDemand = -1
	out.StartDays = starts
	return out
}
