// Package milp implements solver.Solver with a depth-first branch and bound
// over the gonum simplex method.
package milp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/prodplan/core/logger"
	"github.com/kilianp07/prodplan/core/solver"
)

const (
	defaultMaxNodes         = 500
	defaultTolerance        = 1e-6
	defaultTimeLimitSeconds = 10
)

// ErrNodeLimit is reported when the search stopped before proving optimality
// and no incumbent was found.
var ErrNodeLimit = errors.New("milp: node limit reached without incumbent")

// Config tunes the branch and bound search.
type Config struct {
	MaxNodes  int     `json:"max_nodes"`
	Tolerance float64 `json:"tolerance"`
	// TimeLimitSeconds bounds the search. Zero selects the default, a
	// negative value disables the limit. The limit is checked between nodes,
	// so one relaxation in flight may overrun it.
	TimeLimitSeconds int `json:"time_limit_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxNodes <= 0 {
		c.MaxNodes = defaultMaxNodes
	}
	if c.Tolerance <= 0 {
		c.Tolerance = defaultTolerance
	}
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = defaultTimeLimitSeconds
	}
}

// Solver is a branch and bound MILP solver for binary and continuous variables.
type Solver struct {
	cfg Config
	log logger.Logger
}

// New returns a solver using cfg. A nil logger disables logging.
func New(cfg Config, log logger.Logger) *Solver {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Solver{cfg: cfg, log: log}
}

// lpSolve points to the LP routine. Tests override it to simulate failures.
var lpSolve = lp.Simplex

type node struct {
	fixed []float64 // NaN for free variables
	depth int
}

type incumbent struct {
	values []float64
	obj    float64
}

// Solve runs branch and bound on m.
func (s *Solver) Solve(ctx context.Context, m solver.Model) (sol solver.Solution, err error) {
	defer func() {
		if r := recover(); r != nil {
			sol = solver.Solution{Status: solver.StatusError}
			err = fmt.Errorf("milp: solver panic: %v", r)
		}
	}()
	if err := m.Validate(); err != nil {
		return solver.Solution{Status: solver.StatusError}, err
	}
	if s.cfg.TimeLimitSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeLimitSeconds)*time.Second)
		defer cancel()
	}

	p := newProblem(m, s.cfg.Tolerance)
	var best *incumbent
	if start, ok := p.startValues(m); ok {
		best = &incumbent{values: start, obj: p.objective(start)}
		s.log.Debugf("milp %s: warm start objective %.4f", m.Name, best.obj)
	}
	lower := p.trivialBound()
	if best != nil && best.obj <= lower+s.cfg.Tolerance {
		s.log.Debugf("milp %s: warm start matches lower bound %.4f", m.Name, lower)
		return p.solution(solver.StatusOptimal, best, 0), nil
	}

	stack := []node{{fixed: p.initialFixing()}}
	nodes := 0
	exhausted := true
	incomplete := false
	for len(stack) > 0 {
		if ctx.Err() != nil || nodes >= s.cfg.MaxNodes {
			exhausted = false
			break
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		obj, x, rerr := p.relax(n.fixed)
		if rerr != nil {
			switch {
			case errors.Is(rerr, lp.ErrInfeasible), errors.Is(rerr, errNodeInfeasible):
				continue
			case errors.Is(rerr, lp.ErrUnbounded) && n.depth == 0:
				return solver.Solution{Status: solver.StatusUnbounded, Nodes: nodes}, nil
			case n.depth == 0:
				return solver.Solution{Status: solver.StatusError, Nodes: nodes}, fmt.Errorf("milp: root relaxation: %w", rerr)
			default:
				s.log.Debugf("milp %s: node %d relaxation failed: %v", m.Name, nodes, rerr)
				incomplete = true
				continue
			}
		}
		if best != nil && obj >= best.obj-s.cfg.Tolerance {
			continue
		}
		j := p.branchVariable(x)
		if j < 0 {
			best = &incumbent{values: p.roundBinaries(x), obj: obj}
			s.log.Debugf("milp %s: incumbent %.4f at node %d", m.Name, obj, nodes)
			if obj <= lower+s.cfg.Tolerance {
				break
			}
			continue
		}
		zero := append([]float64(nil), n.fixed...)
		zero[j] = 0
		one := append([]float64(nil), n.fixed...)
		one[j] = 1
		stack = append(stack, node{fixed: zero, depth: n.depth + 1}, node{fixed: one, depth: n.depth + 1})
	}

	switch {
	case best == nil && !exhausted:
		return solver.Solution{Status: solver.StatusNodeLimit, Nodes: nodes}, ErrNodeLimit
	case best == nil:
		return solver.Solution{Status: solver.StatusInfeasible, Nodes: nodes}, nil
	case exhausted && !incomplete:
		return p.solution(solver.StatusOptimal, best, nodes), nil
	default:
		return p.solution(solver.StatusFeasible, best, nodes), nil
	}
}
