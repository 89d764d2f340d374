package optimizer

import (
	"context"
	"fmt"
	"math"
)

const (
	statusOptimal    = "optimal"
	statusInfeasible = "infeasible"
	statusNodeLimit  = "node limit reached"
	statusCanceled   = "canceled"
)

type node struct {
	fixed []int8
}

type incumbent struct {
	x     []int8
	value float64
}

// search is a depth-first branch-and-bound over the LP relaxation.
type search struct {
	pr    *problem
	cfg   Config
	best  *incumbent
	stats SolverStats
}

func newSearch(pr *problem, cfg Config) *search {
	return &search{pr: pr, cfg: cfg}
}

// seed installs a known feasible assignment as the starting incumbent.
func (s *search) seed(x []int8) {
	s.best = &incumbent{x: append([]int8(nil), x...), value: s.pr.points(x)}
}

func (s *search) run(ctx context.Context) (*incumbent, *OptimizationError) {
	root := make([]int8, 2*s.pr.n)
	for j := range root {
		root[j] = free
	}
	stack := []node{{fixed: root}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			s.stats.Status = statusCanceled
			return nil, solverFailure(statusCanceled, err.Error())
		}
		s.stats.Nodes++
		if s.stats.Nodes > s.cfg.MaxNodes {
			s.stats.Status = statusNodeLimit
			return nil, solverFailure(statusNodeLimit, fmt.Sprintf("explored %d nodes", s.cfg.MaxNodes))
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		rel := s.pr.relax(nd.fixed)
		switch rel.status {
		case relaxInfeasible:
			continue
		case relaxFallback:
			s.stats.LPFailures++
			s.cfg.Logger.WithError(rel.err).Debug("LP relaxation failed, using combinatorial bound")
		default:
			s.stats.LPSolves++
		}
		if s.prune(rel.bound) {
			continue
		}

		branchVar := -1
		if rel.status == relaxOptimal {
			branchVar = s.mostFractional(nd.fixed, rel.x)
			if branchVar < 0 {
				x := roundAssignment(rel.x)
				if s.pr.feasible(x) {
					s.offer(x)
					continue
				}
			}
		}
		if branchVar < 0 {
			branchVar = firstFree(nd.fixed)
		}
		if branchVar < 0 {
			// Fully fixed and not feasible.
			continue
		}

		// LIFO: the x=1 branch is explored first.
		stack = append(stack, s.child(nd, branchVar, 0), s.child(nd, branchVar, 1))
	}

	s.stats.Status = statusOptimal
	if s.best == nil {
		return nil, &OptimizationError{Kind: ErrBudgetInfeasible, Status: statusInfeasible}
	}
	s.stats.Objective = s.best.value
	return s.best, nil
}

func (s *search) prune(bound float64) bool {
	if s.best == nil {
		return false
	}
	return bound <= s.best.value+s.cfg.Tolerance*math.Max(1, math.Abs(s.best.value))
}

// offer replaces the incumbent only on strict improvement so the first
// optimum found is the one reported.
func (s *search) offer(x []int8) {
	value := s.pr.points(x)
	if s.best != nil && value <= s.best.value+s.cfg.Tolerance*math.Max(1, math.Abs(s.best.value)) {
		return
	}
	s.best = &incumbent{x: x, value: value}
}

func (s *search) child(parent node, j int, v int8) node {
	fixed := append([]int8(nil), parent.fixed...)
	fixed[j] = v
	if v == 1 {
		fixed[s.pr.partner(j)] = 0
	}
	return node{fixed: fixed}
}

// mostFractional picks the free variable whose LP value is closest to 0.5,
// or -1 when the relaxation is already integral.
func (s *search) mostFractional(fixed []int8, x []float64) int {
	best, bestFrac := -1, integralityTol
	for j, v := range fixed {
		if v != free {
			continue
		}
		frac := math.Abs(x[j] - math.Round(x[j]))
		if frac > bestFrac {
			best, bestFrac = j, frac
		}
	}
	return best
}

func roundAssignment(x []float64) []int8 {
	out := make([]int8, len(x))
	for j, v := range x {
		if v > 0.5 {
			out[j] = 1
		}
	}
	return out
}

func firstFree(fixed []int8) int {
	for j, v := range fixed {
		if v == free {
			return j
		}
	}
	return -1
}
