package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Optimize picks the highest projected lineup: PremiumCount candidates in the
// premium role (salary and points scaled by PremiumMultiplier) plus
// StandardCount others, with total weighted salary within Budget.
//
// The returned lineup is never nil. When err is non-nil the lineup has
// Status "error", a Message describing the failure and no roles filled.
func Optimize(ctx context.Context, roster []Candidate, cfg Config) (*Lineup, error) {
	start := time.Now()
	cfg = cfg.withSolverDefaults()
	log := cfg.Logger.WithFields(logrus.Fields{
		"candidates": len(roster),
		"budget":     cfg.Budget,
		"premium":    cfg.PremiumCount,
		"standard":   cfg.StandardCount,
	})

	if err := validate(roster, cfg); err != nil {
		return failed(err, SolverStats{}), err
	}
	if len(roster) < cfg.Slots() {
		err := insufficientCandidates(len(roster), cfg.Slots())
		return failed(err, SolverStats{}), err
	}

	pr := newProblem(roster, cfg)
	cheapestCost, cheapestX := pr.cheapest()
	if !pr.feasible(cheapestX) {
		err := budgetInfeasible(cheapestCost, cfg.Budget)
		log.WithField("cheapest_cost", cheapestCost).Info("No lineup fits budget")
		return failed(err, SolverStats{Status: statusInfeasible}), err
	}

	s := newSearch(pr, cfg)
	s.seed(cheapestX)
	best, serr := s.run(ctx)
	s.stats.DurationMs = time.Since(start).Milliseconds()
	if serr != nil {
		log.WithError(serr).WithField("nodes", s.stats.Nodes).Warn("Lineup optimization failed")
		return failed(serr, s.stats), serr
	}

	lineup, err := extract(pr, best, s.stats)
	if err != nil {
		log.WithError(err).Error("Lineup extraction failed")
		return failed(err, s.stats), err
	}

	log.WithFields(logrus.Fields{
		"total_points": lineup.TotalPoints,
		"total_cost":   lineup.TotalCost,
		"nodes":        s.stats.Nodes,
		"duration_ms":  s.stats.DurationMs,
	}).Debug("Lineup optimized")
	return lineup, nil
}

func validate(roster []Candidate, cfg Config) error {
	switch {
	case cfg.PremiumCount < 0 || cfg.StandardCount < 0:
		return &OptimizationError{Kind: ErrInvalidConfig, Detail: "role counts must not be negative"}
	case cfg.Slots() == 0:
		return &OptimizationError{Kind: ErrInvalidConfig, Detail: "lineup must have at least one slot"}
	case !(cfg.PremiumMultiplier > 0) || math.IsInf(cfg.PremiumMultiplier, 0):
		return &OptimizationError{Kind: ErrInvalidConfig, Detail: fmt.Sprintf("premium multiplier must be positive, got %v", cfg.PremiumMultiplier)}
	case cfg.Budget < 0:
		return &OptimizationError{Kind: ErrInvalidConfig, Detail: fmt.Sprintf("budget must not be negative, got %d", cfg.Budget)}
	}

	seen := make(map[string]int, len(roster))
	for i, c := range roster {
		if c.Salary < 0 {
			return &OptimizationError{Kind: ErrInvalidCandidate, Detail: fmt.Sprintf("%s has negative salary %d", c.Key(), c.Salary)}
		}
		if math.IsNaN(c.ProjectedPoints) || math.IsInf(c.ProjectedPoints, 0) {
			return &OptimizationError{Kind: ErrInvalidCandidate, Detail: fmt.Sprintf("%s has non-finite projection", c.Key())}
		}
		if prev, ok := seen[c.Key()]; ok {
			return &OptimizationError{Kind: ErrDuplicateCandidate, Detail: fmt.Sprintf("%q appears at positions %d and %d", c.Key(), prev, i)}
		}
		seen[c.Key()] = i
	}
	return nil
}

func extract(pr *problem, best *incumbent, stats SolverStats) (*Lineup, error) {
	lineup := &Lineup{
		Status:    StatusSuccess,
		Premiums:  make([]Candidate, 0, pr.p),
		Standards: make([]Candidate, 0, pr.k),
		Solver:    stats,
	}
	for i := 0; i < pr.n; i++ {
		if best.x[i] == 1 {
			lineup.Premiums = append(lineup.Premiums, pr.cands[i])
		}
	}
	for i := 0; i < pr.n; i++ {
		if best.x[pr.n+i] == 1 {
			lineup.Standards = append(lineup.Standards, pr.cands[i])
		}
	}
	if len(lineup.Premiums) > 0 {
		p := lineup.Premiums[0]
		lineup.Premium = &p
	}

	cost, points := LineupTotals(lineup.Premiums, lineup.Standards, pr.mult)
	lineup.TotalCost = cost.InexactFloat64()
	lineup.TotalPoints = points

	if cost.GreaterThan(decimal.NewFromInt(int64(pr.budget))) {
		return nil, solverFailure("budget violated", fmt.Sprintf("selected lineup costs %s", cost))
	}
	if math.Abs(points-best.value) > 1e-6*math.Max(1, math.Abs(best.value)) {
		return nil, solverFailure("objective mismatch",
			fmt.Sprintf("re-summed %.6f, solver reported %.6f", points, best.value))
	}
	return lineup, nil
}

// LineupTotals re-sums a lineup with the weighted formula. Cost is exact.
func LineupTotals(premiums, standards []Candidate, multiplier float64) (decimal.Decimal, float64) {
	mult := decimal.NewFromFloat(multiplier)
	cost := decimal.Zero
	points := 0.0
	for _, c := range premiums {
		cost = cost.Add(decimal.NewFromInt(int64(c.Salary)).Mul(mult))
		points += c.ProjectedPoints * multiplier
	}
	for _, c := range standards {
		cost = cost.Add(decimal.NewFromInt(int64(c.Salary)))
		points += c.ProjectedPoints
	}
	return cost, points
}

func failed(err error, stats SolverStats) *Lineup {
	return &Lineup{
		Status:  StatusError,
		Message: err.Error(),
		Solver:  stats,
	}
}

// Reason maps an optimizer error to a short label for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInsufficientCandidates):
		return "insufficient_candidates"
	case errors.Is(err, ErrBudgetInfeasible):
		return "budget_infeasible"
	case errors.Is(err, ErrSolverFailure):
		return "solver_failure"
	case errors.Is(err, ErrDuplicateCandidate):
		return "duplicate_candidate"
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidCandidate):
		return "invalid_input"
	default:
		return "unknown"
	}
}
