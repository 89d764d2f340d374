package optimizer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/combin"
)

const sweepCtxCheckEvery = 4096

// Sweep forces each candidate in turn into the premium role and finds the
// best standard combination for it by exhaustive enumeration. Every candidate
// gets an entry; ones that admit no lineup under budget are flagged rather
// than dropped.
func Sweep(ctx context.Context, roster []Candidate, cfg Config) (*SweepResult, error) {
	cfg = cfg.withSolverDefaults()
	if err := validate(roster, cfg); err != nil {
		return nil, err
	}
	if cfg.PremiumCount != 1 {
		return nil, &OptimizationError{
			Kind:   ErrInvalidConfig,
			Detail: fmt.Sprintf("sweep needs exactly one premium slot, got %d", cfg.PremiumCount),
		}
	}
	if len(roster) < cfg.Slots() {
		return nil, insufficientCandidates(len(roster), cfg.Slots())
	}

	result := &SweepResult{Entries: make([]SweepEntry, len(roster))}
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	workers := cfg.Workers
	if workers > len(roster) {
		workers = len(roster)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entry, err := sweepPremium(ctx, roster, i, cfg)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				result.Entries[i] = entry
			}
		}()
	}

feed:
	for i := range roster {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = solverFailure(statusCanceled, ctx.Err().Error())
	}
	if firstErr != nil {
		return nil, firstErr
	}

	for _, e := range result.Entries {
		if e.Feasible {
			result.Feasible++
		} else {
			result.Infeasible++
		}
	}
	cfg.Logger.WithFields(logrus.Fields{
		"candidates": len(roster),
		"feasible":   result.Feasible,
		"infeasible": result.Infeasible,
	}).Debug("Premium sweep complete")
	return result, nil
}

func sweepPremium(ctx context.Context, roster []Candidate, premium int, cfg Config) (SweepEntry, error) {
	entry := SweepEntry{Premium: roster[premium]}

	others := make([]int, 0, len(roster)-1)
	for i := range roster {
		if i != premium {
			others = append(others, i)
		}
	}

	premiumCost := decimal.NewFromInt(int64(roster[premium].Salary)).Mul(decimal.NewFromFloat(cfg.PremiumMultiplier))
	remaining := decimal.NewFromInt(int64(cfg.Budget)).Sub(premiumCost)
	if remaining.IsNegative() {
		entry.Reason = fmt.Sprintf("premium alone costs %s, budget is %d", premiumCost, cfg.Budget)
		return entry, nil
	}
	// Standard salaries are integral, so the floor is an exact limit.
	limit := remaining.Floor().IntPart()

	var (
		bestPoints = math.Inf(-1)
		bestCombo  []int
		combo      = make([]int, cfg.StandardCount)
	)
	gen := combin.NewCombinationGenerator(len(others), cfg.StandardCount)
	for gen.Next() {
		entry.Combinations++
		if entry.Combinations%sweepCtxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return entry, solverFailure(statusCanceled, err.Error())
			}
		}
		gen.Combination(combo)

		var salary int64
		points := 0.0
		for _, idx := range combo {
			c := roster[others[idx]]
			salary += int64(c.Salary)
			points += c.ProjectedPoints
		}
		if salary > limit {
			continue
		}
		if points > bestPoints {
			bestPoints = points
			bestCombo = append(bestCombo[:0], combo...)
		}
	}

	if bestCombo == nil {
		entry.Reason = fmt.Sprintf("no %d-player combination fits remaining budget %s", cfg.StandardCount, remaining)
		return entry, nil
	}

	entry.Feasible = true
	entry.Standards = make([]Candidate, len(bestCombo))
	for j, idx := range bestCombo {
		entry.Standards[j] = roster[others[idx]]
	}
	cost, points := LineupTotals([]Candidate{entry.Premium}, entry.Standards, cfg.PremiumMultiplier)
	entry.TotalCost = cost.InexactFloat64()
	entry.TotalPoints = points
	return entry, nil
}
