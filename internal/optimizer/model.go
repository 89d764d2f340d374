package optimizer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	free int8 = -1

	integralityTol = 1e-6
	budgetSlack    = 1e-7
	simplexTol     = 1e-10
)

// problem is the 0/1 program for one call. Variable j < n is isPremium[j],
// variable n+i is isStandard[i].
type problem struct {
	cands  []Candidate
	n      int
	p, k   int
	mult   float64
	budget float64
	value  []float64
	cost   []float64
}

func newProblem(cands []Candidate, cfg Config) *problem {
	n := len(cands)
	pr := &problem{
		cands:  cands,
		n:      n,
		p:      cfg.PremiumCount,
		k:      cfg.StandardCount,
		mult:   cfg.PremiumMultiplier,
		budget: float64(cfg.Budget),
		value:  make([]float64, 2*n),
		cost:   make([]float64, 2*n),
	}
	for i, c := range cands {
		pr.value[i] = c.ProjectedPoints * pr.mult
		pr.cost[i] = float64(c.Salary) * pr.mult
		pr.value[n+i] = c.ProjectedPoints
		pr.cost[n+i] = float64(c.Salary)
	}
	return pr
}

func (pr *problem) isPremiumVar(j int) bool { return j < pr.n }

func (pr *problem) partner(j int) int {
	if j < pr.n {
		return j + pr.n
	}
	return j - pr.n
}

// cheapest returns the lowest weighted cost any legal lineup can have along
// with that lineup. The p+k lowest salaries always form the cheapest set; the
// premium role goes to the cheapest of them unless the multiplier discounts.
func (pr *problem) cheapest() (float64, []int8) {
	order := make([]int, pr.n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pr.cands[order[a]].Salary < pr.cands[order[b]].Salary
	})
	chosen := order[:pr.p+pr.k]
	premiums := chosen[:pr.p]
	standards := chosen[pr.p:]
	if pr.mult < 1 {
		premiums = chosen[pr.k:]
		standards = chosen[:pr.k]
	}

	x := make([]int8, 2*pr.n)
	for _, i := range premiums {
		x[i] = 1
	}
	for _, i := range standards {
		x[pr.n+i] = 1
	}
	return pr.weightedCost(x).InexactFloat64(), x
}

// weightedCost sums the selection exactly so budget comparisons are not at
// the mercy of float rounding for fractional multipliers.
func (pr *problem) weightedCost(x []int8) decimal.Decimal {
	mult := decimal.NewFromFloat(pr.mult)
	total := decimal.Zero
	for i := 0; i < pr.n; i++ {
		salary := decimal.NewFromInt(int64(pr.cands[i].Salary))
		if x[i] == 1 {
			total = total.Add(salary.Mul(mult))
		}
		if x[pr.n+i] == 1 {
			total = total.Add(salary)
		}
	}
	return total
}

func (pr *problem) points(x []int8) float64 {
	total := 0.0
	for j, v := range x {
		if v == 1 {
			total += pr.value[j]
		}
	}
	return total
}

// feasible checks a full 0/1 assignment against every constraint.
func (pr *problem) feasible(x []int8) bool {
	premiums, standards := 0, 0
	for i := 0; i < pr.n; i++ {
		if x[i] == 1 && x[pr.n+i] == 1 {
			return false
		}
		if x[i] == 1 {
			premiums++
		}
		if x[pr.n+i] == 1 {
			standards++
		}
	}
	if premiums != pr.p || standards != pr.k {
		return false
	}
	return pr.weightedCost(x).LessThanOrEqual(decimal.NewFromInt(int64(pr.budget)))
}

type relaxStatus int

const (
	relaxOptimal relaxStatus = iota
	relaxInfeasible
	relaxFallback
)

// relaxation is the outcome of the LP relaxation at one node. x covers all
// 2n variables; fixed variables carry their fixed value.
type relaxation struct {
	status relaxStatus
	bound  float64
	x      []float64
	err    error
}

// relax solves the LP relaxation of the node described by fixed. Fixed
// variables are substituted into the right-hand sides; every free variable
// sits in exactly one pair row with a slack, which bounds it by 1 and keeps
// the constraint matrix at full row rank.
func (pr *problem) relax(fixed []int8) relaxation {
	var (
		freeVars             []int
		freeP, freeS         int
		onesP, onesS         int
		fixedCost, fixedVal  float64
		freePVals, freeSVals []float64
		freePCost, freeSCost []float64
	)
	for j, v := range fixed {
		switch v {
		case 1:
			fixedCost += pr.cost[j]
			fixedVal += pr.value[j]
			if pr.isPremiumVar(j) {
				onesP++
			} else {
				onesS++
			}
		case free:
			freeVars = append(freeVars, j)
			if pr.isPremiumVar(j) {
				freeP++
				freePVals = append(freePVals, pr.value[j])
				freePCost = append(freePCost, pr.cost[j])
			} else {
				freeS++
				freeSVals = append(freeSVals, pr.value[j])
				freeSCost = append(freeSCost, pr.cost[j])
			}
		}
	}

	residP, residS := pr.p-onesP, pr.k-onesS
	residBudget := pr.budget - fixedCost
	if residP < 0 || residS < 0 || freeP < residP || freeS < residS || residBudget < -budgetSlack {
		return relaxation{status: relaxInfeasible}
	}
	for i := 0; i < pr.n; i++ {
		if fixed[i] == 1 && fixed[pr.n+i] == 1 {
			return relaxation{status: relaxInfeasible}
		}
	}
	if sumSmallest(freePCost, residP)+sumSmallest(freeSCost, residS) > residBudget+budgetSlack {
		return relaxation{status: relaxInfeasible}
	}

	x := make([]float64, 2*pr.n)
	for j, v := range fixed {
		if v == 1 {
			x[j] = 1
		}
	}
	if len(freeVars) == 0 {
		return relaxation{status: relaxOptimal, bound: fixedVal, x: x}
	}

	// Both counts are already met, so every free variable must be zero.
	if residP == 0 && residS == 0 {
		return relaxation{status: relaxOptimal, bound: fixedVal, x: x}
	}

	col := make(map[int]int, len(freeVars))
	for c, j := range freeVars {
		col[j] = c
	}

	var pairs []int
	for i := 0; i < pr.n; i++ {
		if fixed[i] == free || fixed[pr.n+i] == free {
			pairs = append(pairs, i)
		}
	}

	rows := len(pairs) + 1
	countRowP, countRowS := -1, -1
	if freeP > 0 {
		countRowP = rows
		rows++
	}
	if freeS > 0 {
		countRowS = rows
		rows++
	}
	cols := len(freeVars) + len(pairs) + 1
	if rows > cols {
		return pr.fallback(fixedVal, residP, residS, freePVals, freeSVals,
			fmt.Errorf("relaxation has %d rows for %d columns", rows, cols))
	}

	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	c := make([]float64, cols)

	for r, i := range pairs {
		b[r] = 1
		for _, j := range []int{i, pr.n + i} {
			switch fixed[j] {
			case free:
				a.Set(r, col[j], 1)
			case 1:
				b[r]--
			}
		}
		a.Set(r, len(freeVars)+r, 1)
	}
	budgetRow := len(pairs)
	for _, j := range freeVars {
		a.Set(budgetRow, col[j], pr.cost[j])
		c[col[j]] = -pr.value[j]
		if pr.isPremiumVar(j) {
			a.Set(countRowP, col[j], 1)
		} else {
			a.Set(countRowS, col[j], 1)
		}
	}
	a.Set(budgetRow, cols-1, 1)
	b[budgetRow] = math.Max(residBudget, 0)
	if countRowP >= 0 {
		b[countRowP] = float64(residP)
	}
	if countRowS >= 0 {
		b[countRowS] = float64(residS)
	}

	optF, optX, err := simplex(c, a, b)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return relaxation{status: relaxInfeasible}
		}
		return pr.fallback(fixedVal, residP, residS, freePVals, freeSVals, err)
	}
	for _, j := range freeVars {
		x[j] = optX[col[j]]
	}
	return relaxation{status: relaxOptimal, bound: fixedVal - optF, x: x}
}

// fallback bounds a node combinatorially when the LP could not be solved:
// the best residual picks per role, ignoring budget and pairing.
func (pr *problem) fallback(fixedVal float64, residP, residS int, pVals, sVals []float64, err error) relaxation {
	return relaxation{
		status: relaxFallback,
		bound:  fixedVal + sumLargest(pVals, residP) + sumLargest(sVals, residS),
		err:    err,
	}
}

func simplex(c []float64, a mat.Matrix, b []float64) (optF float64, optX []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simplex panic: %v", r)
		}
	}()
	return lp.Simplex(c, a, b, simplexTol, nil)
}

func sumSmallest(vals []float64, k int) float64 {
	if k <= 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	total := 0.0
	for _, v := range sorted[:k] {
		total += v
	}
	return total
}

func sumLargest(vals []float64, k int) float64 {
	if k <= 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	total := 0.0
	for _, v := range sorted[:k] {
		total += v
	}
	return total
}
