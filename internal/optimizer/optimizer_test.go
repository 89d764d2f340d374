package optimizer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioRoster() []Candidate {
	return []Candidate{
		{Name: "Mike Trout", Salary: 9500, ProjectedPoints: 12.3, Position: "OF", Team: "LAA"},
		{Name: "Mookie Betts", Salary: 10200, ProjectedPoints: 13.1, Position: "OF", Team: "LAD"},
		{Name: "Shohei Ohtani", Salary: 11000, ProjectedPoints: 15.2, Position: "P", Team: "LAA"},
		{Name: "Freddie Freeman", Salary: 9200, ProjectedPoints: 11.8, Position: "1B", Team: "LAD"},
		{Name: "Jose Ramirez", Salary: 8700, ProjectedPoints: 10.9, Position: "3B", Team: "CLE"},
		{Name: "Vladimir Guerrero Jr.", Salary: 9000, ProjectedPoints: 11.2, Position: "1B", Team: "TOR"},
		{Name: "Trea Turner", Salary: 8800, ProjectedPoints: 10.7, Position: "SS", Team: "PHI"},
		{Name: "Ronald Acuña Jr.", Salary: 10500, ProjectedPoints: 14.0, Position: "OF", Team: "ATL"},
		{Name: "Pete Alonso", Salary: 8600, ProjectedPoints: 10.5, Position: "1B", Team: "NYM"},
		{Name: "Julio Rodriguez", Salary: 9300, ProjectedPoints: 12.0, Position: "OF", Team: "SEA"},
	}
}

// bruteForce walks every none/premium/standard assignment and returns the best
// feasible objective.
func bruteForce(roster []Candidate, cfg Config) (float64, bool) {
	best, found := math.Inf(-1), false
	var walk func(i, p, s int, cost, pts float64)
	walk = func(i, p, s int, cost, pts float64) {
		if cost > float64(cfg.Budget)+1e-9 || p > cfg.PremiumCount || s > cfg.StandardCount {
			return
		}
		if i == len(roster) {
			if p == cfg.PremiumCount && s == cfg.StandardCount && pts > best {
				best, found = pts, true
			}
			return
		}
		c := roster[i]
		walk(i+1, p, s, cost, pts)
		walk(i+1, p+1, s, cost+float64(c.Salary)*cfg.PremiumMultiplier, pts+c.ProjectedPoints*cfg.PremiumMultiplier)
		walk(i+1, p, s+1, cost+float64(c.Salary), pts+c.ProjectedPoints)
	}
	walk(0, 0, 0, 0, 0)
	return best, found
}

func assertLegalLineup(t *testing.T, lineup *Lineup, cfg Config) {
	t.Helper()
	require.True(t, lineup.Succeeded(), lineup.Message)
	assert.Len(t, lineup.Premiums, cfg.PremiumCount)
	assert.Len(t, lineup.Standards, cfg.StandardCount)

	seen := map[string]bool{}
	for _, c := range lineup.Players() {
		assert.False(t, seen[c.Key()], "%s appears twice", c.Key())
		seen[c.Key()] = true
	}

	cost, points := LineupTotals(lineup.Premiums, lineup.Standards, cfg.PremiumMultiplier)
	assert.InDelta(t, cost.InexactFloat64(), lineup.TotalCost, 1e-9)
	assert.InDelta(t, points, lineup.TotalPoints, 1e-9)
	assert.LessOrEqual(t, lineup.TotalCost, float64(cfg.Budget))
}

func TestOptimize_Scenario(t *testing.T) {
	cfg := DefaultConfig()
	lineup, err := Optimize(context.Background(), scenarioRoster(), cfg)
	require.NoError(t, err)
	assertLegalLineup(t, lineup, cfg)

	require.NotNil(t, lineup.Premium)
	assert.Equal(t, "Jose Ramirez", lineup.Premium.Name)
	names := make([]string, 0, len(lineup.Standards))
	for _, c := range lineup.Standards {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Shohei Ohtani", "Freddie Freeman", "Trea Turner", "Pete Alonso", "Julio Rodriguez"}, names)
	assert.InDelta(t, 76.55, lineup.TotalPoints, 1e-9)
	assert.Equal(t, 59950.0, lineup.TotalCost)
	assert.Equal(t, "LAA", lineup.Standards[0].Team, "metadata passes through")

	best, ok := bruteForce(scenarioRoster(), cfg)
	require.True(t, ok)
	assert.InDelta(t, best, lineup.TotalPoints, 1e-9)
	assert.Equal(t, statusOptimal, lineup.Solver.Status)
	assert.Greater(t, lineup.Solver.Nodes, 0)
}

func TestOptimize_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	configs := []Config{
		DefaultConfig(),
		{Budget: 40000, PremiumMultiplier: 2, PremiumCount: 1, StandardCount: 3},
		{Budget: 50000, PremiumMultiplier: 0.5, PremiumCount: 2, StandardCount: 3},
	}

	for trial := 0; trial < 30; trial++ {
		roster := make([]Candidate, 8)
		for i := range roster {
			roster[i] = Candidate{
				ID:              string(rune('a' + i)),
				Name:            string(rune('A' + i)),
				Salary:          3000 + 100*rng.Intn(91),
				ProjectedPoints: math.Round(rng.Float64()*200) / 10,
			}
		}
		cfg := configs[trial%len(configs)]
		cfg.Budget -= 500 * rng.Intn(20)

		want, ok := bruteForce(roster, cfg)
		lineup, err := Optimize(context.Background(), roster, cfg)
		if !ok {
			assert.ErrorIs(t, err, ErrBudgetInfeasible, "trial %d", trial)
			continue
		}
		require.NoError(t, err, "trial %d", trial)
		assertLegalLineup(t, lineup, cfg)
		assert.InDelta(t, want, lineup.TotalPoints, 1e-6, "trial %d", trial)
	}
}

func TestOptimize_BudgetInfeasible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget = 1000

	lineup, err := Optimize(context.Background(), scenarioRoster(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBudgetInfeasible)

	var oe *OptimizationError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, 57900.0, oe.CheapestCost)
	assert.Contains(t, oe.Error(), "57900")

	assert.Equal(t, StatusError, lineup.Status)
	assert.Nil(t, lineup.Premium)
	assert.Empty(t, lineup.Standards)
	assert.NotEmpty(t, lineup.Message)
}

func TestOptimize_InsufficientCandidates(t *testing.T) {
	roster := scenarioRoster()[:5]
	lineup, err := Optimize(context.Background(), roster, DefaultConfig())

	assert.ErrorIs(t, err, ErrInsufficientCandidates)
	assert.Equal(t, StatusError, lineup.Status)
	assert.Zero(t, lineup.Solver.Nodes, "solver must not run")
	assert.Contains(t, lineup.Message, "insufficient candidates")
}

func TestOptimize_ExactlySixCandidates(t *testing.T) {
	roster := scenarioRoster()[3:9]
	cfg := DefaultConfig()
	lineup, err := Optimize(context.Background(), roster, cfg)
	require.NoError(t, err)
	assertLegalLineup(t, lineup, cfg)

	best, ok := bruteForce(roster, cfg)
	require.True(t, ok)
	assert.InDelta(t, best, lineup.TotalPoints, 1e-9)
}

func TestOptimize_DegenerateCandidates(t *testing.T) {
	roster := []Candidate{
		{Name: "free", Salary: 0, ProjectedPoints: 0},
		{Name: "negative", Salary: 0, ProjectedPoints: -3},
		{Name: "a", Salary: 5000, ProjectedPoints: 4},
		{Name: "b", Salary: 5000, ProjectedPoints: -1},
		{Name: "c", Salary: 7000, ProjectedPoints: 6},
		{Name: "d", Salary: 0, ProjectedPoints: 2},
		{Name: "e", Salary: 12000, ProjectedPoints: 9},
	}
	cfg := DefaultConfig()
	cfg.Budget = 20000

	lineup, err := Optimize(context.Background(), roster, cfg)
	require.NoError(t, err)
	assertLegalLineup(t, lineup, cfg)

	best, ok := bruteForce(roster, cfg)
	require.True(t, ok)
	assert.InDelta(t, best, lineup.TotalPoints, 1e-9)
}

func TestOptimize_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		roster []Candidate
		mutate func(*Config)
		want   error
	}{
		{
			name:   "negative standard count",
			roster: scenarioRoster(),
			mutate: func(c *Config) { c.StandardCount = -1 },
			want:   ErrInvalidConfig,
		},
		{
			name:   "zero multiplier",
			roster: scenarioRoster(),
			mutate: func(c *Config) { c.PremiumMultiplier = 0 },
			want:   ErrInvalidConfig,
		},
		{
			name:   "negative budget",
			roster: scenarioRoster(),
			mutate: func(c *Config) { c.Budget = -1 },
			want:   ErrInvalidConfig,
		},
		{
			name:   "negative salary",
			roster: append(scenarioRoster(), Candidate{Name: "bad", Salary: -5}),
			mutate: func(*Config) {},
			want:   ErrInvalidCandidate,
		},
		{
			name:   "duplicate name",
			roster: append(scenarioRoster(), Candidate{Name: "Mike Trout", Salary: 100}),
			mutate: func(*Config) {},
			want:   ErrDuplicateCandidate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			lineup, err := Optimize(context.Background(), tt.roster, cfg)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, StatusError, lineup.Status)
		})
	}
}

func TestOptimize_NodeLimit(t *testing.T) {
	// The relaxation splits the expensive player in half, so the root node
	// always branches.
	roster := []Candidate{
		{Name: "expensive", Salary: 10, ProjectedPoints: 10},
		{Name: "cheap", Salary: 0, ProjectedPoints: 1},
	}
	cfg := Config{Budget: 5, PremiumMultiplier: 1.5, PremiumCount: 0, StandardCount: 1, MaxNodes: 1}

	lineup, err := Optimize(context.Background(), roster, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSolverFailure)

	var oe *OptimizationError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, statusNodeLimit, oe.Status)
	assert.Equal(t, StatusError, lineup.Status)

	cfg.MaxNodes = 0
	lineup, err = Optimize(context.Background(), roster, cfg)
	require.NoError(t, err)
	assert.Equal(t, "cheap", lineup.Standards[0].Name)
}

func TestOptimize_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Optimize(ctx, scenarioRoster(), DefaultConfig())
	assert.ErrorIs(t, err, ErrSolverFailure)
	assert.Contains(t, err.Error(), statusCanceled)
}

func TestOptimize_DoesNotMutateRoster(t *testing.T) {
	roster := scenarioRoster()
	before := append([]Candidate(nil), roster...)
	_, err := Optimize(context.Background(), roster, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, before, roster)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "none", Reason(nil))
	assert.Equal(t, "budget_infeasible", Reason(budgetInfeasible(1, 0)))
	assert.Equal(t, "insufficient_candidates", Reason(insufficientCandidates(1, 6)))
	assert.Equal(t, "solver_failure", Reason(solverFailure(statusNodeLimit, "")))
	assert.Equal(t, "unknown", Reason(errors.New("boom")))
}
