package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_Scenario(t *testing.T) {
	cfg := DefaultConfig()
	result, err := Sweep(context.Background(), scenarioRoster(), cfg)
	require.NoError(t, err)
	require.Len(t, result.Entries, 10)

	for i, e := range result.Entries {
		assert.Equal(t, scenarioRoster()[i].Name, e.Premium.Name, "entries keep roster order")
		assert.Equal(t, 126, e.Combinations)
	}

	// Ohtani and Acuña cost too much at 1.5x to leave room for five others.
	assert.Equal(t, 2, result.Infeasible)
	assert.Equal(t, 8, result.Feasible)
	assert.False(t, result.Entries[2].Feasible)
	assert.NotEmpty(t, result.Entries[2].Reason)
	assert.Empty(t, result.Entries[2].Standards)
	assert.False(t, result.Entries[7].Feasible)

	trout := result.Entries[0]
	assert.True(t, trout.Feasible)
	assert.InDelta(t, 75.95, trout.TotalPoints, 1e-9)
	assert.Equal(t, 59950.0, trout.TotalCost)
	assert.Len(t, trout.Standards, 5)

	best := result.Best()
	require.NotNil(t, best)
	assert.Equal(t, "Jose Ramirez", best.Premium.Name)
	assert.InDelta(t, 76.55, best.TotalPoints, 1e-9)
}

func TestSweep_BestMatchesOptimize(t *testing.T) {
	roster := scenarioRoster()
	for _, budget := range []int{52000, 56000, 60000, 64000} {
		cfg := DefaultConfig()
		cfg.Budget = budget

		lineup, optErr := Optimize(context.Background(), roster, cfg)
		result, err := Sweep(context.Background(), roster, cfg)
		require.NoError(t, err)

		best := result.Best()
		if optErr != nil {
			assert.ErrorIs(t, optErr, ErrBudgetInfeasible)
			assert.Nil(t, best)
			assert.Equal(t, len(roster), result.Infeasible)
			continue
		}
		require.NotNil(t, best, "budget %d", budget)
		assert.InDelta(t, lineup.TotalPoints, best.TotalPoints, 1e-9, "budget %d", budget)
	}
}

func TestSweep_RequiresSinglePremium(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PremiumCount = 2
	cfg.StandardCount = 3

	_, err := Sweep(context.Background(), scenarioRoster(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSweep_InsufficientCandidates(t *testing.T) {
	_, err := Sweep(context.Background(), scenarioRoster()[:4], DefaultConfig())
	assert.ErrorIs(t, err, ErrInsufficientCandidates)
}

func TestSweep_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Sweep(ctx, scenarioRoster(), DefaultConfig())
	assert.ErrorIs(t, err, ErrSolverFailure)
}

func TestSweepResult_BestEmpty(t *testing.T) {
	var r *SweepResult
	assert.Nil(t, r.Best())
	assert.Nil(t, (&SweepResult{Entries: []SweepEntry{{Feasible: false}}}).Best())
}
