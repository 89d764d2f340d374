package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/dfs-showdown/internal/metrics"
	"github.com/stitts-dev/dfs-showdown/internal/models"
	"github.com/stitts-dev/dfs-showdown/internal/optimizer"
	"github.com/stitts-dev/dfs-showdown/internal/websocket"
)

type lineupFixture struct {
	svc       *LineupService
	roster    *RosterService
	publisher *fakePublisher
	registry  *prometheus.Registry
}

func newLineupFixture(t *testing.T, withCache bool) lineupFixture {
	t.Helper()
	roster := NewRosterService(newTestDB(t), testLogger())
	require.NoError(t, roster.BulkUpsert(context.Background(), slateEntries(slateDate)))

	var cache *CacheService
	if withCache {
		cache, _ = newTestCache(t)
	}
	registry := prometheus.NewRegistry()
	publisher := &fakePublisher{}
	svc := NewLineupService(roster, cache, publisher, metrics.InitMetrics(registry), LineupSettings{
		Defaults:   optimizer.DefaultConfig(),
		Timeout:    10 * time.Second,
		CacheTTL:   time.Minute,
		MinPlayers: 7,
	}, testLogger())
	return lineupFixture{svc: svc, roster: roster, publisher: publisher, registry: registry}
}

func TestLineupService_OptimizeDate(t *testing.T) {
	f := newLineupFixture(t, true)
	ctx := context.Background()

	res, err := f.svc.OptimizeDate(ctx, slateDate, nil)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	require.True(t, res.Lineup.Succeeded())
	require.NotNil(t, res.Lineup.Premium)
	assert.Equal(t, "Jose Ramirez", res.Lineup.Premium.Name)
	assert.InDelta(t, 76.55, res.Lineup.TotalPoints, 1e-9)
	assert.InDelta(t, 59950.0, res.Lineup.TotalCost, 1e-9)
	assert.Equal(t, []string{websocket.EventOptimizationCompleted}, f.publisher.types())

	stored, err := f.roster.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, optimizer.StatusSuccess, stored.Status)
	assert.Equal(t, 10, stored.Candidates)
	assert.True(t, stored.TotalCost.Equal(decimal.NewFromInt(59950)), stored.TotalCost.String())

	again, err := f.svc.OptimizeDate(ctx, slateDate, nil)
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
	assert.Equal(t, res.RunID, again.RunID)
	assert.Equal(t, res.Lineup.Premium.Name, again.Lineup.Premium.Name)

	assert.Equal(t, 1.0, counterValue(t, f.registry, "dfs_optimization_cache_lookups_total", map[string]string{"result": "hit"}))
}

func TestLineupService_BudgetOverride(t *testing.T) {
	f := newLineupFixture(t, false)
	ctx := context.Background()
	budget := 1000

	res, err := f.svc.OptimizeDate(ctx, slateDate, &ConfigOverrides{Budget: &budget})
	require.Error(t, err)
	assert.ErrorIs(t, err, optimizer.ErrBudgetInfeasible)
	require.NotNil(t, res)
	assert.Equal(t, optimizer.StatusError, res.Lineup.Status)
	assert.Nil(t, res.Lineup.Premium)
	assert.Empty(t, f.publisher.types())

	runs, err := f.roster.ListRuns(ctx, slateDate, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "budget_infeasible", runs[0].Reason)
}

func TestLineupService_NotEnoughPlayers(t *testing.T) {
	f := newLineupFixture(t, false)

	_, err := f.svc.OptimizeDate(context.Background(), "2025-07-04", nil)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = f.svc.SweepDate(context.Background(), "2025-07-04", nil)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestLineupService_OptimizeRosterInsufficient(t *testing.T) {
	f := newLineupFixture(t, false)
	roster := models.Candidates(slateEntries(slateDate))[:4]

	res, err := f.svc.OptimizeRoster(context.Background(), "", roster, optimizer.DefaultConfig())
	assert.ErrorIs(t, err, optimizer.ErrInsufficientCandidates)
	assert.Equal(t, 0, res.Lineup.Solver.Nodes)
}

func TestLineupService_SweepDate(t *testing.T) {
	f := newLineupFixture(t, true)
	ctx := context.Background()

	out, err := f.svc.SweepDate(ctx, slateDate, nil)
	require.NoError(t, err)
	require.Len(t, out.Result.Entries, 10)
	assert.Equal(t, 2, out.Result.Infeasible)
	require.NotNil(t, out.Best)
	assert.Equal(t, "Jose Ramirez", out.Best.Premium.Name)
	assert.Equal(t, []string{websocket.EventSweepCompleted}, f.publisher.types())
	assert.Equal(t, 2.0, counterValue(t, f.registry, "dfs_sweep_infeasible_total", nil))

	stored, err := f.roster.GetRun(ctx, out.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunModeSweep, stored.Mode)
	assert.InDelta(t, 76.55, stored.TotalPoints, 1e-9)

	again, err := f.svc.SweepDate(ctx, slateDate, nil)
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
}

func TestLineupService_SweepRejectsMultiplePremiums(t *testing.T) {
	f := newLineupFixture(t, false)
	two := 2

	_, err := f.svc.SweepDate(context.Background(), slateDate, &ConfigOverrides{PremiumCount: &two})
	assert.ErrorIs(t, err, optimizer.ErrInvalidConfig)
}

func TestLineupService_CompareWithResults(t *testing.T) {
	f := newLineupFixture(t, false)
	ctx := context.Background()

	res, err := f.svc.OptimizeDate(ctx, slateDate, nil)
	require.NoError(t, err)

	_, err = f.roster.CompareWithResults(ctx, res.RunID)
	assert.ErrorIs(t, err, ErrNoResultsYet)

	var results []models.PlayerResult
	for _, c := range res.Lineup.Standards[1:] {
		results = append(results, models.PlayerResult{Date: slateDate, PlayerName: c.Name, ActualFPPG: 10})
	}
	results = append(results, models.PlayerResult{Date: slateDate, PlayerName: "Jose Ramirez", ActualFPPG: 20, IsMVP: true})
	require.NoError(t, f.roster.RecordResults(ctx, results))

	cmp, err := f.roster.CompareWithResults(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp.Missing)
	assert.Len(t, cmp.Players, 6)
	assert.True(t, cmp.Players[0].Premium)
	assert.InDelta(t, 30.0+40.0, cmp.ActualPoints, 1e-9)
	assert.InDelta(t, 70.0-76.55, cmp.Difference, 1e-9)
}

func TestLineupService_Config(t *testing.T) {
	f := newLineupFixture(t, false)
	mult := 2.0
	cfg := f.svc.Config(&ConfigOverrides{PremiumMultiplier: &mult})
	assert.Equal(t, 2.0, cfg.PremiumMultiplier)
	assert.Equal(t, optimizer.DefaultBudget, cfg.Budget)
	assert.Equal(t, optimizer.DefaultConfig(), f.svc.Config(nil))
}
