package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/dfs-showdown/internal/providers"
)

func TestScheduler_StartStop(t *testing.T) {
	svc, _ := newOverUnderFixture(t, &fakeGameSource{})
	s := NewScheduler(svc, "0 6 * * *", "0 15 * * *", testLogger())

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start is rejected")

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, "scheduled", j.Status)
		assert.False(t, j.NextRun.IsZero())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	s.Stop(ctx)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	svc, _ := newOverUnderFixture(t, &fakeGameSource{})
	s := NewScheduler(svc, "every morning", "", testLogger())
	assert.Error(t, s.Start())
}

func TestScheduler_Retrain(t *testing.T) {
	source := &fakeGameSource{games: map[string][]providers.Game{slateDate: scheduledGames()}}
	svc, _ := newOverUnderFixture(t, source)
	ctx := context.Background()

	s := NewScheduler(svc, "0 6 * * *", "0 15 * * *", testLogger())
	s.now = func() time.Time { return time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC) }

	// Untrained model: predicting is skipped, not failed.
	require.NoError(t, s.PredictToday(ctx))

	_, err := svc.TrainSynthetic(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, s.PredictToday(ctx))

	source.games[slateDate] = finalGames()
	s.now = func() time.Time { return time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC) }
	// One finished game is too little history, so the current model stays.
	before := svc.Model()
	require.NoError(t, s.Retrain(ctx))
	assert.Same(t, before, svc.Model())

	stored, err := svc.GamesForDate(ctx, slateDate)
	require.NoError(t, err)
	require.NotNil(t, stored[0].ActualTotal)
}

func TestScheduler_RunJobRecordsFailure(t *testing.T) {
	svc, _ := newOverUnderFixture(t, &fakeGameSource{})
	s := NewScheduler(svc, "0 6 * * *", "", testLogger())
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	s.runJob(jobRetrain, func(ctx context.Context) error { panic("boom") })

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "failed", jobs[0].Status)
	assert.Equal(t, 1, jobs[0].ErrorCount)
	assert.Contains(t, jobs[0].LastError, "boom")
}
