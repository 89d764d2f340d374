package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/dfs-showdown/internal/models"
)

const rosterCSV = `date,name,team,position,salary,fppg,games_played
2025-06-01,Mike Trout,LAA,OF,9500,12.3,55
2025-06-01,Mookie Betts,LAD,OF,10200,13.1,58
2025-06-02,Pete Alonso,NYM,1B,8600,10.5,60
`

func TestRosterService_ImportCSV(t *testing.T) {
	svc := NewRosterService(newTestDB(t), testLogger())
	ctx := context.Background()

	n, err := svc.ImportCSV(ctx, strings.NewReader(rosterCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := svc.ListByDate(ctx, slateDate, true)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Mike Trout", entries[0].Name)
	assert.Equal(t, 9500, entries[0].Salary)
	assert.Equal(t, 55, entries[0].GamesPlayed)
	assert.True(t, entries[0].Active)

	// Re-import replaces salary and projection in place.
	_, err = svc.ImportCSV(ctx, strings.NewReader("date,name,salary,fppg,active\n2025-06-01,Mike Trout,9900,13.0,false\n"))
	require.NoError(t, err)

	active, err := svc.ListByDate(ctx, slateDate, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Mookie Betts", active[0].Name)

	all, err := svc.ListByDate(ctx, slateDate, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Mike Trout", all[0].Name)
	assert.Equal(t, 9900, all[0].Salary)
	assert.Equal(t, 13.0, all[0].FPPG)
}

func TestParseRosterCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty", ""},
		{"missing column", "date,name,salary\n2025-06-01,A,100\n"},
		{"bad salary", "date,name,salary,fppg\n2025-06-01,A,lots,1.0\n"},
		{"bad fppg", "date,name,salary,fppg\n2025-06-01,A,100,x\n"},
		{"missing name", "date,name,salary,fppg\n2025-06-01,,100,1.0\n"},
		{"bad active", "date,name,salary,fppg,active\n2025-06-01,A,100,1.0,maybe\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRosterCSV(strings.NewReader(tt.csv))
			assert.ErrorIs(t, err, ErrInvalidCSV)
		})
	}
}

func TestRosterService_Runs(t *testing.T) {
	svc := NewRosterService(newTestDB(t), testLogger())
	ctx := context.Background()

	for _, date := range []string{slateDate, slateDate, "2025-06-02"} {
		require.NoError(t, svc.SaveRun(ctx, &models.OptimizationRun{
			Date:   date,
			Mode:   models.RunModeOptimize,
			Status: "success",
		}))
	}

	runs, err := svc.ListRuns(ctx, slateDate, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.NotEqual(t, uuid.Nil, runs[0].ID)

	all, err := svc.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := svc.GetRun(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, runs[0].ID, got.ID)

	_, err = svc.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRosterService_RecordResults(t *testing.T) {
	svc := NewRosterService(newTestDB(t), testLogger())
	ctx := context.Background()

	require.NoError(t, svc.RecordResults(ctx, []models.PlayerResult{
		{Date: slateDate, PlayerName: "Mike Trout", ActualFPPG: 9},
		{Date: slateDate, PlayerName: "Pete Alonso", ActualFPPG: 21},
	}))
	require.NoError(t, svc.RecordResults(ctx, []models.PlayerResult{
		{Date: slateDate, PlayerName: "Mike Trout", ActualFPPG: 14, IsMVP: true},
	}))

	results, err := svc.ResultsByDate(ctx, slateDate)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 14.0, results[0].ActualFPPG)
	assert.True(t, results[0].IsMVP)
}
