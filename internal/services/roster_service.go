package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitts-dev/dfs-showdown/internal/models"
	"github.com/stitts-dev/dfs-showdown/internal/optimizer"
	"github.com/stitts-dev/dfs-showdown/pkg/database"
)

var (
	ErrRunNotFound  = errors.New("optimization run not found")
	ErrInvalidCSV   = errors.New("invalid roster csv")
	ErrNoLineup     = errors.New("run has no lineup")
	ErrNoResultsYet = errors.New("no results recorded for date")
)

var requiredColumns = []string{"date", "name", "salary", "fppg"}

// RosterService stores slates, actual results and optimizer runs.
type RosterService struct {
	db     *database.DB
	logger *logrus.Entry
}

func NewRosterService(db *database.DB, logger *logrus.Entry) *RosterService {
	return &RosterService{db: db, logger: logger}
}

// ListByDate returns a slate in insertion order, which is the order the
// optimizer uses to break ties.
func (s *RosterService) ListByDate(ctx context.Context, date string, activeOnly bool) ([]models.RosterEntry, error) {
	q := s.db.WithContext(ctx).Where("date = ?", date)
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var entries []models.RosterEntry
	if err := q.Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list roster for %s: %w", date, err)
	}
	return entries, nil
}

// BulkUpsert inserts entries, replacing salary and projection for players
// already on the same date.
func (s *RosterService) BulkUpsert(ctx context.Context, entries []models.RosterEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"team", "position", "salary", "fppg", "games_played", "active", "updated_at"}),
	}).Create(&entries).Error
	if err != nil {
		return fmt.Errorf("failed to upsert roster: %w", err)
	}
	return nil
}

// ImportCSV reads a roster with a header row. date, name, salary and fppg are
// required; team, position, games_played and active are optional.
func (s *RosterService) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	entries, err := ParseRosterCSV(r)
	if err != nil {
		return 0, err
	}
	if err := s.BulkUpsert(ctx, entries); err != nil {
		return 0, err
	}

	s.logger.WithField("rows", len(entries)).Info("Imported roster csv")
	return len(entries), nil
}

// ParseRosterCSV turns a roster csv into entries without touching storage.
func ParseRosterCSV(r io.Reader) ([]models.RosterEntry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidCSV, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidCSV, c)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var entries []models.RosterEntry
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCSV, line, err)
		}

		salary, err := strconv.Atoi(field(row, "salary"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad salary: %v", ErrInvalidCSV, line, err)
		}
		fppg, err := strconv.ParseFloat(field(row, "fppg"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad fppg: %v", ErrInvalidCSV, line, err)
		}
		entry := models.RosterEntry{
			Date:     field(row, "date"),
			Name:     field(row, "name"),
			Team:     field(row, "team"),
			Position: field(row, "position"),
			Salary:   salary,
			FPPG:     fppg,
			Active:   true,
		}
		if entry.Date == "" || entry.Name == "" {
			return nil, fmt.Errorf("%w: line %d: date and name are required", ErrInvalidCSV, line)
		}
		if gp := field(row, "games_played"); gp != "" {
			if entry.GamesPlayed, err = strconv.Atoi(gp); err != nil {
				return nil, fmt.Errorf("%w: line %d: bad games_played: %v", ErrInvalidCSV, line, err)
			}
		}
		if active := field(row, "active"); active != "" {
			if entry.Active, err = strconv.ParseBool(active); err != nil {
				return nil, fmt.Errorf("%w: line %d: bad active flag: %v", ErrInvalidCSV, line, err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RecordResults stores actual fantasy points, replacing earlier values.
func (s *RosterService) RecordResults(ctx context.Context, results []models.PlayerResult) error {
	if len(results) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "player_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"actual_fppg", "is_mvp", "team"}),
	}).Create(&results).Error
	if err != nil {
		return fmt.Errorf("failed to record results: %w", err)
	}
	return nil
}

func (s *RosterService) ResultsByDate(ctx context.Context, date string) ([]models.PlayerResult, error) {
	var results []models.PlayerResult
	if err := s.db.WithContext(ctx).Where("date = ?", date).Order("id ASC").Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to load results for %s: %w", date, err)
	}
	return results, nil
}

func (s *RosterService) SaveRun(ctx context.Context, run *models.OptimizationRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save optimization run: %w", err)
	}
	return nil
}

// ListRuns returns the newest runs first, filtered by date when one is given.
func (s *RosterService) ListRuns(ctx context.Context, date string, limit int) ([]models.OptimizationRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if date != "" {
		q = q.Where("date = ?", date)
	}

	var runs []models.OptimizationRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (s *RosterService) GetRun(ctx context.Context, id uuid.UUID) (*models.OptimizationRun, error) {
	var run models.OptimizationRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return &run, nil
}

type PlayerComparison struct {
	Name      string   `json:"name"`
	Premium   bool     `json:"premium"`
	Projected float64  `json:"projected"`
	Actual    *float64 `json:"actual,omitempty"`
}

// RunComparison sets a stored lineup's projection against what the players
// actually scored.
type RunComparison struct {
	RunID           uuid.UUID          `json:"run_id"`
	Date            string             `json:"date"`
	ProjectedPoints float64            `json:"projected_points"`
	ActualPoints    float64            `json:"actual_points"`
	Difference      float64            `json:"difference"`
	Missing         int                `json:"missing"`
	Players         []PlayerComparison `json:"players"`
}

// CompareWithResults scores a successful optimize run against recorded
// results. Premium players' actual points get the run's multiplier.
func (s *RosterService) CompareWithResults(ctx context.Context, id uuid.UUID) (*RunComparison, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Mode != models.RunModeOptimize || run.Status != optimizer.StatusSuccess || len(run.Result) == 0 {
		return nil, ErrNoLineup
	}

	var lineup optimizer.Lineup
	if err := json.Unmarshal(run.Result, &lineup); err != nil {
		return nil, fmt.Errorf("failed to decode stored lineup: %w", err)
	}
	var cfg optimizer.Config
	if err := json.Unmarshal(run.Config, &cfg); err != nil || cfg.PremiumMultiplier == 0 {
		cfg.PremiumMultiplier = optimizer.DefaultPremiumMultiplier
	}

	results, err := s.ResultsByDate(ctx, run.Date)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResultsYet
	}
	actual := make(map[string]float64, len(results))
	for _, r := range results {
		actual[r.PlayerName] = r.ActualFPPG
	}

	cmp := &RunComparison{
		RunID:           run.ID,
		Date:            run.Date,
		ProjectedPoints: lineup.TotalPoints,
	}
	add := func(c optimizer.Candidate, premium bool) {
		weight := 1.0
		if premium {
			weight = cfg.PremiumMultiplier
		}
		pc := PlayerComparison{Name: c.Name, Premium: premium, Projected: c.ProjectedPoints * weight}
		if v, ok := actual[c.Name]; ok {
			pts := v * weight
			pc.Actual = &pts
			cmp.ActualPoints += pts
		} else {
			cmp.Missing++
		}
		cmp.Players = append(cmp.Players, pc)
	}
	for _, c := range lineup.Premiums {
		add(c, true)
	}
	for _, c := range lineup.Standards {
		add(c, false)
	}
	cmp.Difference = cmp.ActualPoints - cmp.ProjectedPoints
	return cmp, nil
}
