package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-showdown/internal/metrics"
	"github.com/stitts-dev/dfs-showdown/internal/models"
	"github.com/stitts-dev/dfs-showdown/internal/optimizer"
	"github.com/stitts-dev/dfs-showdown/internal/websocket"
)

var ErrNotEnoughPlayers = errors.New("not enough active players on slate")

// EventPublisher pushes realtime notifications. *websocket.Hub satisfies it.
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

type LineupSettings struct {
	Defaults   optimizer.Config
	Timeout    time.Duration
	CacheTTL   time.Duration
	MinPlayers int
}

// ConfigOverrides replaces individual parts of the default lineup shape.
type ConfigOverrides struct {
	Budget            *int     `json:"budget,omitempty"`
	PremiumMultiplier *float64 `json:"premium_multiplier,omitempty"`
	PremiumCount      *int     `json:"premium_count,omitempty"`
	StandardCount     *int     `json:"standard_count,omitempty"`
}

// OptimizeResult is a lineup plus bookkeeping about how it was produced.
type OptimizeResult struct {
	RunID    uuid.UUID         `json:"run_id"`
	Lineup   *optimizer.Lineup `json:"lineup"`
	CacheHit bool              `json:"cache_hit"`
}

type SweepOutcome struct {
	RunID    uuid.UUID              `json:"run_id"`
	Result   *optimizer.SweepResult `json:"result"`
	Best     *optimizer.SweepEntry  `json:"best,omitempty"`
	CacheHit bool                   `json:"cache_hit"`
}

// LineupService runs the optimizer for API and CLI callers, with caching,
// run history, metrics and realtime notifications around it.
type LineupService struct {
	roster    *RosterService
	cache     *CacheService
	publisher EventPublisher
	metrics   *metrics.Emitter
	settings  LineupSettings
	logger    *logrus.Entry
}

// NewLineupService wires the service. cache, publisher and emitter may be nil.
func NewLineupService(
	roster *RosterService,
	cache *CacheService,
	publisher EventPublisher,
	emitter *metrics.Emitter,
	settings LineupSettings,
	logger *logrus.Entry,
) *LineupService {
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	return &LineupService{
		roster:    roster,
		cache:     cache,
		publisher: publisher,
		metrics:   emitter,
		settings:  settings,
		logger:    logger,
	}
}

// Config applies overrides to the service defaults.
func (s *LineupService) Config(o *ConfigOverrides) optimizer.Config {
	cfg := s.settings.Defaults
	if o == nil {
		return cfg
	}
	if o.Budget != nil {
		cfg.Budget = *o.Budget
	}
	if o.PremiumMultiplier != nil {
		cfg.PremiumMultiplier = *o.PremiumMultiplier
	}
	if o.PremiumCount != nil {
		cfg.PremiumCount = *o.PremiumCount
	}
	if o.StandardCount != nil {
		cfg.StandardCount = *o.StandardCount
	}
	return cfg
}

// SlateCandidates loads the active players for a date.
func (s *LineupService) SlateCandidates(ctx context.Context, date string) ([]optimizer.Candidate, error) {
	entries, err := s.roster.ListByDate(ctx, date, true)
	if err != nil {
		return nil, err
	}
	if len(entries) < s.settings.MinPlayers {
		return nil, fmt.Errorf("%w: %s has %d, need %d", ErrNotEnoughPlayers, date, len(entries), s.settings.MinPlayers)
	}
	return models.Candidates(entries), nil
}

// OptimizeDate optimizes the stored slate for date.
func (s *LineupService) OptimizeDate(ctx context.Context, date string, o *ConfigOverrides) (*OptimizeResult, error) {
	roster, err := s.SlateCandidates(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.OptimizeRoster(ctx, date, roster, s.Config(o))
}

// OptimizeRoster optimizes an explicit roster. The lineup in the result is
// set even when err is an optimizer failure.
func (s *LineupService) OptimizeRoster(ctx context.Context, date string, roster []optimizer.Candidate, cfg optimizer.Config) (*OptimizeResult, error) {
	log := s.logger.WithFields(logrus.Fields{"mode": models.RunModeOptimize, "date": date, "candidates": len(roster)})
	key := OptimizationCacheKey(models.RunModeOptimize, roster, cfg)

	var cached OptimizeResult
	if s.lookup(ctx, key, &cached) {
		cached.CacheHit = true
		log.WithField("run_id", cached.RunID).Debug("Returning cached lineup")
		return &cached, nil
	}

	cfg.Logger = log
	runCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	start := time.Now()
	lineup, optErr := optimizer.Optimize(runCtx, roster, cfg)
	duration := time.Since(start)
	s.metrics.EmitOptimization(models.RunModeOptimize, lineup.Status, optimizer.Reason(optErr), duration, lineup.Solver.Nodes)

	run := &models.OptimizationRun{
		ID:          uuid.New(),
		Date:        date,
		Mode:        models.RunModeOptimize,
		Config:      mustJSON(cfg),
		Status:      lineup.Status,
		Reason:      optimizer.Reason(optErr),
		Message:     lineup.Message,
		Candidates:  len(roster),
		TotalCost:   decimal.NewFromFloat(lineup.TotalCost),
		TotalPoints: lineup.TotalPoints,
		Result:      mustJSON(lineup),
		DurationMs:  duration.Milliseconds(),
	}
	s.saveRun(ctx, run, log)

	result := &OptimizeResult{RunID: run.ID, Lineup: lineup}
	if optErr != nil {
		return result, optErr
	}

	s.store(ctx, key, result, log)
	if s.publisher != nil {
		s.publisher.Publish(websocket.EventOptimizationCompleted, result)
	}
	log.WithFields(logrus.Fields{
		"total_points": lineup.TotalPoints,
		"total_cost":   lineup.TotalCost,
		"duration":     duration,
	}).Info("Lineup optimized")
	return result, nil
}

// SweepDate runs the premium sweep on the stored slate for date.
func (s *LineupService) SweepDate(ctx context.Context, date string, o *ConfigOverrides) (*SweepOutcome, error) {
	roster, err := s.SlateCandidates(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.SweepRoster(ctx, date, roster, s.Config(o))
}

func (s *LineupService) SweepRoster(ctx context.Context, date string, roster []optimizer.Candidate, cfg optimizer.Config) (*SweepOutcome, error) {
	log := s.logger.WithFields(logrus.Fields{"mode": models.RunModeSweep, "date": date, "candidates": len(roster)})
	key := OptimizationCacheKey(models.RunModeSweep, roster, cfg)

	var cached SweepOutcome
	if s.lookup(ctx, key, &cached) {
		cached.CacheHit = true
		return &cached, nil
	}

	cfg.Logger = log
	runCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	start := time.Now()
	result, sweepErr := optimizer.Sweep(runCtx, roster, cfg)
	duration := time.Since(start)

	status := optimizer.StatusSuccess
	if sweepErr != nil {
		status = optimizer.StatusError
	}
	s.metrics.EmitOptimization(models.RunModeSweep, status, optimizer.Reason(sweepErr), duration, 0)

	run := &models.OptimizationRun{
		ID:         uuid.New(),
		Date:       date,
		Mode:       models.RunModeSweep,
		Config:     mustJSON(cfg),
		Status:     status,
		Reason:     optimizer.Reason(sweepErr),
		Candidates: len(roster),
		DurationMs: duration.Milliseconds(),
	}
	if sweepErr != nil {
		run.Message = sweepErr.Error()
		s.saveRun(ctx, run, log)
		return nil, sweepErr
	}

	s.metrics.EmitSweepInfeasible(result.Infeasible)
	outcome := &SweepOutcome{RunID: run.ID, Result: result, Best: result.Best()}
	if outcome.Best != nil {
		run.TotalCost = decimal.NewFromFloat(outcome.Best.TotalCost)
		run.TotalPoints = outcome.Best.TotalPoints
	}
	run.Result = mustJSON(result)
	s.saveRun(ctx, run, log)

	s.store(ctx, key, outcome, log)
	if s.publisher != nil {
		s.publisher.Publish(websocket.EventSweepCompleted, outcome)
	}
	log.WithFields(logrus.Fields{
		"feasible":   result.Feasible,
		"infeasible": result.Infeasible,
		"duration":   duration,
	}).Info("Premium sweep complete")
	return outcome, nil
}

func (s *LineupService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		s.logger.WithError(err).Warn("Optimization cache unavailable")
	}
	s.metrics.EmitCacheLookup(err == nil)
	return err == nil
}

func (s *LineupService) store(ctx context.Context, key string, value interface{}, log *logrus.Entry) {
	if s.cache == nil || s.settings.CacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.settings.CacheTTL); err != nil {
		log.WithError(err).Warn("Failed to cache optimization result")
	}
}

// saveRun records history; a storage failure never fails the optimization.
func (s *LineupService) saveRun(ctx context.Context, run *models.OptimizationRun, log *logrus.Entry) {
	if s.roster == nil {
		return
	}
	if err := s.roster.SaveRun(ctx, run); err != nil {
		log.WithError(err).Warn("Failed to record optimization run")
	}
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
