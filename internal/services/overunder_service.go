package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"

	"github.com/stitts-dev/dfs-showdown/internal/metrics"
	"github.com/stitts-dev/dfs-showdown/internal/models"
	"github.com/stitts-dev/dfs-showdown/internal/overunder"
	"github.com/stitts-dev/dfs-showdown/internal/providers"
	"github.com/stitts-dev/dfs-showdown/internal/websocket"
	"github.com/stitts-dev/dfs-showdown/pkg/database"
)

var ErrNoGameSource = errors.New("no game data source configured")

// GameSource supplies schedules and model inputs. *providers.MLBStatsClient
// satisfies it.
type GameSource interface {
	Schedule(ctx context.Context, date string) ([]providers.Game, error)
	GameFeatures(ctx context.Context, game providers.Game) (overunder.GameFeatures, error)
}

type OverUnderSettings struct {
	ModelPath string
	Model     overunder.ModelConfig
	CacheTTL  time.Duration
}

// OverUnderService owns the live model and the game_predictions table.
type OverUnderService struct {
	db        *database.DB
	source    GameSource
	cache     *CacheService
	publisher EventPublisher
	metrics   *metrics.Emitter
	settings  OverUnderSettings
	logger    *logrus.Entry

	mu    sync.RWMutex
	model *overunder.Model
}

func NewOverUnderService(
	db *database.DB,
	source GameSource,
	cache *CacheService,
	publisher EventPublisher,
	emitter *metrics.Emitter,
	settings OverUnderSettings,
	logger *logrus.Entry,
) *OverUnderService {
	return &OverUnderService{
		db:        db,
		source:    source,
		cache:     cache,
		publisher: publisher,
		metrics:   emitter,
		settings:  settings,
		logger:    logger,
		model:     overunder.NewModel(settings.Model).WithLogger(logger),
	}
}

// LoadModel replaces the live model with the artifact at the configured
// path. A missing file leaves the untrained model in place.
func (s *OverUnderService) LoadModel() error {
	if s.settings.ModelPath == "" {
		return nil
	}
	m, err := overunder.LoadModel(s.settings.ModelPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.WithField("path", s.settings.ModelPath).Info("No saved over/under model, starting untrained")
			return nil
		}
		return err
	}
	s.setModel(m.WithLogger(s.logger))
	s.logger.WithField("path", s.settings.ModelPath).Info("Loaded over/under model")
	return nil
}

func (s *OverUnderService) Model() *overunder.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (s *OverUnderService) setModel(m *overunder.Model) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
}

// TrainSynthetic fits the model on generated games.
func (s *OverUnderService) TrainSynthetic(ctx context.Context, n int, seed int64) (*overunder.TrainingReport, error) {
	return s.train(ctx, overunder.SyntheticSamples(n, seed), "synthetic")
}

// TrainFromHistory fits the model on stored predictions whose final totals
// are known.
func (s *OverUnderService) TrainFromHistory(ctx context.Context) (*overunder.TrainingReport, error) {
	var rows []models.GamePrediction
	if err := s.db.WithContext(ctx).Where("actual_total IS NOT NULL").Order("date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load training history: %w", err)
	}

	samples := make([]overunder.GameSample, 0, len(rows))
	for _, r := range rows {
		var f overunder.GameFeatures
		if err := json.Unmarshal(r.Features, &f); err != nil {
			s.logger.WithError(err).WithField("game_id", r.GameID).Warn("Skipping game with unreadable features")
			continue
		}
		samples = append(samples, overunder.GameSample{Features: f, TotalRuns: *r.ActualTotal})
	}
	return s.train(ctx, samples, "history")
}

func (s *OverUnderService) train(ctx context.Context, samples []overunder.GameSample, source string) (*overunder.TrainingReport, error) {
	log := s.logger.WithFields(logrus.Fields{"source": source, "samples": len(samples)})

	m := overunder.NewModel(s.settings.Model).WithLogger(log)
	report, err := m.Train(ctx, samples)
	if err != nil {
		s.metrics.EmitModelTraining("error")
		return nil, err
	}
	if s.settings.ModelPath != "" {
		if err := m.Save(s.settings.ModelPath); err != nil {
			s.metrics.EmitModelTraining("error")
			return nil, fmt.Errorf("failed to save model: %w", err)
		}
	}
	s.setModel(m)
	s.metrics.EmitModelTraining("success")

	if s.publisher != nil {
		s.publisher.Publish(websocket.EventModelTrained, report)
	}
	log.WithFields(logrus.Fields{
		"mae":          report.MAE,
		"baseline_mae": report.BaselineMAE,
	}).Info("Over/under model trained")
	return report, nil
}

// Predict scores caller-supplied games with the live model.
func (s *OverUnderService) Predict(features []overunder.GameFeatures) ([]overunder.Prediction, error) {
	return s.Model().PredictBatch(features)
}

// PredictGames scores every game scheduled on date and stores the results.
func (s *OverUnderService) PredictGames(ctx context.Context, date string) ([]models.GamePrediction, error) {
	if s.source == nil {
		return nil, ErrNoGameSource
	}
	model := s.Model()
	if !model.Trained() {
		return nil, overunder.ErrModelNotTrained
	}

	games, err := s.source.Schedule(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	out := make([]models.GamePrediction, 0, len(games))
	for _, g := range games {
		features, err := s.source.GameFeatures(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("failed to build features for game %d: %w", g.GamePK, err)
		}
		pred, err := model.Predict(features)
		if err != nil {
			return nil, err
		}
		row := models.GamePrediction{
			GameID:        strconv.Itoa(g.GamePK),
			Date:          date,
			HomeTeam:      g.HomeTeam,
			AwayTeam:      g.AwayTeam,
			Venue:         g.Venue,
			PredictedLine: pred.PredictedTotal,
			Confidence:    pred.Confidence,
			Features:      mustJSON(features),
		}
		if total, ok := g.TotalRuns(); ok {
			row.ActualTotal = &total
		}
		out = append(out, row)
	}

	if len(out) > 0 {
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"home_team", "away_team", "venue", "predicted_line", "confidence", "features", "updated_at"}),
		}).Create(&out).Error
		if err != nil {
			return nil, fmt.Errorf("failed to store predictions: %w", err)
		}
	}

	if s.cache != nil && s.settings.CacheTTL > 0 {
		if err := s.cache.SetWithRetry(ctx, PredictionsCacheKey(date), out, s.settings.CacheTTL, 3); err != nil {
			s.logger.WithError(err).Warn("Failed to cache predictions")
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(websocket.EventPredictionsUpdated, map[string]interface{}{"date": date, "games": len(out)})
	}
	s.logger.WithFields(logrus.Fields{"date": date, "games": len(out)}).Info("Predicted game totals")
	return out, nil
}

// GamesForDate returns cached or stored predictions for date, predicting
// them when none exist yet.
func (s *OverUnderService) GamesForDate(ctx context.Context, date string) ([]models.GamePrediction, error) {
	var out []models.GamePrediction
	if s.cache != nil {
		if err := s.cache.Get(ctx, PredictionsCacheKey(date), &out); err == nil {
			return out, nil
		}
	}

	if err := s.db.WithContext(ctx).Where("date = ?", date).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load predictions for %s: %w", date, err)
	}
	if len(out) > 0 {
		return out, nil
	}
	return s.PredictGames(ctx, date)
}

// RecordFinals copies final scores for date onto stored predictions so they
// can be used for retraining. It returns how many rows were updated.
func (s *OverUnderService) RecordFinals(ctx context.Context, date string) (int, error) {
	if s.source == nil {
		return 0, ErrNoGameSource
	}
	games, err := s.source.Schedule(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("failed to load schedule: %w", err)
	}

	updated := 0
	for _, g := range games {
		total, ok := g.TotalRuns()
		if !ok {
			continue
		}
		res := s.db.WithContext(ctx).Model(&models.GamePrediction{}).
			Where("game_id = ? AND date = ?", strconv.Itoa(g.GamePK), date).
			Update("actual_total", total)
		if res.Error != nil {
			return updated, fmt.Errorf("failed to record final for game %d: %w", g.GamePK, res.Error)
		}
		updated += int(res.RowsAffected)
	}

	if updated > 0 && s.cache != nil {
		if err := s.cache.Delete(ctx, PredictionsCacheKey(date)); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate cached predictions")
		}
	}
	return updated, nil
}
