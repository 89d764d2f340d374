package overunder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrModelNotTrained  = errors.New("over/under model not trained")
	ErrNotEnoughSamples = errors.New("not enough samples to train")
)

const minTrainingSamples = 10

// ModelConfig defines the forest shape and the evaluation split.
type ModelConfig struct {
	Trees           int     `json:"trees"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MaxFeatures     int     `json:"max_features"`
	TestFraction    float64 `json:"test_fraction"`
	Seed            int64   `json:"seed"`
}

// DefaultModelConfig mirrors the production forest: 100 trees of depth 10.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		MaxFeatures:     3,
		TestFraction:    0.2,
		Seed:            42,
	}
}

// TrainingReport summarises one training run, scored on the held-out split.
type TrainingReport struct {
	TrainSamples       int                `json:"train_samples"`
	TestSamples        int                `json:"test_samples"`
	MAE                float64            `json:"mae"`
	RMSE               float64            `json:"rmse"`
	BaselineMAE        float64            `json:"baseline_mae"`
	FeatureImportances map[string]float64 `json:"feature_importances"`
	TrainedAt          time.Time          `json:"trained_at"`
	Duration           time.Duration      `json:"duration"`
}

// Prediction is the projected combined run total for one game.
type Prediction struct {
	PredictedTotal float64 `json:"predicted_total"`
	RawTotal       float64 `json:"raw_total"`
	Confidence     float64 `json:"confidence"`
}

// Model is a random-forest regressor over GameFeatures. It is safe for
// concurrent use; Train swaps the forest atomically.
type Model struct {
	mu     sync.RWMutex
	config ModelConfig
	forest *forest
	report *TrainingReport
	logger *logrus.Entry
}

// NewModel returns an untrained model. Zero fields in cfg take defaults.
func NewModel(cfg ModelConfig) *Model {
	def := DefaultModelConfig()
	if cfg.Trees <= 0 {
		cfg.Trees = def.Trees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = def.MinSamplesSplit
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = def.MaxFeatures
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = def.TestFraction
	}
	return &Model{
		config: cfg,
		logger: logrus.NewEntry(logrus.StandardLogger()).WithField("component", "over_under_model"),
	}
}

// WithLogger sets the entry used for training logs.
func (m *Model) WithLogger(entry *logrus.Entry) *Model {
	m.logger = entry
	return m
}

// Config returns the model configuration.
func (m *Model) Config() ModelConfig {
	return m.config
}

// Trained reports whether the model can predict.
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.forest != nil
}

// Report returns the last training report, if any.
func (m *Model) Report() *TrainingReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report
}

// Train fits a fresh forest on a shuffled split of samples and scores it on
// the held-out part.
func (m *Model) Train(ctx context.Context, samples []GameSample) (*TrainingReport, error) {
	if len(samples) < minTrainingSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughSamples, len(samples), minTrainingSamples)
	}
	for i, s := range samples {
		if math.IsNaN(s.TotalRuns) || math.IsInf(s.TotalRuns, 0) {
			return nil, fmt.Errorf("sample %d has non-finite total runs", i)
		}
	}
	start := time.Now()

	rng := rand.New(rand.NewSource(m.config.Seed))
	order := rng.Perm(len(samples))
	testN := int(math.Ceil(float64(len(samples)) * m.config.TestFraction))
	trainIdx, testIdx := order[testN:], order[:testN]

	trainX, trainY := matrix(samples, trainIdx)
	testX, testY := matrix(samples, testIdx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := fitForest(trainX, trainY, m.config)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trainMean := stat.Mean(trainY, nil)
	var absErr, sqErr, baseErr float64
	for i, x := range testX {
		pred := stat.Mean(f.predictTrees(x), nil)
		diff := pred - testY[i]
		absErr += math.Abs(diff)
		sqErr += diff * diff
		baseErr += math.Abs(trainMean - testY[i])
	}
	n := float64(len(testX))

	report := &TrainingReport{
		TrainSamples:       len(trainX),
		TestSamples:        len(testX),
		MAE:                absErr / n,
		RMSE:               math.Sqrt(sqErr / n),
		BaselineMAE:        baseErr / n,
		FeatureImportances: make(map[string]float64, len(FeatureNames)),
		TrainedAt:          time.Now().UTC(),
		Duration:           time.Since(start),
	}
	for i, name := range FeatureNames {
		report.FeatureImportances[name] = f.Importances[i]
	}

	m.mu.Lock()
	m.forest = f
	m.report = report
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"train_samples": report.TrainSamples,
		"test_samples":  report.TestSamples,
		"mae":           report.MAE,
		"rmse":          report.RMSE,
		"duration_ms":   report.Duration.Milliseconds(),
	}).Info("Over/under model trained")
	return report, nil
}

// Predict projects the total runs for one game.
func (m *Model) Predict(features GameFeatures) (Prediction, error) {
	m.mu.RLock()
	f := m.forest
	m.mu.RUnlock()
	if f == nil {
		return Prediction{}, ErrModelNotTrained
	}

	perTree := f.predictTrees(features.Vector())
	raw := stat.Mean(perTree, nil)
	return Prediction{
		PredictedTotal: math.Round(raw*10) / 10,
		RawTotal:       raw,
		Confidence:     confidence(perTree),
	}, nil
}

// PredictBatch predicts every game; it fails as a whole only when the model
// is untrained.
func (m *Model) PredictBatch(features []GameFeatures) ([]Prediction, error) {
	out := make([]Prediction, len(features))
	for i, f := range features {
		p, err := m.Predict(f)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func matrix(samples []GameSample, idx []int) ([][]float64, []float64) {
	x := make([][]float64, len(idx))
	y := make([]float64, len(idx))
	for i, j := range idx {
		x[i] = samples[j].Features.Vector()
		y[i] = samples[j].TotalRuns
	}
	return x, y
}
