package overunder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const artifactVersion = 1

type artifact struct {
	Version      int             `json:"version"`
	Config       ModelConfig     `json:"config"`
	FeatureNames []string        `json:"feature_names"`
	Forest       *forest         `json:"forest"`
	Report       *TrainingReport `json:"report,omitempty"`
}

// Save writes the trained model to path, creating parent directories.
func (m *Model) Save(path string) error {
	m.mu.RLock()
	a := artifact{
		Version:      artifactVersion,
		Config:       m.config,
		FeatureNames: FeatureNames,
		Forest:       m.forest,
		Report:       m.report,
	}
	m.mu.RUnlock()
	if a.Forest == nil {
		return ErrModelNotTrained
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the model's state with the artifact at path.
func (m *Model) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	if a.Version != artifactVersion {
		return fmt.Errorf("unsupported model version %d", a.Version)
	}
	if !slices.Equal(a.FeatureNames, FeatureNames) {
		return fmt.Errorf("model features %v do not match %v", a.FeatureNames, FeatureNames)
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return fmt.Errorf("model artifact has no trees")
	}

	m.mu.Lock()
	m.config = a.Config
	m.forest = a.Forest
	m.report = a.Report
	m.mu.Unlock()
	return nil
}

// LoadModel reads a model artifact into a new Model.
func LoadModel(path string) (*Model, error) {
	m := NewModel(DefaultModelConfig())
	if err := m.Load(path); err != nil {
		return nil, err
	}
	return m, nil
}
