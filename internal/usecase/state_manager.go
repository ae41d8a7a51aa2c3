package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"EsgPulse/internal/domain/models"
	"EsgPulse/internal/domain/service"
	applogger "EsgPulse/pkg/logger"

	"gonum.org/v1/gonum/stat"
)

// ModelRegistry extends the trainer with registry introspection.
type ModelRegistry interface {
	service.Trainer
	IsTrained(modelID string) bool
	DisposeAll()
}

// TrainingStats summarizes the dataset a model was last trained on.
type TrainingStats struct {
	Samples    int
	TargetMean float64
	TargetStd  float64
	TrainedAt  time.Time
}

// StateManager tracks which models are trained and gates every prediction
// on that state. Prediction against an untrained id fails fast instead of
// reaching the network.
type StateManager struct {
	mu       sync.RWMutex
	stats    map[string]TrainingStats
	registry ModelRegistry
	l        *applogger.Logger
}

func NewStateManager(registry ModelRegistry, l *applogger.Logger) *StateManager {
	return &StateManager{
		stats:    make(map[string]TrainingStats),
		registry: registry,
		l:        l,
	}
}

// Train delegates to the registry and, on success, captures the dataset
// statistics for the model.
func (m *StateManager) Train(ctx context.Context, modelID string, cfg models.ModelConfig, data *models.TrainingData) (*models.ModelMetrics, error) {
	metrics, err := m.registry.Train(ctx, modelID, cfg, data)
	if err != nil {
		return nil, err
	}

	mean, std := targetStats(data)
	m.mu.Lock()
	m.stats[modelID] = TrainingStats{
		Samples:    len(data.Inputs),
		TargetMean: mean,
		TargetStd:  std,
		TrainedAt:  time.Now(),
	}
	m.mu.Unlock()
	return metrics, nil
}

// Predict refuses untrained model ids before touching the registry.
func (m *StateManager) Predict(modelID string, input []float64) (*models.Prediction, error) {
	if !m.registry.IsTrained(modelID) {
		return nil, fmt.Errorf("%s: %w", modelID, models.ErrModelNotTrained)
	}
	return m.registry.Predict(modelID, input)
}

// IsTrained reports whether modelID currently has a usable model.
func (m *StateManager) IsTrained(modelID string) bool {
	return m.registry.IsTrained(modelID)
}

// Stats returns the captured dataset statistics for a trained model.
func (m *StateManager) Stats(modelID string) (TrainingStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[modelID]
	return s, ok
}

// Save persists a trained model's snapshot.
func (m *StateManager) Save(ctx context.Context, modelID string) error {
	return m.registry.Save(ctx, modelID)
}

// Load restores a snapshot and marks the id trained via the registry.
func (m *StateManager) Load(ctx context.Context, modelID string) error {
	return m.registry.Load(ctx, modelID)
}

// Dispose removes one model and its captured statistics.
func (m *StateManager) Dispose(modelID string) {
	m.registry.Dispose(modelID)
	m.mu.Lock()
	delete(m.stats, modelID)
	m.mu.Unlock()
}

// ClearModels disposes every model and drops the captured statistics.
func (m *StateManager) ClearModels() {
	m.registry.DisposeAll()
	m.mu.Lock()
	m.stats = make(map[string]TrainingStats)
	m.mu.Unlock()
	if m.l != nil {
		m.l.Info("model registry cleared")
	}
}

// targetStats flattens all target values into one population.
func targetStats(data *models.TrainingData) (mean, std float64) {
	var vals []float64
	for _, row := range data.Targets {
		vals = append(vals, row...)
	}
	if len(vals) == 0 {
		return 0, 0
	}
	mean = stat.Mean(vals, nil)
	std = stat.PopStdDev(vals, nil)
	return mean, std
}
