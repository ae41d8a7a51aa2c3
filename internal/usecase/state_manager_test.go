package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"EsgPulse/internal/domain/models"
)

// stubRegistry is an in-memory ModelRegistry for orchestration tests. Safe
// for concurrent use so parallel orchestration tests can share it.
type stubRegistry struct {
	mu       sync.Mutex
	trained  map[string]bool
	failNext bool
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{trained: make(map[string]bool)}
}

func (s *stubRegistry) Train(_ context.Context, modelID string, _ models.ModelConfig, data *models.TrainingData) (*models.ModelMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return nil, fmt.Errorf("%w: stub failure", models.ErrTrainingFailure)
	}
	s.trained[modelID] = true
	return &models.ModelMetrics{Samples: len(data.Inputs), Loss: 0.01}, nil
}

func (s *stubRegistry) Predict(modelID string, _ []float64) (*models.Prediction, error) {
	if !s.IsTrained(modelID) {
		return nil, models.ErrModelNotTrained
	}
	return &models.Prediction{Values: []float64{1}, Confidence: 0.9}, nil
}

func (s *stubRegistry) Save(_ context.Context, modelID string) error {
	if !s.IsTrained(modelID) {
		return models.ErrModelNotTrained
	}
	return nil
}

func (s *stubRegistry) Load(_ context.Context, modelID string) error {
	s.mu.Lock()
	s.trained[modelID] = true
	s.mu.Unlock()
	return nil
}

func (s *stubRegistry) Dispose(modelID string) {
	s.mu.Lock()
	delete(s.trained, modelID)
	s.mu.Unlock()
}

func (s *stubRegistry) IsTrained(modelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trained[modelID]
}

func (s *stubRegistry) DisposeAll() {
	s.mu.Lock()
	s.trained = make(map[string]bool)
	s.mu.Unlock()
}

func dataset(n int) *models.TrainingData {
	d := &models.TrainingData{}
	for i := 0; i < n; i++ {
		d.Inputs = append(d.Inputs, []float64{float64(i)})
		d.Targets = append(d.Targets, []float64{float64(i * 2)})
	}
	return d
}

func TestStateManagerGatesPredictions(t *testing.T) {
	reg := newStubRegistry()
	sm := NewStateManager(reg, nil)

	_, err := sm.Predict("m", []float64{1})
	if !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}

	if _, err := sm.Train(context.Background(), "m", models.ModelConfig{}, dataset(4)); err != nil {
		t.Fatalf("train: %v", err)
	}
	if _, err := sm.Predict("m", []float64{1}); err != nil {
		t.Fatalf("predict after train: %v", err)
	}
}

func TestStateManagerCapturesStats(t *testing.T) {
	sm := NewStateManager(newStubRegistry(), nil)
	if _, err := sm.Train(context.Background(), "m", models.ModelConfig{}, dataset(4)); err != nil {
		t.Fatalf("train: %v", err)
	}
	stats, ok := sm.Stats("m")
	if !ok {
		t.Fatal("stats missing after training")
	}
	if stats.Samples != 4 {
		t.Errorf("samples = %d, want 4", stats.Samples)
	}
	// targets 0,2,4,6
	if stats.TargetMean != 3 {
		t.Errorf("mean = %v, want 3", stats.TargetMean)
	}
	if stats.TargetStd <= 0 {
		t.Errorf("std = %v, want > 0", stats.TargetStd)
	}
}

func TestStateManagerFailedTrainLeavesNoStats(t *testing.T) {
	reg := newStubRegistry()
	reg.failNext = true
	sm := NewStateManager(reg, nil)
	if _, err := sm.Train(context.Background(), "m", models.ModelConfig{}, dataset(4)); err == nil {
		t.Fatal("expected training failure")
	}
	if _, ok := sm.Stats("m"); ok {
		t.Fatal("failed training must not record stats")
	}
}

func TestClearModels(t *testing.T) {
	reg := newStubRegistry()
	sm := NewStateManager(reg, nil)
	if _, err := sm.Train(context.Background(), "m", models.ModelConfig{}, dataset(2)); err != nil {
		t.Fatalf("train: %v", err)
	}
	sm.ClearModels()
	if sm.IsTrained("m") {
		t.Fatal("model survived ClearModels")
	}
	if _, ok := sm.Stats("m"); ok {
		t.Fatal("stats survived ClearModels")
	}
}

func TestDisposeSingleModel(t *testing.T) {
	reg := newStubRegistry()
	sm := NewStateManager(reg, nil)
	for _, id := range []string{"a", "b"} {
		if _, err := sm.Train(context.Background(), id, models.ModelConfig{}, dataset(2)); err != nil {
			t.Fatalf("train %s: %v", id, err)
		}
	}
	sm.Dispose("a")
	if sm.IsTrained("a") {
		t.Fatal("disposed model still trained")
	}
	if !sm.IsTrained("b") {
		t.Fatal("unrelated model disposed")
	}
}
