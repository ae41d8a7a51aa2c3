package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"EsgPulse/internal/domain/models"
	"EsgPulse/internal/repository"
)

func linearDataset(n int) *models.TrainingData {
	data := &models.TrainingData{}
	for i := 0; i < n; i++ {
		x := float64(i)
		data.Inputs = append(data.Inputs, []float64{x, x * 2})
		data.Targets = append(data.Targets, []float64{10 + x*3})
	}
	return data
}

func denseConfig() models.ModelConfig {
	return models.ModelConfig{
		Family:       models.FamilyDenseRegressor,
		InputShape:   []int{2},
		OutputShape:  1,
		HiddenSizes:  []int{8},
		LearningRate: 0.05,
		Epochs:       100,
		BatchSize:    8,
	}
}

func TestTrainAndPredictDenseRegressor(t *testing.T) {
	e := NewEngine(nil, nil, nil, WithSeed(1))
	data := linearDataset(40)

	metrics, err := e.Train(context.Background(), "forecast", denseConfig(), data)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if metrics.Samples != 40 {
		t.Errorf("samples = %d, want 40", metrics.Samples)
	}
	if metrics.Epochs != 100 {
		t.Errorf("epochs = %d, want 100", metrics.Epochs)
	}
	if math.IsNaN(metrics.Loss) || math.IsInf(metrics.Loss, 0) {
		t.Fatalf("loss = %v", metrics.Loss)
	}

	pred, err := e.Predict("forecast", []float64{20, 40})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(pred.Values) != 1 {
		t.Fatalf("values = %v", pred.Values)
	}
	if math.IsNaN(pred.Values[0]) || math.IsInf(pred.Values[0], 0) {
		t.Fatalf("prediction = %v", pred.Values[0])
	}
	// targets span [10, 127]; a fitted model stays in the general vicinity
	if pred.Values[0] < -120 || pred.Values[0] > 260 {
		t.Errorf("prediction %v far outside target range", pred.Values[0])
	}
	if pred.Confidence < 0 || pred.Confidence > 1 {
		t.Errorf("confidence = %v outside [0,1]", pred.Confidence)
	}
}

func TestPredictUntrainedModel(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	_, err := e.Predict("missing", []float64{1})
	if !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}

func TestPredictInputWidthChecked(t *testing.T) {
	e := NewEngine(nil, nil, nil, WithSeed(1))
	if _, err := e.Train(context.Background(), "m", denseConfig(), linearDataset(20)); err != nil {
		t.Fatalf("train: %v", err)
	}
	if _, err := e.Predict("m", []float64{1, 2, 3}); err == nil {
		t.Fatal("expected width mismatch error")
	}
}

func TestSequenceFamilyNeedsHistory(t *testing.T) {
	cfg := models.ModelConfig{
		Family:      models.FamilySequenceRegressor,
		InputShape:  []int{4, 1},
		OutputShape: 1,
		Epochs:      1,
	}
	data := &models.TrainingData{}
	for i := 0; i < 5; i++ {
		data.Inputs = append(data.Inputs, []float64{1, 2, 3, 4})
		data.Targets = append(data.Targets, []float64{5})
	}
	e := NewEngine(nil, nil, nil, WithSeed(1))
	_, err := e.Train(context.Background(), "seq", cfg, data)
	if !errors.Is(err, models.ErrTrainingFailure) {
		t.Fatalf("expected ErrTrainingFailure for short history, got %v", err)
	}
}

func TestTrainCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEngine(nil, nil, nil, WithSeed(1))
	_, err := e.Train(ctx, "m", denseConfig(), linearDataset(20))
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if e.IsTrained("m") {
		t.Fatal("cancelled run must not register a model")
	}
}

func TestRetrainKeepsServingOldUntilSwap(t *testing.T) {
	e := NewEngine(nil, nil, nil, WithSeed(1))
	cfg := denseConfig()
	if _, err := e.Train(context.Background(), "m", cfg, linearDataset(20)); err != nil {
		t.Fatalf("first train: %v", err)
	}

	// a failing retrain leaves the registered model untouched
	bad := &models.TrainingData{Inputs: [][]float64{{1, 2}}, Targets: [][]float64{{1}, {2}}}
	if _, err := e.Train(context.Background(), "m", cfg, bad); err == nil {
		t.Fatal("expected training failure")
	}
	if !e.IsTrained("m") {
		t.Fatal("failed retrain must not unregister the prior model")
	}
	if _, err := e.Predict("m", []float64{5, 10}); err != nil {
		t.Fatalf("predict after failed retrain: %v", err)
	}
}

func TestDispose(t *testing.T) {
	e := NewEngine(nil, nil, nil, WithSeed(1))
	if _, err := e.Train(context.Background(), "m", denseConfig(), linearDataset(20)); err != nil {
		t.Fatalf("train: %v", err)
	}
	e.Dispose("m")
	if _, err := e.Predict("m", []float64{1, 2}); !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained after dispose, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := repository.NewFileModelStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	e := NewEngine(store, nil, nil, WithSeed(1))
	if _, err := e.Train(context.Background(), "m", denseConfig(), linearDataset(20)); err != nil {
		t.Fatalf("train: %v", err)
	}
	want, err := e.Predict("m", []float64{7, 14})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if err := e.Save(context.Background(), "m"); err != nil {
		t.Fatalf("save: %v", err)
	}

	fresh := NewEngine(store, nil, nil, WithSeed(2))
	if err := fresh.Load(context.Background(), "m"); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := fresh.Predict("m", []float64{7, 14})
	if err != nil {
		t.Fatalf("predict after load: %v", err)
	}
	if math.Abs(got.Values[0]-want.Values[0]) > 1e-9 {
		t.Fatalf("loaded model predicts %v, want %v", got.Values[0], want.Values[0])
	}
}

func TestClassifierMetrics(t *testing.T) {
	cfg := models.ModelConfig{
		Family:       models.FamilyEnsembleClassifier,
		InputShape:   []int{2},
		OutputShape:  2,
		HiddenSizes:  []int{8},
		LearningRate: 0.05,
		Epochs:       80,
		BatchSize:    8,
	}
	data := &models.TrainingData{}
	for i := 0; i < 20; i++ {
		data.Inputs = append(data.Inputs, []float64{float64(i), 0})
		if i < 10 {
			data.Targets = append(data.Targets, []float64{1, 0})
		} else {
			data.Targets = append(data.Targets, []float64{0, 1})
		}
	}
	e := NewEngine(nil, nil, nil, WithSeed(1))
	metrics, err := e.Train(context.Background(), "cls", cfg, data)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if metrics.Accuracy < 0 || metrics.Accuracy > 1 {
		t.Fatalf("accuracy = %v outside [0,1]", metrics.Accuracy)
	}
	pred, err := e.Predict("cls", []float64{1, 0})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Confidence < 0 || pred.Confidence > 1 {
		t.Fatalf("confidence = %v outside [0,1]", pred.Confidence)
	}
}
