package anomaly

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"EsgPulse/internal/domain/models"
	"EsgPulse/internal/services/model"
)

func testEnsemble(t *testing.T) *Ensemble {
	t.Helper()
	engine := model.NewEngine(nil, nil, nil, model.WithSeed(1))
	e, err := NewEnsemble(Config{
		NEstimators: 25,
		SampleSize:  64,
		HiddenSizes: []int{4},
		Epochs:      10,
		Seed:        1,
	}, engine, nil, nil)
	if err != nil {
		t.Fatalf("new ensemble: %v", err)
	}
	return e
}

func clusteredData(n int, rng *rand.Rand) [][]float64 {
	data := make([][]float64, n)
	for i := range data {
		data[i] = []float64{
			0.5 + rng.NormFloat64()*0.05,
			0.5 + rng.NormFloat64()*0.05,
		}
	}
	return data
}

func TestDetectBeforeFit(t *testing.T) {
	e := testEnsemble(t)
	_, err := e.DetectAnomalies([][]float64{{0.5, 0.5}})
	if !errors.Is(err, models.ErrDetectorNotFitted) {
		t.Fatalf("expected ErrDetectorNotFitted, got %v", err)
	}
}

func TestFitEmptyData(t *testing.T) {
	e := testEnsemble(t)
	if err := e.Fit(context.Background(), nil); !errors.Is(err, models.ErrTrainingFailure) {
		t.Fatalf("expected ErrTrainingFailure, got %v", err)
	}
}

func TestScoresBounded(t *testing.T) {
	e := testEnsemble(t)
	rng := rand.New(rand.NewSource(7))
	if err := e.Fit(context.Background(), clusteredData(120, rng)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	results, err := e.DetectAnomalies([][]float64{
		{0.5, 0.5},
		{0.48, 0.53},
		{8, -8},
	})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	for i, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score[%d] = %v outside [0,1]", i, r.Score)
		}
		if r.Method != models.MethodEnsemble {
			t.Errorf("method[%d] = %s", i, r.Method)
		}
	}
}

func TestOutlierScoresAboveInliers(t *testing.T) {
	e := testEnsemble(t)
	rng := rand.New(rand.NewSource(7))
	if err := e.Fit(context.Background(), clusteredData(120, rng)); err != nil {
		t.Fatalf("fit: %v", err)
	}

	results, err := e.DetectAnomalies([][]float64{
		{0.5, 0.5}, // center of the fitted cluster
		{12, -12},  // far outside it
	})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	inlier, outlier := results[0], results[1]
	if outlier.Score <= inlier.Score {
		t.Fatalf("outlier score %v not above inlier score %v", outlier.Score, inlier.Score)
	}
	if !outlier.IsAnomaly {
		t.Errorf("far outlier not flagged, score %v", outlier.Score)
	}
}

func TestDetectRejectsWidthMismatch(t *testing.T) {
	e := testEnsemble(t)
	rng := rand.New(rand.NewSource(7))
	if err := e.Fit(context.Background(), clusteredData(60, rng)); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if _, err := e.DetectAnomalies([][]float64{{1, 2, 3}}); err == nil {
		t.Fatal("expected width mismatch error")
	}
}
