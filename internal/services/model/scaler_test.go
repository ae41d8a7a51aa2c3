package model

import (
	"math"
	"testing"

	"EsgPulse/internal/domain/models"
)

func TestScalerRoundTrip(t *testing.T) {
	data := &models.TrainingData{
		Inputs:  [][]float64{{0, 100}, {10, 200}, {5, 150}},
		Targets: [][]float64{{1000}, {2000}, {1500}},
	}
	s, err := fitScaler(data, 2)
	if err != nil {
		t.Fatalf("fit scaler: %v", err)
	}

	scaled := scaleInputs(s, data.Inputs)
	for i, row := range scaled {
		for j, v := range row {
			if v < 0 || v > 1 {
				t.Errorf("scaled[%d][%d] = %v outside [0,1]", i, j, v)
			}
		}
	}

	for _, row := range data.Targets {
		back := unscaleTargets(s, scaleTargets(s, [][]float64{row})[0])
		for j := range row {
			if math.Abs(back[j]-row[j]) > 1e-9 {
				t.Fatalf("round trip %v -> %v", row, back)
			}
		}
	}
}

func TestScalerSequenceBroadcast(t *testing.T) {
	// 2 timesteps x 2 features flattened per row; columns fold by feature
	// index so both timesteps share bounds.
	data := &models.TrainingData{
		Inputs:  [][]float64{{0, 10, 4, 30}, {2, 20, 8, 40}},
		Targets: [][]float64{{1}, {2}},
	}
	s, err := fitScaler(data, 2)
	if err != nil {
		t.Fatalf("fit scaler: %v", err)
	}
	if len(s.InputMin) != 2 {
		t.Fatalf("len(InputMin) = %d, want 2", len(s.InputMin))
	}
	if s.InputMin[0] != 0 || s.InputMax[0] != 8 {
		t.Errorf("feature 0 bounds = [%v, %v], want [0, 8]", s.InputMin[0], s.InputMax[0])
	}
	if s.InputMin[1] != 10 || s.InputMax[1] != 40 {
		t.Errorf("feature 1 bounds = [%v, %v], want [10, 40]", s.InputMin[1], s.InputMax[1])
	}
}

func TestScalerConstantColumn(t *testing.T) {
	data := &models.TrainingData{
		Inputs:  [][]float64{{7}, {7}},
		Targets: [][]float64{{3}, {3}},
	}
	s, err := fitScaler(data, 1)
	if err != nil {
		t.Fatalf("fit scaler: %v", err)
	}
	scaled := scaleInputRow(s, []float64{7}, 1)
	if scaled[0] != 0 {
		t.Fatalf("constant column scales to %v, want 0", scaled[0])
	}
	back := unscaleTargets(s, []float64{0})
	if back[0] != 3 {
		t.Fatalf("constant target unscales to %v, want 3", back[0])
	}
}

func TestScalerRejectsRaggedRows(t *testing.T) {
	data := &models.TrainingData{
		Inputs:  [][]float64{{1, 2}, {1}},
		Targets: [][]float64{{1}, {2}},
	}
	if _, err := fitScaler(data, 2); err == nil {
		t.Fatal("expected error for ragged rows")
	}
}
