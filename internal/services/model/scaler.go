package model

import (
	"fmt"
	"math"

	"EsgPulse/internal/domain/models"
)

// fitScaler captures per-column min/max bounds from training data. For
// sequence inputs the bounds are computed over the flattened
// (timestep x feature) data and broadcast back across timesteps, so
// featureWidth is the per-step width, not the row width.
func fitScaler(data *models.TrainingData, featureWidth int) (*models.Scaler, error) {
	if len(data.Inputs) == 0 || len(data.Targets) == 0 {
		return nil, fmt.Errorf("empty training data")
	}
	if featureWidth <= 0 {
		return nil, fmt.Errorf("feature width must be positive, got %d", featureWidth)
	}

	inMin := make([]float64, featureWidth)
	inMax := make([]float64, featureWidth)
	for i := range inMin {
		inMin[i] = math.Inf(1)
		inMax[i] = math.Inf(-1)
	}
	for _, row := range data.Inputs {
		if len(row)%featureWidth != 0 {
			return nil, fmt.Errorf("input row width %d not a multiple of feature width %d", len(row), featureWidth)
		}
		for i, v := range row {
			col := i % featureWidth
			if v < inMin[col] {
				inMin[col] = v
			}
			if v > inMax[col] {
				inMax[col] = v
			}
		}
	}

	outWidth := len(data.Targets[0])
	tMin := make([]float64, outWidth)
	tMax := make([]float64, outWidth)
	for i := range tMin {
		tMin[i] = math.Inf(1)
		tMax[i] = math.Inf(-1)
	}
	for _, row := range data.Targets {
		if len(row) != outWidth {
			return nil, fmt.Errorf("ragged target row: got %d, want %d", len(row), outWidth)
		}
		for i, v := range row {
			if v < tMin[i] {
				tMin[i] = v
			}
			if v > tMax[i] {
				tMax[i] = v
			}
		}
	}

	return &models.Scaler{
		InputMin:  inMin,
		InputMax:  inMax,
		TargetMin: tMin,
		TargetMax: tMax,
	}, nil
}

// scaleInputs min-max normalizes a batch of input rows. Returns fresh
// slices; the caller's data is never mutated.
func scaleInputs(s *models.Scaler, rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	width := len(s.InputMin)
	for i, row := range rows {
		out[i] = scaleInputRow(s, row, width)
	}
	return out
}

func scaleInputRow(s *models.Scaler, row []float64, width int) []float64 {
	scaled := make([]float64, len(row))
	for j, v := range row {
		col := j % width
		span := s.InputMax[col] - s.InputMin[col]
		if span == 0 {
			scaled[j] = 0
			continue
		}
		scaled[j] = (v - s.InputMin[col]) / span
	}
	return scaled
}

// scaleTargets min-max normalizes target rows.
func scaleTargets(s *models.Scaler, rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled := make([]float64, len(row))
		for j, v := range row {
			span := s.TargetMax[j] - s.TargetMin[j]
			if span == 0 {
				scaled[j] = 0
				continue
			}
			scaled[j] = (v - s.TargetMin[j]) / span
		}
		out[i] = scaled
	}
	return out
}

// unscaleTargets maps normalized outputs back to the target's original
// scale.
func unscaleTargets(s *models.Scaler, row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		span := s.TargetMax[j] - s.TargetMin[j]
		out[j] = v*span + s.TargetMin[j]
	}
	return out
}
