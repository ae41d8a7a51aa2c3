package service

import (
	"context"

	"EsgPulse/internal/domain/models"
)

// Validator checks and preprocesses raw records.
type Validator interface {
	Validate(rec *models.RawRecord) (*models.ValidatedRecord, error)
}

// FeatureEngineer derives a FeatureSet from a validated record.
type FeatureEngineer interface {
	EngineerFeatures(rec *models.ValidatedRecord) (*models.FeatureSet, error)
}

// Trainer owns typed model creation, training, inference and persistence.
type Trainer interface {
	Train(ctx context.Context, modelID string, cfg models.ModelConfig, data *models.TrainingData) (*models.ModelMetrics, error)
	Predict(modelID string, input []float64) (*models.Prediction, error)
	Save(ctx context.Context, modelID string) error
	Load(ctx context.Context, modelID string) error
	Dispose(modelID string)
}

// AnomalyDetector scores inputs against a fitted population.
type AnomalyDetector interface {
	Fit(ctx context.Context, data [][]float64) error
	DetectAnomalies(inputs [][]float64) ([]models.AnomalyResult, error)
}
