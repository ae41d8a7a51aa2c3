package repository

import (
	"context"

	"EsgPulse/internal/domain/models"
)

// ExperimentStore persists the append-only training history.
type ExperimentStore interface {
	Append(ctx context.Context, rec models.ExperimentRecord) error
	History(ctx context.Context, family models.ModelFamily, limit int) ([]models.ExperimentRecord, error)
	Close() error
}

// ModelStore round-trips trained weights and their scaler to durable
// storage. Loading a snapshot without its matching scaler is rejected.
type ModelStore interface {
	Save(ctx context.Context, modelID string, snap *models.ModelSnapshot) error
	Load(ctx context.Context, modelID string) (*models.ModelSnapshot, error)
}

// Metrics is the observability port implemented by pkg/metrics.
type Metrics interface {
	RecordValidated()
	RecordValidationFailure(code string)
	RecordFeatures(count int)
	RecordTrainingRun(modelID string, seconds float64, loss float64)
	RecordTrainingFailure(modelID string)
	RecordPrediction(modelID string, confidence float64)
	RecordAnomalyScore(score float64, isAnomaly bool)
	RecordPersistenceError(op string)
}
