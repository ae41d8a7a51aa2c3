package app

import (
	"context"

	"EsgPulse/internal/domain/models"
	"EsgPulse/internal/domain/service"
	"EsgPulse/internal/usecase"
	pkgch "EsgPulse/pkg/clickhouse"
	"EsgPulse/pkg/config"
	applogger "EsgPulse/pkg/logger"
)

// App encapsulates the full pipeline: validation, feature engineering,
// model lifecycle, anomaly detection and experiment history.
type App struct {
	cfg          *config.Config
	l            *applogger.Logger
	validator    service.Validator
	features     service.FeatureEngineer
	state        *usecase.StateManager
	orchestrator *usecase.TrainingOrchestrator
	detector     service.AnomalyDetector
	chClient     *pkgch.Client
}

// New assembles an App from its wired dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	validator service.Validator,
	features service.FeatureEngineer,
	state *usecase.StateManager,
	orchestrator *usecase.TrainingOrchestrator,
	detector service.AnomalyDetector,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:          cfg,
		l:            l,
		validator:    validator,
		features:     features,
		state:        state,
		orchestrator: orchestrator,
		detector:     detector,
		chClient:     chClient,
	}
}

// Validate checks and preprocesses one raw record.
func (a *App) Validate(rec *models.RawRecord) (*models.ValidatedRecord, error) {
	return a.validator.Validate(rec)
}

// EngineerFeatures derives a feature set from a validated record.
func (a *App) EngineerFeatures(rec *models.ValidatedRecord) (*models.FeatureSet, error) {
	return a.features.EngineerFeatures(rec)
}

// Train runs one orchestrated training job for a model named in the
// catalog and records the experiment.
func (a *App) Train(ctx context.Context, modelID string, data *models.TrainingData) (*models.ModelMetrics, error) {
	return a.orchestrator.TrainModel(ctx, modelID, data)
}

// TrainAll trains every model that has a dataset.
func (a *App) TrainAll(ctx context.Context, datasets map[string]*models.TrainingData) error {
	return a.orchestrator.TrainAll(ctx, datasets)
}

// Predict runs gated inference against a trained model.
func (a *App) Predict(modelID string, input []float64) (*models.Prediction, error) {
	return a.state.Predict(modelID, input)
}

// IsTrained reports whether modelID has a usable model.
func (a *App) IsTrained(modelID string) bool {
	return a.state.IsTrained(modelID)
}

// FitAnomalyDetector fits the ensemble on a reference population.
func (a *App) FitAnomalyDetector(ctx context.Context, data [][]float64) error {
	return a.detector.Fit(ctx, data)
}

// DetectAnomalies scores inputs against the fitted population.
func (a *App) DetectAnomalies(inputs [][]float64) ([]models.AnomalyResult, error) {
	return a.detector.DetectAnomalies(inputs)
}

// SaveModel persists a trained model's snapshot.
func (a *App) SaveModel(ctx context.Context, modelID string) error {
	return a.state.Save(ctx, modelID)
}

// LoadModel restores a persisted model.
func (a *App) LoadModel(ctx context.Context, modelID string) error {
	return a.state.Load(ctx, modelID)
}

// History returns the most recent experiment records for a family.
func (a *App) History(ctx context.Context, family models.ModelFamily, limit int) ([]models.ExperimentRecord, error) {
	return a.orchestrator.History(ctx, family, limit)
}

// ClearModels disposes every registered model.
func (a *App) ClearModels() {
	a.state.ClearModels()
}

// Close drains the training queue and closes infrastructure clients.
func (a *App) Close(ctx context.Context) error {
	if err := a.orchestrator.Close(ctx); err != nil {
		if a.l != nil {
			a.l.Warn("orchestrator close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			if a.l != nil {
				a.l.Warn("clickhouse close error", applogger.Error(err))
			}
			return err
		}
	}
	return nil
}
