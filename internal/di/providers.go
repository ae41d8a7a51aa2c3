package di

import (
	"context"
	"fmt"
	"time"

	"EsgPulse/internal/domain/repository"
	internalrepo "EsgPulse/internal/repository"
	"EsgPulse/internal/services/anomaly"
	"EsgPulse/internal/services/features"
	"EsgPulse/internal/services/model"
	"EsgPulse/internal/services/validation"
	"EsgPulse/internal/usecase"
	pkgch "EsgPulse/pkg/clickhouse"
	"EsgPulse/pkg/config"
	applogger "EsgPulse/pkg/logger"
	"EsgPulse/pkg/metrics"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// backend is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideExperimentStore prefers ClickHouse history and falls back to the
// in-memory store when the backend is disabled.
func ProvideExperimentStore(chClient *pkgch.Client, l *applogger.Logger) (repository.ExperimentStore, error) {
	if chClient == nil {
		return internalrepo.NewMemoryExperimentStore(), nil
	}
	store := internalrepo.NewCHExperimentStore(chClient)
	store.SetLogger(l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideModelStore creates the file-backed snapshot store.
func ProvideModelStore(cfg *config.Config, l *applogger.Logger) (repository.ModelStore, error) {
	store, err := internalrepo.NewFileModelStore(cfg.Storage.ModelDir)
	if err != nil {
		return nil, err
	}
	store.SetLogger(l)
	return store, nil
}

// ProvideValidator creates the record validator with its preprocessing steps.
func ProvideValidator(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (*validation.Validator, error) {
	return validation.New(cfg.Validation, m, l)
}

// ProvideFeaturePipeline creates the feature engineering pipeline.
func ProvideFeaturePipeline(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (*features.Pipeline, error) {
	fc := features.DefaultConfig()
	fc.TimeFeatures = boolOr(cfg.Pipeline.TimeFeatures, true)
	fc.LagFeatures = boolOr(cfg.Pipeline.LagFeatures, true)
	fc.RollingFeatures = boolOr(cfg.Pipeline.RollingFeatures, true)
	fc.DomainRatios = boolOr(cfg.Pipeline.DomainRatios, true)
	fc.Interactions = cfg.Pipeline.Interactions
	if cfg.Pipeline.InteractionDepth > 0 {
		fc.InteractionDepth = cfg.Pipeline.InteractionDepth
	}
	fc.TargetVariable = cfg.Pipeline.TargetVariable
	fc.MaxFeatures = cfg.Pipeline.MaxFeatures
	if len(cfg.Pipeline.LagPeriods) > 0 {
		fc.LagPeriods = cfg.Pipeline.LagPeriods
	}
	if len(cfg.Pipeline.WindowSizes) > 0 {
		fc.WindowSizes = cfg.Pipeline.WindowSizes
	}
	if len(cfg.Pipeline.TrackedMetrics) > 0 {
		fc.TrackedMetrics = cfg.Pipeline.TrackedMetrics
	}
	return features.NewPipeline(fc, m, l)
}

// ProvideEngine creates the model training engine.
func ProvideEngine(store repository.ModelStore, m repository.Metrics, l *applogger.Logger) *model.Engine {
	return model.NewEngine(store, m, l)
}

// ProvideStateManager wraps the engine with lifecycle gating.
func ProvideStateManager(engine *model.Engine, l *applogger.Logger) *usecase.StateManager {
	return usecase.NewStateManager(engine, l)
}

// ProvideEnsemble creates the anomaly detection ensemble. The ensemble
// shares the engine so the reconstruction autoencoder lives in the same
// registry as the named models.
func ProvideEnsemble(cfg *config.Config, engine *model.Engine, m repository.Metrics, l *applogger.Logger) (*anomaly.Ensemble, error) {
	return anomaly.NewEnsemble(anomaly.Config{
		Contamination: cfg.Anomaly.Contamination,
		NEstimators:   cfg.Anomaly.NEstimators,
		SampleSize:    cfg.Anomaly.SampleSize,
		HiddenSizes:   cfg.Anomaly.HiddenSizes,
		Epochs:        cfg.Anomaly.Epochs,
	}, engine, m, l)
}

// ProvideOrchestrator creates the training orchestrator over the state
// manager so orchestrated runs capture dataset statistics.
func ProvideOrchestrator(cfg *config.Config, state *usecase.StateManager, store repository.ExperimentStore, l *applogger.Logger) *usecase.TrainingOrchestrator {
	return usecase.NewTrainingOrchestrator(cfg.Models, state, store, usecase.OrchestratorConfig{
		Parallel:   cfg.Training.Parallel,
		Workers:    cfg.Training.Workers,
		RetryLimit: cfg.Training.RetryLimit,
		RetryDelay: cfg.Training.RetryDelay,
	}, l)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
