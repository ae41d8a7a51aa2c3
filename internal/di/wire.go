//go:build wireinject
// +build wireinject

package di

import (
	"EsgPulse/internal/domain/service"
	"EsgPulse/internal/services/anomaly"
	"EsgPulse/internal/services/features"
	"EsgPulse/internal/services/validation"
	"EsgPulse/pkg/app"
	"EsgPulse/pkg/config"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*app.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideClickHouseClient,
		ProvideExperimentStore,
		ProvideModelStore,

		// Services
		ProvideValidator,
		ProvideFeaturePipeline,
		ProvideEngine,
		ProvideEnsemble,

		// Use cases
		ProvideStateManager,
		ProvideOrchestrator,

		// Port bindings
		wire.Bind(new(service.Validator), new(*validation.Validator)),
		wire.Bind(new(service.FeatureEngineer), new(*features.Pipeline)),
		wire.Bind(new(service.AnomalyDetector), new(*anomaly.Ensemble)),

		// Application facade
		app.New,
	)
	return &app.App{}, nil
}
