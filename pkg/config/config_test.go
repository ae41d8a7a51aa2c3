package config

import (
	"os"
	"path/filepath"
	"testing"

	"EsgPulse/internal/domain/models"
)

const sampleYAML = `
environment: test
logging:
  level: debug
pipeline:
  lag_features: false
  lag_periods: [1, 2]
  target_variable: emissions_total
  max_features: 25
validation:
  steps:
    - type: impute
      fields: [production_volume]
      fill: 0
models:
  forecast:
    family: sequence_regressor
    input_shape: [12, 8]
    output_shape: 1
    epochs: 10
training:
  parallel: true
storage:
  model_dir: /tmp/esgpulse-test-models
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %s", cfg.Logging.Level)
	}
	// explicit false survives default filling
	if cfg.Pipeline.LagFeatures == nil || *cfg.Pipeline.LagFeatures {
		t.Error("pipeline.lag_features should be explicit false")
	}
	if cfg.Pipeline.TimeFeatures == nil || !*cfg.Pipeline.TimeFeatures {
		t.Error("pipeline.time_features should default to true")
	}
	if cfg.Training.Workers != 2 {
		t.Errorf("training.workers = %d, want default 2", cfg.Training.Workers)
	}
	if cfg.Anomaly.Contamination != 0.1 {
		t.Errorf("anomaly.contamination = %v, want default 0.1", cfg.Anomaly.Contamination)
	}

	m, ok := cfg.Models["forecast"]
	if !ok {
		t.Fatal("models.forecast missing")
	}
	if m.Family != models.FamilySequenceRegressor {
		t.Errorf("family = %s", m.Family)
	}
	if m.Timesteps() != 12 || m.InputSize() != 8 {
		t.Errorf("input shape = %v", m.InputShape)
	}

	if len(cfg.Validation.Steps) != 1 || cfg.Validation.Steps[0].Type != "impute" {
		t.Errorf("validation steps = %+v", cfg.Validation.Steps)
	}
}

func TestLoadRequiresEnvironment(t *testing.T) {
	if _, err := Load(writeConfig(t, "logging:\n  level: info\n")); err == nil {
		t.Fatal("expected error for missing environment")
	}
}

func TestLoadRejectsBadContamination(t *testing.T) {
	yaml := "environment: test\nanomaly:\n  contamination: 0.9\n"
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Fatal("expected contamination validation error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("ESGPULSE_MODEL_DIR", "/srv/models")
	t.Setenv("ESGPULSE_TRAINING_WORKERS", "8")
	t.Setenv("ESGPULSE_TRACKED_METRICS", "revenue,emissions_total")

	cfg, err := LoadWithEnv(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.ModelDir != "/srv/models" {
		t.Errorf("model dir = %s", cfg.Storage.ModelDir)
	}
	if cfg.Training.Workers != 8 {
		t.Errorf("workers = %d", cfg.Training.Workers)
	}
	if len(cfg.Pipeline.TrackedMetrics) != 2 || cfg.Pipeline.TrackedMetrics[0] != "revenue" {
		t.Errorf("tracked metrics = %v", cfg.Pipeline.TrackedMetrics)
	}
}
