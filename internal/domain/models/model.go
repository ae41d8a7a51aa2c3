package models

import "time"

// ModelFamily selects which network variant a ModelConfig builds.
type ModelFamily string

const (
	FamilySequenceRegressor  ModelFamily = "sequence_regressor"
	FamilyDenseRegressor     ModelFamily = "dense_regressor"
	FamilyEnsembleClassifier ModelFamily = "dense_ensemble_classifier"
	FamilyAutoEncoder        ModelFamily = "autoencoder"
)

// ModelConfig is the single construction contract shared by all families.
// InputShape is [features] for dense families and [timesteps, features] for
// the sequence regressor. Layer sizes are configuration, not invariants.
type ModelConfig struct {
	Family          ModelFamily `yaml:"family" validate:"required,oneof=sequence_regressor dense_regressor dense_ensemble_classifier autoencoder"`
	InputShape      []int       `yaml:"input_shape" validate:"required,min=1,max=2,dive,gt=0"`
	OutputShape     int         `yaml:"output_shape" validate:"required,gt=0"`
	HiddenSizes     []int       `yaml:"hidden_sizes" validate:"omitempty,dive,gt=0"`
	LearningRate    float64     `yaml:"learning_rate" default:"0.001" validate:"gt=0"`
	Epochs          int         `yaml:"epochs" default:"50" validate:"gt=0"`
	BatchSize       int         `yaml:"batch_size" default:"32" validate:"gt=0"`
	ValidationSplit float64     `yaml:"validation_split" default:"0.2" validate:"gte=0,lt=1"`
	DropoutRate     float64     `yaml:"dropout_rate" default:"0.2" validate:"gte=0,lt=1"`
	Shuffle         bool        `yaml:"shuffle" default:"true"`
}

// InputSize returns the per-step feature width.
func (c ModelConfig) InputSize() int {
	if len(c.InputShape) == 0 {
		return 0
	}
	return c.InputShape[len(c.InputShape)-1]
}

// Timesteps returns the sequence length, or 1 for dense families.
func (c ModelConfig) Timesteps() int {
	if len(c.InputShape) == 2 {
		return c.InputShape[0]
	}
	return 1
}

// Scaler holds the per-column min/max bounds captured at training time.
// The exact scaler used for training inputs is reused, unmodified, for every
// prediction against that model.
type Scaler struct {
	InputMin  []float64 `json:"input_min"`
	InputMax  []float64 `json:"input_max"`
	TargetMin []float64 `json:"target_min"`
	TargetMax []float64 `json:"target_max"`
}

// ModelMetrics summarizes one completed training run. MAE/MSE apply to
// regression families, Accuracy to the classifier; non-applicable values
// stay zero.
type ModelMetrics struct {
	Loss      float64       `json:"loss"`
	MAE       float64       `json:"mae"`
	MSE       float64       `json:"mse"`
	Accuracy  float64       `json:"accuracy"`
	Samples   int           `json:"samples"`
	Epochs    int           `json:"epochs"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Prediction is a denormalized model output.
type Prediction struct {
	Values     []float64
	Confidence float64 // in [0,1]
	Timestamp  time.Time
}

// LayerSnapshot is the serialized state of one network layer.
type LayerSnapshot struct {
	Kind    string      `json:"kind"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
	// Recurrent holds the hidden-to-hidden weights of recurrent layers.
	Recurrent [][]float64 `json:"recurrent,omitempty"`
}

// ModelSnapshot is the durable form of a trained model. A snapshot is only
// valid when the scaler that normalized its training data travels with it.
type ModelSnapshot struct {
	ModelID string          `json:"model_id"`
	Config  ModelConfig     `json:"config"`
	Scaler  *Scaler         `json:"scaler"`
	Layers  []LayerSnapshot `json:"layers"`
	Metrics ModelMetrics    `json:"metrics"`
	SavedAt time.Time       `json:"saved_at"`
}

// TrainingData couples inputs with targets. Inputs is row-major
// [samples][timesteps*features] for sequence models and
// [samples][features] otherwise; Targets is [samples][outputs].
type TrainingData struct {
	Inputs  [][]float64
	Targets [][]float64
}
