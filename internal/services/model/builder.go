package model

import (
	"fmt"
	"math/rand"

	"EsgPulse/internal/domain/models"
)

// Default hidden layer sizes per family, used when the config leaves
// HiddenSizes empty. Sizes are configuration, not invariants.
var defaultHidden = map[models.ModelFamily][]int{
	models.FamilySequenceRegressor:  {32, 16},
	models.FamilyDenseRegressor:     {64, 32, 16},
	models.FamilyEnsembleClassifier: {64, 32},
	models.FamilyAutoEncoder:        {16, 8},
}

// buildNetwork constructs the network variant for the requested family from
// the shared ModelConfig contract.
func buildNetwork(cfg models.ModelConfig, rng *rand.Rand) (*network, error) {
	hidden := cfg.HiddenSizes
	if len(hidden) == 0 {
		hidden = defaultHidden[cfg.Family]
	}
	in := cfg.InputSize()
	if in <= 0 || cfg.OutputShape <= 0 {
		return nil, fmt.Errorf("%w: invalid shapes %v -> %d", models.ErrTrainingFailure, cfg.InputShape, cfg.OutputShape)
	}

	switch cfg.Family {
	case models.FamilySequenceRegressor:
		if len(cfg.InputShape) != 2 {
			return nil, fmt.Errorf("%w: sequence regressor needs [timesteps, features] input shape", models.ErrTrainingFailure)
		}
		layers := make([]layer, 0, len(hidden)+1)
		width := in
		for i, h := range hidden {
			returnSeq := i < len(hidden)-1
			layers = append(layers, newRecurrentLayer(width, h, returnSeq, rng))
			width = h
		}
		layers = append(layers, newDenseLayer(width, cfg.OutputShape, actLinear, rng))
		return &network{layers: layers, loss: lossMSE}, nil

	case models.FamilyDenseRegressor:
		layers := make([]layer, 0, len(hidden)*2+1)
		width := in
		for _, h := range hidden {
			layers = append(layers, newDenseLayer(width, h, actReLU, rng))
			layers = append(layers, newBatchNormLayer(h))
			width = h
		}
		layers = append(layers, newDenseLayer(width, cfg.OutputShape, actLinear, rng))
		return &network{layers: layers, loss: lossMSE}, nil

	case models.FamilyEnsembleClassifier:
		layers := make([]layer, 0, len(hidden)*2+1)
		width := in
		for _, h := range hidden {
			layers = append(layers, newDenseLayer(width, h, actReLU, rng))
			layers = append(layers, newDropoutLayer(cfg.DropoutRate, rng))
			width = h
		}
		// linear head; softmax is fused into the loss and applied at
		// prediction time
		layers = append(layers, newDenseLayer(width, cfg.OutputShape, actLinear, rng))
		return &network{layers: layers, loss: lossSoftmaxCrossEntropy}, nil

	case models.FamilyAutoEncoder:
		// symmetric encoder/decoder around the last hidden size
		layers := make([]layer, 0, len(hidden)*2)
		width := in
		for _, h := range hidden {
			layers = append(layers, newDenseLayer(width, h, actReLU, rng))
			width = h
		}
		for i := len(hidden) - 2; i >= 0; i-- {
			layers = append(layers, newDenseLayer(width, hidden[i], actReLU, rng))
			width = hidden[i]
		}
		layers = append(layers, newDenseLayer(width, cfg.OutputShape, actSigmoid, rng))
		return &network{layers: layers, loss: lossMSE}, nil

	default:
		return nil, fmt.Errorf("unknown model family: %s", cfg.Family)
	}
}
