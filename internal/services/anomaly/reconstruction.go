package anomaly

import (
	"context"
	"fmt"
	"sort"

	"EsgPulse/internal/domain/models"
	"EsgPulse/internal/domain/service"
)

// reconstructionModelID namespaces the detector's autoencoder inside the
// shared trainer registry.
const reconstructionModelID = "anomaly_autoencoder"

// reconstructionDetector trains an autoencoder on the normal population
// and scores points by how poorly they reconstruct.
type reconstructionDetector struct {
	trainer    service.Trainer
	hidden     []int
	epochs     int
	maxErr     float64
	threshold  float64
	inputWidth int
	fitted     bool
}

func newReconstructionDetector(trainer service.Trainer, hidden []int, epochs int) *reconstructionDetector {
	return &reconstructionDetector{trainer: trainer, hidden: hidden, epochs: epochs}
}

// fit trains the autoencoder to reproduce its input and calibrates the
// error scale and threshold on the fitted population.
func (d *reconstructionDetector) fit(ctx context.Context, data [][]float64, contamination float64) error {
	if len(data) == 0 {
		return fmt.Errorf("empty fit data")
	}
	width := len(data[0])

	cfg := models.ModelConfig{
		Family:      models.FamilyAutoEncoder,
		InputShape:  []int{width},
		OutputShape: width,
		HiddenSizes: d.hidden,
		Epochs:      d.epochs,
	}
	training := &models.TrainingData{Inputs: data, Targets: data}
	if _, err := d.trainer.Train(ctx, reconstructionModelID, cfg, training); err != nil {
		return fmt.Errorf("autoencoder fit: %w", err)
	}

	errs := make([]float64, len(data))
	maxErr := 0.0
	for i, row := range data {
		e, err := d.reconstructionError(row)
		if err != nil {
			return err
		}
		errs[i] = e
		if e > maxErr {
			maxErr = e
		}
	}
	if maxErr == 0 {
		maxErr = 1
	}
	d.maxErr = maxErr
	d.inputWidth = width

	sort.Float64s(errs)
	idx := int(float64(len(errs)) * (1 - contamination))
	if idx >= len(errs) {
		idx = len(errs) - 1
	}
	d.threshold = errs[idx] / maxErr
	d.fitted = true
	return nil
}

// score maps the reconstruction error onto [0, 1] relative to the worst
// error seen during fitting.
func (d *reconstructionDetector) score(row []float64) (float64, error) {
	e, err := d.reconstructionError(row)
	if err != nil {
		return 0, err
	}
	s := e / d.maxErr
	if s > 1 {
		s = 1
	}
	return s, nil
}

func (d *reconstructionDetector) reconstructionError(row []float64) (float64, error) {
	pred, err := d.trainer.Predict(reconstructionModelID, row)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for j, v := range pred.Values {
		diff := v - row[j]
		sum += diff * diff
	}
	return sum / float64(len(row)), nil
}
