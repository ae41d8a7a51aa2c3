package anomaly

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"EsgPulse/internal/domain/models"
	domrepo "EsgPulse/internal/domain/repository"
	"EsgPulse/internal/domain/service"
	applogger "EsgPulse/pkg/logger"

	"github.com/creasty/defaults"
)

// Config tunes the detection ensemble. Contamination is the expected
// fraction of anomalies in the fitted population.
type Config struct {
	Contamination float64 `yaml:"contamination" default:"0.1" validate:"gt=0,lt=0.5"`
	NEstimators   int     `yaml:"n_estimators" default:"100" validate:"gt=0"`
	SampleSize    int     `yaml:"sample_size" default:"256" validate:"gt=0"`
	HiddenSizes   []int   `yaml:"hidden_sizes"`
	Epochs        int     `yaml:"epochs" default:"30" validate:"gt=0"`
	Seed          int64   `yaml:"-"`
}

// Ensemble averages an isolation forest and an autoencoder reconstruction
// detector into one score per input.
type Ensemble struct {
	mu        sync.RWMutex
	cfg       Config
	forest    *isolationForest
	recon     *reconstructionDetector
	threshold float64
	width     int
	fitted    bool

	metrics domrepo.Metrics
	l       *applogger.Logger
}

// NewEnsemble creates the detector pair. The trainer hosts the
// reconstruction autoencoder.
func NewEnsemble(cfg Config, trainer service.Trainer, m domrepo.Metrics, l *applogger.Logger) (*Ensemble, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("anomaly defaults: %w", err)
	}
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{16, 8}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Ensemble{
		cfg:     cfg,
		forest:  newIsolationForest(),
		recon:   newReconstructionDetector(trainer, cfg.HiddenSizes, cfg.Epochs),
		metrics: m,
		l:       l,
	}, nil
}

// Fit trains both detectors on the same population and derives the
// ensemble threshold from the contamination quantile of the population's
// combined scores.
func (e *Ensemble) Fit(ctx context.Context, data [][]float64) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty fit data", models.ErrTrainingFailure)
	}
	width := len(data[0])
	for _, row := range data {
		if len(row) != width {
			return fmt.Errorf("%w: ragged fit data", models.ErrTrainingFailure)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rng := rand.New(rand.NewSource(e.cfg.Seed))
	if err := e.forest.fit(data, e.cfg.NEstimators, e.cfg.SampleSize, e.cfg.Contamination, rng); err != nil {
		return fmt.Errorf("%w: isolation forest: %v", models.ErrTrainingFailure, err)
	}
	if err := e.recon.fit(ctx, data, e.cfg.Contamination); err != nil {
		return fmt.Errorf("%w: %v", models.ErrTrainingFailure, err)
	}

	scores := make([]float64, len(data))
	for i, row := range data {
		s, err := e.combinedScore(row)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrTrainingFailure, err)
		}
		scores[i] = s
	}
	sort.Float64s(scores)
	idx := int(float64(len(scores)) * (1 - e.cfg.Contamination))
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	e.threshold = scores[idx]
	e.width = width
	e.fitted = true

	if e.l != nil {
		e.l.Info("anomaly ensemble fitted",
			applogger.Int("samples", len(data)),
			applogger.Int("width", width),
			applogger.Float64("threshold", e.threshold))
	}
	return nil
}

// DetectAnomalies scores every input against the fitted population. Scores
// are bounded to [0, 1]; IsAnomaly flags scores above the calibrated
// threshold.
func (e *Ensemble) DetectAnomalies(inputs [][]float64) ([]models.AnomalyResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.fitted {
		return nil, models.ErrDetectorNotFitted
	}

	results := make([]models.AnomalyResult, 0, len(inputs))
	for _, row := range inputs {
		if len(row) != e.width {
			return nil, fmt.Errorf("input width %d, want %d", len(row), e.width)
		}
		score, err := e.combinedScore(row)
		if err != nil {
			return nil, err
		}
		isAnomaly := score > e.threshold
		if e.metrics != nil {
			e.metrics.RecordAnomalyScore(score, isAnomaly)
		}
		results = append(results, models.AnomalyResult{
			Score:     score,
			IsAnomaly: isAnomaly,
			Method:    models.MethodEnsemble,
		})
	}
	return results, nil
}

func (e *Ensemble) combinedScore(row []float64) (float64, error) {
	forestScore := e.forest.score(row)
	reconScore, err := e.recon.score(row)
	if err != nil {
		return 0, err
	}
	s := (forestScore + reconScore) / 2
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return s, nil
}
