package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"EsgPulse/internal/domain/models"
	domrepo "EsgPulse/internal/domain/repository"
	applogger "EsgPulse/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minSequenceSamples guards sequence training; shorter histories do not
// support a meaningful temporal fit.
const minSequenceSamples = 12

// trainedModel couples the weights with the exact scaler that normalized
// their training data. The pair is always published atomically.
type trainedModel struct {
	net     *network
	scaler  *models.Scaler
	cfg     models.ModelConfig
	metrics models.ModelMetrics
}

// Engine owns typed model creation, training, inference and persistence.
// Distinct model ids share no mutable state; within one id the (weights,
// scaler) pair is swapped atomically on retrain.
type Engine struct {
	mu       sync.RWMutex
	registry map[string]*trainedModel

	store    domrepo.ModelStore
	metrics  domrepo.Metrics
	l        *applogger.Logger
	validate *validator.Validate
	rngSeed  int64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSeed fixes the weight-init RNG seed, for reproducible tests.
func WithSeed(seed int64) EngineOption {
	return func(e *Engine) { e.rngSeed = seed }
}

// NewEngine creates a model engine. store may be nil when persistence is
// not used.
func NewEngine(store domrepo.ModelStore, m domrepo.Metrics, l *applogger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: make(map[string]*trainedModel),
		store:    store,
		metrics:  m,
		l:        l,
		validate: validator.New(),
		rngSeed:  time.Now().UnixNano(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Train builds, fits and registers a model under modelID. Any prior model
// for the id keeps serving until the new (weights, scaler) pair is
// complete; the swap is atomic and only then is the old pair disposed.
// Cancellation is checked cooperatively at epoch boundaries.
func (e *Engine) Train(ctx context.Context, modelID string, cfg models.ModelConfig, data *models.TrainingData) (*models.ModelMetrics, error) {
	start := time.Now()

	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := e.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: invalid config: %v", models.ErrTrainingFailure, err)
	}
	if data == nil || len(data.Inputs) == 0 {
		return nil, fmt.Errorf("%w: empty training data", models.ErrTrainingFailure)
	}
	if len(data.Inputs) != len(data.Targets) {
		return nil, fmt.Errorf("%w: %d inputs vs %d targets", models.ErrTrainingFailure, len(data.Inputs), len(data.Targets))
	}
	rowWidth := cfg.Timesteps() * cfg.InputSize()
	for _, row := range data.Inputs {
		if len(row) != rowWidth {
			return nil, fmt.Errorf("%w: input row width %d, want %d", models.ErrTrainingFailure, len(row), rowWidth)
		}
	}
	if cfg.Family == models.FamilySequenceRegressor && len(data.Inputs) < minSequenceSamples {
		return nil, fmt.Errorf("%w: sequence training needs at least %d samples, got %d",
			models.ErrTrainingFailure, minSequenceSamples, len(data.Inputs))
	}

	rng := rand.New(rand.NewSource(e.rngSeed))
	net, err := buildNetwork(cfg, rng)
	if err != nil {
		e.recordFailure(modelID)
		return nil, err
	}

	scaler, err := fitScaler(data, cfg.InputSize())
	if err != nil {
		e.recordFailure(modelID)
		return nil, fmt.Errorf("%w: %v", models.ErrTrainingFailure, err)
	}

	// Normalized copies are scoped to this call; they are dropped on every
	// exit path.
	inputs := scaleInputs(scaler, data.Inputs)
	targets := scaleTargets(scaler, data.Targets)

	trainX, trainY, valX, valY := split(inputs, targets, cfg.ValidationSplit)

	finalLoss := 0.0
	epochs := 0
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			e.recordFailure(modelID)
			return nil, fmt.Errorf("training cancelled at epoch %d: %w", epoch, ctx.Err())
		default:
		}

		if cfg.Shuffle {
			shuffle(trainX, trainY, rng)
		}

		epochLoss := 0.0
		batches := 0
		for off := 0; off < len(trainX); off += cfg.BatchSize {
			end := off + cfg.BatchSize
			if end > len(trainX) {
				end = len(trainX)
			}
			bx := rowsToDense(trainX[off:end])
			by := rowsToDense(trainY[off:end])
			loss := net.trainBatch(bx, by, cfg.LearningRate)
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				e.recordFailure(modelID)
				return nil, fmt.Errorf("%w: non-finite loss at epoch %d", models.ErrTrainingFailure, epoch)
			}
			epochLoss += loss
			batches++
		}
		if batches > 0 {
			finalLoss = epochLoss / float64(batches)
		}
		epochs++

		if e.l != nil && (epoch+1)%10 == 0 {
			e.l.Debug("training progress",
				applogger.String("model", modelID),
				applogger.Int("epoch", epoch+1),
				applogger.Float64("loss", finalLoss))
		}
	}

	if len(valX) > 0 {
		finalLoss = net.evaluate(rowsToDense(valX), rowsToDense(valY))
	}

	metrics := e.finalMetrics(net, cfg, scaler, valX, valY, trainX, trainY)
	metrics.Loss = finalLoss
	metrics.Samples = len(data.Inputs)
	metrics.Epochs = epochs
	metrics.Duration = time.Since(start)
	metrics.Timestamp = time.Now()

	// Publish the complete pair, then dispose the old one.
	e.mu.Lock()
	old := e.registry[modelID]
	e.registry[modelID] = &trainedModel{net: net, scaler: scaler, cfg: cfg, metrics: metrics}
	e.mu.Unlock()
	if old != nil {
		old.net.release()
	}

	if e.metrics != nil {
		e.metrics.RecordTrainingRun(modelID, metrics.Duration.Seconds(), finalLoss)
	}
	if e.l != nil {
		e.l.Info("model trained",
			applogger.String("model", modelID),
			applogger.String("family", string(cfg.Family)),
			applogger.Int("samples", metrics.Samples),
			applogger.Float64("loss", finalLoss),
			applogger.Duration("duration_ms", metrics.Duration))
	}
	return &metrics, nil
}

// Predict normalizes input with the stored scaler, runs inference and
// denormalizes back to the target's original scale. Fails with
// ErrModelNotTrained when the id has no registered model.
func (e *Engine) Predict(modelID string, input []float64) (*models.Prediction, error) {
	e.mu.RLock()
	tm := e.registry[modelID]
	e.mu.RUnlock()
	if tm == nil {
		return nil, fmt.Errorf("%s: %w", modelID, models.ErrModelNotTrained)
	}

	rowWidth := tm.cfg.Timesteps() * tm.cfg.InputSize()
	if len(input) != rowWidth {
		return nil, fmt.Errorf("input width %d, want %d", len(input), rowWidth)
	}

	scaled := scaleInputRow(tm.scaler, input, len(tm.scaler.InputMin))
	out := tm.net.forward(rowsToDense([][]float64{scaled}), false)

	raw := make([]float64, tm.cfg.OutputShape)
	for j := range raw {
		raw[j] = out.At(0, j)
	}
	if tm.cfg.Family == models.FamilyEnsembleClassifier {
		raw = softmaxRow(raw)
	}

	conf := confidence(raw, tm.cfg.Family)
	values := unscaleTargets(tm.scaler, raw)

	if e.metrics != nil {
		e.metrics.RecordPrediction(modelID, conf)
	}
	return &models.Prediction{
		Values:     values,
		Confidence: conf,
		Timestamp:  time.Now(),
	}, nil
}

// Save persists the model's snapshot (weights plus scaler) under modelID.
func (e *Engine) Save(ctx context.Context, modelID string) error {
	e.mu.RLock()
	tm := e.registry[modelID]
	e.mu.RUnlock()
	if tm == nil {
		return fmt.Errorf("%s: %w", modelID, models.ErrModelNotTrained)
	}
	if e.store == nil {
		return fmt.Errorf("%w: no model store configured", models.ErrPersistenceFailure)
	}

	snap := &models.ModelSnapshot{
		ModelID: modelID,
		Config:  tm.cfg,
		Scaler:  tm.scaler,
		Layers:  tm.net.snapshot(),
		Metrics: tm.metrics,
		SavedAt: time.Now(),
	}
	if err := e.store.Save(ctx, modelID, snap); err != nil {
		if e.metrics != nil {
			e.metrics.RecordPersistenceError("save")
		}
		return err
	}
	return nil
}

// Load restores a persisted model under modelID. A snapshot without its
// matching scaler is rejected.
func (e *Engine) Load(ctx context.Context, modelID string) error {
	if e.store == nil {
		return fmt.Errorf("%w: no model store configured", models.ErrPersistenceFailure)
	}
	snap, err := e.store.Load(ctx, modelID)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordPersistenceError("load")
		}
		return err
	}
	if snap.Scaler == nil {
		return fmt.Errorf("%w: snapshot for %s has no scaler", models.ErrPersistenceFailure, modelID)
	}

	rng := rand.New(rand.NewSource(e.rngSeed))
	net, err := buildNetwork(snap.Config, rng)
	if err != nil {
		return err
	}
	net.restore(snap.Layers)

	e.mu.Lock()
	old := e.registry[modelID]
	e.registry[modelID] = &trainedModel{net: net, scaler: snap.Scaler, cfg: snap.Config, metrics: snap.Metrics}
	e.mu.Unlock()
	if old != nil {
		old.net.release()
	}
	return nil
}

// Dispose removes the model and frees its resources.
func (e *Engine) Dispose(modelID string) {
	e.mu.Lock()
	tm := e.registry[modelID]
	delete(e.registry, modelID)
	e.mu.Unlock()
	if tm != nil {
		tm.net.release()
	}
}

// DisposeAll clears the whole registry.
func (e *Engine) DisposeAll() {
	e.mu.Lock()
	reg := e.registry
	e.registry = make(map[string]*trainedModel)
	e.mu.Unlock()
	for _, tm := range reg {
		tm.net.release()
	}
}

// IsTrained reports whether a model is registered under modelID.
func (e *Engine) IsTrained(modelID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry[modelID] != nil
}

// Metrics returns the training metrics of a registered model.
func (e *Engine) Metrics(modelID string) (models.ModelMetrics, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tm := e.registry[modelID]
	if tm == nil {
		return models.ModelMetrics{}, false
	}
	return tm.metrics, true
}

func (e *Engine) recordFailure(modelID string) {
	if e.metrics != nil {
		e.metrics.RecordTrainingFailure(modelID)
	}
}

// finalMetrics computes validation MAE/MSE for regression families and
// accuracy for the classifier. The validation set falls back to the
// training set when the split left it empty.
func (e *Engine) finalMetrics(net *network, cfg models.ModelConfig, scaler *models.Scaler, valX, valY, trainX, trainY [][]float64) models.ModelMetrics {
	xs, ys := valX, valY
	if len(xs) == 0 {
		xs, ys = trainX, trainY
	}
	var m models.ModelMetrics
	if len(xs) == 0 {
		return m
	}

	out := net.forward(rowsToDense(xs), false)
	if cfg.Family == models.FamilyEnsembleClassifier {
		correct := 0
		for i := range xs {
			if argmaxRow(out, i, cfg.OutputShape) == argmax(ys[i]) {
				correct++
			}
		}
		m.Accuracy = float64(correct) / float64(len(xs))
		return m
	}

	sumAbs, sumSq := 0.0, 0.0
	count := 0
	for i := range xs {
		raw := make([]float64, cfg.OutputShape)
		for j := range raw {
			raw[j] = out.At(i, j)
		}
		pred := unscaleTargets(scaler, raw)
		truth := unscaleTargets(scaler, ys[i])
		for j := range pred {
			d := pred[j] - truth[j]
			sumAbs += math.Abs(d)
			sumSq += d * d
			count++
		}
	}
	m.MAE = sumAbs / float64(count)
	m.MSE = sumSq / float64(count)
	return m
}

// confidence derives a bounded confidence from the dispersion of the raw
// normalized outputs. The classifier reports its top probability;
// single-output regressors use distance from the unit-range midpoint as a
// dispersion proxy.
func confidence(raw []float64, family models.ModelFamily) float64 {
	var c float64
	switch {
	case family == models.FamilyEnsembleClassifier:
		c = raw[argmax(raw)]
	case len(raw) > 1:
		c = 1 - stat.PopStdDev(raw, nil)
	default:
		c = 1 - 2*math.Abs(raw[0]-0.5)
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func split(xs, ys [][]float64, frac float64) (trainX, trainY, valX, valY [][]float64) {
	n := len(xs)
	valN := int(float64(n) * frac)
	if valN >= n {
		valN = n - 1
	}
	cut := n - valN
	return xs[:cut], ys[:cut], xs[cut:], ys[cut:]
}

func shuffle(xs, ys [][]float64, rng *rand.Rand) {
	rng.Shuffle(len(xs), func(i, j int) {
		xs[i], xs[j] = xs[j], xs[i]
		ys[i], ys[j] = ys[j], ys[i]
	})
}

func rowsToDense(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

func argmaxRow(m *mat.Dense, row, width int) int {
	best := 0
	for j := 1; j < width; j++ {
		if m.At(row, j) > m.At(row, best) {
			best = j
		}
	}
	return best
}
