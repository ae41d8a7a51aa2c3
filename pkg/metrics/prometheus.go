package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	recordsValidated   prometheus.Counter
	validationFailures *prometheus.CounterVec
	featuresEngineered prometheus.Histogram
	trainingRuns       *prometheus.CounterVec
	trainingDuration   *prometheus.HistogramVec
	trainingLoss       *prometheus.GaugeVec
	predictions        *prometheus.CounterVec
	predictionConf     *prometheus.HistogramVec
	anomalyScores      prometheus.Histogram
	anomaliesDetected  prometheus.Counter
	persistenceErrors  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		recordsValidated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "esgpulse_records_validated_total",
				Help: "Total number of records that passed validation",
			},
		),
		validationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esgpulse_validation_failures_total",
				Help: "Total number of validation failures by error code",
			},
			[]string{"code"},
		),
		featuresEngineered: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "esgpulse_features_per_record",
				Help:    "Number of features produced per engineering call",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		trainingRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esgpulse_training_runs_total",
				Help: "Total number of training runs by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		trainingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esgpulse_training_duration_seconds",
				Help:    "Duration of training runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 3, 12),
			},
			[]string{"model"},
		),
		trainingLoss: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "esgpulse_training_final_loss",
				Help: "Final validation loss of the last training run",
			},
			[]string{"model"},
		),
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esgpulse_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"model"},
		),
		predictionConf: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esgpulse_prediction_confidence",
				Help:    "Confidence of served predictions",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"model"},
		),
		anomalyScores: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "esgpulse_anomaly_score",
				Help:    "Ensemble anomaly scores",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		anomaliesDetected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "esgpulse_anomalies_detected_total",
				Help: "Total number of inputs flagged anomalous",
			},
		),
		persistenceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esgpulse_persistence_errors_total",
				Help: "Total number of model persistence errors by operation",
			},
			[]string{"op"},
		),
	}
}

// RecordValidated records one successfully validated record.
func (r *Recorder) RecordValidated() {
	r.recordsValidated.Inc()
}

// RecordValidationFailure records a validation failure by error code.
func (r *Recorder) RecordValidationFailure(code string) {
	r.validationFailures.WithLabelValues(code).Inc()
}

// RecordFeatures records the size of one engineered feature set.
func (r *Recorder) RecordFeatures(count int) {
	r.featuresEngineered.Observe(float64(count))
}

// RecordTrainingRun records a completed training run.
func (r *Recorder) RecordTrainingRun(modelID string, seconds, loss float64) {
	r.trainingRuns.WithLabelValues(modelID, "ok").Inc()
	r.trainingDuration.WithLabelValues(modelID).Observe(seconds)
	r.trainingLoss.WithLabelValues(modelID).Set(loss)
}

// RecordTrainingFailure records an aborted training run.
func (r *Recorder) RecordTrainingFailure(modelID string) {
	r.trainingRuns.WithLabelValues(modelID, "error").Inc()
}

// RecordPrediction records one served prediction.
func (r *Recorder) RecordPrediction(modelID string, confidence float64) {
	r.predictions.WithLabelValues(modelID).Inc()
	r.predictionConf.WithLabelValues(modelID).Observe(confidence)
}

// RecordAnomalyScore records one ensemble score.
func (r *Recorder) RecordAnomalyScore(score float64, isAnomaly bool) {
	r.anomalyScores.Observe(score)
	if isAnomaly {
		r.anomaliesDetected.Inc()
	}
}

// RecordPersistenceError records a save/load failure.
func (r *Recorder) RecordPersistenceError(op string) {
	r.persistenceErrors.WithLabelValues(op).Inc()
}
