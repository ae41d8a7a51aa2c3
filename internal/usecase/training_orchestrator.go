package usecase

import (
	"context"
	"fmt"
	"time"

	"EsgPulse/internal/domain/models"
	domrepo "EsgPulse/internal/domain/repository"
	"EsgPulse/internal/domain/service"
	"EsgPulse/internal/service/ratelimit"
	applogger "EsgPulse/pkg/logger"
	"EsgPulse/pkg/queue"

	"github.com/google/uuid"
)

// Resubmission budget per model id: a short burst, then one slot every
// half minute.
const (
	submitBurst     = 2.0
	submitPerSecond = 1.0 / 30.0
)

const trainMessageType = "model.train"

// OrchestratorConfig selects sequential or queued parallel training.
type OrchestratorConfig struct {
	Parallel   bool
	Workers    int
	RetryLimit int
	RetryDelay time.Duration
}

// TrainingOrchestrator drives training runs for the named models in the
// model catalog and records every completed run in the experiment history.
type TrainingOrchestrator struct {
	catalog map[string]models.ModelConfig
	trainer service.Trainer
	store   domrepo.ExperimentStore
	limiter *ratelimit.Limiter
	cfg     OrchestratorConfig
	q       *queue.MemoryQueue
	l       *applogger.Logger
}

// trainRequest travels through the queue; done carries the job outcome
// back to the caller.
type trainRequest struct {
	ModelID string
	Data    *models.TrainingData
	done    chan error
}

func NewTrainingOrchestrator(
	catalog map[string]models.ModelConfig,
	trainer service.Trainer,
	store domrepo.ExperimentStore,
	cfg OrchestratorConfig,
	l *applogger.Logger,
) *TrainingOrchestrator {
	o := &TrainingOrchestrator{
		catalog: catalog,
		trainer: trainer,
		store:   store,
		limiter: ratelimit.New(),
		cfg:     cfg,
		l:       l,
	}
	if cfg.Parallel {
		o.q = queue.NewMemoryQueue(l, &queue.QueueConfig{
			Workers:    cfg.Workers,
			RetryLimit: cfg.RetryLimit,
			RetryDelay: cfg.RetryDelay,
		})
		o.q.RegisterJob(&trainJob{o: o})
		_ = o.q.Start()
	}
	return o
}

// Close drains the training queue when parallel mode is on.
func (o *TrainingOrchestrator) Close(ctx context.Context) error {
	if o.q != nil {
		return o.q.Stop(ctx)
	}
	return nil
}

// TrainModel runs one training job for a model named in the catalog and
// appends the outcome to the experiment history. Resubmissions beyond the
// per-model budget are rejected.
func (o *TrainingOrchestrator) TrainModel(ctx context.Context, modelID string, data *models.TrainingData) (*models.ModelMetrics, error) {
	cfg, ok := o.catalog[modelID]
	if !ok {
		return nil, fmt.Errorf("unknown model %q", modelID)
	}
	if !o.limiter.Allow(modelID, submitBurst, submitPerSecond) {
		return nil, fmt.Errorf("training for %q rejected: submission budget exhausted", modelID)
	}

	metrics, err := o.trainer.Train(ctx, modelID, cfg, data)
	if err != nil {
		return nil, err
	}

	rec := models.ExperimentRecord{
		ID:        uuid.NewString(),
		ModelID:   modelID,
		Family:    cfg.Family,
		Config:    cfg,
		Metrics:   *metrics,
		Timestamp: time.Now(),
	}
	if err := o.store.Append(ctx, rec); err != nil {
		// History is observability data; a failed append never fails the run.
		if o.l != nil {
			o.l.Warn("experiment append failed",
				applogger.String("model", modelID),
				applogger.Error(err))
		}
	}
	return metrics, nil
}

// TrainAll trains every model that has a dataset, honoring the configured
// mode. Sequential mode stops at the first error; parallel mode collects
// per-model errors and returns the first one after all jobs finish.
func (o *TrainingOrchestrator) TrainAll(ctx context.Context, datasets map[string]*models.TrainingData) error {
	if o.q == nil {
		for modelID, data := range datasets {
			if _, err := o.TrainModel(ctx, modelID, data); err != nil {
				return fmt.Errorf("train %s: %w", modelID, err)
			}
		}
		return nil
	}

	pending := make([]*trainRequest, 0, len(datasets))
	for modelID, data := range datasets {
		req := &trainRequest{ModelID: modelID, Data: data, done: make(chan error, 1)}
		if err := o.q.Enqueue(ctx, trainMessageType, req); err != nil {
			return fmt.Errorf("enqueue %s: %w", modelID, err)
		}
		pending = append(pending, req)
	}

	var firstErr error
	for _, req := range pending {
		select {
		case err := <-req.done:
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("train %s: %w", req.ModelID, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return firstErr
}

// History returns the most recent experiment records for a family.
func (o *TrainingOrchestrator) History(ctx context.Context, family models.ModelFamily, limit int) ([]models.ExperimentRecord, error) {
	return o.store.History(ctx, family, limit)
}

// trainJob adapts orchestrated training to the queue job contract.
type trainJob struct {
	o *TrainingOrchestrator
}

func (j *trainJob) Name() string { return "training.run" }
func (j *trainJob) Type() string { return trainMessageType }

func (j *trainJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[trainRequest](payload)
	if err != nil {
		return err
	}
	_, err = j.o.TrainModel(ctx, req.ModelID, req.Data)
	if req.done != nil {
		// Retried deliveries report into the same channel; never block a worker.
		select {
		case req.done <- err:
		default:
		}
	}
	return err
}
