package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"EsgPulse/pkg/logger"
)

// MemoryQueue is an in-process worker queue. Training jobs are process-local
// so the queue runs on a buffered channel instead of an external broker;
// worker, retry and graceful-stop semantics match the job contract.
type MemoryQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	jobs      map[string]Job
	ch        chan Message
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewMemoryQueue creates a new in-memory queue.
func NewMemoryQueue(lgr *logger.Logger, config *QueueConfig) *MemoryQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}
	if lgr == nil {
		lgr = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MemoryQueue{
		logger: lgr,
		config: config,
		jobs:   make(map[string]Job),
		ch:     make(chan Message, config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterJobs registers multiple jobs.
func (q *MemoryQueue) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		q.RegisterJob(job)
	}
}

// RegisterJob registers a single job.
func (q *MemoryQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}

	q.jobs[job.Type()] = job
	q.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start starts the queue workers.
func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	q.isRunning = true
	q.mu.Unlock()

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.logger.Info("memory queue started",
		logger.Int("workers", q.config.Workers),
		logger.Int("buffer", q.config.QueueSize))

	return nil
}

// Stop gracefully stops the queue, waiting for in-flight jobs up to the
// context deadline.
func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.logger.Info("stopping memory queue...")
	q.cancel()
	q.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		q.logger.Info("memory queue stopped gracefully")
		return nil
	}
}

// Enqueue adds a message to the queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	if !q.isRunning {
		q.mu.RUnlock()
		return fmt.Errorf("queue not running")
	}
	if _, exists := q.jobs[msgType]; !exists {
		q.mu.RUnlock()
		return fmt.Errorf("no job registered for type: %s", msgType)
	}
	q.mu.RUnlock()

	msg := Message{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
		Attempts:  0,
	}

	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return fmt.Errorf("queue stopped")
	}
}

// PublishMessage publishes a message (implements QueueService).
func (q *MemoryQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return q.Enqueue(ctx, msgType, payload)
}

func (q *MemoryQueue) worker(id int) {
	defer q.wg.Done()
	q.logger.Info("queue worker started", logger.Int("worker_id", id))

	for {
		select {
		case <-q.ctx.Done():
			q.logger.Info("queue worker stopping", logger.Int("worker_id", id))
			return
		case msg := <-q.ch:
			q.processMessage(msg)
		}
	}
}

func (q *MemoryQueue) processMessage(msg Message) {
	q.mu.RLock()
	job, exists := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !exists {
		q.logger.Error("no job found",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	start := time.Now()
	err := job.Handle(q.ctx, msg.Payload)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			q.logger.Warn("message cancelled",
				logger.String("id", msg.ID),
				logger.String("job", job.Name()),
				logger.Int64("elapsed_ms", elapsed.Milliseconds()))
			return
		}
		q.retryMessage(msg, job, err)
	}
}

func (q *MemoryQueue) retryMessage(msg Message, job Job, err error) {
	msg.Attempts++
	if msg.Attempts > q.config.RetryLimit {
		q.logger.Error("message dropped after max retries",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int("attempts", msg.Attempts),
			logger.Error(err))
		return
	}

	q.logger.Warn("message failed, scheduling retry",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts),
		logger.Error(err))

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-time.After(q.config.RetryDelay):
		case <-q.ctx.Done():
			return
		}
		select {
		case q.ch <- msg:
		case <-q.ctx.Done():
		}
	}()
}
