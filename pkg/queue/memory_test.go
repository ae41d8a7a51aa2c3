package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

type countingJob struct {
	name     string
	msgType  string
	handled  atomic.Int64
	failures atomic.Int64
}

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Type() string { return j.msgType }

func (j *countingJob) Handle(_ context.Context, _ interface{}) error {
	if j.failures.Load() > 0 {
		j.failures.Add(-1)
		return fmt.Errorf("transient failure")
	}
	j.handled.Add(1)
	return nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestMemoryQueueDispatch(t *testing.T) {
	job := &countingJob{name: "count", msgType: "test.count"}
	q := NewMemoryQueue(nil, &QueueConfig{Workers: 2, QueueSize: 8})
	q.RegisterJob(job)
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopQueue(t, q)

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(context.Background(), "test.count", i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	waitFor(t, time.Second, func() bool { return job.handled.Load() == 5 })
}

func TestMemoryQueueRejectsUnknownType(t *testing.T) {
	q := NewMemoryQueue(nil, nil)
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopQueue(t, q)

	if err := q.Enqueue(context.Background(), "nope", nil); err == nil {
		t.Fatal("expected error for unregistered type")
	}
}

func TestMemoryQueueEnqueueBeforeStart(t *testing.T) {
	job := &countingJob{name: "count", msgType: "test.count"}
	q := NewMemoryQueue(nil, nil)
	q.RegisterJob(job)
	if err := q.Enqueue(context.Background(), "test.count", nil); err == nil {
		t.Fatal("expected error before Start")
	}
}

func TestMemoryQueueRetries(t *testing.T) {
	job := &countingJob{name: "retry", msgType: "test.retry"}
	job.failures.Store(1)
	q := NewMemoryQueue(nil, &QueueConfig{
		Workers:    1,
		RetryLimit: 2,
		RetryDelay: 10 * time.Millisecond,
	})
	q.RegisterJob(job)
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stopQueue(t, q)

	if err := q.Enqueue(context.Background(), "test.retry", nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, time.Second, func() bool { return job.handled.Load() == 1 })
}

func TestMemoryQueueGracefulStop(t *testing.T) {
	job := &countingJob{name: "count", msgType: "test.count"}
	q := NewMemoryQueue(nil, &QueueConfig{Workers: 1})
	q.RegisterJob(job)
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// second stop is a no-op
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func stopQueue(t *testing.T, q *MemoryQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Errorf("stop: %v", err)
	}
}
