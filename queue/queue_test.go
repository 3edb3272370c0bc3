package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueProcessesJob(t *testing.T) {
	q := New(10, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var processed int32
	done := make(chan struct{})
	ok := q.Enqueue(Job{
		ID:     "item-1",
		Source: "upload",
		Work: func(ctx context.Context) error {
			atomic.AddInt32(&processed, 1)
			close(done)
			return nil
		},
	})
	if !ok {
		t.Fatalf("expected enqueue to succeed")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("job did not complete")
	}
	if atomic.LoadInt32(&processed) != 1 {
		t.Fatalf("job not processed")
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := New(1, 0, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	ok := q.Enqueue(Job{ID: "first", Source: "upload", Work: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	if !ok {
		t.Fatalf("expected first enqueue to succeed")
	}
	if ok := q.Enqueue(Job{ID: "drop", Source: "upload", Work: func(ctx context.Context) error { return nil }}); ok {
		t.Fatalf("expected enqueue to be rejected when queue is full")
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := New(1, 1, time.Second)
	if ok := q.Enqueue(Job{ID: "early", Source: "upload", Work: func(ctx context.Context) error { return nil }}); ok {
		t.Fatalf("expected enqueue to fail before Start")
	}
	if q.Healthy() {
		t.Fatalf("queue should not report healthy before Start")
	}
}

func TestEnqueueWithRetryDropsWhenFull(t *testing.T) {
	q := New(1, 0, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	if ok := q.Enqueue(Job{ID: "hold", Source: "inbox", Work: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}); !ok {
		t.Fatalf("expected first enqueue to succeed")
	}

	enqueued, droppedFull := q.EnqueueWithRetry(ctx, Job{ID: "retry", Source: "inbox", Work: func(ctx context.Context) error { return nil }}, 50*time.Millisecond, 10*time.Millisecond)
	if enqueued {
		t.Fatalf("expected job to be dropped")
	}
	if !droppedFull {
		t.Fatalf("expected droppedFull to be reported")
	}
}

func TestQueueCountsFailures(t *testing.T) {
	q := New(10, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	done := make(chan struct{})
	q.Enqueue(Job{
		ID:       "bad",
		Source:   "upload",
		Work:     func(ctx context.Context) error { return errors.New("boom") },
		OnFinish: func(err error) { close(done) },
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("job did not finish")
	}

	deadline := time.Now().Add(time.Second)
	for {
		stats := q.Stats()
		if stats.Processed == 1 && stats.Failed == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats not updated: %+v", stats)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopDrainsWorkers(t *testing.T) {
	q := New(10, 2, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	q.Stop(stopCtx)

	if ok := q.Enqueue(Job{ID: "late", Source: "upload", Work: func(ctx context.Context) error { return nil }}); ok {
		t.Fatalf("expected enqueue to fail after Stop")
	}
}
