package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fr0stylo/auditfeed/internal/feed"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (c *countingReconciler) Reconcile(ctx context.Context, desired []feed.ContentType) ([]feed.Subscription, error) {
	c.calls.Add(1)
	return nil, c.err
}

func TestRunReconcilesImmediatelyAndOnInterval(t *testing.T) {
	t.Parallel()

	reconciler := &countingReconciler{}
	scheduler := New(reconciler, []feed.ContentType{feed.AuditExchange}, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for reconciler.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 runs, got %d", reconciler.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestRunSurvivesReconcileFailures(t *testing.T) {
	t.Parallel()

	reconciler := &countingReconciler{err: errors.New("provider down")}
	scheduler := New(reconciler, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for reconciler.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected the loop to keep running past failures, got %d runs", reconciler.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestNewDefaultsInterval(t *testing.T) {
	t.Parallel()

	scheduler := New(&countingReconciler{}, nil, 0)
	if scheduler.interval != time.Hour {
		t.Fatalf("interval = %v, want 1h", scheduler.interval)
	}
}
