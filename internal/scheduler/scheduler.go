// Package scheduler runs reconciliation on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/fr0stylo/auditfeed/internal/feed"
	"github.com/fr0stylo/auditfeed/internal/observability"
)

// Reconciler is the reconcile entry point driven by the schedule.
type Reconciler interface {
	Reconcile(ctx context.Context, desired []feed.ContentType) ([]feed.Subscription, error)
}

// Scheduler triggers reconciliation immediately on start and then once per
// interval until its context is cancelled. Failures are logged; a scheduled
// run has no external visibility beyond logs.
type Scheduler struct {
	reconciler Reconciler
	desired    []feed.ContentType
	interval   time.Duration
}

// New constructs a scheduler. A non-positive interval defaults to one hour.
func New(reconciler Reconciler, desired []feed.ContentType, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{reconciler: reconciler, desired: desired, interval: interval}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	ctx, span := observability.StartReconcileSpan(ctx)
	defer span.End()

	slog.InfoContext(ctx, "checking subscriptions")
	started, err := s.reconciler.Reconcile(ctx, s.desired)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "scheduled reconciliation failed", "error", err, "started", len(started))
		return
	}
	slog.InfoContext(ctx, "subscriptions reconciled", "started", len(started))
}
