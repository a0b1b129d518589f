// Package reconcile aligns the provider's live subscriptions with the
// desired content-type configuration.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fr0stylo/auditfeed/internal/feed"
)

// FeedAPI is the slice of the activity-feed client the reconciler drives.
type FeedAPI interface {
	ListSubscriptions(ctx context.Context) ([]feed.Subscription, error)
	StartSubscription(ctx context.Context, contentType feed.ContentType) (feed.Subscription, error)
	StopSubscription(ctx context.Context, contentType feed.ContentType) error
}

// Reconciler diffs desired content types against live subscription state and
// issues start/stop calls.
type Reconciler struct {
	feed FeedAPI
	// prune enables stopping enabled subscriptions that are no longer
	// desired. The additive-only mode never deactivates anything.
	prune bool
}

// New constructs a reconciler. Pruning must be opted into explicitly.
func New(api FeedAPI, prune bool) *Reconciler {
	return &Reconciler{feed: api, prune: prune}
}

// Reconcile makes live subscriptions match the desired set and returns the
// subscriptions it newly started. Each content type is an independent unit:
// one failing start or stop never prevents the check for the remaining
// types. Collected failures come back joined alongside any partial result.
func (r *Reconciler) Reconcile(ctx context.Context, desired []feed.ContentType) ([]feed.Subscription, error) {
	live, err := r.feed.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	byType := make(map[string]feed.Subscription, len(live))
	for _, subscription := range live {
		byType[strings.ToLower(subscription.ContentType)] = subscription
	}

	var started []feed.Subscription
	var failures []error
	for _, contentType := range desired {
		existing, ok := byType[strings.ToLower(contentType.String())]
		if ok && strings.EqualFold(existing.Status, "enabled") {
			continue
		}
		subscription, err := r.feed.StartSubscription(ctx, contentType)
		if err != nil {
			slog.Error("failed to start subscription", "content_type", contentType.String(), "error", err)
			failures = append(failures, fmt.Errorf("start %s: %w", contentType, err))
			continue
		}
		started = append(started, subscription)
	}

	if r.prune {
		failures = append(failures, r.pruneUndesired(ctx, live, desired)...)
	}

	return started, errors.Join(failures...)
}

// pruneUndesired stops enabled subscriptions whose content type is not in
// the desired set.
func (r *Reconciler) pruneUndesired(ctx context.Context, live []feed.Subscription, desired []feed.ContentType) []error {
	wanted := make(map[string]struct{}, len(desired))
	for _, contentType := range desired {
		wanted[strings.ToLower(contentType.String())] = struct{}{}
	}

	var failures []error
	for _, subscription := range live {
		if subscription.ContentType == "" || !strings.EqualFold(subscription.Status, "enabled") {
			continue
		}
		if _, ok := wanted[strings.ToLower(subscription.ContentType)]; ok {
			continue
		}
		contentType, err := feed.ParseContentType(subscription.ContentType)
		if err != nil {
			slog.Warn("not pruning unrecognized subscription", "content_type", subscription.ContentType)
			continue
		}
		if err := r.feed.StopSubscription(ctx, contentType); err != nil {
			slog.Error("failed to stop subscription", "content_type", subscription.ContentType, "error", err)
			failures = append(failures, fmt.Errorf("stop %s: %w", subscription.ContentType, err))
		}
	}
	return failures
}
