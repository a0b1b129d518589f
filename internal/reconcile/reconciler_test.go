package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/fr0stylo/auditfeed/internal/feed"
)

type fakeFeed struct {
	live    []feed.Subscription
	listErr error
	// startErr fails StartSubscription for specific wire strings.
	startErr map[string]error
	stopErr  error

	started []string
	stopped []string
}

func (f *fakeFeed) ListSubscriptions(ctx context.Context) ([]feed.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.live, nil
}

func (f *fakeFeed) StartSubscription(ctx context.Context, contentType feed.ContentType) (feed.Subscription, error) {
	if err := f.startErr[contentType.String()]; err != nil {
		return feed.Subscription{}, err
	}
	f.started = append(f.started, contentType.String())
	return feed.Subscription{ContentType: contentType.String(), Status: "enabled"}, nil
}

func (f *fakeFeed) StopSubscription(ctx context.Context, contentType feed.ContentType) error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = append(f.stopped, contentType.String())
	return nil
}

func TestReconcileStartsOnlyMissing(t *testing.T) {
	t.Parallel()

	api := &fakeFeed{live: []feed.Subscription{
		{ContentType: "Audit.Exchange", Status: "enabled"},
	}}
	started, err := New(api, false).Reconcile(context.Background(), []feed.ContentType{
		feed.AuditExchange,
		feed.AuditSharePoint,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(api.started) != 1 || api.started[0] != "Audit.SharePoint" {
		t.Fatalf("unexpected starts: %v", api.started)
	}
	if len(started) != 1 || started[0].ContentType != "Audit.SharePoint" {
		t.Fatalf("unexpected started result: %+v", started)
	}
}

func TestReconcileRestartsDisabledSubscription(t *testing.T) {
	t.Parallel()

	api := &fakeFeed{live: []feed.Subscription{
		{ContentType: "Audit.Exchange", Status: "disabled"},
	}}
	_, err := New(api, false).Reconcile(context.Background(), []feed.ContentType{feed.AuditExchange})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(api.started) != 1 || api.started[0] != "Audit.Exchange" {
		t.Fatalf("expected disabled subscription to be restarted, got %v", api.started)
	}
}

func TestReconcileMatchesContentTypeCaseInsensitively(t *testing.T) {
	t.Parallel()

	api := &fakeFeed{live: []feed.Subscription{
		{ContentType: "audit.exchange", Status: "Enabled"},
	}}
	_, err := New(api, false).Reconcile(context.Background(), []feed.ContentType{feed.AuditExchange})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(api.started) != 0 {
		t.Fatalf("expected no starts for case-variant match, got %v", api.started)
	}
}

func TestReconcileContinuesPastStartFailure(t *testing.T) {
	t.Parallel()

	api := &fakeFeed{
		startErr: map[string]error{"Audit.Exchange": errors.New("throttled")},
	}
	started, err := New(api, false).Reconcile(context.Background(), []feed.ContentType{
		feed.AuditExchange,
		feed.AuditSharePoint,
		feed.AuditGeneral,
	})
	if err == nil {
		t.Fatal("expected joined failure")
	}
	if len(started) != 2 {
		t.Fatalf("expected the remaining types to still start, got %+v", started)
	}
	if len(api.started) != 2 {
		t.Fatalf("unexpected starts: %v", api.started)
	}
}

func TestReconcileListFailureIsFatal(t *testing.T) {
	t.Parallel()

	api := &fakeFeed{listErr: errors.New("upstream down")}
	if _, err := New(api, false).Reconcile(context.Background(), nil); err == nil {
		t.Fatal("expected error when listing fails")
	}
	if len(api.started) != 0 {
		t.Fatalf("no starts expected, got %v", api.started)
	}
}

func TestPruneStopsUndesiredEnabledSubscriptions(t *testing.T) {
	t.Parallel()

	api := &fakeFeed{live: []feed.Subscription{
		{ContentType: "Audit.Exchange", Status: "enabled"},
		{ContentType: "Audit.General", Status: "enabled"},
		{ContentType: "Audit.SharePoint", Status: "disabled"},
	}}
	_, err := New(api, true).Reconcile(context.Background(), []feed.ContentType{feed.AuditExchange})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(api.stopped) != 1 || api.stopped[0] != "Audit.General" {
		t.Fatalf("unexpected stops: %v", api.stopped)
	}
}

func TestPruneSkipsUnrecognizedContentType(t *testing.T) {
	t.Parallel()

	api := &fakeFeed{live: []feed.Subscription{
		{ContentType: "Audit.Unknown", Status: "enabled"},
	}}
	_, err := New(api, true).Reconcile(context.Background(), []feed.ContentType{feed.AuditExchange})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(api.stopped) != 0 {
		t.Fatalf("unrecognized subscription must not be stopped, got %v", api.stopped)
	}
}

func TestPruneDisabledNeverStops(t *testing.T) {
	t.Parallel()

	api := &fakeFeed{live: []feed.Subscription{
		{ContentType: "Audit.General", Status: "disabled"},
	}}
	_, err := New(api, true).Reconcile(context.Background(), []feed.ContentType{feed.AuditExchange})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(api.stopped) != 0 {
		t.Fatalf("disabled subscription must not be stopped, got %v", api.stopped)
	}
}
