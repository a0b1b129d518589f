package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentNotificationWireMapping(t *testing.T) {
	t.Parallel()

	payload := `{
		"tenantId": "tenant-1",
		"clientId": "client-1",
		"contentType": "Audit.SharePoint",
		"contentId": "20260830120000000000$20260830120100000000$audit_sharepoint$Audit_SharePoint",
		"contentUri": "https://manage.office.com/api/v1.0/tenant-1/activity/feed/audit/abc",
		"contentCreated": "2026-08-30T12:01:00.000Z",
		"contentExpiration": "2026-09-06T12:01:00.000Z"
	}`

	var notification ContentNotification
	require.NoError(t, json.Unmarshal([]byte(payload), &notification))

	assert.Equal(t, "tenant-1", notification.TenantID)
	assert.Equal(t, "client-1", notification.ClientID)
	assert.Equal(t, "Audit.SharePoint", notification.ContentType)
	assert.Equal(t, "https://manage.office.com/api/v1.0/tenant-1/activity/feed/audit/abc", notification.ContentURI)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 1, 0, 0, time.UTC), notification.ContentCreated)
	assert.Equal(t, time.Date(2026, 9, 6, 12, 1, 0, 0, time.UTC), notification.ContentExpiration)
}

func TestSubscriptionWireMapping(t *testing.T) {
	t.Parallel()

	payload := `{
		"contentType": "Audit.Exchange",
		"status": "enabled",
		"webhook": {
			"status": "enabled",
			"address": "https://bridge.example.com/api/content",
			"authId": "o365feed",
			"expiration": null
		}
	}`

	var subscription Subscription
	require.NoError(t, json.Unmarshal([]byte(payload), &subscription))

	assert.Equal(t, "Audit.Exchange", subscription.ContentType)
	assert.Equal(t, "enabled", subscription.Status)
	require.NotNil(t, subscription.Webhook)
	assert.Equal(t, "https://bridge.example.com/api/content", subscription.Webhook.Address)
	assert.Equal(t, "o365feed", subscription.Webhook.AuthID)
	assert.Nil(t, subscription.Webhook.Expiration)
}

func TestSubscriptionStartBodyOmitsEmptyFields(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(Subscription{Webhook: &Webhook{Address: "https://bridge.example.com/api/content"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"webhook":{"address":"https://bridge.example.com/api/content"}}`, string(body))
}

func TestRecordsStayOpaque(t *testing.T) {
	t.Parallel()

	payload := `[{"Id":"1","CreationTime":"2026-08-30T12:00:00","Nested":{"deep":[1,2,3]}},{"Id":"2"}]`
	var records Records
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	require.Len(t, records, 2)

	// Round-trip preserves the raw payload byte-for-byte per record.
	assert.JSONEq(t, `{"Id":"1","CreationTime":"2026-08-30T12:00:00","Nested":{"deep":[1,2,3]}}`, string(records[0]))
}
