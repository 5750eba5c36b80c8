package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alumnity/alumnity/internal/types"
	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripeEvent(id, eventType, raw string) *stripeapi.Event {
	return &stripeapi.Event{
		ID:   id,
		Type: stripeapi.EventType(eventType),
		Data: &stripeapi.EventData{Raw: json.RawMessage(raw)},
	}
}

func TestNormalizeCheckoutSession(t *testing.T) {
	event := stripeEvent("evt_1", "checkout.session.completed", `{
		"id": "cs_1",
		"customer": "cus_1",
		"subscription": "sub_1",
		"metadata": {"payment_attempt_id": "attempt_1", "org_slug": "acme", "org_name": "Acme Alumni"}
	}`)

	normalized, err := Normalize(event, "fp_1")
	require.NoError(t, err)
	require.NotNil(t, normalized)

	assert.Equal(t, "evt_1", normalized.ID)
	assert.Equal(t, types.WebhookEventTypeCheckoutSessionCompleted, normalized.Type)
	assert.Equal(t, "cs_1", normalized.SessionID)
	assert.Equal(t, "sub_1", normalized.SubjectID)
	assert.Equal(t, "cus_1", normalized.CustomerID)
	assert.Equal(t, types.SubscriptionStatusActive, normalized.Status)
	assert.Equal(t, "attempt_1", normalized.PaymentAttemptID())
	assert.Equal(t, "acme", normalized.OrgSlug())
	assert.Equal(t, "Acme Alumni", normalized.OrgName())
	assert.Equal(t, "fp_1", normalized.Fingerprint)
}

func TestNormalizeSubscriptionStatus(t *testing.T) {
	periodEnd := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name           string
		eventType      string
		raw            string
		expectedStatus types.SubscriptionStatus
		expectedEnd    *time.Time
	}{
		{
			name:      "active_passes_through",
			eventType: "customer.subscription.updated",
			raw: `{"id": "sub_1", "customer": "cus_1", "status": "active",
				"items": {"data": [{"id": "si_1", "current_period_end": 1767225600}]}}`,
			expectedStatus: types.SubscriptionStatusActive,
			expectedEnd:    &periodEnd,
		},
		{
			name:      "cancel_at_period_end_collapses_to_canceling",
			eventType: "customer.subscription.updated",
			raw: `{"id": "sub_1", "customer": "cus_1", "status": "active",
				"cancel_at_period_end": true}`,
			expectedStatus: types.SubscriptionStatusCanceling,
		},
		{
			name:           "deletion_always_yields_canceled",
			eventType:      "customer.subscription.deleted",
			raw:            `{"id": "sub_1", "customer": "cus_1", "status": "active"}`,
			expectedStatus: types.SubscriptionStatusCanceled,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			normalized, err := Normalize(stripeEvent("evt_1", tc.eventType, tc.raw), "fp_1")
			require.NoError(t, err)
			require.NotNil(t, normalized)

			assert.Equal(t, "sub_1", normalized.SubjectID)
			assert.Equal(t, "cus_1", normalized.CustomerID)
			assert.Equal(t, tc.expectedStatus, normalized.Status)
			if tc.expectedEnd != nil {
				require.NotNil(t, normalized.CurrentPeriodEnd)
				assert.True(t, normalized.CurrentPeriodEnd.Equal(*tc.expectedEnd))
			}
		})
	}
}

func TestNormalizeSubscriptionRejectsUnknownStatus(t *testing.T) {
	event := stripeEvent("evt_1", "customer.subscription.updated",
		`{"id": "sub_1", "status": "paused"}`)

	normalized, err := Normalize(event, "fp_1")
	assert.Error(t, err)
	assert.Nil(t, normalized)
}

func TestNormalizeInvoice(t *testing.T) {
	testCases := []struct {
		name            string
		eventType       string
		raw             string
		expectedStatus  types.SubscriptionStatus
		expectedSubject string
	}{
		{
			name:      "paid_with_parent_linkage",
			eventType: "invoice.paid",
			raw: `{"id": "in_1", "customer": "cus_1",
				"parent": {"subscription_details": {"subscription": "sub_1"}}}`,
			expectedStatus:  types.SubscriptionStatusActive,
			expectedSubject: "sub_1",
		},
		{
			name:            "payment_failed_with_top_level_linkage",
			eventType:       "invoice.payment_failed",
			raw:             `{"id": "in_2", "customer": "cus_1", "subscription": "sub_1"}`,
			expectedStatus:  types.SubscriptionStatusPastDue,
			expectedSubject: "sub_1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			normalized, err := Normalize(stripeEvent("evt_1", tc.eventType, tc.raw), "fp_1")
			require.NoError(t, err)
			require.NotNil(t, normalized)

			assert.Equal(t, tc.expectedSubject, normalized.SubjectID)
			assert.Equal(t, "cus_1", normalized.CustomerID)
			assert.Equal(t, tc.expectedStatus, normalized.Status)
		})
	}
}

func TestNormalizeChargeRefunded(t *testing.T) {
	t.Run("full_refund", func(t *testing.T) {
		event := stripeEvent("evt_1", "charge.refunded",
			`{"id": "ch_1", "customer": "cus_1", "refunded": true}`)

		normalized, err := Normalize(event, "fp_1")
		require.NoError(t, err)
		require.NotNil(t, normalized)
		assert.Equal(t, "cus_1", normalized.CustomerID)
		assert.Equal(t, types.SubscriptionStatusCanceled, normalized.Status)
	})

	t.Run("partial_refund_is_ignored", func(t *testing.T) {
		event := stripeEvent("evt_2", "charge.refunded",
			`{"id": "ch_1", "customer": "cus_1", "refunded": false}`)

		normalized, err := Normalize(event, "fp_1")
		require.NoError(t, err)
		assert.Nil(t, normalized)
	})
}

func TestNormalizeUnhandledEventType(t *testing.T) {
	event := stripeEvent("evt_1", "customer.created", `{"id": "cus_1"}`)

	normalized, err := Normalize(event, "fp_1")
	assert.NoError(t, err)
	assert.Nil(t, normalized)
}
