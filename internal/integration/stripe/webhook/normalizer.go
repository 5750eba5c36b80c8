package webhook

import (
	"encoding/json"
	"time"

	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/types"
	stripeapi "github.com/stripe/stripe-go/v82"
)

// Normalize reduces a verified Stripe event to the provider-neutral
// form synchronization acts on. It returns nil for event types this
// system does not process; callers acknowledge those without side
// effects.
//
// Status collapsing happens here: a deletion always yields canceled,
// any other status with cancel_at_period_end set yields canceling, and
// otherwise the provider's status passes through unchanged.
func Normalize(event *stripeapi.Event, fingerprint string) (*types.NormalizedEvent, error) {
	normalized := &types.NormalizedEvent{
		ID:          event.ID,
		Type:        types.WebhookEventType(event.Type),
		Fingerprint: fingerprint,
		Metadata:    types.Metadata{},
	}

	switch normalized.Type {
	case types.WebhookEventTypeCheckoutSessionCompleted:
		return normalizeCheckoutSession(event, normalized)

	case types.WebhookEventTypeSubscriptionCreated,
		types.WebhookEventTypeSubscriptionUpdated,
		types.WebhookEventTypeSubscriptionDeleted:
		return normalizeSubscription(event, normalized)

	case types.WebhookEventTypeInvoicePaid,
		types.WebhookEventTypeInvoicePaymentFailed:
		return normalizeInvoice(event, normalized)

	case types.WebhookEventTypeChargeRefunded:
		return normalizeCharge(event, normalized)

	default:
		return nil, nil
	}
}

func normalizeCheckoutSession(event *stripeapi.Event, normalized *types.NormalizedEvent) (*types.NormalizedEvent, error) {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, parseError(err, event)
	}

	normalized.SessionID = session.ID
	if session.Subscription != nil {
		normalized.SubjectID = session.Subscription.ID
	}
	if session.Customer != nil {
		normalized.CustomerID = session.Customer.ID
	}
	for k, v := range session.Metadata {
		normalized.Metadata[k] = v
	}

	// Checkout completion links a tenant to its provider objects; the
	// authoritative status and period end arrive on the subscription
	// events that follow.
	normalized.Status = types.SubscriptionStatusActive
	return normalized, nil
}

func normalizeSubscription(event *stripeapi.Event, normalized *types.NormalizedEvent) (*types.NormalizedEvent, error) {
	var sub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, parseError(err, event)
	}

	normalized.SubjectID = sub.ID
	if sub.Customer != nil {
		normalized.CustomerID = sub.Customer.ID
	}
	for k, v := range sub.Metadata {
		normalized.Metadata[k] = v
	}
	normalized.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	normalized.CurrentPeriodEnd = itemPeriodEnd(&sub)

	switch {
	case normalized.Type == types.WebhookEventTypeSubscriptionDeleted:
		normalized.Status = types.SubscriptionStatusCanceled
	case sub.CancelAtPeriodEnd:
		normalized.Status = types.SubscriptionStatusCanceling
	default:
		normalized.Status = types.SubscriptionStatus(sub.Status)
	}

	if err := normalized.Status.Validate(); err != nil {
		return nil, err
	}
	return normalized, nil
}

// normalizeInvoice extracts the subscription linkage from an invoice
// event. The subscription reference lives under the invoice's parent
// details in the pinned API version.
func normalizeInvoice(event *stripeapi.Event, normalized *types.NormalizedEvent) (*types.NormalizedEvent, error) {
	var invoice struct {
		ID       string `json:"id"`
		Customer string `json:"customer"`
		Parent   struct {
			SubscriptionDetails struct {
				Subscription string `json:"subscription"`
			} `json:"subscription_details"`
		} `json:"parent"`
		Subscription string `json:"subscription"`
	}
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return nil, parseError(err, event)
	}

	normalized.SubjectID = invoice.Parent.SubscriptionDetails.Subscription
	if normalized.SubjectID == "" {
		normalized.SubjectID = invoice.Subscription
	}
	normalized.CustomerID = invoice.Customer

	if normalized.Type == types.WebhookEventTypeInvoicePaid {
		normalized.Status = types.SubscriptionStatusActive
	} else {
		normalized.Status = types.SubscriptionStatusPastDue
	}
	return normalized, nil
}

// normalizeCharge handles refunds. A charge carries no subscription
// reference of its own, so the customer id is the lookup key and the
// handler resolves the tenant from it.
func normalizeCharge(event *stripeapi.Event, normalized *types.NormalizedEvent) (*types.NormalizedEvent, error) {
	var charge struct {
		ID       string `json:"id"`
		Customer string `json:"customer"`
		Refunded bool   `json:"refunded"`
	}
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return nil, parseError(err, event)
	}

	// Partial refunds leave the subscription alone; only a fully
	// refunded charge revokes it
	if !charge.Refunded {
		return nil, nil
	}

	normalized.CustomerID = charge.Customer
	normalized.Status = types.SubscriptionStatusCanceled
	return normalized, nil
}

// itemPeriodEnd returns the latest period end across the subscription's
// line items; the pinned API version reports period boundaries per item
func itemPeriodEnd(sub *stripeapi.Subscription) *time.Time {
	if sub.Items == nil {
		return nil
	}
	var periodEnd int64
	for _, item := range sub.Items.Data {
		if item.CurrentPeriodEnd > periodEnd {
			periodEnd = item.CurrentPeriodEnd
		}
	}
	if periodEnd == 0 {
		return nil
	}
	end := time.Unix(periodEnd, 0).UTC()
	return &end
}

func parseError(err error, event *stripeapi.Event) error {
	return ierr.WithError(err).
		WithHint("Failed to parse webhook payload").
		WithReportableDetails(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).
		Mark(ierr.ErrValidation)
}
