package types

import "time"

// WebhookEventType enumerates the provider notification types this
// system processes. Anything else is acknowledged and ignored.
type WebhookEventType string

const (
	WebhookEventTypeCheckoutSessionCompleted WebhookEventType = "checkout.session.completed"
	WebhookEventTypeSubscriptionCreated      WebhookEventType = "customer.subscription.created"
	WebhookEventTypeSubscriptionUpdated      WebhookEventType = "customer.subscription.updated"
	WebhookEventTypeSubscriptionDeleted      WebhookEventType = "customer.subscription.deleted"
	WebhookEventTypeInvoicePaid              WebhookEventType = "invoice.paid"
	WebhookEventTypeInvoicePaymentFailed     WebhookEventType = "invoice.payment_failed"
	WebhookEventTypeChargeRefunded           WebhookEventType = "charge.refunded"
)

func (t WebhookEventType) String() string {
	return string(t)
}

// NormalizedEvent is a provider notification reduced to the fields
// synchronization acts on. Provider-specific payload shapes and the
// cancel-at-period-end flag are collapsed into Status before anything
// downstream sees the event.
type NormalizedEvent struct {
	// ID is the provider's event id, the idempotency key
	ID   string
	Type WebhookEventType

	// SubjectID is the provider subscription id the event refers to.
	// Empty for events that only carry a customer reference.
	SubjectID  string
	CustomerID string

	// SessionID is set for checkout completion events
	SessionID string

	Status            SubscriptionStatus
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool

	// Metadata is the provider-echoed key/value bag. Identity claims in
	// here are never trusted; only opaque linkage ids are read from it.
	Metadata Metadata

	// Fingerprint is a digest of the raw payload, stored with the
	// idempotency record
	Fingerprint string
}

// PaymentAttemptID returns the internally-issued attempt id echoed
// through checkout metadata, if present
func (e *NormalizedEvent) PaymentAttemptID() string {
	return e.Metadata.Get(MetadataKeyPaymentAttemptID, "")
}

// OrgSlug and OrgName are the tenant-provisioning hints echoed through
// checkout metadata
func (e *NormalizedEvent) OrgSlug() string {
	return e.Metadata.Get(MetadataKeyOrgSlug, "")
}

func (e *NormalizedEvent) OrgName() string {
	return e.Metadata.Get(MetadataKeyOrgName, "")
}

// TenantID returns the tenant id echoed through checkout metadata for
// upgrades of an existing organization, if present
func (e *NormalizedEvent) TenantID() string {
	return e.Metadata.Get(MetadataKeyTenantID, "")
}

// Metadata keys echoed through provider checkout sessions
const (
	MetadataKeyPaymentAttemptID = "payment_attempt_id"
	MetadataKeyOrgSlug          = "org_slug"
	MetadataKeyOrgName          = "org_name"
	MetadataKeyTenantID         = "tenant_id"
)
