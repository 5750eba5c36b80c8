package subscription

import (
	"time"

	"github.com/alumnity/alumnity/internal/types"
)

// Record is the local relational record of a tenant's subscription.
// The payment provider is the source of truth for money movement; this
// row is a cache that webhook processing and reconciliation keep
// consistent with it. Records are never deleted, only transitioned to a
// terminal status.
type Record struct {
	ID       string `db:"id" json:"id"`
	TenantID string `db:"tenant_id" json:"tenant_id"`

	// ProviderCustomerID is nil until the first successful provider
	// linkage. ProviderSubscriptionID is nil while the tenant is on a
	// free tier.
	ProviderCustomerID     *string `db:"provider_customer_id" json:"provider_customer_id"`
	ProviderSubscriptionID *string `db:"provider_subscription_id" json:"provider_subscription_id"`

	Status          types.SubscriptionStatus `db:"status" json:"status"`
	BillingInterval types.BillingInterval    `db:"billing_interval" json:"billing_interval"`
	PricingModel    types.PricingModel       `db:"pricing_model" json:"pricing_model"`

	CurrentPeriodEnd  *time.Time `db:"current_period_end" json:"current_period_end"`
	GracePeriodEndsAt *time.Time `db:"grace_period_ends_at" json:"grace_period_ends_at"`

	// One quantity and one provider line item id per billed unit kind.
	// The item id is nil while the quantity sits at or below the plan's
	// free threshold.
	SeatCount    int64   `db:"seat_count" json:"seat_count"`
	SeatItemID   *string `db:"seat_item_id" json:"seat_item_id"`
	BucketCount  int64   `db:"bucket_count" json:"bucket_count"`
	BucketItemID *string `db:"bucket_item_id" json:"bucket_item_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// New creates a pending record for a freshly provisioned tenant
func New(tenantID string, pricingModel types.PricingModel) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		TenantID:        tenantID,
		Status:          types.SubscriptionStatusPending,
		BillingInterval: types.BillingIntervalMonth,
		PricingModel:    pricingModel,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Quantity returns the stored quantity for a unit kind
func (r *Record) Quantity(kind types.UnitKind) int64 {
	if kind == types.UnitKindBucket {
		return r.BucketCount
	}
	return r.SeatCount
}

// ItemID returns the provider line item id for a unit kind, if any
func (r *Record) ItemID(kind types.UnitKind) *string {
	if kind == types.UnitKindBucket {
		return r.BucketItemID
	}
	return r.SeatItemID
}

// HasOtherBilledItems reports whether a line item for a different unit
// kind is still attached to the provider subscription
func (r *Record) HasOtherBilledItems(kind types.UnitKind) bool {
	if kind == types.UnitKindBucket {
		return r.SeatItemID != nil
	}
	return r.BucketItemID != nil
}

// UpdateFields is a partial update: only non-nil fields (and fields with
// their Clear flag set) are written. UpdatedAt is always refreshed.
type UpdateFields struct {
	ProviderCustomerID     *string
	ProviderSubscriptionID *string
	// ClearProviderSubscriptionID nulls the provider subscription id,
	// used when the last billed line item is removed
	ClearProviderSubscriptionID bool

	Status          *types.SubscriptionStatus
	BillingInterval *types.BillingInterval

	CurrentPeriodEnd      *time.Time
	ClearCurrentPeriodEnd bool

	GracePeriodEndsAt      *time.Time
	ClearGracePeriodEndsAt bool

	SeatCount       *int64
	SeatItemID      *string
	ClearSeatItemID bool

	BucketCount       *int64
	BucketItemID      *string
	ClearBucketItemID bool
}

// SetQuantity sets the quantity field for the given unit kind
func (f *UpdateFields) SetQuantity(kind types.UnitKind, quantity int64) {
	if kind == types.UnitKindBucket {
		f.BucketCount = &quantity
		return
	}
	f.SeatCount = &quantity
}

// SetItemID sets the provider line item id for the given unit kind
func (f *UpdateFields) SetItemID(kind types.UnitKind, itemID string) {
	if kind == types.UnitKindBucket {
		f.BucketItemID = &itemID
		return
	}
	f.SeatItemID = &itemID
}

// ClearItemID nulls the provider line item id for the given unit kind
func (f *UpdateFields) ClearItemID(kind types.UnitKind) {
	if kind == types.UnitKindBucket {
		f.ClearBucketItemID = true
		return
	}
	f.ClearSeatItemID = true
}

// Apply mutates a record in memory the same way the store applies the
// partial update. Shared by the sqlx repository test double and the
// in-memory store so both agree with the SQL semantics.
func (f *UpdateFields) Apply(r *Record) {
	if f.ProviderCustomerID != nil {
		r.ProviderCustomerID = f.ProviderCustomerID
	}
	if f.ProviderSubscriptionID != nil {
		r.ProviderSubscriptionID = f.ProviderSubscriptionID
	}
	if f.ClearProviderSubscriptionID {
		r.ProviderSubscriptionID = nil
	}
	if f.Status != nil {
		r.Status = *f.Status
	}
	if f.BillingInterval != nil {
		r.BillingInterval = *f.BillingInterval
	}
	if f.CurrentPeriodEnd != nil {
		r.CurrentPeriodEnd = f.CurrentPeriodEnd
	}
	if f.ClearCurrentPeriodEnd {
		r.CurrentPeriodEnd = nil
	}
	if f.GracePeriodEndsAt != nil {
		r.GracePeriodEndsAt = f.GracePeriodEndsAt
	}
	if f.ClearGracePeriodEndsAt {
		r.GracePeriodEndsAt = nil
	}
	if f.SeatCount != nil {
		r.SeatCount = *f.SeatCount
	}
	if f.SeatItemID != nil {
		r.SeatItemID = f.SeatItemID
	}
	if f.ClearSeatItemID {
		r.SeatItemID = nil
	}
	if f.BucketCount != nil {
		r.BucketCount = *f.BucketCount
	}
	if f.BucketItemID != nil {
		r.BucketItemID = f.BucketItemID
	}
	if f.ClearBucketItemID {
		r.BucketItemID = nil
	}
	r.UpdatedAt = time.Now().UTC()
}
