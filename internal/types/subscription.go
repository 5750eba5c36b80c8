package types

import (
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the normalized status of a tenant subscription.
// Provider-specific nuances (such as "cancel at period end") are collapsed
// into this set before anything downstream sees them.
type SubscriptionStatus string

const (
	SubscriptionStatusPending           SubscriptionStatus = "pending"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceling         SubscriptionStatus = "canceling"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusPending,
		SubscriptionStatusActive,
		SubscriptionStatusTrialing,
		SubscriptionStatusPastDue,
		SubscriptionStatusCanceling,
		SubscriptionStatusCanceled,
		SubscriptionStatusUnpaid,
		SubscriptionStatusIncomplete,
		SubscriptionStatusIncompleteExpired,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsProviderBacked reports whether the status denotes a paid state that
// must be linked to a provider subscription object. A tenant on a free
// tier carries no provider subscription id.
func (s SubscriptionStatus) IsProviderBacked() bool {
	switch s {
	case SubscriptionStatusActive,
		SubscriptionStatusTrialing,
		SubscriptionStatusPastDue,
		SubscriptionStatusCanceling,
		SubscriptionStatusUnpaid,
		SubscriptionStatusIncomplete:
		return true
	}
	return false
}

// IsTerminal reports whether the status allows provider ids to be
// replaced wholesale (re-subscribe flow)
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCanceled || s == SubscriptionStatusIncompleteExpired
}

// IsDelinquent reports whether the status sits between paid and terminal,
// where a set provider id must match but an unset one may be linked
func (s SubscriptionStatus) IsDelinquent() bool {
	return s == SubscriptionStatusUnpaid ||
		s == SubscriptionStatusPastDue ||
		s == SubscriptionStatusCanceling
}

// BillingInterval is the cadence the provider invoices on
type BillingInterval string

const (
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

func (b BillingInterval) String() string {
	return string(b)
}

func (b BillingInterval) Validate() error {
	allowed := []BillingInterval{BillingIntervalMonth, BillingIntervalYear}
	if !lo.Contains(allowed, b) {
		return ierr.NewError("invalid billing interval").
			WithHint("Billing interval must be month or year").
			WithReportableDetails(map[string]any{
				"interval":       b,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PricingModel is the shape of the tenant's plan
type PricingModel string

const (
	PricingModelTiered  PricingModel = "tiered"
	PricingModelPerUnit PricingModel = "per_unit"
)

func (p PricingModel) String() string {
	return string(p)
}

func (p PricingModel) Validate() error {
	allowed := []PricingModel{PricingModelTiered, PricingModelPerUnit}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid pricing model").
			WithHint("Pricing model must be tiered or per_unit").
			WithReportableDetails(map[string]any{
				"pricing_model":  p,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
