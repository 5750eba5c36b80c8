package subscription

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByTenantID(ctx context.Context, tenantID string) (*Record, error)
	GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*Record, error)

	// GetByProviderCustomerID resolves the record for refund events,
	// which carry only a customer reference
	GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*Record, error)

	// UpdateByTenantID and UpdateByProviderSubscriptionID perform a
	// partial update: only fields present in UpdateFields change, plus
	// updated_at. All external callers go through the ownership
	// validation in the sync service first.
	UpdateByTenantID(ctx context.Context, tenantID string, fields *UpdateFields) error
	UpdateByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string, fields *UpdateFields) error
}
