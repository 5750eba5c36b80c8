package tenant

import (
	"context"

	"github.com/alumnity/alumnity/internal/types"
)

type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error

	// CountUsage returns the tenant's current actual usage of a billed
	// unit kind (member seats in use, storage buckets allocated). It is
	// the floor below which a quantity adjustment must not go.
	CountUsage(ctx context.Context, tenantID string, kind types.UnitKind) (int64, error)

	// GrantAdminRole links a user to the tenant with the billing-admin
	// role. Only ever called with an identity read from a PaymentAttempt
	// row, never from provider metadata.
	GrantAdminRole(ctx context.Context, tenantID, userID string) error
}
