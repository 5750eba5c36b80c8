package interfaces

import (
	"context"

	"github.com/alumnity/alumnity/internal/api/dto"
	"github.com/alumnity/alumnity/internal/domain/subscription"
	"github.com/alumnity/alumnity/internal/types"
)

// BillingSyncService applies normalized provider notifications to the
// local store. It owns idempotency registration, ownership validation
// and tenant provisioning for checkout completions.
type BillingSyncService interface {
	ProcessEvent(ctx context.Context, event *types.NormalizedEvent) error
}

// QuantityService handles self-serve quantity adjustments and plan
// summaries
type QuantityService interface {
	Adjust(ctx context.Context, tenantID string, req *dto.AdjustQuantityRequest) (*dto.PlanSummaryResponse, error)
	PlanSummary(ctx context.Context, tenantID string, kind types.UnitKind) (*dto.PlanSummaryResponse, error)
}

// ReconcilerService pulls the provider's view of a subscription and
// overwrites drifted local fields with it
type ReconcilerService interface {
	Reconcile(ctx context.Context, tenantID string) (*subscription.Record, error)
}

// CheckoutService starts hosted checkout flows for new paid tenants
type CheckoutService interface {
	InitiateCheckout(ctx context.Context, req *dto.CreateCheckoutRequest) (*dto.CheckoutResponse, error)
}
