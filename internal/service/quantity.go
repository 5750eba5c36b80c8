package service

import (
	"context"

	"github.com/alumnity/alumnity/internal/api/dto"
	"github.com/alumnity/alumnity/internal/config"
	"github.com/alumnity/alumnity/internal/domain/audit"
	"github.com/alumnity/alumnity/internal/domain/subscription"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/types"
)

type quantityService struct {
	ServiceParams
	reconciler interfaces.ReconcilerService
}

// NewQuantityService builds the self-serve adjustment service
func NewQuantityService(params ServiceParams, reconciler interfaces.ReconcilerService) interfaces.QuantityService {
	return &quantityService{
		ServiceParams: params,
		reconciler:    reconciler,
	}
}

// Adjust changes one unit kind's quantity for a tenant. The provider
// mutation and the local write are not atomic: the provider is mutated
// first and stays the source of truth, so a lost local write degrades
// to a visible audit record and self-heals on the next reconciliation.
func (s *quantityService) Adjust(ctx context.Context, tenantID string, req *dto.AdjustQuantityRequest) (*dto.PlanSummaryResponse, error) {
	if err := req.Validate(s.Config.Billing.MaxSelfServeQuantity); err != nil {
		return nil, err
	}

	plan, err := s.Config.Billing.Plan(req.UnitKind)
	if err != nil {
		return nil, err
	}

	// Reconciliation first, so the staleness check below runs against
	// provider-verified numbers
	record, err := s.reconciler.Reconcile(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	currentQuantity := record.Quantity(req.UnitKind)
	if req.ExpectedCurrentQuantity != nil && *req.ExpectedCurrentQuantity != currentQuantity {
		return nil, ierr.NewError("quantity changed since it was last read").
			WithHintf("The current quantity is %d; refresh and retry", currentQuantity).
			WithReportableDetails(map[string]any{
				"current_quantity":  currentQuantity,
				"expected_quantity": *req.ExpectedCurrentQuantity,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	usage, err := s.TenantRepo.CountUsage(ctx, tenantID, req.UnitKind)
	if err != nil {
		return nil, err
	}
	if req.NewQuantity < usage {
		return nil, ierr.NewError("quantity is below current usage").
			WithHintf("At least %d %ss are in use; reduce usage before lowering the quantity", usage, req.UnitKind).
			WithReportableDetails(map[string]any{
				"minimum_quantity": usage,
				"new_quantity":     req.NewQuantity,
			}).
			Mark(ierr.ErrValidation)
	}

	fields := &subscription.UpdateFields{}
	fields.SetQuantity(req.UnitKind, req.NewQuantity)

	if err := s.applyTransition(ctx, record, req.UnitKind, req.NewQuantity, plan, fields); err != nil {
		return nil, err
	}

	degraded := s.writeLocal(ctx, record, fields)

	s.recordAudit(ctx, audit.NewEvent(ctx, audit.ActionAdjustBilling, tenantID, map[string]any{
		"unit_kind":         req.UnitKind.String(),
		"previous_quantity": currentQuantity,
		"new_quantity":      req.NewQuantity,
	}))

	fields.Apply(record)
	summary := dto.NewPlanSummaryResponse(record, req.UnitKind, plan.FreeThreshold, plan.UnitPrice())
	summary.Degraded = degraded
	return summary, nil
}

// PlanSummary returns the current plan view for one unit kind
func (s *quantityService) PlanSummary(ctx context.Context, tenantID string, kind types.UnitKind) (*dto.PlanSummaryResponse, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	plan, err := s.Config.Billing.Plan(kind)
	if err != nil {
		return nil, err
	}
	record, err := s.SubRepo.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return dto.NewPlanSummaryResponse(record, kind, plan.FreeThreshold, plan.UnitPrice()), nil
}

// applyTransition performs the provider mutation for one of the four
// billable transitions:
//
//  1. free to free: local update only, no provider call
//  2. free to paid: attach a line item to the existing billing object;
//     a tenant with none on file gets an error, never a silently
//     created payment commitment
//  3. paid to free: remove the line item, or cancel the subscription
//     when it was the last billed item
//  4. paid to paid: update the item quantity; the provider applies its
//     own proration
func (s *quantityService) applyTransition(
	ctx context.Context,
	record *subscription.Record,
	kind types.UnitKind,
	newQuantity int64,
	plan config.PlanShapeConfig,
	fields *subscription.UpdateFields,
) error {
	previousBillable := types.BillableUnits(record.Quantity(kind), plan.FreeThreshold)
	newBillable := types.BillableUnits(newQuantity, plan.FreeThreshold)
	itemID := record.ItemID(kind)

	switch {
	case previousBillable == 0 && newBillable == 0:
		return nil

	case newBillable > 0 && (previousBillable == 0 || itemID == nil):
		if record.ProviderSubscriptionID == nil {
			return ierr.NewError("organization is not linked to a payment method yet").
				WithHint("Complete a checkout before increasing the quantity past the free tier").
				WithReportableDetails(map[string]any{
					"unit_kind":    kind,
					"new_quantity": newQuantity,
				}).
				Mark(ierr.ErrInvalidOperation)
		}
		newItemID, err := s.Provider.AttachLineItem(
			ctx,
			*record.ProviderSubscriptionID,
			plan.PriceID(record.BillingInterval),
			newBillable,
		)
		if err != nil {
			return err
		}
		fields.SetItemID(kind, newItemID)
		return nil

	case newBillable == 0:
		if itemID == nil {
			// Nothing attached on the provider side; local-only change
			return nil
		}
		if record.HasOtherBilledItems(kind) || record.ProviderSubscriptionID == nil {
			if err := s.Provider.RemoveLineItem(ctx, *itemID); err != nil {
				return err
			}
		} else {
			if err := s.Provider.CancelSubscription(ctx, *record.ProviderSubscriptionID); err != nil {
				return err
			}
			fields.ClearProviderSubscriptionID = true
		}
		fields.ClearItemID(kind)
		return nil

	default:
		return s.Provider.UpdateLineItemQuantity(ctx, *itemID, newBillable)
	}
}

// writeLocal persists the adjustment under the bounded retry policy.
// A persistent failure is reported as degraded success: the provider
// already accepted the change, and reconciliation repairs the local
// copy on the next access.
func (s *quantityService) writeLocal(ctx context.Context, record *subscription.Record, fields *subscription.UpdateFields) bool {
	err := s.LocalWriteRetry.Do(ctx, func() error {
		return s.SubRepo.UpdateByTenantID(ctx, record.TenantID, fields)
	})
	if err == nil {
		return false
	}

	s.Logger.Errorw("billing updated externally but not saved locally",
		"tenant_id", record.TenantID,
		"error", err,
	)
	s.recordAudit(ctx, audit.NewEvent(ctx, audit.ActionBillingUpdateUnsaved, record.TenantID, map[string]any{
		"error": err.Error(),
	}))
	return true
}

func (s *quantityService) recordAudit(ctx context.Context, event audit.Event) {
	if err := s.AuditSink.Record(ctx, event); err != nil {
		s.Logger.Errorw("failed to record audit event",
			"action", event.Action,
			"tenant_id", event.TenantID,
			"error", err,
		)
	}
}
