package service

import (
	"context"

	"github.com/alumnity/alumnity/internal/domain/audit"
	"github.com/alumnity/alumnity/internal/domain/subscription"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/types"
)

type reconcilerService struct {
	ServiceParams
}

// NewReconcilerService builds the drift reconciler. It runs as the
// first step of every adjustment and from the periodic sweep.
func NewReconcilerService(params ServiceParams) interfaces.ReconcilerService {
	return &reconcilerService{ServiceParams: params}
}

// Reconcile pulls the provider's view of the tenant's subscription and
// overwrites any drifted local fields with it. The provider fetch is
// best-effort: on failure reconciliation is skipped and the local
// record returned unchanged. This is the self-healing path that bounds
// the damage of a lost local write.
func (s *reconcilerService) Reconcile(ctx context.Context, tenantID string) (*subscription.Record, error) {
	record, err := s.SubRepo.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if record.ProviderSubscriptionID == nil {
		return record, nil
	}

	providerSub, err := s.Provider.GetSubscription(ctx, *record.ProviderSubscriptionID)
	if err != nil {
		s.Logger.Warnw("provider fetch failed, skipping reconciliation",
			"tenant_id", tenantID,
			"provider_subscription_id", *record.ProviderSubscriptionID,
			"error", err,
		)
		return record, nil
	}

	fields := &subscription.UpdateFields{}
	drift := map[string]any{}

	s.reconcileStatus(record, providerSub, fields, drift)
	s.reconcilePeriodEnd(record, providerSub, fields, drift)
	for _, kind := range []types.UnitKind{types.UnitKindSeat, types.UnitKindBucket} {
		s.reconcileQuantity(record, providerSub, kind, fields, drift)
	}

	if len(drift) == 0 {
		return record, nil
	}

	if err := s.SubRepo.UpdateByTenantID(ctx, tenantID, fields); err != nil {
		return nil, err
	}
	fields.Apply(record)

	s.Logger.Infow("reconciled drifted subscription fields",
		"tenant_id", tenantID,
		"drift", drift,
	)
	if err := s.AuditSink.Record(ctx, audit.NewEvent(ctx, audit.ActionBillingReconciled, tenantID, drift)); err != nil {
		s.Logger.Errorw("failed to record reconciliation audit event",
			"tenant_id", tenantID,
			"error", err,
		)
	}
	return record, nil
}

func (s *reconcilerService) reconcileStatus(record *subscription.Record, providerSub *interfaces.ProviderSubscription, fields *subscription.UpdateFields, drift map[string]any) {
	status := types.SubscriptionStatus(providerSub.Status)
	if providerSub.CancelAtPeriodEnd {
		status = types.SubscriptionStatusCanceling
	}
	if status.Validate() != nil || status == record.Status {
		return
	}
	fields.Status = &status
	drift["status"] = map[string]any{"local": record.Status, "provider": status}
}

func (s *reconcilerService) reconcilePeriodEnd(record *subscription.Record, providerSub *interfaces.ProviderSubscription, fields *subscription.UpdateFields, drift map[string]any) {
	if providerSub.CurrentPeriodEnd == nil {
		return
	}
	if record.CurrentPeriodEnd != nil && record.CurrentPeriodEnd.Equal(*providerSub.CurrentPeriodEnd) {
		return
	}
	fields.CurrentPeriodEnd = providerSub.CurrentPeriodEnd
	drift["current_period_end"] = map[string]any{
		"local":    record.CurrentPeriodEnd,
		"provider": providerSub.CurrentPeriodEnd,
	}
}

// reconcileQuantity compares one unit kind's stored quantity against
// the provider line item. Line item quantities are billable units, so
// the free threshold is added back before comparing.
func (s *reconcilerService) reconcileQuantity(record *subscription.Record, providerSub *interfaces.ProviderSubscription, kind types.UnitKind, fields *subscription.UpdateFields, drift map[string]any) {
	plan, err := s.Config.Billing.Plan(kind)
	if err != nil {
		return
	}

	item, found := providerSub.Item(plan.PriceIDMonth)
	if !found {
		item, found = providerSub.Item(plan.PriceIDYear)
	}

	localQuantity := record.Quantity(kind)
	localBillable := types.BillableUnits(localQuantity, plan.FreeThreshold)

	if !found {
		// No billed item on the provider side: the local quantity must
		// sit within the free tier. The threshold is the closest
		// reconstruction of the raw quantity.
		if localBillable > 0 {
			quantity := plan.FreeThreshold
			fields.SetQuantity(kind, quantity)
			fields.ClearItemID(kind)
			drift[string(kind)+"_count"] = map[string]any{"local": localQuantity, "provider": quantity}
		}
		return
	}

	providerQuantity := item.Quantity + plan.FreeThreshold
	if providerQuantity != localQuantity {
		fields.SetQuantity(kind, providerQuantity)
		drift[string(kind)+"_count"] = map[string]any{"local": localQuantity, "provider": providerQuantity}
	}
	if itemID := record.ItemID(kind); itemID == nil || *itemID != item.ID {
		fields.SetItemID(kind, item.ID)
		drift[string(kind)+"_item_id"] = map[string]any{
			"local":    itemID,
			"provider": item.ID,
		}
	}
}
