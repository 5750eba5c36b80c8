package service

import (
	"context"
	"time"

	"github.com/alumnity/alumnity/internal/domain/audit"
	"github.com/alumnity/alumnity/internal/domain/billingevent"
	"github.com/alumnity/alumnity/internal/domain/subscription"
	"github.com/alumnity/alumnity/internal/domain/tenant"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/types"
)

type eventHandler func(ctx context.Context, event *types.NormalizedEvent) error

type billingSyncService struct {
	ServiceParams
	handlers map[types.WebhookEventType]eventHandler
}

// NewBillingSyncService builds the notification processor with its
// typed dispatch table
func NewBillingSyncService(params ServiceParams) interfaces.BillingSyncService {
	s := &billingSyncService{ServiceParams: params}
	s.handlers = map[types.WebhookEventType]eventHandler{
		types.WebhookEventTypeCheckoutSessionCompleted: s.handleCheckoutCompleted,
		types.WebhookEventTypeSubscriptionCreated:      s.handleSubscriptionEvent,
		types.WebhookEventTypeSubscriptionUpdated:      s.handleSubscriptionEvent,
		types.WebhookEventTypeSubscriptionDeleted:      s.handleSubscriptionEvent,
		types.WebhookEventTypeInvoicePaid:              s.handleInvoiceEvent,
		types.WebhookEventTypeInvoicePaymentFailed:     s.handleInvoiceEvent,
		types.WebhookEventTypeChargeRefunded:           s.handleChargeRefunded,
	}
	return s
}

// ProcessEvent registers the event for idempotency, dispatches it to
// its handler and marks it processed. A duplicate delivery is a
// silent no-op reported as success. Handler failures leave the event
// unmarked so the provider redelivers it.
func (s *billingSyncService) ProcessEvent(ctx context.Context, event *types.NormalizedEvent) error {
	record := billingevent.New(event.ID, event.Type, event.Fingerprint)
	alreadyProcessed, err := s.BillingEventRepo.Register(ctx, record)
	if err != nil {
		return err
	}
	if alreadyProcessed {
		s.Logger.Infow("skipping already processed event",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}

	handler, ok := s.handlers[event.Type]
	if !ok {
		// Registered but unhandled: acknowledge so the provider stops
		// redelivering
		return s.BillingEventRepo.MarkProcessed(ctx, event.ID)
	}

	if err := handler(ctx, event); err != nil {
		s.Logger.Errorw("failed to process event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		return err
	}

	return s.BillingEventRepo.MarkProcessed(ctx, event.ID)
}

// handleCheckoutCompleted links a tenant to its freshly created
// provider objects, provisioning the tenant when the checkout was for a
// new organization.
func (s *billingSyncService) handleCheckoutCompleted(ctx context.Context, event *types.NormalizedEvent) error {
	t, err := s.resolveTenant(ctx, event)
	if err != nil {
		return err
	}
	if t == nil {
		s.Logger.Warnw("checkout completion carries no tenant linkage, ignoring",
			"event_id", event.ID,
			"session_id", event.SessionID,
		)
		return nil
	}

	record, err := s.recordForTenant(ctx, t)
	if err != nil {
		return err
	}

	if !ownershipAllows(record, event.CustomerID, event.SubjectID) {
		return s.reportOwnershipMismatch(ctx, event, record)
	}

	// Only after ownership checks out: a mismatched event must leave no
	// state behind, role grants included
	s.grantCreatorRole(ctx, event, t)

	fields := &subscription.UpdateFields{
		Status:                 &event.Status,
		ClearGracePeriodEndsAt: true,
	}
	if event.CustomerID != "" {
		fields.ProviderCustomerID = &event.CustomerID
	}
	if event.SubjectID != "" {
		fields.ProviderSubscriptionID = &event.SubjectID
	}
	if event.CurrentPeriodEnd != nil {
		fields.CurrentPeriodEnd = event.CurrentPeriodEnd
	}

	return s.SubRepo.UpdateByTenantID(ctx, t.ID, fields)
}

// handleSubscriptionEvent applies created/updated/deleted notifications.
// The record is located by provider subscription id first; checkout
// metadata echoed on the subscription covers the case where the
// subscription event outruns the checkout completion event.
func (s *billingSyncService) handleSubscriptionEvent(ctx context.Context, event *types.NormalizedEvent) error {
	record, err := s.findRecord(ctx, event)
	if err != nil {
		return err
	}
	if record == nil {
		s.Logger.Warnw("no local record for subscription event, ignoring",
			"event_id", event.ID,
			"provider_subscription_id", event.SubjectID,
		)
		return nil
	}

	if !ownershipAllows(record, event.CustomerID, event.SubjectID) {
		return s.reportOwnershipMismatch(ctx, event, record)
	}

	// A deletion for a record already terminal is a duplicate delivery
	// under a fresh event id; absorb it without touching the grace window
	if event.Status == types.SubscriptionStatusCanceled && record.Status.IsTerminal() {
		s.Logger.Infow("record already canceled, absorbing duplicate deletion",
			"event_id", event.ID,
			"tenant_id", record.TenantID,
		)
		return nil
	}

	fields := &subscription.UpdateFields{Status: &event.Status}
	if event.CustomerID != "" && record.ProviderCustomerID == nil {
		fields.ProviderCustomerID = &event.CustomerID
	}
	if event.SubjectID != "" && (record.ProviderSubscriptionID == nil || record.Status.IsTerminal()) {
		fields.ProviderSubscriptionID = &event.SubjectID
	}
	if event.CurrentPeriodEnd != nil {
		fields.CurrentPeriodEnd = event.CurrentPeriodEnd
	}
	s.applyGraceWindow(event.Status, fields)

	if event.Type == types.WebhookEventTypeSubscriptionDeleted {
		s.cancelProviderSide(ctx, event.SubjectID)
	}

	// Key the write by the provider id the event named when the record is
	// linked to it; the tenant key covers records not yet linked
	if record.ProviderSubscriptionID != nil && event.SubjectID != "" && *record.ProviderSubscriptionID == event.SubjectID {
		return s.SubRepo.UpdateByProviderSubscriptionID(ctx, event.SubjectID, fields)
	}
	return s.SubRepo.UpdateByTenantID(ctx, record.TenantID, fields)
}

// handleInvoiceEvent moves the record between active and past_due as
// payments succeed or fail
func (s *billingSyncService) handleInvoiceEvent(ctx context.Context, event *types.NormalizedEvent) error {
	record, err := s.findRecord(ctx, event)
	if err != nil {
		return err
	}
	if record == nil {
		s.Logger.Warnw("no local record for invoice event, ignoring",
			"event_id", event.ID,
			"provider_subscription_id", event.SubjectID,
		)
		return nil
	}

	if !ownershipAllows(record, event.CustomerID, event.SubjectID) {
		return s.reportOwnershipMismatch(ctx, event, record)
	}

	// A paid invoice on a record mid-cancellation must not resurrect it
	if event.Status == types.SubscriptionStatusActive && record.Status == types.SubscriptionStatusCanceling {
		return nil
	}

	fields := &subscription.UpdateFields{Status: &event.Status}
	s.applyGraceWindow(event.Status, fields)
	return s.SubRepo.UpdateByTenantID(ctx, record.TenantID, fields)
}

// handleChargeRefunded revokes the subscription behind a fully refunded
// charge. Charges carry only a customer reference, so the record is
// resolved through it.
func (s *billingSyncService) handleChargeRefunded(ctx context.Context, event *types.NormalizedEvent) error {
	record, err := s.SubRepo.GetByProviderCustomerID(ctx, event.CustomerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("no local record for refunded charge, ignoring",
				"event_id", event.ID,
				"provider_customer_id", event.CustomerID,
			)
			return nil
		}
		return err
	}

	if record.Status.IsTerminal() {
		return nil
	}

	if record.ProviderSubscriptionID != nil {
		s.cancelProviderSide(ctx, *record.ProviderSubscriptionID)
	}

	canceled := types.SubscriptionStatusCanceled
	fields := &subscription.UpdateFields{Status: &canceled}
	s.applyGraceWindow(canceled, fields)
	return s.SubRepo.UpdateByTenantID(ctx, record.TenantID, fields)
}

// resolveTenant finds or provisions the tenant a notification belongs
// to: verified tenant id first, then slug, then creation when both a
// name and slug are present. Creation failure is retryable — a tenant
// left unprovisioned after a paid checkout is worse than a duplicate
// delivery.
func (s *billingSyncService) resolveTenant(ctx context.Context, event *types.NormalizedEvent) (*tenant.Tenant, error) {
	if tenantID := event.TenantID(); tenantID != "" {
		t, err := s.TenantRepo.GetByID(ctx, tenantID)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}

	slug := event.OrgSlug()
	if slug == "" {
		return nil, nil
	}

	t, err := s.TenantRepo.GetBySlug(ctx, slug)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if t != nil {
		return t, nil
	}

	name := event.OrgName()
	if name == "" {
		return nil, nil
	}

	t = tenant.New(ctx, name, slug)
	if err := s.TenantRepo.Create(ctx, t); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to provision organization after checkout").
			WithReportableDetails(map[string]any{"org_slug": slug}).
			Mark(ierr.ErrInternal)
	}

	s.recordAudit(ctx, audit.NewEvent(ctx, audit.ActionTenantProvisioned, t.ID, map[string]any{
		"org_slug": slug,
		"event_id": event.ID,
	}))
	s.Logger.Infow("provisioned tenant from checkout completion",
		"tenant_id", t.ID,
		"org_slug", slug,
	)
	return t, nil
}

// grantCreatorRole grants the billing-admin role to the purchase
// initiator. The initiator is looked up from the internally-created
// payment attempt row; identity claims in provider metadata are never
// trusted. A missing attempt does not fail the event, but it is
// recorded for out-of-band repair.
func (s *billingSyncService) grantCreatorRole(ctx context.Context, event *types.NormalizedEvent, t *tenant.Tenant) {
	attemptID := event.PaymentAttemptID()
	if attemptID == "" {
		return
	}

	attempt, err := s.PaymentAttemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		s.Logger.Warnw("payment attempt not found for checkout completion",
			"payment_attempt_id", attemptID,
			"tenant_id", t.ID,
			"error", err,
		)
		s.recordAudit(ctx, audit.NewEvent(ctx, audit.ActionMissingPaymentAttempt, t.ID, map[string]any{
			"payment_attempt_id": attemptID,
			"event_id":           event.ID,
		}))
		return
	}

	if err := s.TenantRepo.GrantAdminRole(ctx, t.ID, attempt.UserID); err != nil {
		s.Logger.Errorw("failed to grant billing admin role",
			"tenant_id", t.ID,
			"user_id", attempt.UserID,
			"error", err,
		)
	}
}

// findRecord locates the subscription record an event refers to,
// falling back to metadata linkage for events that arrive before the
// checkout completion has linked the provider ids
func (s *billingSyncService) findRecord(ctx context.Context, event *types.NormalizedEvent) (*subscription.Record, error) {
	if event.SubjectID != "" {
		record, err := s.SubRepo.GetByProviderSubscriptionID(ctx, event.SubjectID)
		if err == nil {
			return record, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}

	t, err := s.resolveTenant(ctx, event)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	return s.recordForTenant(ctx, t)
}

// recordForTenant fetches the tenant's subscription record, creating
// the pending row on first touch
func (s *billingSyncService) recordForTenant(ctx context.Context, t *tenant.Tenant) (*subscription.Record, error) {
	record, err := s.SubRepo.GetByTenantID(ctx, t.ID)
	if err == nil {
		return record, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	record = subscription.New(t.ID, s.Config.Billing.PricingModel)
	if err := s.SubRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// applyGraceWindow sets the grace window when a record turns canceled
// and clears it when the record is healthy again
func (s *billingSyncService) applyGraceWindow(status types.SubscriptionStatus, fields *subscription.UpdateFields) {
	switch status {
	case types.SubscriptionStatusCanceled:
		graceEnd := time.Now().UTC().Add(s.Config.Billing.GracePeriod())
		fields.GracePeriodEndsAt = &graceEnd
	case types.SubscriptionStatusActive, types.SubscriptionStatusTrialing:
		fields.ClearGracePeriodEndsAt = true
	}
}

// cancelProviderSide attempts cancellation of the provider-side object.
// The provider may have already removed it; any failure here is logged
// and never fails the event.
func (s *billingSyncService) cancelProviderSide(ctx context.Context, providerSubscriptionID string) {
	if providerSubscriptionID == "" {
		return
	}
	if err := s.Provider.CancelSubscription(ctx, providerSubscriptionID); err != nil {
		s.Logger.Warnw("defensive provider-side cancel failed",
			"provider_subscription_id", providerSubscriptionID,
			"error", err,
		)
	}
}

// reportOwnershipMismatch drops the update and alerts. The event is
// still reported processed toward the sender so status codes do not
// leak which subscriptions exist.
func (s *billingSyncService) reportOwnershipMismatch(ctx context.Context, event *types.NormalizedEvent, record *subscription.Record) error {
	s.Logger.Errorw("ownership mismatch on provider notification",
		"event_id", event.ID,
		"event_type", event.Type,
		"tenant_id", record.TenantID,
		"incoming_subscription_id", event.SubjectID,
	)
	s.recordAudit(ctx, audit.NewEvent(ctx, audit.ActionOwnershipMismatch, record.TenantID, map[string]any{
		"event_id":                 event.ID,
		"event_type":               event.Type.String(),
		"incoming_subscription_id": event.SubjectID,
		"incoming_customer_id":     event.CustomerID,
	}))
	return nil
}

func (s *billingSyncService) recordAudit(ctx context.Context, event audit.Event) {
	if err := s.AuditSink.Record(ctx, event); err != nil {
		s.Logger.Errorw("failed to record audit event",
			"action", event.Action,
			"tenant_id", event.TenantID,
			"error", err,
		)
	}
}

// ownershipAllows evaluates the linkage policy for an incoming
// notification against the tenant's current record:
//
//   - no record yet: allow (first linkage)
//   - terminal (canceled, incomplete_expired): allow id replacement
//     (re-subscribe flow)
//   - delinquent (unpaid, past_due, canceling): any already-set local
//     id must match the incoming one; unset ids may be linked
//   - otherwise: locally-set ids must match exactly
//
// A mismatch is a security event; callers drop the update and alert.
func ownershipAllows(record *subscription.Record, customerID, subscriptionID string) bool {
	if record == nil {
		return true
	}
	if record.Status.IsTerminal() {
		return true
	}
	if record.ProviderSubscriptionID != nil && subscriptionID != "" && *record.ProviderSubscriptionID != subscriptionID {
		return false
	}
	if record.ProviderCustomerID != nil && customerID != "" && *record.ProviderCustomerID != customerID {
		return false
	}
	return true
}
