package service

import (
	"context"

	"github.com/alumnity/alumnity/internal/api/dto"
	"github.com/alumnity/alumnity/internal/domain/audit"
	"github.com/alumnity/alumnity/internal/domain/paymentattempt"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/types"
)

type checkoutService struct {
	ServiceParams
}

// NewCheckoutService builds the checkout initiation service
func NewCheckoutService(params ServiceParams) interfaces.CheckoutService {
	return &checkoutService{ServiceParams: params}
}

// InitiateCheckout creates the payment attempt row and the hosted
// checkout session for a new paid organization. The attempt row is
// written before the provider call so the completion webhook can trust
// it as the record of who initiated the purchase.
func (s *checkoutService) InitiateCheckout(ctx context.Context, req *dto.CreateCheckoutRequest) (*dto.CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	plan, err := s.Config.Billing.Plan(req.UnitKind)
	if err != nil {
		return nil, err
	}

	billable := types.BillableUnits(req.Quantity, plan.FreeThreshold)
	if billable == 0 {
		return nil, dto.NoBillableUnitsError(req.Quantity, plan.FreeThreshold)
	}

	existing, err := s.TenantRepo.GetBySlug(ctx, req.OrgSlug)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ierr.NewError("organization slug is already taken").
			WithHintf("An organization named %s already exists", req.OrgSlug).
			WithReportableDetails(map[string]any{"org_slug": req.OrgSlug}).
			Mark(ierr.ErrAlreadyExists)
	}

	attempt := paymentattempt.New(types.GetUserID(ctx), req.OrgName, req.OrgSlug)
	if err := s.PaymentAttemptRepo.Create(ctx, attempt); err != nil {
		return nil, err
	}

	session, err := s.Provider.CreateCheckoutSession(ctx, &interfaces.CheckoutSessionRequest{
		PriceID:    plan.PriceID(req.BillingInterval),
		Quantity:   billable,
		SuccessURL: s.Config.Stripe.SuccessURL,
		CancelURL:  s.Config.Stripe.CancelURL,
		Metadata: map[string]string{
			types.MetadataKeyPaymentAttemptID: attempt.ID,
			types.MetadataKeyOrgSlug:          req.OrgSlug,
			types.MetadataKeyOrgName:          req.OrgName,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.PaymentAttemptRepo.SetProviderSessionID(ctx, attempt.ID, session.ID); err != nil {
		// The attempt row still links the user by id through metadata;
		// the session linkage is best-effort bookkeeping
		s.Logger.Errorw("failed to store provider session id on payment attempt",
			"payment_attempt_id", attempt.ID,
			"session_id", session.ID,
			"error", err,
		)
	}

	if err := s.AuditSink.Record(ctx, audit.NewEvent(ctx, audit.ActionCheckoutInitiated, "", map[string]any{
		"payment_attempt_id": attempt.ID,
		"org_slug":           req.OrgSlug,
		"unit_kind":          req.UnitKind.String(),
		"quantity":           req.Quantity,
	})); err != nil {
		s.Logger.Errorw("failed to record checkout audit event", "error", err)
	}

	return &dto.CheckoutResponse{
		PaymentAttemptID: attempt.ID,
		SessionID:        session.ID,
		URL:              session.URL,
	}, nil
}
