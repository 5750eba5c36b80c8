package dto

import (
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/alumnity/alumnity/internal/validator"
)

// CreateCheckoutRequest starts a hosted checkout for a new paid
// organization. The attempt row created from it is the only trusted
// source for who initiated the purchase.
type CreateCheckoutRequest struct {
	OrgName         string                `json:"org_name" validate:"required"`
	OrgSlug         string                `json:"org_slug" validate:"required"`
	UnitKind        types.UnitKind        `json:"unit_kind" validate:"required"`
	Quantity        int64                 `json:"quantity" validate:"required,gt=0"`
	BillingInterval types.BillingInterval `json:"billing_interval" validate:"required"`
}

func (r *CreateCheckoutRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.UnitKind.Validate(); err != nil {
		return err
	}
	if err := r.BillingInterval.Validate(); err != nil {
		return err
	}
	return nil
}

type CheckoutResponse struct {
	PaymentAttemptID string `json:"payment_attempt_id"`
	SessionID        string `json:"session_id"`
	// URL is where the buyer completes payment
	URL string `json:"url"`
}

// NoBillableUnitsError is returned when the requested quantity sits at
// or below the free threshold, so there is nothing to check out
func NoBillableUnitsError(quantity, freeThreshold int64) error {
	return ierr.NewError("requested quantity has no billable units").
		WithHintf("Quantities up to %d are free and need no checkout", freeThreshold).
		WithReportableDetails(map[string]any{
			"quantity":       quantity,
			"free_threshold": freeThreshold,
		}).
		Mark(ierr.ErrValidation)
}
