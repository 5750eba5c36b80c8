package dto

import (
	"time"

	"github.com/alumnity/alumnity/internal/domain/subscription"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/alumnity/alumnity/internal/validator"
	"github.com/shopspring/decimal"
)

type AdjustQuantityRequest struct {
	UnitKind    types.UnitKind `json:"unit_kind" validate:"required"`
	NewQuantity int64          `json:"new_quantity" validate:"required,gt=0"`

	// ExpectedCurrentQuantity is the stale-client guard: when set and it
	// differs from the stored quantity, the adjustment fails with a
	// conflict instead of silently overwriting
	ExpectedCurrentQuantity *int64 `json:"expected_current_quantity,omitempty"`
}

func (r *AdjustQuantityRequest) Validate(maxSelfServeQuantity int64) error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.UnitKind.Validate(); err != nil {
		return err
	}
	if r.NewQuantity > maxSelfServeQuantity {
		return ierr.NewError("quantity exceeds self-service ceiling").
			WithHintf("Quantities above %d require contacting support", maxSelfServeQuantity).
			WithReportableDetails(map[string]any{
				"new_quantity": r.NewQuantity,
				"max_quantity": maxSelfServeQuantity,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PlanSummaryResponse is the authoritative plan view returned after an
// adjustment and from the summary endpoint
type PlanSummaryResponse struct {
	UnitKind      types.UnitKind           `json:"unit_kind"`
	Quantity      int64                    `json:"quantity"`
	BillableUnits int64                    `json:"billable_units"`
	FreeUnits     int64                    `json:"free_units"`
	TotalCost     decimal.Decimal          `json:"total_cost"`
	Status        types.SubscriptionStatus `json:"status"`

	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`

	// Degraded is set when the provider accepted the change but the
	// local write failed; the caller should surface a contact-support
	// notice
	Degraded bool `json:"degraded,omitempty"`
}

// NewPlanSummaryResponse builds the summary for one unit kind from the
// stored record and plan shape
func NewPlanSummaryResponse(record *subscription.Record, kind types.UnitKind, freeThreshold int64, unitPrice decimal.Decimal) *PlanSummaryResponse {
	quantity := record.Quantity(kind)
	billable := types.BillableUnits(quantity, freeThreshold)
	return &PlanSummaryResponse{
		UnitKind:         kind,
		Quantity:         quantity,
		BillableUnits:    billable,
		FreeUnits:        quantity - billable,
		TotalCost:        types.UnitCost(quantity, freeThreshold, unitPrice),
		Status:           record.Status,
		CurrentPeriodEnd: record.CurrentPeriodEnd,
	}
}
