package types

import (
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// UnitKind identifies a billed quantity on a tenant's plan
type UnitKind string

const (
	// UnitKindSeat is the number of member seats in the directory
	UnitKindSeat UnitKind = "seat"
	// UnitKindBucket is the number of media storage buckets
	UnitKindBucket UnitKind = "bucket"
)

func (u UnitKind) String() string {
	return string(u)
}

func (u UnitKind) Validate() error {
	allowed := []UnitKind{UnitKindSeat, UnitKindBucket}
	if !lo.Contains(allowed, u) {
		return ierr.NewError("invalid unit kind").
			WithHint("Unit kind must be seat or bucket").
			WithReportableDetails(map[string]any{
				"unit_kind":      u,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BillableUnits returns the portion of a requested quantity that exceeds
// the plan's free threshold and is actually invoiced. The checkout path
// and the adjustment path both go through this so they always agree on
// what must be charged.
func BillableUnits(quantity, freeThreshold int64) int64 {
	billable := quantity - freeThreshold
	if billable < 0 {
		return 0
	}
	return billable
}

// UnitCost returns the cost of the billable portion of quantity at the
// given per-unit price
func UnitCost(quantity, freeThreshold int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(BillableUnits(quantity, freeThreshold)))
}
