package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBillableUnits(t *testing.T) {
	testCases := []struct {
		name          string
		quantity      int64
		freeThreshold int64
		expected      int64
	}{
		{name: "below_threshold", quantity: 3, freeThreshold: 5, expected: 0},
		{name: "at_threshold", quantity: 5, freeThreshold: 5, expected: 0},
		{name: "above_threshold", quantity: 8, freeThreshold: 5, expected: 3},
		{name: "zero_quantity", quantity: 0, freeThreshold: 5, expected: 0},
		{name: "zero_threshold", quantity: 4, freeThreshold: 0, expected: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, BillableUnits(tc.quantity, tc.freeThreshold))
		})
	}
}

func TestBillableUnitsNeverNegative(t *testing.T) {
	for quantity := int64(0); quantity <= 10; quantity++ {
		assert.GreaterOrEqual(t, BillableUnits(quantity, 5), int64(0))
	}
}

func TestUnitCost(t *testing.T) {
	price := decimal.NewFromInt(7)

	assert.True(t, UnitCost(3, 5, price).IsZero())
	assert.True(t, UnitCost(8, 5, price).Equal(decimal.NewFromInt(21)))
}
