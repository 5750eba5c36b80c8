package service

import (
	"testing"
	"time"

	"github.com/alumnity/alumnity/internal/api/dto"
	"github.com/alumnity/alumnity/internal/domain/audit"
	"github.com/alumnity/alumnity/internal/domain/subscription"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/retry"
	"github.com/alumnity/alumnity/internal/testutil"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type QuantityServiceSuite struct {
	testutil.BaseServiceSuite
	service interfaces.QuantityService
}

func TestQuantityService(t *testing.T) {
	suite.Run(t, new(QuantityServiceSuite))
}

func (s *QuantityServiceSuite) SetupTest() {
	s.BaseServiceSuite.SetupTest()
	params := s.serviceParams()
	s.service = NewQuantityService(params, NewReconcilerService(params))
}

func (s *QuantityServiceSuite) serviceParams() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		TenantRepo:         stores.Tenant,
		SubRepo:            stores.Subscription,
		BillingEventRepo:   stores.BillingEvent,
		PaymentAttemptRepo: stores.PaymentAttempt,
		Provider:           stores.Provider,
		AuditSink:          stores.Audit,
		LocalWriteRetry:    retry.Policy{Attempts: 2, Delay: time.Millisecond},
	}
}

func (s *QuantityServiceSuite) seedRecord(mutate func(*subscription.Record)) *subscription.Record {
	record := subscription.New(testutil.DefaultTenantID, types.PricingModelPerUnit)
	if mutate != nil {
		mutate(record)
	}
	s.NoError(s.GetStores().Subscription.Create(s.GetContext(), record))
	return record
}

// seedPaidRecord seeds a record attached to a live provider subscription
// with a seat line item carrying the billable portion of seatCount
func (s *QuantityServiceSuite) seedPaidRecord(seatCount int64, mutate func(*subscription.Record)) *subscription.Record {
	subID := "sub_123"
	cusID := "cus_123"
	itemID := "si_seat"
	record := s.seedRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusActive
		r.ProviderSubscriptionID = &subID
		r.ProviderCustomerID = &cusID
		r.SeatCount = seatCount
		r.SeatItemID = &itemID
		if mutate != nil {
			mutate(r)
		}
	})

	items := []interfaces.ProviderLineItem{}
	if billable := types.BillableUnits(seatCount, s.GetConfig().Billing.Seats.FreeThreshold); billable > 0 {
		items = append(items, interfaces.ProviderLineItem{
			ID:       itemID,
			PriceID:  s.GetConfig().Billing.Seats.PriceIDMonth,
			Quantity: billable,
		})
	}
	s.GetStores().Provider.SetSubscription(&interfaces.ProviderSubscription{
		ID:         subID,
		CustomerID: cusID,
		Status:     "active",
		Items:      items,
	})
	return record
}

func (s *QuantityServiceSuite) TestAdjustWithinFreeTier() {
	s.seedRecord(func(r *subscription.Record) {
		r.SeatCount = 3
	})

	resp, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:    types.UnitKindSeat,
		NewQuantity: 4,
	})

	s.NoError(err)
	s.Equal(int64(4), resp.Quantity)
	s.Equal(int64(0), resp.BillableUnits)
	s.Equal(int64(4), resp.FreeUnits)
	s.True(resp.TotalCost.IsZero())
	s.False(resp.Degraded)

	// Entirely local: no provider interaction of any kind
	s.Empty(s.GetStores().Provider.AttachCalls)
	s.Empty(s.GetStores().Provider.UpdateCalls)
	s.Empty(s.GetStores().Provider.CancelCalls)
	s.Len(s.GetStores().Audit.EventsByAction(audit.ActionAdjustBilling), 1)
}

func (s *QuantityServiceSuite) TestAdjustFreeToPaidWithoutProviderLinkFails() {
	s.seedRecord(func(r *subscription.Record) {
		r.SeatCount = 5
	})

	resp, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:    types.UnitKindSeat,
		NewQuantity: 8,
	})

	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsInvalidOperation(err))

	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)
	s.Equal(int64(5), stored.SeatCount)
}

func (s *QuantityServiceSuite) TestAdjustFreeToPaidAttachesLineItem() {
	subID := "sub_123"
	cusID := "cus_123"
	s.seedRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusActive
		r.ProviderSubscriptionID = &subID
		r.ProviderCustomerID = &cusID
		r.SeatCount = 5
	})
	s.GetStores().Provider.SetSubscription(&interfaces.ProviderSubscription{
		ID:         subID,
		CustomerID: cusID,
		Status:     "active",
	})

	resp, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:    types.UnitKindSeat,
		NewQuantity: 8,
	})

	s.NoError(err)
	s.Equal(int64(8), resp.Quantity)
	s.Equal(int64(3), resp.BillableUnits)
	s.True(resp.TotalCost.Equal(decimal.NewFromInt(21)))

	s.Len(s.GetStores().Provider.AttachCalls, 1)
	call := s.GetStores().Provider.AttachCalls[0]
	s.Equal("sub_123", call.SubscriptionID)
	s.Equal("price_seat_month", call.PriceID)
	s.Equal(int64(3), call.Quantity)

	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)
	s.NotNil(stored.SeatItemID)
	s.Equal(call.ItemID, *stored.SeatItemID)
}

func (s *QuantityServiceSuite) TestAdjustPaidToPaidUpdatesQuantity() {
	s.seedPaidRecord(8, nil)

	resp, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:    types.UnitKindSeat,
		NewQuantity: 12,
	})

	s.NoError(err)
	s.Equal(int64(12), resp.Quantity)
	s.Equal(int64(7), resp.BillableUnits)

	s.Len(s.GetStores().Provider.UpdateCalls, 1)
	s.Equal(int64(7), s.GetStores().Provider.UpdateCalls[0].Quantity)
	s.Empty(s.GetStores().Provider.AttachCalls)
}

func (s *QuantityServiceSuite) TestAdjustPaidToFreeCancelsLastItem() {
	s.seedPaidRecord(8, nil)

	resp, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:    types.UnitKindSeat,
		NewQuantity: 4,
	})

	s.NoError(err)
	s.Equal(int64(4), resp.Quantity)
	s.Equal(int64(0), resp.BillableUnits)

	// Last billed item: the whole subscription goes, and the local link
	// is severed so a later upgrade starts a fresh checkout
	s.Contains(s.GetStores().Provider.CancelCalls, "sub_123")
	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)
	s.Nil(stored.SeatItemID)
	s.Nil(stored.ProviderSubscriptionID)
}

func (s *QuantityServiceSuite) TestAdjustPaidToFreeRemovesItemWhenOthersRemain() {
	bucketItemID := "si_bucket"
	s.seedPaidRecord(8, func(r *subscription.Record) {
		r.BucketCount = 4
		r.BucketItemID = &bucketItemID
	})
	sub, _ := s.GetStores().Provider.Subscription("sub_123")
	sub.Items = append(sub.Items, interfaces.ProviderLineItem{
		ID:       bucketItemID,
		PriceID:  s.GetConfig().Billing.Buckets.PriceIDMonth,
		Quantity: 2,
	})

	_, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:    types.UnitKindSeat,
		NewQuantity: 5,
	})

	s.NoError(err)
	s.Contains(s.GetStores().Provider.RemoveCalls, "si_seat")
	s.Empty(s.GetStores().Provider.CancelCalls)

	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)
	s.Nil(stored.SeatItemID)
	s.NotNil(stored.ProviderSubscriptionID)
	s.NotNil(stored.BucketItemID)
}

func (s *QuantityServiceSuite) TestAdjustConflictsOnStaleExpectedQuantity() {
	s.seedPaidRecord(8, nil)

	stale := int64(3)
	resp, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:                types.UnitKindSeat,
		NewQuantity:             12,
		ExpectedCurrentQuantity: &stale,
	})

	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsVersionConflict(err))
	s.Empty(s.GetStores().Provider.UpdateCalls)
}

func (s *QuantityServiceSuite) TestAdjustRejectsQuantityBelowUsage() {
	s.seedPaidRecord(8, nil)
	s.GetStores().Tenant.SetUsage(testutil.DefaultTenantID, types.UnitKindSeat, 6)

	resp, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:    types.UnitKindSeat,
		NewQuantity: 5,
	})

	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsValidation(err))
	s.Empty(s.GetStores().Provider.CancelCalls)
}

func (s *QuantityServiceSuite) TestAdjustRejectsQuantityAboveCeiling() {
	s.seedPaidRecord(8, nil)

	resp, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:    types.UnitKindSeat,
		NewQuantity: s.GetConfig().Billing.MaxSelfServeQuantity + 1,
	})

	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsValidation(err))
}

func (s *QuantityServiceSuite) TestAdjustDegradesWhenLocalWriteFails() {
	s.seedPaidRecord(8, nil)
	s.GetStores().Subscription.FailNextUpdates(2)

	resp, err := s.service.Adjust(s.GetContext(), testutil.DefaultTenantID, &dto.AdjustQuantityRequest{
		UnitKind:    types.UnitKindSeat,
		NewQuantity: 12,
	})

	// The provider accepted the change; the response reflects it and the
	// lost write is surfaced as degraded, never as failure
	s.NoError(err)
	s.True(resp.Degraded)
	s.Equal(int64(12), resp.Quantity)
	s.Len(s.GetStores().Provider.UpdateCalls, 1)
	s.Len(s.GetStores().Audit.EventsByAction(audit.ActionBillingUpdateUnsaved), 1)

	// The stale local copy is left for reconciliation to repair
	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)
	s.Equal(int64(8), stored.SeatCount)
}

func (s *QuantityServiceSuite) TestPlanSummary() {
	s.seedPaidRecord(8, nil)

	resp, err := s.service.PlanSummary(s.GetContext(), testutil.DefaultTenantID, types.UnitKindSeat)

	s.NoError(err)
	s.Equal(types.UnitKindSeat, resp.UnitKind)
	s.Equal(int64(8), resp.Quantity)
	s.Equal(int64(3), resp.BillableUnits)
	s.Equal(int64(5), resp.FreeUnits)
	s.True(resp.TotalCost.Equal(decimal.NewFromInt(21)))
	s.Equal(types.SubscriptionStatusActive, resp.Status)
}

func (s *QuantityServiceSuite) TestPlanSummaryRejectsUnknownKind() {
	resp, err := s.service.PlanSummary(s.GetContext(), testutil.DefaultTenantID, types.UnitKind("gadget"))

	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsValidation(err))
}
