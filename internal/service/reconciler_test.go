package service

import (
	"testing"
	"time"

	"github.com/alumnity/alumnity/internal/domain/audit"
	"github.com/alumnity/alumnity/internal/domain/subscription"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/retry"
	"github.com/alumnity/alumnity/internal/testutil"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/stretchr/testify/suite"
)

type ReconcilerServiceSuite struct {
	testutil.BaseServiceSuite
	service interfaces.ReconcilerService
}

func TestReconcilerService(t *testing.T) {
	suite.Run(t, new(ReconcilerServiceSuite))
}

func (s *ReconcilerServiceSuite) SetupTest() {
	s.BaseServiceSuite.SetupTest()
	stores := s.GetStores()
	s.service = NewReconcilerService(ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		TenantRepo:         stores.Tenant,
		SubRepo:            stores.Subscription,
		BillingEventRepo:   stores.BillingEvent,
		PaymentAttemptRepo: stores.PaymentAttempt,
		Provider:           stores.Provider,
		AuditSink:          stores.Audit,
		LocalWriteRetry:    retry.Policy{Attempts: 2, Delay: time.Millisecond},
	})
}

func (s *ReconcilerServiceSuite) seedRecord(mutate func(*subscription.Record)) *subscription.Record {
	record := subscription.New(testutil.DefaultTenantID, types.PricingModelPerUnit)
	if mutate != nil {
		mutate(record)
	}
	s.NoError(s.GetStores().Subscription.Create(s.GetContext(), record))
	return record
}

func (s *ReconcilerServiceSuite) TestReconcileOverwritesDriftedFields() {
	subID := "sub_123"
	staleItemID := "si_stale"
	s.seedRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusActive
		r.ProviderSubscriptionID = &subID
		r.SeatCount = 8
		r.SeatItemID = &staleItemID
	})

	periodEnd := time.Now().UTC().Add(20 * 24 * time.Hour).Truncate(time.Second)
	s.GetStores().Provider.SetSubscription(&interfaces.ProviderSubscription{
		ID:                subID,
		Status:            "active",
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  &periodEnd,
		Items: []interfaces.ProviderLineItem{
			{ID: "si_fresh", PriceID: "price_seat_month", Quantity: 7},
		},
	})

	record, err := s.service.Reconcile(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)

	// Provider wins on every drifted field
	s.Equal(types.SubscriptionStatusCanceling, record.Status)
	s.Equal(int64(12), record.SeatCount)
	s.NotNil(record.SeatItemID)
	s.Equal("si_fresh", *record.SeatItemID)
	s.NotNil(record.CurrentPeriodEnd)
	s.True(record.CurrentPeriodEnd.Equal(periodEnd))

	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)
	s.Equal(int64(12), stored.SeatCount)
	s.Len(s.GetStores().Audit.EventsByAction(audit.ActionBillingReconciled), 1)

	// A second pass finds nothing to repair
	_, err = s.service.Reconcile(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)
	s.Len(s.GetStores().Audit.EventsByAction(audit.ActionBillingReconciled), 1)
}

func (s *ReconcilerServiceSuite) TestReconcileClampsQuantityWithoutProviderItem() {
	subID := "sub_123"
	itemID := "si_gone"
	s.seedRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusActive
		r.ProviderSubscriptionID = &subID
		r.SeatCount = 9
		r.SeatItemID = &itemID
	})
	s.GetStores().Provider.SetSubscription(&interfaces.ProviderSubscription{
		ID:     subID,
		Status: "active",
	})

	record, err := s.service.Reconcile(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)

	// No billed item on the provider side: the quantity falls back to the
	// free threshold and the dangling item id is cleared
	s.Equal(s.GetConfig().Billing.Seats.FreeThreshold, record.SeatCount)
	s.Nil(record.SeatItemID)
}

func (s *ReconcilerServiceSuite) TestReconcileSkipsUnlinkedRecord() {
	seeded := s.seedRecord(func(r *subscription.Record) {
		r.SeatCount = 3
	})

	record, err := s.service.Reconcile(s.GetContext(), testutil.DefaultTenantID)
	s.NoError(err)
	s.Equal(seeded.SeatCount, record.SeatCount)
	s.Empty(s.GetStores().Audit.Events())
}

func (s *ReconcilerServiceSuite) TestReconcileSurvivesProviderOutage() {
	subID := "sub_123"
	s.seedRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusActive
		r.ProviderSubscriptionID = &subID
		r.SeatCount = 8
	})
	s.GetStores().Provider.GetErr = ierr.NewError("provider unavailable").
		Mark(ierr.ErrIntegration)

	record, err := s.service.Reconcile(s.GetContext(), testutil.DefaultTenantID)

	// Best-effort: the local record is returned unchanged
	s.NoError(err)
	s.Equal(int64(8), record.SeatCount)
	s.Equal(types.SubscriptionStatusActive, record.Status)
}

func (s *ReconcilerServiceSuite) TestReconcileUnknownTenant() {
	record, err := s.service.Reconcile(s.GetContext(), "tenant_missing")

	s.Error(err)
	s.Nil(record)
	s.True(ierr.IsNotFound(err))
}
