package service

import (
	"testing"
	"time"

	"github.com/alumnity/alumnity/internal/domain/audit"
	"github.com/alumnity/alumnity/internal/domain/paymentattempt"
	"github.com/alumnity/alumnity/internal/domain/subscription"
	"github.com/alumnity/alumnity/internal/domain/tenant"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/retry"
	"github.com/alumnity/alumnity/internal/testutil"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/stretchr/testify/suite"
)

type BillingSyncServiceSuite struct {
	testutil.BaseServiceSuite
	service interfaces.BillingSyncService
}

func TestBillingSyncService(t *testing.T) {
	suite.Run(t, new(BillingSyncServiceSuite))
}

func (s *BillingSyncServiceSuite) SetupTest() {
	s.BaseServiceSuite.SetupTest()
	s.service = NewBillingSyncService(s.serviceParams())
}

func (s *BillingSyncServiceSuite) serviceParams() ServiceParams {
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

func (s *BillingSyncServiceSuite) seedTenantWithRecord(mutate func(*subscription.Record)) (*tenant.Tenant, *subscription.Record) {
	t := tenant.New(s.GetContext(), "Acme Alumni", "acme")
	s.NoError(s.GetStores().Tenant.Create(s.GetContext(), t))

	record := subscription.New(t.ID, types.PricingModelPerUnit)
	if mutate != nil {
		mutate(record)
	}
	s.NoError(s.GetStores().Subscription.Create(s.GetContext(), record))
	return t, record
}

func (s *BillingSyncServiceSuite) TestCheckoutCompletedProvisionsTenant() {
	attempt := paymentattempt.New("user_creator", "Acme Alumni", "acme")
	s.NoError(s.GetStores().PaymentAttempt.Create(s.GetContext(), attempt))

	event := &types.NormalizedEvent{
		ID:         "evt_checkout_001",
		Type:       types.WebhookEventTypeCheckoutSessionCompleted,
		SubjectID:  "sub_123",
		CustomerID: "cus_123",
		SessionID:  "cs_123",
		Status:     types.SubscriptionStatusActive,
		Metadata: types.Metadata{
			types.MetadataKeyPaymentAttemptID: attempt.ID,
			types.MetadataKeyOrgSlug:          "acme",
			types.MetadataKeyOrgName:          "Acme Alumni",
		},
		Fingerprint: "fp_001",
	}

	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	t, err := s.GetStores().Tenant.GetBySlug(s.GetContext(), "acme")
	s.NoError(err)
	s.Equal("Acme Alumni", t.Name)
	s.Contains(s.GetStores().Tenant.Admins(t.ID), "user_creator")

	record, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, record.Status)
	s.NotNil(record.ProviderSubscriptionID)
	s.Equal("sub_123", *record.ProviderSubscriptionID)
	s.NotNil(record.ProviderCustomerID)
	s.Equal("cus_123", *record.ProviderCustomerID)

	stored, err := s.GetStores().BillingEvent.Get(s.GetContext(), event.ID)
	s.NoError(err)
	s.NotNil(stored.ProcessedAt)
	s.Len(s.GetStores().Audit.EventsByAction(audit.ActionTenantProvisioned), 1)
}

func (s *BillingSyncServiceSuite) TestDuplicateDeliveryIsSilentNoOp() {
	attempt := paymentattempt.New("user_creator", "Acme Alumni", "acme")
	s.NoError(s.GetStores().PaymentAttempt.Create(s.GetContext(), attempt))

	event := &types.NormalizedEvent{
		ID:         "evt_dup_001",
		Type:       types.WebhookEventTypeCheckoutSessionCompleted,
		SubjectID:  "sub_123",
		CustomerID: "cus_123",
		Status:     types.SubscriptionStatusActive,
		Metadata: types.Metadata{
			types.MetadataKeyPaymentAttemptID: attempt.ID,
			types.MetadataKeyOrgSlug:          "acme",
			types.MetadataKeyOrgName:          "Acme Alumni",
		},
	}

	s.NoError(s.service.ProcessEvent(s.GetContext(), event))
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	// Provisioning ran exactly once; the replay produced no side effects
	s.Len(s.GetStores().Audit.EventsByAction(audit.ActionTenantProvisioned), 1)
	t, err := s.GetStores().Tenant.GetBySlug(s.GetContext(), "acme")
	s.NoError(err)
	s.Len(s.GetStores().Tenant.Admins(t.ID), 1)
}

func (s *BillingSyncServiceSuite) TestFailedProvisioningIsRetriedOnRedelivery() {
	attempt := paymentattempt.New("user_creator", "Retry Org", "retry-org")
	s.NoError(s.GetStores().PaymentAttempt.Create(s.GetContext(), attempt))

	event := &types.NormalizedEvent{
		ID:         "evt_retry_001",
		Type:       types.WebhookEventTypeCheckoutSessionCompleted,
		SubjectID:  "sub_retry",
		CustomerID: "cus_retry",
		Status:     types.SubscriptionStatusActive,
		Metadata: types.Metadata{
			types.MetadataKeyPaymentAttemptID: attempt.ID,
			types.MetadataKeyOrgSlug:          "retry-org",
			types.MetadataKeyOrgName:          "Retry Org",
		},
	}

	// Provisioning fails on the first delivery; the error surfaces so the
	// provider redelivers
	s.GetStores().Tenant.FailNextCreates(1)
	s.Error(s.service.ProcessEvent(s.GetContext(), event))

	stored, err := s.GetStores().BillingEvent.Get(s.GetContext(), event.ID)
	s.NoError(err)
	s.Nil(stored.ProcessedAt)

	// The redelivery must run the handler again, not be absorbed by the
	// registration left behind by the failed attempt
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	t, err := s.GetStores().Tenant.GetBySlug(s.GetContext(), "retry-org")
	s.NoError(err)
	s.Contains(s.GetStores().Tenant.Admins(t.ID), "user_creator")

	record, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal("sub_retry", *record.ProviderSubscriptionID)

	stored, err = s.GetStores().BillingEvent.Get(s.GetContext(), event.ID)
	s.NoError(err)
	s.NotNil(stored.ProcessedAt)
}

func (s *BillingSyncServiceSuite) TestSubscriptionEventBeforeCheckoutCompletion() {
	// The subscription.created event can outrun checkout.session.completed;
	// the metadata echoed on the subscription must be enough to provision
	event := &types.NormalizedEvent{
		ID:         "evt_early_001",
		Type:       types.WebhookEventTypeSubscriptionCreated,
		SubjectID:  "sub_456",
		CustomerID: "cus_456",
		Status:     types.SubscriptionStatusActive,
		Metadata: types.Metadata{
			types.MetadataKeyOrgSlug: "early-org",
			types.MetadataKeyOrgName: "Early Org",
		},
	}

	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	t, err := s.GetStores().Tenant.GetBySlug(s.GetContext(), "early-org")
	s.NoError(err)
	record, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, record.Status)
	s.NotNil(record.ProviderSubscriptionID)
	s.Equal("sub_456", *record.ProviderSubscriptionID)
}

func (s *BillingSyncServiceSuite) TestOwnershipMismatchDropsUpdate() {
	subID := "sub_owned"
	cusID := "cus_owned"
	_, record := s.seedTenantWithRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusActive
		r.ProviderSubscriptionID = &subID
		r.ProviderCustomerID = &cusID
	})

	event := &types.NormalizedEvent{
		ID:         "evt_mismatch_001",
		Type:       types.WebhookEventTypeSubscriptionUpdated,
		SubjectID:  "sub_owned",
		CustomerID: "cus_intruder",
		Status:     types.SubscriptionStatusCanceled,
	}

	// Reported as success toward the sender, but nothing changes locally
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), record.TenantID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, stored.Status)
	s.Equal("cus_owned", *stored.ProviderCustomerID)
	s.Len(s.GetStores().Audit.EventsByAction(audit.ActionOwnershipMismatch), 1)
}

func (s *BillingSyncServiceSuite) TestOwnershipMismatchOnCheckoutGrantsNoRole() {
	subID := "sub_owned"
	cusID := "cus_owned"
	t, record := s.seedTenantWithRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusActive
		r.ProviderSubscriptionID = &subID
		r.ProviderCustomerID = &cusID
	})

	attempt := paymentattempt.New("user_intruder", "Acme Alumni", "acme")
	s.NoError(s.GetStores().PaymentAttempt.Create(s.GetContext(), attempt))

	event := &types.NormalizedEvent{
		ID:         "evt_mismatch_002",
		Type:       types.WebhookEventTypeCheckoutSessionCompleted,
		SubjectID:  "sub_intruder",
		CustomerID: "cus_intruder",
		Status:     types.SubscriptionStatusActive,
		Metadata: types.Metadata{
			types.MetadataKeyPaymentAttemptID: attempt.ID,
			types.MetadataKeyOrgSlug:          "acme",
			types.MetadataKeyOrgName:          "Acme Alumni",
		},
	}

	// Dropped with no state change at all: no linkage update and no role
	// grant for the payment attempt's user
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	s.Empty(s.GetStores().Tenant.Admins(t.ID))
	s.Len(s.GetStores().Audit.EventsByAction(audit.ActionOwnershipMismatch), 1)

	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), record.TenantID)
	s.NoError(err)
	s.Equal("sub_owned", *stored.ProviderSubscriptionID)
	s.Equal("cus_owned", *stored.ProviderCustomerID)
}

func (s *BillingSyncServiceSuite) TestSubscriptionDeletedSetsGraceWindow() {
	subID := "sub_del"
	_, record := s.seedTenantWithRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusActive
		r.ProviderSubscriptionID = &subID
	})

	event := &types.NormalizedEvent{
		ID:        "evt_del_001",
		Type:      types.WebhookEventTypeSubscriptionDeleted,
		SubjectID: "sub_del",
		Status:    types.SubscriptionStatusCanceled,
	}

	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), record.TenantID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, stored.Status)
	s.NotNil(stored.GracePeriodEndsAt)
	expected := time.Now().UTC().Add(s.GetConfig().Billing.GracePeriod())
	s.WithinDuration(expected, *stored.GracePeriodEndsAt, time.Minute)
	s.Contains(s.GetStores().Provider.CancelCalls, "sub_del")
}

func (s *BillingSyncServiceSuite) TestSubscriptionUpdateKeyedByProviderID() {
	subID := "sub_keyed"
	s.seedTenantWithRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusPastDue
		r.ProviderSubscriptionID = &subID
		r.SeatCount = 8
	})

	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	event := &types.NormalizedEvent{
		ID:               "evt_keyed_001",
		Type:             types.WebhookEventTypeSubscriptionUpdated,
		SubjectID:        "sub_keyed",
		Status:           types.SubscriptionStatusActive,
		CurrentPeriodEnd: &periodEnd,
	}

	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	// The write lands keyed by the provider id and stays partial: the
	// quantities the event never mentioned are untouched
	stored, err := s.GetStores().Subscription.GetByProviderSubscriptionID(s.GetContext(), "sub_keyed")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, stored.Status)
	s.NotNil(stored.CurrentPeriodEnd)
	s.True(stored.CurrentPeriodEnd.Equal(periodEnd))
	s.Equal(int64(8), stored.SeatCount)
}

func (s *BillingSyncServiceSuite) TestDuplicateDeletionUnderFreshEventID() {
	subID := "sub_dup_del"
	graceEnd := time.Now().UTC().Add(10 * 24 * time.Hour).Truncate(time.Second)
	_, record := s.seedTenantWithRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusCanceled
		r.ProviderSubscriptionID = &subID
		r.GracePeriodEndsAt = &graceEnd
	})

	event := &types.NormalizedEvent{
		ID:        "evt_dup_del_002",
		Type:      types.WebhookEventTypeSubscriptionDeleted,
		SubjectID: "sub_dup_del",
		Status:    types.SubscriptionStatusCanceled,
	}

	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	// Absorbed: the grace window is not extended and no provider call is made
	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), record.TenantID)
	s.NoError(err)
	s.NotNil(stored.GracePeriodEndsAt)
	s.True(stored.GracePeriodEndsAt.Equal(graceEnd))
	s.Empty(s.GetStores().Provider.CancelCalls)
}

func (s *BillingSyncServiceSuite) TestInvoiceEvents() {
	subID := "sub_inv"
	testCases := []struct {
		name           string
		recordStatus   types.SubscriptionStatus
		eventType      types.WebhookEventType
		eventStatus    types.SubscriptionStatus
		expectedStatus types.SubscriptionStatus
	}{
		{
			name:           "payment_failed_marks_past_due",
			recordStatus:   types.SubscriptionStatusActive,
			eventType:      types.WebhookEventTypeInvoicePaymentFailed,
			eventStatus:    types.SubscriptionStatusPastDue,
			expectedStatus: types.SubscriptionStatusPastDue,
		},
		{
			name:           "paid_recovers_past_due",
			recordStatus:   types.SubscriptionStatusPastDue,
			eventType:      types.WebhookEventTypeInvoicePaid,
			eventStatus:    types.SubscriptionStatusActive,
			expectedStatus: types.SubscriptionStatusActive,
		},
		{
			name:           "paid_does_not_resurrect_canceling",
			recordStatus:   types.SubscriptionStatusCanceling,
			eventType:      types.WebhookEventTypeInvoicePaid,
			eventStatus:    types.SubscriptionStatusActive,
			expectedStatus: types.SubscriptionStatusCanceling,
		},
	}

	for i, tc := range testCases {
		s.Run(tc.name, func() {
			s.GetStores().Subscription.Clear()
			s.GetStores().Tenant.Clear()
			_, record := s.seedTenantWithRecord(func(r *subscription.Record) {
				r.Status = tc.recordStatus
				r.ProviderSubscriptionID = &subID
			})

			event := &types.NormalizedEvent{
				ID:        "evt_inv_" + tc.name,
				Type:      tc.eventType,
				SubjectID: subID,
				Status:    tc.eventStatus,
			}
			s.NoError(s.service.ProcessEvent(s.GetContext(), event))

			stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), record.TenantID)
			s.NoError(err)
			s.Equal(tc.expectedStatus, stored.Status, "case %d", i)
		})
	}
}

func (s *BillingSyncServiceSuite) TestChargeRefundedRevokesSubscription() {
	subID := "sub_ref"
	cusID := "cus_ref"
	_, record := s.seedTenantWithRecord(func(r *subscription.Record) {
		r.Status = types.SubscriptionStatusActive
		r.ProviderSubscriptionID = &subID
		r.ProviderCustomerID = &cusID
	})

	event := &types.NormalizedEvent{
		ID:         "evt_ref_001",
		Type:       types.WebhookEventTypeChargeRefunded,
		CustomerID: "cus_ref",
		Status:     types.SubscriptionStatusCanceled,
	}

	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	stored, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), record.TenantID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, stored.Status)
	s.NotNil(stored.GracePeriodEndsAt)
	s.Contains(s.GetStores().Provider.CancelCalls, "sub_ref")
}

func (s *BillingSyncServiceSuite) TestChargeRefundedForUnknownCustomer() {
	event := &types.NormalizedEvent{
		ID:         "evt_ref_002",
		Type:       types.WebhookEventTypeChargeRefunded,
		CustomerID: "cus_unknown",
		Status:     types.SubscriptionStatusCanceled,
	}

	// Acknowledged so the provider stops redelivering
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	stored, err := s.GetStores().BillingEvent.Get(s.GetContext(), event.ID)
	s.NoError(err)
	s.NotNil(stored.ProcessedAt)
}

func (s *BillingSyncServiceSuite) TestMissingPaymentAttemptIsRecorded() {
	event := &types.NormalizedEvent{
		ID:         "evt_noattempt_001",
		Type:       types.WebhookEventTypeCheckoutSessionCompleted,
		SubjectID:  "sub_789",
		CustomerID: "cus_789",
		Status:     types.SubscriptionStatusActive,
		Metadata: types.Metadata{
			types.MetadataKeyPaymentAttemptID: "attempt_missing",
			types.MetadataKeyOrgSlug:          "acme",
			types.MetadataKeyOrgName:          "Acme Alumni",
		},
	}

	// Role assignment is skipped but the linkage still lands
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	t, err := s.GetStores().Tenant.GetBySlug(s.GetContext(), "acme")
	s.NoError(err)
	s.Empty(s.GetStores().Tenant.Admins(t.ID))
	s.Len(s.GetStores().Audit.EventsByAction(audit.ActionMissingPaymentAttempt), 1)

	record, err := s.GetStores().Subscription.GetByTenantID(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal("sub_789", *record.ProviderSubscriptionID)
}

func (s *BillingSyncServiceSuite) TestEventWithoutLinkageIsAcknowledged() {
	event := &types.NormalizedEvent{
		ID:     "evt_nolink_001",
		Type:   types.WebhookEventTypeCheckoutSessionCompleted,
		Status: types.SubscriptionStatusActive,
	}

	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	stored, err := s.GetStores().BillingEvent.Get(s.GetContext(), event.ID)
	s.NoError(err)
	s.NotNil(stored.ProcessedAt)
}
