package service

import (
	"testing"
	"time"

	"github.com/alumnity/alumnity/internal/api/dto"
	"github.com/alumnity/alumnity/internal/domain/tenant"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/retry"
	"github.com/alumnity/alumnity/internal/testutil"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/stretchr/testify/suite"
)

type CheckoutServiceSuite struct {
	testutil.BaseServiceSuite
	service interfaces.CheckoutService
}

func TestCheckoutService(t *testing.T) {
	suite.Run(t, new(CheckoutServiceSuite))
}

func (s *CheckoutServiceSuite) SetupTest() {
	s.BaseServiceSuite.SetupTest()
	stores := s.GetStores()
	s.service = NewCheckoutService(ServiceParams{
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

func (s *CheckoutServiceSuite) TestInitiateCheckout() {
	resp, err := s.service.InitiateCheckout(s.GetContext(), &dto.CreateCheckoutRequest{
		OrgName:         "Acme Alumni",
		OrgSlug:         "acme",
		UnitKind:        types.UnitKindSeat,
		Quantity:        8,
		BillingInterval: types.BillingIntervalMonth,
	})

	s.NoError(err)
	s.NotEmpty(resp.PaymentAttemptID)
	s.NotEmpty(resp.SessionID)
	s.NotEmpty(resp.URL)

	s.Len(s.GetStores().Provider.CheckoutCalls, 1)
	call := s.GetStores().Provider.CheckoutCalls[0]
	s.Equal("price_seat_month", call.PriceID)
	s.Equal(int64(3), call.Quantity)
	s.Equal("acme", call.Metadata[types.MetadataKeyOrgSlug])
	s.Equal(resp.PaymentAttemptID, call.Metadata[types.MetadataKeyPaymentAttemptID])

	// The attempt row carries the initiator's identity and the session link
	attempt, err := s.GetStores().PaymentAttempt.GetByID(s.GetContext(), resp.PaymentAttemptID)
	s.NoError(err)
	s.Equal(testutil.DefaultUserID, attempt.UserID)
	s.Equal(resp.SessionID, attempt.ProviderSessionID)
}

func (s *CheckoutServiceSuite) TestInitiateCheckoutWithinFreeTier() {
	resp, err := s.service.InitiateCheckout(s.GetContext(), &dto.CreateCheckoutRequest{
		OrgName:         "Acme Alumni",
		OrgSlug:         "acme",
		UnitKind:        types.UnitKindSeat,
		Quantity:        5,
		BillingInterval: types.BillingIntervalMonth,
	})

	// Nothing to charge: no session and no attempt row
	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsValidation(err))
	s.Empty(s.GetStores().Provider.CheckoutCalls)
}

func (s *CheckoutServiceSuite) TestInitiateCheckoutRejectsTakenSlug() {
	existing := tenant.New(s.GetContext(), "Acme Alumni", "acme")
	s.NoError(s.GetStores().Tenant.Create(s.GetContext(), existing))

	resp, err := s.service.InitiateCheckout(s.GetContext(), &dto.CreateCheckoutRequest{
		OrgName:         "Acme Alumni",
		OrgSlug:         "acme",
		UnitKind:        types.UnitKindSeat,
		Quantity:        8,
		BillingInterval: types.BillingIntervalMonth,
	})

	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsAlreadyExists(err))
	s.Empty(s.GetStores().Provider.CheckoutCalls)
}

func (s *CheckoutServiceSuite) TestInitiateCheckoutYearlyInterval() {
	resp, err := s.service.InitiateCheckout(s.GetContext(), &dto.CreateCheckoutRequest{
		OrgName:         "Acme Alumni",
		OrgSlug:         "acme",
		UnitKind:        types.UnitKindBucket,
		Quantity:        4,
		BillingInterval: types.BillingIntervalYear,
	})

	s.NoError(err)
	s.NotNil(resp)
	s.Len(s.GetStores().Provider.CheckoutCalls, 1)
	s.Equal("price_bucket_year", s.GetStores().Provider.CheckoutCalls[0].PriceID)
	s.Equal(int64(2), s.GetStores().Provider.CheckoutCalls[0].Quantity)
}
