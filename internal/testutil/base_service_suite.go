package testutil

import (
	"context"

	"github.com/alumnity/alumnity/internal/config"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/alumnity/alumnity/internal/validator"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// Stores bundles the in-memory doubles a service test needs
type Stores struct {
	Tenant         *InMemoryTenantStore
	Subscription   *InMemorySubscriptionStore
	BillingEvent   *InMemoryBillingEventStore
	PaymentAttempt *InMemoryPaymentAttemptStore
	Provider       *FakeBillingProvider
	Audit          *AuditRecorder
}

// BaseServiceSuite provides common setup for service tests: a request
// context with an authenticated actor, a test configuration and fresh
// in-memory stores per test.
type BaseServiceSuite struct {
	suite.Suite
	ctx    context.Context
	logger *logger.Logger
	config *config.Configuration
	stores Stores
}

func (s *BaseServiceSuite) SetupSuite() {
	validator.NewValidator()
	s.logger = NewTestLogger()
	s.config = NewTestConfig()
}

func (s *BaseServiceSuite) SetupTest() {
	s.ctx = SetupContext()
	s.stores = Stores{
		Tenant:         NewInMemoryTenantStore(),
		Subscription:   NewInMemorySubscriptionStore(),
		BillingEvent:   NewInMemoryBillingEventStore(),
		PaymentAttempt: NewInMemoryPaymentAttemptStore(),
		Provider:       NewFakeBillingProvider(),
		Audit:          NewAuditRecorder(),
	}
}

func (s *BaseServiceSuite) TearDownTest() {
	s.stores.Tenant.Clear()
	s.stores.Subscription.Clear()
	s.stores.BillingEvent.Clear()
	s.stores.PaymentAttempt.Clear()
	s.stores.Provider.Clear()
	s.stores.Audit.Clear()
}

func (s *BaseServiceSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceSuite) GetStores() Stores {
	return s.stores
}

// NewTestLogger returns a logger that discards everything
func NewTestLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// NewTestConfig returns a configuration with the plan shapes and limits
// the service tests assume
func NewTestConfig() *config.Configuration {
	return &config.Configuration{
		Deployment: config.DeploymentConfig{Mode: types.ModeLocal},
		Server:     config.ServerConfig{Address: ":0"},
		Logging:    config.LoggingConfig{Level: types.LogLevelError},
		Auth:       config.AuthConfig{Secret: "test-secret"},
		Stripe: config.StripeConfig{
			SecretKey:     "sk_test_123",
			WebhookSecret: "whsec_test_123",
			SuccessURL:    "https://app.example.com/billing/success",
			CancelURL:     "https://app.example.com/billing/cancel",
		},
		Billing: config.BillingConfig{
			PricingModel:         types.PricingModelPerUnit,
			GracePeriodDays:      30,
			MaxSelfServeQuantity: 1000,
			Seats: config.PlanShapeConfig{
				FreeThreshold:  5,
				UnitPriceCents: 700,
				PriceIDMonth:   "price_seat_month",
				PriceIDYear:    "price_seat_year",
			},
			Buckets: config.PlanShapeConfig{
				FreeThreshold:  2,
				UnitPriceCents: 500,
				PriceIDMonth:   "price_bucket_month",
				PriceIDYear:    "price_bucket_year",
			},
		},
		Webhook: config.WebhookConfig{
			RateLimitRPS:   5,
			RateLimitBurst: 20,
		},
	}
}
