package service

import (
	"github.com/alumnity/alumnity/internal/config"
	"github.com/alumnity/alumnity/internal/domain/audit"
	"github.com/alumnity/alumnity/internal/domain/billingevent"
	"github.com/alumnity/alumnity/internal/domain/paymentattempt"
	"github.com/alumnity/alumnity/internal/domain/subscription"
	"github.com/alumnity/alumnity/internal/domain/tenant"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/postgres"
	"github.com/alumnity/alumnity/internal/retry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     *postgres.DB

	// Repositories
	TenantRepo         tenant.Repository
	SubRepo            subscription.Repository
	BillingEventRepo   billingevent.Repository
	PaymentAttemptRepo paymentattempt.Repository

	// External surfaces
	Provider  interfaces.BillingProvider
	AuditSink audit.Sink

	// LocalWriteRetry is the bounded retry policy for the local write
	// that follows a successful provider mutation
	LocalWriteRetry retry.Policy
}

// NewServiceParams assembles the common dependency bundle
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db *postgres.DB,
	tenantRepo tenant.Repository,
	subRepo subscription.Repository,
	billingEventRepo billingevent.Repository,
	paymentAttemptRepo paymentattempt.Repository,
	provider interfaces.BillingProvider,
	auditSink audit.Sink,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		DB:                 db,
		TenantRepo:         tenantRepo,
		SubRepo:            subRepo,
		BillingEventRepo:   billingEventRepo,
		PaymentAttemptRepo: paymentAttemptRepo,
		Provider:           provider,
		AuditSink:          auditSink,
		LocalWriteRetry:    retry.DefaultLocalWrite,
	}
}
