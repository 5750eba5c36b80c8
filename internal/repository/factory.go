package repository

import (
	"github.com/alumnity/alumnity/internal/domain/billingevent"
	"github.com/alumnity/alumnity/internal/domain/paymentattempt"
	"github.com/alumnity/alumnity/internal/domain/subscription"
	"github.com/alumnity/alumnity/internal/domain/tenant"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/postgres"
	postgresRepo "github.com/alumnity/alumnity/internal/repository/postgres"
)

func NewTenantRepository(db *postgres.DB, logger *logger.Logger) tenant.Repository {
	return postgresRepo.NewTenantRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewBillingEventRepository(db *postgres.DB, logger *logger.Logger) billingevent.Repository {
	return postgresRepo.NewBillingEventRepository(db, logger)
}

func NewPaymentAttemptRepository(db *postgres.DB, logger *logger.Logger) paymentattempt.Repository {
	return postgresRepo.NewPaymentAttemptRepository(db, logger)
}
