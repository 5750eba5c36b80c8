package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alumnity/alumnity/internal/domain/subscription"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/postgres"
	"github.com/cockroachdb/errors"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, record *subscription.Record) error {
	query := `
		INSERT INTO subscriptions (
			id,
			tenant_id,
			provider_customer_id,
			provider_subscription_id,
			status,
			billing_interval,
			pricing_model,
			current_period_end,
			grace_period_ends_at,
			seat_count,
			seat_item_id,
			bucket_count,
			bucket_item_id,
			created_at,
			updated_at
		) VALUES (
			:id,
			:tenant_id,
			:provider_customer_id,
			:provider_subscription_id,
			:status,
			:billing_interval,
			:pricing_model,
			:current_period_end,
			:grace_period_ends_at,
			:seat_count,
			:seat_item_id,
			:bucket_count,
			:bucket_item_id,
			:created_at,
			:updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription record").
			WithReportableDetails(map[string]any{"tenant_id": record.TenantID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) GetByTenantID(ctx context.Context, tenantID string) (*subscription.Record, error) {
	var record subscription.Record
	err := r.db.GetContext(ctx, &record, `SELECT * FROM subscriptions WHERE tenant_id = $1`, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription record not found").
				WithHint("No subscription found for this organization").
				WithReportableDetails(map[string]any{"tenant_id": tenantID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch subscription record").
			Mark(ierr.ErrDatabase)
	}
	return &record, nil
}

func (r *subscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*subscription.Record, error) {
	var record subscription.Record
	err := r.db.GetContext(ctx, &record, `SELECT * FROM subscriptions WHERE provider_subscription_id = $1`, providerSubscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription record not found").
				WithHint("No subscription found for this provider subscription").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch subscription record").
			Mark(ierr.ErrDatabase)
	}
	return &record, nil
}

func (r *subscriptionRepository) GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*subscription.Record, error) {
	var record subscription.Record
	err := r.db.GetContext(ctx, &record, `SELECT * FROM subscriptions WHERE provider_customer_id = $1`, providerCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription record not found").
				WithHint("No subscription found for this provider customer").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch subscription record").
			Mark(ierr.ErrDatabase)
	}
	return &record, nil
}

func (r *subscriptionRepository) UpdateByTenantID(ctx context.Context, tenantID string, fields *subscription.UpdateFields) error {
	return r.update(ctx, "tenant_id", tenantID, fields)
}

func (r *subscriptionRepository) UpdateByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string, fields *subscription.UpdateFields) error {
	return r.update(ctx, "provider_subscription_id", providerSubscriptionID, fields)
}

// update applies a partial update: only fields present in UpdateFields
// make it into the SET clause, plus updated_at
func (r *subscriptionRepository) update(ctx context.Context, keyColumn, keyValue string, fields *subscription.UpdateFields) error {
	set := []string{"updated_at = :updated_at"}
	args := map[string]interface{}{
		"key_value":  keyValue,
		"updated_at": time.Now().UTC(),
	}

	if fields.ProviderCustomerID != nil {
		set = append(set, "provider_customer_id = :provider_customer_id")
		args["provider_customer_id"] = *fields.ProviderCustomerID
	}
	if fields.ProviderSubscriptionID != nil {
		set = append(set, "provider_subscription_id = :provider_subscription_id")
		args["provider_subscription_id"] = *fields.ProviderSubscriptionID
	} else if fields.ClearProviderSubscriptionID {
		set = append(set, "provider_subscription_id = NULL")
	}
	if fields.Status != nil {
		set = append(set, "status = :status")
		args["status"] = *fields.Status
	}
	if fields.BillingInterval != nil {
		set = append(set, "billing_interval = :billing_interval")
		args["billing_interval"] = *fields.BillingInterval
	}
	if fields.CurrentPeriodEnd != nil {
		set = append(set, "current_period_end = :current_period_end")
		args["current_period_end"] = *fields.CurrentPeriodEnd
	} else if fields.ClearCurrentPeriodEnd {
		set = append(set, "current_period_end = NULL")
	}
	if fields.GracePeriodEndsAt != nil {
		set = append(set, "grace_period_ends_at = :grace_period_ends_at")
		args["grace_period_ends_at"] = *fields.GracePeriodEndsAt
	} else if fields.ClearGracePeriodEndsAt {
		set = append(set, "grace_period_ends_at = NULL")
	}
	if fields.SeatCount != nil {
		set = append(set, "seat_count = :seat_count")
		args["seat_count"] = *fields.SeatCount
	}
	if fields.SeatItemID != nil {
		set = append(set, "seat_item_id = :seat_item_id")
		args["seat_item_id"] = *fields.SeatItemID
	} else if fields.ClearSeatItemID {
		set = append(set, "seat_item_id = NULL")
	}
	if fields.BucketCount != nil {
		set = append(set, "bucket_count = :bucket_count")
		args["bucket_count"] = *fields.BucketCount
	}
	if fields.BucketItemID != nil {
		set = append(set, "bucket_item_id = :bucket_item_id")
		args["bucket_item_id"] = *fields.BucketItemID
	} else if fields.ClearBucketItemID {
		set = append(set, "bucket_item_id = NULL")
	}

	query := fmt.Sprintf(
		"UPDATE subscriptions SET %s WHERE %s = :key_value",
		strings.Join(set, ", "), keyColumn,
	)

	result, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription record").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription record").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("subscription record not found").
			WithHint("No subscription found to update").
			Mark(ierr.ErrNotFound)
	}

	return nil
}
