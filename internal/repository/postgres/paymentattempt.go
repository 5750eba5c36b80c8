package postgres

import (
	"context"
	"database/sql"

	"github.com/alumnity/alumnity/internal/domain/paymentattempt"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/postgres"
	"github.com/cockroachdb/errors"
)

type paymentAttemptRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentAttemptRepository(db *postgres.DB, logger *logger.Logger) paymentattempt.Repository {
	return &paymentAttemptRepository{db: db, logger: logger}
}

func (r *paymentAttemptRepository) Create(ctx context.Context, attempt *paymentattempt.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (
			id, user_id, provider_session_id, org_name, org_slug, created_at
		) VALUES (
			:id, :user_id, :provider_session_id, :org_name, :org_slug, :created_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, attempt)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record payment attempt").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentAttemptRepository) GetByID(ctx context.Context, id string) (*paymentattempt.PaymentAttempt, error) {
	var attempt paymentattempt.PaymentAttempt
	err := r.db.GetContext(ctx, &attempt, `SELECT * FROM payment_attempts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("payment attempt not found").
				WithHint("No payment attempt with this id").
				WithReportableDetails(map[string]any{"payment_attempt_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch payment attempt").
			Mark(ierr.ErrDatabase)
	}
	return &attempt, nil
}

func (r *paymentAttemptRepository) SetProviderSessionID(ctx context.Context, id, providerSessionID string) error {
	query := `UPDATE payment_attempts SET provider_session_id = $1 WHERE id = $2`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, providerSessionID, id); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update payment attempt").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
