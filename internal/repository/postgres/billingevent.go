package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alumnity/alumnity/internal/domain/billingevent"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/postgres"
	"github.com/cockroachdb/errors"
)

type billingEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewBillingEventRepository(db *postgres.DB, logger *logger.Logger) billingevent.Repository {
	return &billingEventRepository{db: db, logger: logger}
}

// Register inserts the idempotency row. The no-op DO UPDATE makes
// RETURNING yield a row on duplicates too, so a redelivery observes the
// stored processed_at. Only a stamped row counts as already processed: a
// registration left behind by a failed handler must not absorb the
// provider's redelivery, or a tenant could stay unprovisioned forever.
func (r *billingEventRepository) Register(ctx context.Context, record *billingevent.IdempotencyRecord) (bool, error) {
	query := `
		INSERT INTO billing_events (event_id, event_type, fingerprint, received_at)
		VALUES (:event_id, :event_type, :fingerprint, :received_at)
		ON CONFLICT (event_id) DO UPDATE SET event_id = EXCLUDED.event_id
		RETURNING processed_at
	`

	rows, err := r.db.NamedQueryContext(ctx, query, record)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to register event").
			WithReportableDetails(map[string]any{"event_id": record.EventID}).
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var processedAt *time.Time
	if rows.Next() {
		if err := rows.Scan(&processedAt); err != nil {
			return false, ierr.WithError(err).
				WithHint("Failed to register event").
				Mark(ierr.ErrDatabase)
		}
	}
	if err := rows.Err(); err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to register event").
			Mark(ierr.ErrDatabase)
	}

	return processedAt != nil, nil
}

func (r *billingEventRepository) MarkProcessed(ctx context.Context, eventID string) error {
	query := `UPDATE billing_events SET processed_at = $1 WHERE event_id = $2`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, time.Now().UTC(), eventID); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark event processed").
			WithReportableDetails(map[string]any{"event_id": eventID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *billingEventRepository) Get(ctx context.Context, eventID string) (*billingevent.IdempotencyRecord, error) {
	var record billingevent.IdempotencyRecord
	err := r.db.GetContext(ctx, &record, `SELECT * FROM billing_events WHERE event_id = $1`, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("event not found").
				WithHint("No record for this event id").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch event record").
			Mark(ierr.ErrDatabase)
	}
	return &record, nil
}
