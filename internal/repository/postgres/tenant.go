package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alumnity/alumnity/internal/domain/tenant"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/postgres"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

type tenantRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTenantRepository(db *postgres.DB, logger *logger.Logger) tenant.Repository {
	return &tenantRepository{db: db, logger: logger}
}

func (r *tenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := `
		INSERT INTO tenants (
			id, name, slug, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :slug, :status, :created_at, :updated_at, :created_by, :updated_by
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ierr.WithError(err).
				WithHint("An organization with this slug already exists").
				WithReportableDetails(map[string]any{"slug": t.Slug}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create organization").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.GetContext(ctx, &t, `SELECT * FROM tenants WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("tenant not found").
				WithHint("Organization not found").
				WithReportableDetails(map[string]any{"tenant_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch organization").
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}

func (r *tenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.GetContext(ctx, &t, `SELECT * FROM tenants WHERE slug = $1`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("tenant not found").
				WithHint("Organization not found").
				WithReportableDetails(map[string]any{"slug": slug}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch organization").
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}

func (r *tenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	t.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE tenants SET
			name = :name,
			slug = :slug,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	_, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update organization").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *tenantRepository) CountUsage(ctx context.Context, tenantID string, kind types.UnitKind) (int64, error) {
	var query string
	switch kind {
	case types.UnitKindSeat:
		query = `SELECT COUNT(*) FROM org_members WHERE tenant_id = $1 AND status = 'published'`
	case types.UnitKindBucket:
		query = `SELECT COUNT(*) FROM media_buckets WHERE tenant_id = $1 AND status = 'published'`
	default:
		return 0, ierr.NewError("unknown unit kind").
			WithHintf("Cannot count usage for unit kind %s", kind).
			Mark(ierr.ErrValidation)
	}

	var count int64
	if err := r.db.GetContext(ctx, &count, query, tenantID); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count current usage").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *tenantRepository) GrantAdminRole(ctx context.Context, tenantID, userID string) error {
	query := `
		INSERT INTO org_members (tenant_id, user_id, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'published', NOW(), NOW())
		ON CONFLICT (tenant_id, user_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
	`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, tenantID, userID, types.RoleBillingAdmin); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to grant admin role").
			WithReportableDetails(map[string]any{"tenant_id": tenantID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
