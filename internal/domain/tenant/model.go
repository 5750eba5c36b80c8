package tenant

import (
	"context"
	"time"

	"github.com/alumnity/alumnity/internal/types"
)

// Tenant represents an organization or enterprise account. Each tenant
// has at most one subscription record.
type Tenant struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Slug      string       `db:"slug" json:"slug"`
	Status    types.Status `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
	CreatedBy string       `db:"created_by" json:"created_by"`
	UpdatedBy string       `db:"updated_by" json:"updated_by"`
}

// New creates a tenant with generated id and defaulted bookkeeping fields
func New(ctx context.Context, name, slug string) *Tenant {
	now := time.Now().UTC()
	return &Tenant{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TENANT),
		Name:      name,
		Slug:      slug,
		Status:    types.StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: types.GetUserID(ctx),
		UpdatedBy: types.GetUserID(ctx),
	}
}
